package automaton

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		steps int
	}{
		{"leading slash", "/r/x/y", 3},
		{"no leading slash", "r/x/y", 3},
		{"repeated slashes", "//r//x/", 2},
		{"empty", "", 0},
		{"root only", "/", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Compile(tt.path)
			assert.Equal(t, tt.steps+1, a.NumStates())
		})
	}
}

func TestForward(t *testing.T) {
	a := Compile("/r/x")
	next, ok := a.Forward(1, "r")
	require.True(t, ok)
	assert.Equal(t, 2, next)

	next, ok = a.Forward(2, "x")
	require.True(t, ok)
	assert.Equal(t, 3, next)

	_, ok = a.Forward(1, "x")
	assert.False(t, ok)

	_, ok = a.Forward(0, "r")
	assert.False(t, ok, "state 0 has no outgoing forward edges")

	_, ok = a.Forward(3, "r")
	assert.False(t, ok, "the output state has no outgoing forward edges")
}

func TestReverse(t *testing.T) {
	a := Compile("/r/x")
	begin, end, ok := a.Reverse("x")
	require.True(t, ok)
	assert.Equal(t, 3, begin)
	assert.Equal(t, 2, end)

	begin, end, ok = a.Reverse("r")
	require.True(t, ok)
	assert.Equal(t, 2, begin)
	assert.Equal(t, 1, end)

	_, _, ok = a.Reverse("nope")
	assert.False(t, ok)
}

func TestReverseRepeatedLabelPicksInnermost(t *testing.T) {
	a := Compile("/a/b/a")
	begin, end, ok := a.Reverse("a")
	require.True(t, ok)
	assert.Equal(t, 4, begin)
	assert.Equal(t, 3, end)
}

func TestIsOutputState(t *testing.T) {
	a := Compile("/r/x")
	assert.False(t, a.IsOutputState(1))
	assert.False(t, a.IsOutputState(2))
	assert.True(t, a.IsOutputState(3))
}

func TestIdempotentCompilation(t *testing.T) {
	a1 := Compile("/r/x/y")
	a2 := Compile("/r/x/y")
	assert.Equal(t, a1.Edges(), a2.Edges())
}

func TestEdges(t *testing.T) {
	a := Compile("/r/x")
	edges := a.Edges()
	require.Len(t, edges, 4)
	assert.Equal(t, Edge{From: 1, To: 2, Label: "r", Output: false, Reverse: false}, edges[0])
	assert.Equal(t, Edge{From: 2, To: 1, Label: "r", Output: false, Reverse: true}, edges[1])
	assert.Equal(t, Edge{From: 2, To: 3, Label: "x", Output: true, Reverse: false}, edges[2])
	assert.Equal(t, Edge{From: 3, To: 2, Label: "x", Output: true, Reverse: true}, edges[3])
}
