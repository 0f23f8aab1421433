package dualtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woshijl58/xpathsplit/automaton"
)

func TestHarvestWholeMatchCapturesOutput(t *testing.T) {
	a := automaton.Compile("/r/x")
	tree := New(a, []int{1})

	tree.HandleOpen("r")
	tree.HandleOpen("x")
	tree.HandleText("hello")
	tree.HandleClose("x")
	tree.HandleClose("r")

	res := tree.Harvest()
	assert.Equal(t, 1, res.BeginState)
	assert.Equal(t, 1, res.EndState)
	assert.True(t, res.HasOutput)
	assert.Equal(t, "hello", res.Output)
}

func TestHarvestUnrelatedElementGoesToOverflowAndReturns(t *testing.T) {
	a := automaton.Compile("/r/x")
	tree := New(a, []int{1})

	tree.HandleOpen("r")
	tree.HandleOpen("other")
	tree.HandleClose("other")
	tree.HandleOpen("x")
	tree.HandleText("hi")
	tree.HandleClose("x")
	tree.HandleClose("r")

	res := tree.Harvest()
	assert.Equal(t, 1, res.BeginState)
	assert.Equal(t, 1, res.EndState)
	assert.Equal(t, "hi", res.Output)
}

func TestHarvestNestedOverflowDoesNotAlias(t *testing.T) {
	a := automaton.Compile("/r/x")
	tree := New(a, []int{1})

	tree.HandleOpen("other")
	tree.HandleOpen("other2")
	tree.HandleOpen("other3")
	tree.HandleClose("other3")
	tree.HandleClose("other2")
	tree.HandleClose("other")

	res := tree.Harvest()
	assert.Equal(t, 1, res.BeginState)
	assert.Equal(t, 1, res.EndState)
	assert.False(t, res.HasOutput)
}

func TestHarvestChunkEndsMidElementLeavesNonzeroEndState(t *testing.T) {
	a := automaton.Compile("/r/x")
	tree := New(a, []int{1})

	tree.HandleOpen("r")
	tree.HandleOpen("x")
	tree.HandleText("partial")

	res := tree.Harvest()
	assert.Equal(t, 1, res.BeginState)
	assert.Equal(t, 3, res.EndState)
	assert.Equal(t, "partial", res.Output)
}

func TestHarvestCloseWithNoMatchingOpenGrowsStartTree(t *testing.T) {
	a := automaton.Compile("/r/x")
	tree := New(a, []int{3})

	tree.HandleText("tail")
	tree.HandleClose("x")

	res := tree.Harvest()
	require.Len(t, res.BeginStack, 2, "the unmatched close should add one speculative ancestor")
	assert.Equal(t, 3, res.EndState, "a hypothesis seeded past its own close stays at that state")
	assert.Equal(t, "tail", res.Output)
}

func TestHarvestMultiSeedChunkDisambiguatesByMatchingClose(t *testing.T) {
	a := automaton.Compile("/r/x")
	tree := New(a, []int{1, 2, 3})

	tree.HandleClose("x")
	tree.HandleClose("r")

	res := tree.Harvest()
	assert.Equal(t, 1, res.EndState)
}
