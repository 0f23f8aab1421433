// Package xpresult defines the per-chunk outcome produced by a worker and
// consumed by the merge step, along with its human-readable rendering.
package xpresult

import (
	"fmt"
	"strconv"
	"strings"
)

// Result is one chunk's speculative parse outcome. BeginStack and
// EndStack are root-to-leaf state stacks in the chunk's start and finish
// trees respectively. BeginState is BeginStack's deepest (leaf) entry;
// EndState is EndStack's first entry, the finish tree's root child, which
// holds the state the chunk ends in.
type Result struct {
	ChunkIndex int
	BeginState int
	BeginStack []int
	EndState   int
	EndStack   []int
	Output     string
	HasOutput  bool

	// Failed marks a chunk whose tokenizer hit a fatal, unrecoverable
	// transition. Cause carries the underlying error.
	Failed bool
	Cause  error
}

// String renders a Result as the "state, stack, state, stack, output"
// mapping line this system prints per chunk, matching the format used
// for the final merged result.
func (r Result) String() string {
	if r.Failed {
		return fmt.Sprintf("chunk %d: failed: %v", r.ChunkIndex, r.Cause)
	}
	out := "null"
	if r.HasOutput {
		out = strconv.Quote(r.Output)
	}
	return fmt.Sprintf("%d, %s, %d, %s, %s",
		r.BeginState, formatStack(r.BeginStack),
		r.EndState, formatStack(r.EndStack),
		out)
}

func formatStack(stack []int) string {
	if len(stack) == 0 {
		return "-"
	}
	parts := make([]string, len(stack))
	for i, s := range stack {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ":")
}
