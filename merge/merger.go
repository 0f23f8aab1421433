// Package merge composes the per-chunk results harvested by the workers,
// left to right in chunk order, into a single answer for the whole
// document.
package merge

import (
	"fmt"

	"github.com/woshijl58/xpathsplit/xpatherr"
	"github.com/woshijl58/xpathsplit/xpresult"
)

// Compose merges results, which must already be ordered by ChunkIndex,
// into one final Result. A failed chunk, or a state mismatch between two
// adjacent chunks, produces a *xpatherr.NoMatchError rather than a
// function error — this is a reportable outcome, not a bug.
func Compose(results []xpresult.Result) (xpresult.Result, error) {
	if len(results) == 0 {
		return xpresult.Result{}, &xpatherr.NoMatchError{Reason: "no chunks to merge"}
	}

	for _, r := range results {
		if r.Failed {
			return xpresult.Result{}, &xpatherr.NoMatchError{
				Reason: fmt.Sprintf("chunk %d failed: %v", r.ChunkIndex, r.Cause),
			}
		}
	}

	acc := results[0]
	for _, next := range results[1:] {
		if acc.EndState != next.BeginState {
			return xpresult.Result{}, &xpatherr.NoMatchError{
				Reason: fmt.Sprintf("chunk %d ends in state %d but chunk %d begins in state %d",
					acc.ChunkIndex, acc.EndState, next.ChunkIndex, next.BeginState),
			}
		}

		acc.Output = joinOutput(acc.Output, next.Output)
		acc.HasOutput = acc.HasOutput || next.HasOutput

		if cancels(acc.EndStack, next.BeginStack) {
			acc.EndStack = next.EndStack
		} else {
			acc.EndStack = append(append([]int{}, acc.EndStack...), next.EndStack...)
		}
		acc.EndState = next.EndState
		acc.ChunkIndex = next.ChunkIndex
	}

	return acc, nil
}

// cancels reports whether stack a, reversed, equals stack b exactly —
// the condition under which a chunk boundary's exit stack and the next
// chunk's entry stack annihilate each other.
func cancels(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[len(b)-1-i] {
			return false
		}
	}
	return true
}

func joinOutput(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + " " + b
}
