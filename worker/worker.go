// Package worker drives one chunk's tokenizer into a dualtree.Tree and
// harvests the chunk's speculative parse outcome.
package worker

import (
	"context"
	"fmt"

	"github.com/woshijl58/xpathsplit/automaton"
	"github.com/woshijl58/xpathsplit/dualtree"
	"github.com/woshijl58/xpathsplit/xmlchunk"
	"github.com/woshijl58/xpathsplit/xmltoken"
	"github.com/woshijl58/xpathsplit/xpatherr"
	"github.com/woshijl58/xpathsplit/xpresult"
)

// Seed describes which automaton states a worker must seed its tree with
// before tokenizing. Worker 0 owns the document's true root, so it knows
// its chunk begins at state 1; every other worker has no such guarantee
// and must track one hypothesis per possible entry state.
type Seed struct {
	States []int
}

// FirstChunk is the seed for the chunk that opens the document: the only
// state it could possibly begin at is the automaton's start state.
func FirstChunk() Seed { return Seed{States: []int{1}} }

// OtherChunk is the seed for every chunk but the first: one hypothesis
// per state the automaton can be in, since nothing is known about what
// came before this chunk's first byte.
func OtherChunk(a *automaton.Automaton) Seed {
	states := make([]int, a.NumStates())
	for i := range states {
		states[i] = i + 1
	}
	return Seed{States: states}
}

// Run tokenizes chunk.Data against auto, seeding a single dualtree.Tree
// with one root hypothesis per entry in seed.States (so that divergent
// hypotheses can merge back together as the chunk resolves them), then
// harvests the surviving hypothesis into a Result for the chunk. A
// tokenizer error is caught and returned as a Failed Result rather than
// as a function error: only unexpected failures (a cancelled context, an
// empty seed) are surfaced through the error return, matching the contract
// the orchestrator's errgroup expects.
func Run(ctx context.Context, auto *automaton.Automaton, chunk xmlchunk.Chunk, seed Seed) (xpresult.Result, error) {
	if err := ctx.Err(); err != nil {
		return xpresult.Result{}, err
	}
	if len(seed.States) == 0 {
		return xpresult.Result{}, fmt.Errorf("chunk %d: no seed states provided", chunk.Index)
	}

	tree := dualtree.New(auto, seed.States)

	tok := xmltoken.New(chunk.Data)
	for {
		tk, err := tok.Next()
		if err != nil {
			return xpresult.Result{
				ChunkIndex: chunk.Index,
				Failed:     true,
				Cause:      &xpatherr.ParseError{ChunkIndex: chunk.Index, Offset: tok.Pos(), Cause: err},
			}, nil
		}
		if tk.Kind == xmltoken.EOF {
			break
		}
		switch tk.Kind {
		case xmltoken.Open:
			tree.HandleOpen(tk.Name)
		case xmltoken.Close:
			tree.HandleClose(tk.Name)
		case xmltoken.Text:
			tree.HandleText(tk.Text)
		}
	}

	h := tree.Harvest()
	return xpresult.Result{
		ChunkIndex: chunk.Index,
		BeginState: h.BeginState,
		BeginStack: h.BeginStack,
		EndState:   h.EndState,
		EndStack:   h.EndStack,
		Output:     h.Output,
		HasOutput:  h.HasOutput,
	}, nil
}
