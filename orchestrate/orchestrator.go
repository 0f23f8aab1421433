// Package orchestrate wires the splitter, workers and merger together:
// split the document, run one worker per chunk, join, and merge.
// Sequential execution (one worker) and parallel execution (many workers)
// run the exact same code path, so their outputs are byte-identical by
// construction rather than by coincidence.
package orchestrate

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/woshijl58/xpathsplit/automaton"
	"github.com/woshijl58/xpathsplit/merge"
	"github.com/woshijl58/xpathsplit/worker"
	"github.com/woshijl58/xpathsplit/xmlchunk"
	"github.com/woshijl58/xpathsplit/xpatherr"
	"github.com/woshijl58/xpathsplit/xpresult"
)

// Config controls one run of the engine.
type Config struct {
	XMLPath string
	Auto    *automaton.Automaton
	Workers int // number of chunks to split the document into

	// Progress, if set, is called once when a chunk's worker starts and
	// once when it finishes (with its harvested Result). It is invoked
	// concurrently from every worker goroutine and must be safe for that.
	Progress func(chunkIndex int, phase string, res *xpresult.Result)
}

// Run splits cfg.XMLPath into cfg.Workers chunks, evaluates cfg.Auto
// against each chunk concurrently, and merges the results in chunk
// order. Failures outside the speculative parse itself (I/O, bad
// configuration, a cancelled context) are returned as ordinary errors; an
// incompatible merge, a failed chunk, or an XPath with no steps is
// returned as *xpatherr.NoMatchError, which callers should treat as a
// normal, non-fatal outcome.
func Run(ctx context.Context, cfg Config) (xpresult.Result, error) {
	chunks, err := xmlchunk.Split(cfg.XMLPath, cfg.Workers)
	if err != nil {
		return xpresult.Result{}, err
	}
	defer func() {
		for _, c := range chunks {
			_ = c.Release()
		}
	}()

	if cfg.Auto.NumStates() == 1 {
		return xpresult.Result{}, &xpatherr.NoMatchError{Reason: "the XPath expression has no steps"}
	}

	results := make([]xpresult.Result, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range chunks {
		c := c
		seed := seedFor(c.Index, cfg.Auto)
		g.Go(func() error {
			if cfg.Progress != nil {
				cfg.Progress(c.Index, "start", nil)
			}
			res, err := worker.Run(gctx, cfg.Auto, c, seed)
			if err != nil {
				return err
			}
			results[c.Index] = res
			if cfg.Progress != nil {
				cfg.Progress(c.Index, "done", &res)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return xpresult.Result{}, err
	}

	return merge.Compose(results)
}

func seedFor(chunkIndex int, a *automaton.Automaton) worker.Seed {
	if chunkIndex == 0 {
		return worker.FirstChunk()
	}
	return worker.OtherChunk(a)
}
