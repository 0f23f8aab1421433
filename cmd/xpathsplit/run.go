package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/woshijl58/xpathsplit/automaton"
	"github.com/woshijl58/xpathsplit/orchestrate"
	"github.com/woshijl58/xpathsplit/xpatherr"
	"github.com/woshijl58/xpathsplit/xpresult"
)

func runRoot(cmd *cobra.Command, args []string) error {
	pathBytes, err := os.ReadFile(rootFlags.xpathPath)
	if err != nil {
		return &xpatherr.IOError{Path: rootFlags.xpathPath, Cause: err}
	}
	auto := automaton.Compile(strings.TrimSpace(string(pathBytes)))
	printEdges(cmd.OutOrStdout(), auto)

	n, mode, err := readRunConfig(os.Stdin)
	if err != nil {
		return &xpatherr.ConfigError{Cause: err}
	}

	workers := n
	if mode == 0 {
		workers = 1
	}

	out := cmd.OutOrStdout()
	var progressMu sync.Mutex
	res, err := orchestrate.Run(cmd.Context(), orchestrate.Config{
		XMLPath: rootFlags.xmlPath,
		Auto:    auto,
		Workers: workers,
		Progress: func(chunkIndex int, phase string, r *xpresult.Result) {
			progressMu.Lock()
			defer progressMu.Unlock()
			switch phase {
			case "start":
				fmt.Fprintf(out, "worker %d: started\n", chunkIndex)
			case "done":
				fmt.Fprintf(out, "worker %d: finished: %s\n", chunkIndex, r)
			}
		},
	})
	if err != nil {
		var noMatch *xpatherr.NoMatchError
		if errors.As(err, &noMatch) {
			fmt.Fprintln(out, noMatch.Error())
			return nil
		}
		return err
	}

	fmt.Fprintln(out, res.String())
	return nil
}

// readRunConfig reads the worker count and mode selector as two lines
// from r: the first line is the worker count (must be >= 1, the upper
// bound of 10 being a scheduling guideline rather than a hard limit this
// code enforces), the second is the mode (0=sequential, 1=parallel).
func readRunConfig(r *os.File) (workers, mode int, err error) {
	scanner := bufio.NewScanner(r)

	if !scanner.Scan() {
		return 0, 0, fmt.Errorf("missing worker count line")
	}
	workers, err = strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil || workers < 1 {
		return 0, 0, fmt.Errorf("invalid worker count %q", scanner.Text())
	}

	if !scanner.Scan() {
		return 0, 0, fmt.Errorf("missing mode line")
	}
	mode, err = strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil || (mode != 0 && mode != 1) {
		return 0, 0, fmt.Errorf("invalid mode %q: must be 0 (sequential) or 1 (parallel)", scanner.Text())
	}

	return workers, mode, nil
}

// printEdges dumps the compiled automaton's edge table, forward then
// reverse per step, matching the diagnostic the original C implementation
// printed before evaluating a document.
func printEdges(w io.Writer, auto *automaton.Automaton) {
	for _, e := range auto.Edges() {
		kind := "open"
		if e.Reverse {
			kind = "close"
		}
		suffix := ""
		if e.Output {
			suffix = " [output]"
		}
		fmt.Fprintf(w, "state %d --(%s %s)--> state %d%s\n", e.From, kind, e.Label, e.To, suffix)
	}
}
