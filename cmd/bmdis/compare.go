package main

import (
	"fmt"
	"strings"

	"github.com/accelkit/bmdis/internal/diff"
	"github.com/accelkit/bmdis/internal/dis"
	"github.com/accelkit/bmdis/internal/logger"
)

// compare decodes both containers to module form and diffs their
// instruction streams per subgraph pair. Subgraphs are paired
// positionally; mismatched subgraph counts fail fast instead of silently
// truncating to the shorter container.
func compare(log logger.Logger, pathA, pathB string) error {
	formatter, err := diff.ParseFormatter(formatFlag)
	if err != nil {
		return err
	}

	fa, ctxA, err := openModel(log, pathA)
	if err != nil {
		return err
	}
	defer func() { _ = fa.Close() }()

	fb, ctxB, err := openModel(log, pathB)
	if err != nil {
		return err
	}
	defer func() { _ = fb.Close() }()

	ma, err := dis.ToModule(ctxA, fa)
	if err != nil {
		return fmt.Errorf("%s: %w", pathA, err)
	}
	mb, err := dis.ToModule(ctxB, fb)
	if err != nil {
		return fmt.Errorf("%s: %w", pathB, err)
	}

	if len(ma.Funcs) != len(mb.Funcs) {
		return fmt.Errorf("subgraph count mismatch: %s has %d, %s has %d",
			pathA, len(ma.Funcs), pathB, len(mb.Funcs))
	}

	same := true
	for i := range ma.Funcs {
		lines := diff.Unified(ma.Funcs[i].Ops, mb.Funcs[i].Ops,
			pathA, pathB, contextLines, formatter)
		if len(lines) == 0 {
			continue
		}
		same = false
		// The last line is the trailing group separator; wrap the rest
		// in a pseudo-function block labeled by the pair's index path.
		body := "\n" + strings.Join(lines[:len(lines)-1], "\n") + "\n"
		fmt.Printf("func.func @%s() {%s}\n", ma.Funcs[i].Name(), body)
	}

	if same {
		fmt.Printf("%q and %q are the same!\n", pathA, pathB)
		return nil
	}
	return errDiffer
}
