package diff

import (
	"fmt"

	"github.com/accelkit/bmdis/internal/isa"
)

// Formatter projects one decoded instruction to its comparison text.
type Formatter func(op *isa.Inst) string

// FormatModule compares full instruction text.
func FormatModule(op *isa.Inst) string { return op.String() }

// FormatReg compares the raw register mapping text.
func FormatReg(op *isa.Inst) string { return op.RegText() }

// FormatBits compares the raw command bytes.
func FormatBits(op *isa.Inst) string { return op.BitsText() }

// ParseFormatter maps a CLI format name to its formatter. "mlir" and
// "bin" both compare full instruction text; "bits" compares raw bytes.
func ParseFormatter(format string) (Formatter, error) {
	switch format {
	case "mlir", "bin":
		return FormatModule, nil
	case "reg":
		return FormatReg, nil
	case "bits":
		return FormatBits, nil
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

// Unified compares the operations of two instruction sequences and
// renders the delta as unified-diff-style lines: a file header, then per
// hunk a range header and the hunk lines prefixed "    " (context),
// "-   " (only in a) and "+   " (only in b). A nil slice is returned
// when the sequences compare equal; not even headers are emitted. The
// number of context lines is set by n.
func Unified(a, b []*isa.Inst, fromName, toName string, n int, format Formatter) []string {
	ka := make([]string, len(a))
	for i, op := range a {
		ka[i] = format(op)
	}
	kb := make([]string, len(b))
	for j, op := range b {
		kb[j] = format(op)
	}

	groups := NewMatcher(ka, kb).GetGroupedOpCodes(n)
	if len(groups) == 0 {
		return nil
	}

	lines := []string{
		"--- " + fromName,
		"+++ " + toName,
	}
	for _, group := range groups {
		first, last := group[0], group[len(group)-1]
		lines = append(lines, fmt.Sprintf("@@ -%s +%s @@",
			formatRangeUnified(first.I1, last.I2),
			formatRangeUnified(first.J1, last.J2)))

		for _, c := range group {
			if c.Tag == TagEqual {
				for _, line := range ka[c.I1:c.I2] {
					lines = append(lines, "    "+line)
				}
				continue
			}
			if c.Tag == TagReplace || c.Tag == TagDelete {
				for _, line := range ka[c.I1:c.I2] {
					lines = append(lines, "-   "+line)
				}
			}
			if c.Tag == TagReplace || c.Tag == TagInsert {
				for _, line := range kb[c.J1:c.J2] {
					lines = append(lines, "+   "+line)
				}
			}
		}
		lines = append(lines, "")
	}
	return lines
}

// formatRangeUnified renders a half-open index range in unified-diff
// "start,length" form with its 1-based origin quirks.
func formatRangeUnified(start, stop int) string {
	beginning := start + 1
	length := stop - start
	if length == 1 {
		return fmt.Sprintf("%d", beginning)
	}
	if length == 0 {
		beginning--
	}
	return fmt.Sprintf("%d,%d", beginning, length)
}
