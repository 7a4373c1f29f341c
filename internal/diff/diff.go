// Package diff computes line-level change summaries between two text
// snapshots. It is used after whole-file rewrites to report a compact
// "+N −N ~N" summary to the user.
package diff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Summary counts line-level differences between two snapshots.
// A deletion paired with an insertion at the same aligned position is
// counted once as a change, not as a deletion plus an addition.
type Summary struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Changes   int `json:"changes"`
}

// IsZero reports whether the summary records no differences.
func (s Summary) IsZero() bool {
	return s.Additions == 0 && s.Deletions == 0 && s.Changes == 0
}

// Summarize aligns the two texts line by line (longest common subsequence)
// and classifies unmatched lines. Within a replaced run, min(deleted,
// inserted) lines count as changes and the excess as pure additions or
// deletions. Identical inputs always yield the zero Summary.
func Summarize(original, modified string) Summary {
	a := SplitLines(original)
	b := SplitLines(modified)

	var sum Summary
	m := difflib.NewMatcher(a, b)
	for _, op := range m.GetOpCodes() {
		del := op.I2 - op.I1
		ins := op.J2 - op.J1
		switch op.Tag {
		case 'r':
			changed := del
			if ins < changed {
				changed = ins
			}
			sum.Changes += changed
			sum.Deletions += del - changed
			sum.Additions += ins - changed
		case 'd':
			sum.Deletions += del
		case 'i':
			sum.Additions += ins
		}
	}
	return sum
}

// Unified renders a unified diff between the two snapshots for display.
func Unified(original, modified string) (string, error) {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(modified),
		FromFile: "original",
		ToFile:   "improved",
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(ud)
}

// SplitLines splits file content into lines. Handles both LF and CRLF.
// A trailing newline does not produce an extra empty line.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	// Normalize CRLF to LF
	content = strings.ReplaceAll(content, "\r\n", "\n")
	// Remove trailing newline to avoid ghost empty line
	content = strings.TrimSuffix(content, "\n")
	return strings.Split(content, "\n")
}

// JoinLines joins lines back into file content with a trailing newline.
func JoinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
