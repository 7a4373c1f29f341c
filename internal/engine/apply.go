package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/youruser/mend/internal/diff"
	"github.com/youruser/mend/internal/rewrite"
)

// ErrOverlappingEdits is returned when a precise-edit batch contains
// overlapping line ranges. The buffer is never touched in that case.
var ErrOverlappingEdits = errors.New("precise edits overlap")

// ApplyResult reports what happened to the buffer. Failed counts individual
// precise edits (or a selection replacement) that could not be applied;
// partial failure is a warning for the caller to surface, never fatal.
type ApplyResult struct {
	Applied   int
	Failed    int
	Warnings  []string
	FinalText string
}

// Apply mutates buf with the rewrite result using the strategy implied by
// the original target. The buffer is always left in a well-defined state:
// fully updated, partially updated (precise edits), or untouched.
func Apply(buf Buffer, target Target, res rewrite.Result) (ApplyResult, error) {
	var out ApplyResult

	// The version counter detects (not prevents) user edits that landed
	// between snapshot and apply. The replacement still wins over the
	// stale snapshot region; the caller surfaces the warning.
	if buf.Version() != target.SnapshotVersion {
		out.Warnings = append(out.Warnings, fmt.Sprintf(
			"document changed since the request was made (v%d -> v%d); intervening edits in the rewritten region may be lost",
			target.SnapshotVersion, buf.Version()))
	}

	switch res.Kind {
	case rewrite.FullReplacement:
		applyFullReplacement(buf, target, res.Text, &out)
	case rewrite.PreciseEdits:
		if err := applyPreciseEdits(buf, res.Edits, &out); err != nil {
			return ApplyResult{}, err
		}
	default:
		return ApplyResult{}, fmt.Errorf("unknown result kind %d", res.Kind)
	}

	out.FinalText = buf.Text()
	return out, nil
}

func applyFullReplacement(buf Buffer, target Target, text string, out *ApplyResult) {
	switch target.Kind {
	case TargetWholeFile:
		buf.SetText(text)
		out.Applied++
	case TargetSelection:
		if err := buf.ReplaceRange(target.Range, text); err != nil {
			// Document shrank below the captured range while the request
			// was in flight. Leave the buffer unchanged for this edit.
			out.Failed++
			out.Warnings = append(out.Warnings, fmt.Sprintf(
				"selection %s no longer fits the document, replacement skipped: %v", target.Range, err))
			return
		}
		out.Applied++
	case TargetGenerate:
		buf.InsertAt(target.Caret, text)
		out.Applied++
	}
}

// applyPreciseEdits resolves 1-indexed line ranges against the current
// buffer, not the request-time snapshot. Edits are validated for overlap
// first, then applied over one immutable line snapshot, bottom to top so
// earlier line numbers stay valid.
func applyPreciseEdits(buf Buffer, edits []rewrite.PreciseEdit, out *ApplyResult) error {
	if len(edits) == 0 {
		return nil
	}

	ordered := make([]rewrite.PreciseEdit, len(edits))
	copy(ordered, edits)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartLine < ordered[j].StartLine
	})

	for i := 1; i < len(ordered); i++ {
		prev, curr := ordered[i-1], ordered[i]
		if curr.StartLine <= prev.EndLine {
			return fmt.Errorf("%w: lines %d-%d and %d-%d",
				ErrOverlappingEdits, prev.StartLine, prev.EndLine, curr.StartLine, curr.EndLine)
		}
	}

	text := buf.Text()
	hadTrailingNewline := strings.HasSuffix(text, "\n")
	lines := diff.SplitLines(text)

	// Bottom-to-top splice over the snapshot keeps line numbers stable.
	for i := len(ordered) - 1; i >= 0; i-- {
		e := ordered[i]
		if e.StartLine < 1 || e.EndLine < e.StartLine || e.EndLine > len(lines) {
			out.Failed++
			out.Warnings = append(out.Warnings, fmt.Sprintf(
				"edit %d-%d outside current document (%d lines), skipped", e.StartLine, e.EndLine, len(lines)))
			continue
		}
		replacement := diff.SplitLines(e.Code)
		spliced := make([]string, 0, len(lines)-(e.EndLine-e.StartLine+1)+len(replacement))
		spliced = append(spliced, lines[:e.StartLine-1]...)
		spliced = append(spliced, replacement...)
		spliced = append(spliced, lines[e.EndLine:]...)
		lines = spliced
		out.Applied++
	}

	if out.Applied == 0 {
		return nil
	}

	joined := strings.Join(lines, "\n")
	if hadTrailingNewline && joined != "" {
		joined += "\n"
	}
	buf.SetText(joined)
	return nil
}
