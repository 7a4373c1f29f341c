// Package document holds the mutable text buffer the rewrite engine
// reconciles against. The buffer carries a monotonically increasing version
// counter, bumped on every mutation, so the engine can detect edits that
// landed between snapshot and apply.
package document

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var ErrRangeOutOfBounds = errors.New("range outside document bounds")

// Selection is an editor range. Lines and columns are 1-indexed, matching
// the editor surface convention; the end position is exclusive in columns.
type Selection struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}

// IsEmpty reports whether the selection spans no characters.
func (s Selection) IsEmpty() bool {
	return s.StartLine == s.EndLine && s.StartCol == s.EndCol
}

func (s Selection) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", s.StartLine, s.StartCol, s.EndLine, s.EndCol)
}

// Caret is a cursor position (1-indexed line and column).
type Caret struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

// Snapshot is an immutable copy of the buffer at a point in time.
type Snapshot struct {
	Text    string
	Version int
}

// Document is a text buffer with a version counter. It is not internally
// synchronized; callers serialize access the same way the RPC dispatcher
// serializes buffer-mutating actions.
type Document struct {
	text    string
	version int
}

// New creates a document with the given content at version 1.
func New(text string) *Document {
	return &Document{text: text, version: 1}
}

// Text returns the current buffer content.
func (d *Document) Text() string {
	return d.text
}

// Version returns the current version counter.
func (d *Document) Version() int {
	return d.version
}

// Snapshot captures the current content and version.
func (d *Document) Snapshot() Snapshot {
	return Snapshot{Text: d.text, Version: d.version}
}

// LineCount returns the number of lines in the buffer. An empty buffer has
// zero lines; a trailing newline does not add one.
func (d *Document) LineCount() int {
	if d.text == "" {
		return 0
	}
	n := strings.Count(d.text, "\n") + 1
	if strings.HasSuffix(d.text, "\n") {
		n--
	}
	return n
}

// SetText replaces the entire buffer in one operation and bumps the
// version once.
func (d *Document) SetText(text string) {
	d.text = text
	d.version++
}

// SliceRange returns the text covered by the selection.
func (d *Document) SliceRange(sel Selection) (string, error) {
	start, end, err := d.rangeOffsets(sel)
	if err != nil {
		return "", err
	}
	return d.text[start:end], nil
}

// ReplaceRange replaces the selection with text and bumps the version.
// The buffer is untouched if the range no longer fits the document.
func (d *Document) ReplaceRange(sel Selection, text string) error {
	start, end, err := d.rangeOffsets(sel)
	if err != nil {
		return err
	}
	d.text = d.text[:start] + text + d.text[end:]
	d.version++
	return nil
}

// InsertAt inserts text at the caret position, clamping a caret that fell
// past the end of the buffer to the buffer end.
func (d *Document) InsertAt(c Caret, text string) {
	off, err := d.offsetAt(c.Line, c.Col)
	if err != nil {
		off = len(d.text)
	}
	d.text = d.text[:off] + text + d.text[off:]
	d.version++
}

// rangeOffsets resolves a selection to byte offsets, validating both ends.
func (d *Document) rangeOffsets(sel Selection) (int, int, error) {
	start, err := d.offsetAt(sel.StartLine, sel.StartCol)
	if err != nil {
		return 0, 0, err
	}
	end, err := d.offsetAt(sel.EndLine, sel.EndCol)
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("%w: inverted range %s", ErrRangeOutOfBounds, sel)
	}
	return start, end, nil
}

// offsetAt converts a 1-indexed line/column pair to a byte offset. Columns
// count runes, matching how the editor reports positions.
func (d *Document) offsetAt(line, col int) (int, error) {
	if line < 1 || col < 1 {
		return 0, fmt.Errorf("%w: position %d:%d", ErrRangeOutOfBounds, line, col)
	}
	lines := strings.Split(d.text, "\n")
	if line > len(lines) {
		return 0, fmt.Errorf("%w: line %d of %d", ErrRangeOutOfBounds, line, len(lines))
	}

	off := 0
	for i := 0; i < line-1; i++ {
		off += len(lines[i]) + 1
	}

	rest := lines[line-1]
	for i := 1; i < col; i++ {
		if len(rest) == 0 {
			return 0, fmt.Errorf("%w: column %d past end of line %d", ErrRangeOutOfBounds, col, line)
		}
		_, size := utf8.DecodeRuneInString(rest)
		rest = rest[size:]
		off += size
	}
	return off, nil
}
