// Package engine decides what text is in scope for a rewrite request and
// reconciles the asynchronous result against the live document buffer.
package engine

import (
	"fmt"

	"github.com/youruser/mend/internal/document"
	"github.com/youruser/mend/internal/logging"
)

var log = logging.Get()

// Buffer is the mutable document surface the engine reconciles against.
// *document.Document implements it; so does the Neovim adapter.
type Buffer interface {
	Text() string
	Version() int
	SetText(text string)
	SliceRange(sel document.Selection) (string, error)
	ReplaceRange(sel document.Selection, text string) error
	InsertAt(c document.Caret, text string)
}

// TargetKind discriminates the three edit scopes.
type TargetKind int

const (
	// TargetWholeFile covers the entire buffer.
	TargetWholeFile TargetKind = iota
	// TargetSelection covers an exact range captured at submission time.
	TargetSelection
	// TargetGenerate is an insertion request: no code in scope, only a
	// caret position.
	TargetGenerate
)

func (k TargetKind) String() string {
	switch k {
	case TargetWholeFile:
		return "whole_file"
	case TargetSelection:
		return "selection"
	case TargetGenerate:
		return "generate"
	default:
		return "unknown"
	}
}

// Target describes the scope of one rewrite request. SnapshotText is exactly
// the buffer content designated by Kind at the moment of capture and is
// immutable afterwards.
type Target struct {
	Kind            TargetKind
	SnapshotText    string
	SnapshotVersion int
	Range           document.Selection // TargetSelection only
	Caret           document.Caret     // TargetGenerate only
}

func (t Target) String() string {
	switch t.Kind {
	case TargetSelection:
		return fmt.Sprintf("selection %s v%d", t.Range, t.SnapshotVersion)
	case TargetGenerate:
		return fmt.Sprintf("generate at %d:%d v%d", t.Caret.Line, t.Caret.Col, t.SnapshotVersion)
	default:
		return fmt.Sprintf("%s v%d", t.Kind, t.SnapshotVersion)
	}
}

// ResolveTarget normalizes the current editor state into an edit target.
// It is a pure read of the document and must be called fresh immediately
// before each submission so the snapshot matches the buffer.
//
// The whole-file toggle is an explicit override: while it is on, any active
// selection is ignored. Without a toggle or usable selection the request
// degrades to generate mode at the caret.
func ResolveTarget(wholeFile bool, sel *document.Selection, caret document.Caret, buf Buffer) Target {
	version := buf.Version()

	if wholeFile {
		return Target{
			Kind:            TargetWholeFile,
			SnapshotText:    buf.Text(),
			SnapshotVersion: version,
		}
	}

	if sel != nil && !sel.IsEmpty() {
		text, err := buf.SliceRange(*sel)
		if err == nil {
			return Target{
				Kind:            TargetSelection,
				SnapshotText:    text,
				SnapshotVersion: version,
				Range:           *sel,
			}
		}
		// Selection no longer fits the buffer; fall through to generate.
		log.Debug("resolve: selection %s invalid against v%d: %v", sel, version, err)
	}

	return Target{
		Kind:            TargetGenerate,
		SnapshotVersion: version,
		Caret:           caret,
	}
}
