package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/youruser/mend/internal/document"
	"github.com/youruser/mend/internal/rewrite"
)

func TestApplyWholeFileReplacement(t *testing.T) {
	doc := document.New("foo()")
	target := ResolveTarget(true, nil, document.Caret{}, doc)

	res, err := Apply(doc, target, rewrite.Result{Kind: rewrite.FullReplacement, Text: "foo(); // fixed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Text() != "foo(); // fixed" {
		t.Errorf("buffer = %q, want %q", doc.Text(), "foo(); // fixed")
	}
	if res.Applied != 1 || res.Failed != 0 {
		t.Errorf("Applied/Failed = %d/%d, want 1/0", res.Applied, res.Failed)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
	if doc.Version() != 2 {
		t.Errorf("version = %d, want single bump to 2", doc.Version())
	}
}

func TestApplySelectionReplacement(t *testing.T) {
	doc := document.New("keep alpha keep")
	sel := &document.Selection{StartLine: 1, StartCol: 6, EndLine: 1, EndCol: 11}
	target := ResolveTarget(false, sel, document.Caret{}, doc)
	if target.SnapshotText != "alpha" {
		t.Fatalf("SnapshotText = %q, want %q", target.SnapshotText, "alpha")
	}

	res, err := Apply(doc, target, rewrite.Result{Kind: rewrite.FullReplacement, Text: "beta!"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Text() != "keep beta! keep" {
		t.Errorf("buffer = %q, want %q", doc.Text(), "keep beta! keep")
	}
	if res.Applied != 1 {
		t.Errorf("Applied = %d, want 1", res.Applied)
	}
}

func TestApplyGenerateInsertsAtCaret(t *testing.T) {
	doc := document.New("ab")
	target := ResolveTarget(false, nil, document.Caret{Line: 1, Col: 2}, doc)

	_, err := Apply(doc, target, rewrite.Result{Kind: rewrite.FullReplacement, Text: "X"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Text() != "aXb" {
		t.Errorf("buffer = %q, want %q", doc.Text(), "aXb")
	}
}

func TestApplyWarnsOnVersionDrift(t *testing.T) {
	doc := document.New("original")
	target := ResolveTarget(true, nil, document.Caret{}, doc)

	// User kept typing while the request was in flight.
	doc.SetText("original plus typing")

	res, err := Apply(doc, target, rewrite.Result{Kind: rewrite.FullReplacement, Text: "rewritten"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Last write wins; the intervening edit is gone but the warning reports it.
	if doc.Text() != "rewritten" {
		t.Errorf("buffer = %q, want %q", doc.Text(), "rewritten")
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected a version drift warning")
	}
	if !strings.Contains(res.Warnings[0], "changed since") {
		t.Errorf("warning = %q", res.Warnings[0])
	}
}

func TestApplySelectionShrunkDocument(t *testing.T) {
	doc := document.New("one\ntwo\nthree\n")
	sel := &document.Selection{StartLine: 3, StartCol: 1, EndLine: 3, EndCol: 6}
	target := ResolveTarget(false, sel, document.Caret{}, doc)

	// Document shrank below the captured range before the response arrived.
	doc.SetText("one\n")

	res, err := Apply(doc, target, rewrite.Result{Kind: rewrite.FullReplacement, Text: "THREE"})
	if err != nil {
		t.Fatalf("apply must not fail outright: %v", err)
	}
	if doc.Text() != "one\n" {
		t.Errorf("buffer mutated: %q", doc.Text())
	}
	if res.Failed != 1 || res.Applied != 0 {
		t.Errorf("Applied/Failed = %d/%d, want 0/1", res.Applied, res.Failed)
	}
	if len(res.Warnings) < 2 {
		// One for version drift, one for the skipped replacement.
		t.Errorf("warnings = %v, want drift + skip", res.Warnings)
	}
}

func TestApplyPreciseEditSingleLine(t *testing.T) {
	doc := document.New("a\nb\nc")
	target := ResolveTarget(true, nil, document.Caret{}, doc)

	res, err := Apply(doc, target, rewrite.Result{
		Kind:  rewrite.PreciseEdits,
		Edits: []rewrite.PreciseEdit{{StartLine: 2, EndLine: 2, Code: "B"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Text() != "a\nB\nc" {
		t.Errorf("buffer = %q, want %q", doc.Text(), "a\nB\nc")
	}
	if res.Applied != 1 || res.Failed != 0 {
		t.Errorf("Applied/Failed = %d/%d, want 1/0", res.Applied, res.Failed)
	}
}

func TestApplyPreciseEditsMultiple(t *testing.T) {
	doc := document.New("l1\nl2\nl3\nl4\nl5\n")
	target := ResolveTarget(true, nil, document.Caret{}, doc)

	res, err := Apply(doc, target, rewrite.Result{
		Kind: rewrite.PreciseEdits,
		Edits: []rewrite.PreciseEdit{
			// Deliberately out of order; the engine sorts ascending.
			{StartLine: 4, EndLine: 5, Code: "L4"},
			{StartLine: 1, EndLine: 1, Code: "L1a\nL1b"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "L1a\nL1b\nl2\nl3\nL4\n"
	if doc.Text() != want {
		t.Errorf("buffer = %q, want %q", doc.Text(), want)
	}
	if res.Applied != 2 {
		t.Errorf("Applied = %d, want 2", res.Applied)
	}
	// One SetText for the whole batch.
	if doc.Version() != 2 {
		t.Errorf("version = %d, want 2", doc.Version())
	}
}

func TestApplyPreciseEditOutOfRangePartial(t *testing.T) {
	doc := document.New("a\nb\nc")
	target := ResolveTarget(true, nil, document.Caret{}, doc)

	res, err := Apply(doc, target, rewrite.Result{
		Kind: rewrite.PreciseEdits,
		Edits: []rewrite.PreciseEdit{
			{StartLine: 2, EndLine: 2, Code: "B"},
			{StartLine: 9, EndLine: 9, Code: "nope"},
		},
	})
	if err != nil {
		t.Fatalf("partial failure must not be fatal: %v", err)
	}
	if res.Applied != 1 || res.Failed != 1 {
		t.Errorf("Applied/Failed = %d/%d, want 1/1", res.Applied, res.Failed)
	}
	if doc.Text() != "a\nB\nc" {
		t.Errorf("buffer = %q, want in-range edit applied", doc.Text())
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "outside current document") {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

func TestApplyPreciseEditsOverlapRejected(t *testing.T) {
	doc := document.New("a\nb\nc\nd")
	target := ResolveTarget(true, nil, document.Caret{}, doc)

	_, err := Apply(doc, target, rewrite.Result{
		Kind: rewrite.PreciseEdits,
		Edits: []rewrite.PreciseEdit{
			{StartLine: 1, EndLine: 3, Code: "x"},
			{StartLine: 2, EndLine: 4, Code: "y"},
		},
	})
	if !errors.Is(err, ErrOverlappingEdits) {
		t.Fatalf("err = %v, want ErrOverlappingEdits", err)
	}
	if doc.Text() != "a\nb\nc\nd" {
		t.Errorf("buffer mutated on rejected batch: %q", doc.Text())
	}
	if doc.Version() != 1 {
		t.Errorf("version bumped on rejected batch: %d", doc.Version())
	}
}

func TestApplyPreciseEditDeletesLines(t *testing.T) {
	doc := document.New("a\nb\nc\nd\n")
	target := ResolveTarget(true, nil, document.Caret{}, doc)

	_, err := Apply(doc, target, rewrite.Result{
		Kind:  rewrite.PreciseEdits,
		Edits: []rewrite.PreciseEdit{{StartLine: 2, EndLine: 3, Code: ""}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Text() != "a\nd\n" {
		t.Errorf("buffer = %q, want %q", doc.Text(), "a\nd\n")
	}
}

func TestApplyPreciseEditsAllOutOfRangeLeavesBuffer(t *testing.T) {
	doc := document.New("a")
	target := ResolveTarget(true, nil, document.Caret{}, doc)

	res, err := Apply(doc, target, rewrite.Result{
		Kind:  rewrite.PreciseEdits,
		Edits: []rewrite.PreciseEdit{{StartLine: 5, EndLine: 6, Code: "x"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Applied != 0 || res.Failed != 1 {
		t.Errorf("Applied/Failed = %d/%d, want 0/1", res.Applied, res.Failed)
	}
	if doc.Version() != 1 {
		t.Errorf("version = %d, want no bump when nothing applied", doc.Version())
	}
}
