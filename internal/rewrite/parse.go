package rewrite

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// The service asks the model to mark precise edits as fenced code blocks
// whose info string is "startLine:endLine:filename". Older service versions
// forward that markup verbatim instead of structured preciseEdits, so the
// client re-parses it here.

type fence struct {
	info string
	code string
}

func fences(markup string) []fence {
	src := []byte(markup)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var out []fence
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fc, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var f fence
		if fc.Info != nil {
			f.info = strings.TrimSpace(string(fc.Info.Segment.Value(src)))
		}
		var b strings.Builder
		lines := fc.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(src))
		}
		f.code = b.String()
		out = append(out, f)
		return ast.WalkSkipChildren, nil
	})
	return out
}

// parseLineSpec parses "startLine:endLine:filename" info strings.
// A plain language tag ("go", "cpp") has no colons and is rejected.
func parseLineSpec(info string) (start, end int, ok bool) {
	parts := strings.SplitN(info, ":", 3)
	if len(parts) < 3 {
		return 0, 0, false
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	end, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	if start < 1 || end < start {
		return 0, 0, false
	}
	return start, end, true
}

// ParseEdits extracts precise edits from line-spec fenced blocks. Blocks
// without a valid line spec are ignored; if no block carries one, the
// markup is not an edit list and nil is returned.
func ParseEdits(markup string) []PreciseEdit {
	var edits []PreciseEdit
	for _, f := range fences(markup) {
		start, end, ok := parseLineSpec(f.info)
		if !ok {
			continue
		}
		edits = append(edits, PreciseEdit{
			StartLine: start,
			EndLine:   end,
			Code:      strings.TrimSuffix(f.code, "\n"),
		})
	}
	return edits
}

// ExtractCode returns the content of the first fenced code block, or the
// input unchanged when it contains no fences. Whole-file responses wrap the
// replacement in a single fence; everything outside it is explanation.
func ExtractCode(markup string) string {
	all := fences(markup)
	if len(all) == 0 {
		return markup
	}
	return strings.TrimSuffix(all[0].code, "\n")
}
