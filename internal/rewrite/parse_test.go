package rewrite

import (
	"testing"
)

func TestParseEdits(t *testing.T) {
	t.Run("single line spec block", func(t *testing.T) {
		markup := "Here is the fix:\n\n```10:12:player.cpp\n// new code\nint x = 1;\n```\n\nExplanation follows."
		edits := ParseEdits(markup)
		if len(edits) != 1 {
			t.Fatalf("len(edits) = %d, want 1", len(edits))
		}
		e := edits[0]
		if e.StartLine != 10 || e.EndLine != 12 {
			t.Errorf("range = %d:%d, want 10:12", e.StartLine, e.EndLine)
		}
		if e.Code != "// new code\nint x = 1;" {
			t.Errorf("Code = %q", e.Code)
		}
	})

	t.Run("multiple blocks", func(t *testing.T) {
		markup := "```3:3:a.go\nfoo()\n```\n\nand then\n\n```8:10:a.go\nbar()\n```\n"
		edits := ParseEdits(markup)
		if len(edits) != 2 {
			t.Fatalf("len(edits) = %d, want 2", len(edits))
		}
		if edits[1].StartLine != 8 || edits[1].EndLine != 10 {
			t.Errorf("second range = %d:%d, want 8:10", edits[1].StartLine, edits[1].EndLine)
		}
	})

	t.Run("language tag is not a line spec", func(t *testing.T) {
		markup := "```go\nfunc main() {}\n```\n"
		if edits := ParseEdits(markup); edits != nil {
			t.Errorf("edits = %v, want nil", edits)
		}
	})

	t.Run("invalid specs ignored", func(t *testing.T) {
		for _, info := range []string{"x:y:file", "0:2:file", "5:3:file", "10:file"} {
			markup := "```" + info + "\ncode\n```\n"
			if edits := ParseEdits(markup); edits != nil {
				t.Errorf("info %q: edits = %v, want nil", info, edits)
			}
		}
	})

	t.Run("no fences", func(t *testing.T) {
		if edits := ParseEdits("just prose, no code"); edits != nil {
			t.Errorf("edits = %v, want nil", edits)
		}
	})
}

func TestExtractCode(t *testing.T) {
	t.Run("first fence wins", func(t *testing.T) {
		markup := "Intro.\n\n```cpp\nint main() {}\n```\n\n```\nsecond block\n```\n"
		got := ExtractCode(markup)
		if got != "int main() {}" {
			t.Errorf("got %q, want %q", got, "int main() {}")
		}
	})

	t.Run("no fence returns input", func(t *testing.T) {
		got := ExtractCode("plain text output")
		if got != "plain text output" {
			t.Errorf("got %q", got)
		}
	})
}

func TestNormalize(t *testing.T) {
	t.Run("structured edits win", func(t *testing.T) {
		resp := &Response{
			ImprovedCode: "```1:1:x\nignored\n```",
			PreciseEdits: []PreciseEdit{{StartLine: 2, EndLine: 2, Code: "B"}},
		}
		res := Normalize(resp)
		if res.Kind != PreciseEdits {
			t.Fatalf("Kind = %v, want PreciseEdits", res.Kind)
		}
		if len(res.Edits) != 1 || res.Edits[0].Code != "B" {
			t.Errorf("Edits = %v", res.Edits)
		}
	})

	t.Run("line spec markup becomes edits", func(t *testing.T) {
		resp := &Response{ImprovedCode: "```4:6:main.go\nnew()\n```"}
		res := Normalize(resp)
		if res.Kind != PreciseEdits {
			t.Fatalf("Kind = %v, want PreciseEdits", res.Kind)
		}
		if res.Edits[0].StartLine != 4 || res.Edits[0].EndLine != 6 {
			t.Errorf("range = %d:%d, want 4:6", res.Edits[0].StartLine, res.Edits[0].EndLine)
		}
	})

	t.Run("plain fence becomes full replacement", func(t *testing.T) {
		resp := &Response{
			ImprovedCode: "```go\nfoo(); // fixed\n```",
			Explanation:  "<p>fixed</p>",
			DiffInfo:     &DiffInfo{Changes: 1},
		}
		res := Normalize(resp)
		if res.Kind != FullReplacement {
			t.Fatalf("Kind = %v, want FullReplacement", res.Kind)
		}
		if res.Text != "foo(); // fixed" {
			t.Errorf("Text = %q", res.Text)
		}
		if res.Explanation != "<p>fixed</p>" {
			t.Errorf("Explanation = %q", res.Explanation)
		}
		if res.DiffInfo == nil || res.DiffInfo.Changes != 1 {
			t.Errorf("DiffInfo = %+v", res.DiffInfo)
		}
	})
}
