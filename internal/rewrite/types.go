package rewrite

// Wire types for the rewrite service's /improve-code endpoint.

// Message is one turn of conversation context sent with a request.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Request is the payload for a rewrite or generate call. Code is empty in
// generate mode; the service then produces new code from the prompt alone.
type Request struct {
	Code                string    `json:"code"`
	Prompt              string    `json:"prompt"`
	WholeFile           bool      `json:"wholeFile"`
	Model               string    `json:"model,omitempty"`
	ConversationHistory []Message `json:"conversationHistory,omitempty"`
}

// PreciseEdit replaces lines [StartLine, EndLine] inclusive (1-indexed)
// with Code.
type PreciseEdit struct {
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Code      string `json:"code"`
}

// DiffInfo is the service-computed change summary, present only for
// whole-file rewrites.
type DiffInfo struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Changes   int `json:"changes"`
}

// Response is the raw service reply.
type Response struct {
	ImprovedCode string        `json:"improvedCode"`
	Explanation  string        `json:"explanation"`
	PreciseEdits []PreciseEdit `json:"preciseEdits,omitempty"`
	DiffInfo     *DiffInfo     `json:"diffInfo,omitempty"`
}

// ResultKind discriminates the two application strategies a response maps to.
type ResultKind int

const (
	// FullReplacement carries one complete text that replaces the target.
	FullReplacement ResultKind = iota
	// PreciseEdits carries disjoint line-range replacements.
	PreciseEdits
)

func (k ResultKind) String() string {
	switch k {
	case FullReplacement:
		return "full_replacement"
	case PreciseEdits:
		return "precise_edits"
	default:
		return "unknown"
	}
}

// Result is the normalized outcome of a rewrite call, ready for the edit
// application engine.
type Result struct {
	Kind        ResultKind
	Text        string        // FullReplacement only
	Edits       []PreciseEdit // PreciseEdits only
	Explanation string
	DiffInfo    *DiffInfo
}

// Normalize converts a raw service response into a Result. Structured
// preciseEdits win; otherwise the improvedCode markup is inspected for
// line-spec fenced blocks, and failing that the first plain code fence (or
// the raw text) becomes a full replacement.
func Normalize(resp *Response) Result {
	res := Result{
		Explanation: resp.Explanation,
		DiffInfo:    resp.DiffInfo,
	}

	if len(resp.PreciseEdits) > 0 {
		res.Kind = PreciseEdits
		res.Edits = resp.PreciseEdits
		return res
	}

	if edits := ParseEdits(resp.ImprovedCode); len(edits) > 0 {
		res.Kind = PreciseEdits
		res.Edits = edits
		return res
	}

	res.Kind = FullReplacement
	res.Text = ExtractCode(resp.ImprovedCode)
	return res
}
