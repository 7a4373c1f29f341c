// Package session coordinates rewrite requests against a single document.
// It owns the editor-side state (buffer, selection, caret, mode toggles),
// the conversation and prompt histories, and the generation counter that
// keeps late responses from clobbering newer ones.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/youruser/mend/internal/diff"
	"github.com/youruser/mend/internal/document"
	"github.com/youruser/mend/internal/engine"
	"github.com/youruser/mend/internal/history"
	"github.com/youruser/mend/internal/logging"
	"github.com/youruser/mend/internal/rewrite"
)

var log = logging.Get()

// ErrEmptyPrompt is returned by Submit for a blank or whitespace prompt.
var ErrEmptyPrompt = errors.New("prompt cannot be empty")

const previewLimit = 120

// Rewriter produces a rewrite result for a request. *rewrite.Client is the
// production implementation.
type Rewriter interface {
	Improve(ctx context.Context, req rewrite.Request) (rewrite.Result, error)
}

// PromptEntry is one submission in the prompt history, newest first.
type PromptEntry struct {
	Text               string `json:"text"`
	Timestamp          string `json:"timestamp"`
	Mode               string `json:"mode"` // "improve" or "generate"
	CodeContextPreview string `json:"code_context_preview,omitempty"`
}

// Event is the asynchronous completion of a submission, delivered through
// the notify callback. Exactly one Event is delivered per generation that
// is still current when its response arrives; superseded generations are
// dropped without an Event.
type Event struct {
	Type        string // "rewrite_applied" or "rewrite_failed"
	Generation  int
	Applied     int
	Failed      int
	Warnings    []string
	Explanation string
	Summary     *diff.Summary
	Err         error
}

// Session is safe for concurrent use. All state transitions, including the
// apply step that runs on the response goroutine, happen under one mutex.
type Session struct {
	mu sync.Mutex

	buf   engine.Buffer
	sel   *document.Selection
	caret document.Caret

	wholeFile      bool
	contextEnabled bool

	conversation *history.Store[rewrite.Message]
	prompts      *history.Store[PromptEntry]

	client Rewriter
	notify func(Event)

	lastGeneration int
	expected       int
	cancelActive   context.CancelFunc

	pendingTarget engine.Target
	pendingPrompt string
}

// New builds a session around buf. notify may be nil; capacities follow the
// configured history limits.
func New(buf engine.Buffer, client Rewriter, conversationCap, promptCap int, notify func(Event)) *Session {
	if notify == nil {
		notify = func(Event) {}
	}
	return &Session{
		buf:            buf,
		client:         client,
		contextEnabled: true,
		conversation:   history.New[rewrite.Message](conversationCap),
		prompts:        history.NewestFirst[PromptEntry](promptCap),
		notify:         notify,
	}
}

// SetDocument replaces the buffer content and drops any active selection.
func (s *Session) SetDocument(text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.SetText(text)
	s.sel = nil
	return s.buf.Version()
}

// Document returns the current text and version.
func (s *Session) Document() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Text(), s.buf.Version()
}

// SetSelection records the active selection. The range is validated lazily,
// at resolution time, so a selection that a later edit invalidates simply
// degrades to generate mode.
func (s *Session) SetSelection(sel document.Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel = &sel
}

func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel = nil
}

func (s *Session) SetCaret(c document.Caret) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caret = c
}

// SetWholeFile flips the whole-file override and reports the new value.
func (s *Session) SetWholeFile(on bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wholeFile = on
	return s.wholeFile
}

func (s *Session) ToggleWholeFile() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wholeFile = !s.wholeFile
	return s.wholeFile
}

func (s *Session) ToggleContext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contextEnabled = !s.contextEnabled
	return s.contextEnabled
}

// Submit resolves the current editor state into a target, issues the next
// generation and dispatches the request. A submission while another is in
// flight supersedes it: the previous context is cancelled as a courtesy and
// its response, should it still arrive, is discarded.
func (s *Session) Submit(prompt string) (int, error) {
	if strings.TrimSpace(prompt) == "" {
		return 0, ErrEmptyPrompt
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := engine.ResolveTarget(s.wholeFile, s.sel, s.caret, s.buf)

	s.lastGeneration++
	generation := s.lastGeneration
	s.expected = generation
	s.pendingTarget = target
	s.pendingPrompt = prompt

	if s.cancelActive != nil {
		s.cancelActive()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelActive = cancel

	req := rewrite.Request{
		Code:      target.SnapshotText,
		Prompt:    prompt,
		WholeFile: target.Kind == engine.TargetWholeFile,
	}
	if s.contextEnabled {
		req.ConversationHistory = s.conversation.Items()
	}

	log.Rewrite("submit", generation, target.String())

	go func() {
		res, err := s.client.Improve(ctx, req)
		s.complete(generation, res, err)
	}()

	return generation, nil
}

// Cancel aborts the in-flight request, if any. Cancellation is advisory:
// the service may still answer, in which case the response is dropped by
// the generation check like any other stale arrival.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelActive == nil {
		return false
	}
	s.cancelActive()
	s.cancelActive = nil
	s.expected = 0
	return true
}

func (s *Session) complete(generation int, res rewrite.Result, err error) {
	s.mu.Lock()

	if generation != s.expected {
		s.mu.Unlock()
		log.Rewrite("stale", generation, fmt.Sprintf("expected %d, dropped", s.expected))
		return
	}
	s.expected = 0
	s.cancelActive = nil

	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, context.Canceled) {
			log.Rewrite("cancelled", generation, "")
			return
		}
		log.Rewrite("failed", generation, err.Error())
		s.notify(Event{Type: "rewrite_failed", Generation: generation, Err: err})
		return
	}

	target := s.pendingTarget
	prompt := s.pendingPrompt
	before := s.buf.Text()

	applied, applyErr := engine.Apply(s.buf, target, res)
	if applyErr != nil {
		s.mu.Unlock()
		log.Rewrite("failed", generation, applyErr.Error())
		s.notify(Event{Type: "rewrite_failed", Generation: generation, Err: applyErr})
		return
	}

	var summary *diff.Summary
	if target.Kind == engine.TargetWholeFile && res.Kind == rewrite.FullReplacement {
		sum := diff.Summarize(before, applied.FinalText)
		summary = &sum
	}

	// Histories record only submissions that made it all the way through.
	s.conversation.Push(rewrite.Message{Role: "user", Content: prompt})
	if res.Explanation != "" {
		s.conversation.Push(rewrite.Message{Role: "assistant", Content: res.Explanation})
	}
	s.prompts.Push(promptEntry(prompt, target))

	s.mu.Unlock()

	log.Rewrite("applied", generation, fmt.Sprintf("applied=%d failed=%d", applied.Applied, applied.Failed))
	s.notify(Event{
		Type:        "rewrite_applied",
		Generation:  generation,
		Applied:     applied.Applied,
		Failed:      applied.Failed,
		Warnings:    applied.Warnings,
		Explanation: res.Explanation,
		Summary:     summary,
	})
}

func promptEntry(prompt string, target engine.Target) PromptEntry {
	e := PromptEntry{
		Text:      prompt,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Mode:      "improve",
	}
	if target.Kind == engine.TargetGenerate {
		e.Mode = "generate"
		return e
	}
	preview := target.SnapshotText
	if len(preview) > previewLimit {
		// Back up to a rune boundary so the preview stays valid UTF-8.
		cut := previewLimit
		for cut > 0 && !utf8.RuneStart(preview[cut]) {
			cut--
		}
		preview = preview[:cut] + "..."
	}
	e.CodeContextPreview = preview
	return e
}

// ContextMessages returns the conversation history, oldest first.
func (s *Session) ContextMessages() []rewrite.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversation.Items()
}

// ClearContext empties the conversation history.
func (s *Session) ClearContext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversation.Clear()
}

// PromptHistory returns past submissions, newest first.
func (s *Session) PromptHistory() []PromptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompts.Items()
}

// ContextTokens estimates the token weight of the stored conversation.
func (s *Session) ContextTokens() int {
	s.mu.Lock()
	msgs := s.conversation.Items()
	s.mu.Unlock()

	total := 0
	for _, m := range msgs {
		total += rewrite.EstimateTokensSimple(m.Content)
	}
	return total
}
