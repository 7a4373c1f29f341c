// Package server exposes the session over line-oriented JSON transports.
// Every request is a JSON object with an "action" field and an optional
// "request_id" that is echoed back on the response. Completions of
// asynchronous rewrites are pushed through the emitter without a request id.
package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/youruser/mend/internal/config"
	"github.com/youruser/mend/internal/document"
	"github.com/youruser/mend/internal/engine"
	"github.com/youruser/mend/internal/logging"
	"github.com/youruser/mend/internal/rewrite"
	"github.com/youruser/mend/internal/session"
)

var log = logging.Get()

// Dispatcher routes decoded requests to the session. It is shared by the
// stdio and websocket transports; whichever one runs installs itself as the
// emitter for pushed events.
type Dispatcher struct {
	sess    *session.Session
	version string

	mu      sync.Mutex
	emit    func(map[string]any)
	watcher *document.Watcher
}

// NewDispatcher wires a session around buf and client. The returned
// dispatcher drops pushed events until SetEmitter is called.
func NewDispatcher(buf engine.Buffer, client session.Rewriter, cfg *config.Config, version string) *Dispatcher {
	d := &Dispatcher{version: version}
	d.sess = session.New(buf, client, cfg.ContextCapacity, cfg.PromptHistoryCapacity, d.onEvent)
	return d
}

// Session exposes the underlying session, mainly for one-shot mode.
func (d *Dispatcher) Session() *session.Session { return d.sess }

// SetEmitter installs the sink for pushed events (rewrite completions and
// file reloads).
func (d *Dispatcher) SetEmitter(emit func(map[string]any)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emit = emit
}

func (d *Dispatcher) push(msg map[string]any) {
	d.mu.Lock()
	emit := d.emit
	d.mu.Unlock()
	if emit != nil {
		emit(msg)
	}
}

func (d *Dispatcher) onEvent(ev session.Event) {
	msg := map[string]any{
		"type":       ev.Type,
		"generation": ev.Generation,
	}
	if ev.Err != nil {
		msg["message"] = errorMessage(ev.Err)
		d.push(msg)
		return
	}
	msg["applied"] = ev.Applied
	msg["failed"] = ev.Failed
	if len(ev.Warnings) > 0 {
		msg["warnings"] = ev.Warnings
	}
	if ev.Explanation != "" {
		msg["explanation"] = ev.Explanation
	}
	if ev.Summary != nil {
		msg["diff"] = ev.Summary
	}
	d.push(msg)
}

// Close stops the file watcher, if one is running.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	w := d.watcher
	d.watcher = nil
	d.mu.Unlock()
	if w != nil {
		w.Close()
	}
}

// Handle decodes one request line and answers through respond. respond is
// called exactly once per request.
func (d *Dispatcher) Handle(req map[string]any, respond func(map[string]any)) {
	action, _ := req["action"].(string)
	reqID := requestID(req)

	reply := func(data map[string]any) {
		respond(addResponseID(reqID, data))
	}

	switch action {
	case "ping":
		reply(map[string]any{"type": "ok"})

	case "version":
		reply(map[string]any{"type": "version", "version": d.version})

	case "document_set":
		text, ok := req["text"].(string)
		if !ok {
			reply(missingField("text"))
			return
		}
		v := d.sess.SetDocument(text)
		reply(map[string]any{"type": "ok", "version": v})

	case "document_get":
		text, v := d.sess.Document()
		reply(map[string]any{"type": "document", "text": text, "version": v})

	case "selection_set":
		sel := document.Selection{
			StartLine: intField(req, "start_line"),
			StartCol:  intField(req, "start_col"),
			EndLine:   intField(req, "end_line"),
			EndCol:    intField(req, "end_col"),
		}
		if sel.StartLine < 1 || sel.EndLine < sel.StartLine {
			reply(map[string]any{"type": "error", "message": "Invalid selection range"})
			return
		}
		d.sess.SetSelection(sel)
		reply(map[string]any{"type": "ok"})

	case "selection_clear":
		d.sess.ClearSelection()
		reply(map[string]any{"type": "ok"})

	case "caret_set":
		d.sess.SetCaret(document.Caret{Line: intField(req, "line"), Col: intField(req, "col")})
		reply(map[string]any{"type": "ok"})

	case "toggle_whole_file":
		reply(map[string]any{"type": "ok", "whole_file": d.sess.ToggleWholeFile()})

	case "toggle_context":
		reply(map[string]any{"type": "ok", "context_enabled": d.sess.ToggleContext()})

	case "submit":
		prompt, _ := req["prompt"].(string)
		gen, err := d.sess.Submit(prompt)
		if err != nil {
			reply(errorResponse(err))
			return
		}
		reply(map[string]any{"type": "submitted", "generation": gen})

	case "cancel":
		reply(map[string]any{"type": "ok", "cancelled": d.sess.Cancel()})

	case "context_list":
		reply(map[string]any{
			"type":     "context",
			"messages": d.sess.ContextMessages(),
			"tokens":   d.sess.ContextTokens(),
		})

	case "context_clear":
		d.sess.ClearContext()
		reply(map[string]any{"type": "ok"})

	case "prompt_history":
		reply(map[string]any{"type": "prompt_history", "entries": d.sess.PromptHistory()})

	case "estimate_tokens":
		text, ok := req["text"].(string)
		if !ok {
			reply(missingField("text"))
			return
		}
		count, err := rewrite.EstimateTokens(text)
		if err != nil {
			count = rewrite.EstimateTokensSimple(text)
		}
		reply(map[string]any{"type": "tokens", "count": count})

	case "watch_file":
		path, _ := req["path"].(string)
		if path == "" {
			reply(missingField("path"))
			return
		}
		if err := d.watchFile(path); err != nil {
			reply(errorResponse(err))
			return
		}
		reply(map[string]any{"type": "ok"})

	default:
		log.Error("Unknown action: %q", action)
		reply(map[string]any{"type": "error", "message": fmt.Sprintf("Unknown action: %s", action)})
	}
}

// watchFile replaces any previous watch. Reloads feed the session as if the
// frontend had sent document_set, and a document_reloaded event is pushed so
// the frontend can refresh its view.
func (d *Dispatcher) watchFile(path string) error {
	w, err := document.Watch(path, func(text string) {
		v := d.sess.SetDocument(text)
		d.push(map[string]any{"type": "document_reloaded", "path": path, "version": v})
	})
	if err != nil {
		return err
	}

	d.mu.Lock()
	old := d.watcher
	d.watcher = w
	d.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

func errorResponse(err error) map[string]any {
	return map[string]any{"type": "error", "message": errorMessage(err)}
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrEmptyPrompt):
		return "Prompt cannot be empty"
	case errors.Is(err, engine.ErrOverlappingEdits):
		return "Service returned overlapping edits; nothing was applied"
	case errors.Is(err, rewrite.ErrInvalidRequest):
		return "Service rejected the request"
	case errors.Is(err, rewrite.ErrRateLimited):
		return "Rate limited by the rewrite service, try again shortly"
	case errors.Is(err, rewrite.ErrUnreachable):
		return "Rewrite service is unreachable"
	case errors.Is(err, rewrite.ErrService):
		return "Rewrite service error"
	case errors.Is(err, config.ErrNoConfig):
		return "Config file not found: ~/.config/mend/config.json"
	default:
		return err.Error()
	}
}

func missingField(name string) map[string]any {
	return map[string]any{"type": "error", "message": "Missing required field: " + name}
}

func addResponseID(reqID string, data map[string]any) map[string]any {
	if reqID == "" {
		return data
	}
	data["request_id"] = reqID
	return data
}

func requestID(req map[string]any) string {
	switch v := req["request_id"].(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return ""
	}
}

func intField(req map[string]any, name string) int {
	if v, ok := req[name].(float64); ok {
		return int(v)
	}
	return 0
}
