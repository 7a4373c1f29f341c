// Package nvim adapts a live Neovim buffer to the engine's Buffer
// interface, so rewrites can be applied directly to the editor instead of
// an in-process document.
package nvim

import (
	"errors"
	"fmt"
	"os"

	"github.com/neovim/go-client/nvim"

	"github.com/youruser/mend/internal/diff"
	"github.com/youruser/mend/internal/document"
	"github.com/youruser/mend/internal/logging"
)

var log = logging.Get()

// ErrNoAddress is returned when no Neovim instance is advertised in the
// environment.
var ErrNoAddress = errors.New("NVIM_LISTEN_ADDRESS not set")

// Buffer drives the current buffer of a connected Neovim instance. Range
// math is delegated to an in-memory snapshot so line and column semantics
// match the in-process document exactly; writes replace the whole buffer,
// which keeps a single undo step per applied rewrite.
type Buffer struct {
	v        *nvim.Nvim
	buf      nvim.Buffer
	lastText string
}

// Connect dials the instance named by NVIM_LISTEN_ADDRESS and attaches to
// its current buffer.
func Connect() (*Buffer, error) {
	addr := os.Getenv("NVIM_LISTEN_ADDRESS")
	if addr == "" {
		return nil, ErrNoAddress
	}
	v, err := nvim.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nvim at %s: %w", addr, err)
	}
	buf, err := v.CurrentBuffer()
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to resolve current buffer: %w", err)
	}
	return &Buffer{v: v, buf: buf}, nil
}

func (b *Buffer) Close() {
	if b.v != nil {
		b.v.Close()
	}
}

// Text returns the buffer content with a trailing newline, matching how
// Neovim writes buffers to disk. On RPC failure the last known content is
// returned so an in-flight apply degrades instead of panicking.
func (b *Buffer) Text() string {
	lines, err := b.v.BufferLines(b.buf, 0, -1, true)
	if err != nil {
		log.Error("nvim: failed to read buffer: %v", err)
		return b.lastText
	}
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = string(l)
	}
	// An empty buffer reports one empty line; treat it as empty content.
	if len(parts) == 1 && parts[0] == "" {
		b.lastText = ""
		return ""
	}
	text := diff.JoinLines(parts)
	b.lastText = text
	return text
}

// Version reports b:changedtick, which Neovim bumps on every buffer
// mutation. It serves the same drift-detection role as the in-process
// document's version counter.
func (b *Buffer) Version() int {
	var tick int
	if err := b.v.BufferVar(b.buf, "changedtick", &tick); err != nil {
		log.Error("nvim: failed to read changedtick: %v", err)
		return 0
	}
	return tick
}

func (b *Buffer) SetText(text string) {
	lines := diff.SplitLines(text)
	replacement := make([][]byte, len(lines))
	for i, l := range lines {
		replacement[i] = []byte(l)
	}
	if err := b.v.SetBufferLines(b.buf, 0, -1, true, replacement); err != nil {
		log.Error("nvim: failed to write buffer: %v", err)
		return
	}
	b.lastText = text
}

func (b *Buffer) SliceRange(sel document.Selection) (string, error) {
	return document.New(b.Text()).SliceRange(sel)
}

func (b *Buffer) ReplaceRange(sel document.Selection, text string) error {
	doc := document.New(b.Text())
	if err := doc.ReplaceRange(sel, text); err != nil {
		return err
	}
	b.SetText(doc.Text())
	return nil
}

func (b *Buffer) InsertAt(c document.Caret, text string) {
	doc := document.New(b.Text())
	doc.InsertAt(c, text)
	b.SetText(doc.Text())
}
