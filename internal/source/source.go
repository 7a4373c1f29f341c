// Package source retrieves the code to rewrite in one-shot runs: an
// explicit file, piped stdin, or the system clipboard, in that order.
package source

import (
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"

	"github.com/youruser/mend/internal/ui"
)

// Provider determines and retrieves the input content.
type Provider struct {
	path string
}

// New creates a provider. path may be empty, in which case stdin or the
// clipboard is consulted.
func New(path string) *Provider {
	return &Provider{path: path}
}

// Content returns the code to operate on.
func (p *Provider) Content() (string, error) {
	if p.path != "" {
		data, err := os.ReadFile(p.path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", p.path, err)
		}
		return string(data), nil
	}

	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		return string(data), nil
	}

	ui.Info("Reading from clipboard")
	content, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read from clipboard: %w", err)
	}
	return content, nil
}

// Deliver writes the result back: to the source file when one was given,
// otherwise to stdout. With toClipboard set, the result also replaces the
// clipboard content.
func (p *Provider) Deliver(text string, toClipboard bool) error {
	if toClipboard {
		if err := clipboard.WriteAll(text); err != nil {
			return fmt.Errorf("failed to write clipboard: %w", err)
		}
	}
	if p.path != "" {
		if err := os.WriteFile(p.path, []byte(text), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", p.path, err)
		}
		return nil
	}
	_, err := io.WriteString(os.Stdout, text)
	return err
}
