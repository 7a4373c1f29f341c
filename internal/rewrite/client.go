package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/youruser/mend/internal/logging"
)

// Service failure classification, surfaced to the user as readable messages.
var (
	ErrInvalidRequest = errors.New("rewrite service rejected the request")
	ErrRateLimited    = errors.New("rewrite service rate limit exceeded")
	ErrService        = errors.New("rewrite service failure")
	ErrUnreachable    = errors.New("rewrite service unreachable")
)

var log = logging.Get()

const defaultRequestTimeout = 120 * time.Second

// Client handles communication with the rewrite service.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a rewrite service client. timeout <= 0 uses the default.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Improve sends a rewrite (or generate, when req.Code is empty) request and
// returns the normalized result. Errors are classified into the package
// sentinel errors so callers can branch on the failure class.
func (c *Client) Improve(ctx context.Context, req Request) (Result, error) {
	if req.Model == "" {
		req.Model = c.model
	}

	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return Result{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/improve-code", bytes.NewReader(bodyBytes))
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	log.Debug("HTTP POST %s/improve-code (code: %d bytes, prompt: %d bytes, history: %d, wholeFile: %v)",
		c.baseURL, len(req.Code), len(req.Prompt), len(req.ConversationHistory), req.WholeFile)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		log.Error("HTTP request failed: %v", err)
		return Result{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	log.Debug("HTTP response status: %d", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		detail := readErrorDetail(resp.Body)
		log.Error("service error %d: %s", resp.StatusCode, detail)
		return Result{}, classifyStatus(resp.StatusCode, detail)
	}

	var wire Response
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return Result{}, fmt.Errorf("%w: invalid response body: %v", ErrService, err)
	}

	return Normalize(&wire), nil
}

func classifyStatus(status int, detail string) error {
	var base error
	switch {
	case status == http.StatusBadRequest:
		base = ErrInvalidRequest
	case status == http.StatusTooManyRequests:
		base = ErrRateLimited
	default:
		base = ErrService
	}
	if detail == "" {
		return fmt.Errorf("%w (status %d)", base, status)
	}
	return fmt.Errorf("%w: %s", base, detail)
}

// readErrorDetail pulls the "detail" field from an error body, falling back
// to the raw text.
func readErrorDetail(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var payload struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Detail != "" {
		return payload.Detail
	}
	return strings.TrimSpace(string(body))
}
