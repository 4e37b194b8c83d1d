// Package provider implements the client for the external text-generation
// service that grounds answers to a merchant's catalog.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"shopbot/internal/domain"
)

const (
	defaultAPIBase = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-1.5-flash"
	defaultTimeout = 5000 * time.Millisecond
)

var (
	// ErrEmptyInput rejects blank customer text before any network call.
	ErrEmptyInput = errors.New("customer text is empty")
	// ErrNoCandidates means the service returned zero completions.
	ErrNoCandidates = errors.New("generation returned no candidates")
	// ErrNoTextContent means the first candidate carried no extractable text.
	ErrNoTextContent = errors.New("generation candidate has no text content")
)

// TimeoutError reports that the generation call exceeded its hard deadline
// and the in-flight request was cancelled.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("generation timed out after %s", e.Timeout)
}

// UpstreamError reports a non-success HTTP status from the generation
// service. Generation is never retried; retry policy belongs to delivery.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("generation service returned %d: %s", e.Status, e.Body)
}

// Client calls the generation service.
type Client struct {
	apiKey  string
	apiBase string
	model   string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

type Config struct {
	APIKey  string
	APIBase string
	Model   string
	Timeout time.Duration
	Logger  *slog.Logger
}

func New(cfg Config) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		apiKey:  cfg.APIKey,
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		client:  &http.Client{},
		logger:  cfg.Logger,
	}
}

// Wire types for the generate-content endpoint.

type genRequest struct {
	Contents []genContent `json:"contents"`
}

type genContent struct {
	Parts []genPart `json:"parts"`
}

type genPart struct {
	Text string `json:"text"`
}

type genResponse struct {
	Candidates []genCandidate `json:"candidates"`
}

type genCandidate struct {
	Content genContent `json:"content"`
}

// Generate builds the grounding prompt and issues one generation call under
// the hard timeout. The deadline cancels the underlying request, not just the
// wait: a slow upstream cannot produce a delayed side effect.
func (c *Client) Generate(ctx context.Context, catalog []domain.Product, customerText string) (string, error) {
	if strings.TrimSpace(customerText) == "" {
		return "", ErrEmptyInput
	}

	prompt := BuildPrompt(catalog, customerText)
	body, err := json.Marshal(genRequest{
		Contents: []genContent{{Parts: []genPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/models/%s:generateContent", c.apiBase, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &TimeoutError{Timeout: c.timeout}
		}
		return "", fmt.Errorf("generation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &UpstreamError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var out genResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(out.Candidates) == 0 {
		return "", ErrNoCandidates
	}
	for _, part := range out.Candidates[0].Content.Parts {
		if part.Text != "" {
			c.logger.Debug("generation complete", "answer_len", len(part.Text))
			return part.Text, nil
		}
	}
	return "", ErrNoTextContent
}
