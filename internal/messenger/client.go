// Package messenger sends replies through the platform's send API.
//
// Failures are bucketed by permanence: 2xx succeeds, 429 and everything at or
// above 500 (plus network errors) are transient and retried once, any other
// 4xx is permanent and fails immediately. A bad or expired credential cannot
// be fixed by retrying.
package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAPIBase = "https://graph.facebook.com/v21.0"
	maxAttempts    = 2
	backoffUnit    = 1000 * time.Millisecond
)

// PermanentError is a client failure (4xx other than 429). Never retried.
type PermanentError struct {
	Status int
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent delivery failure: HTTP %d", e.Status)
}

// DeliveryError wraps the last transient error after the retry budget is
// exhausted.
type DeliveryError struct {
	Attempts int
	Last     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *DeliveryError) Unwrap() error { return e.Last }

// transientError is a retryable send failure (5xx, 429, or malformed status).
type transientError struct {
	status int
	body   string
}

func (e *transientError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.status, e.body)
}

// Client delivers messages via the send API.
type Client struct {
	apiBase string
	backoff time.Duration
	client  *http.Client
	logger  *slog.Logger
}

type Config struct {
	APIBase string
	Backoff time.Duration // base backoff unit, exported for tests
	Logger  *slog.Logger
}

func New(cfg Config) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = backoffUnit
	}
	return &Client{
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		backoff: cfg.Backoff,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  cfg.Logger,
	}
}

type sendRequest struct {
	Recipient recipient `json:"recipient"`
	Message   message   `json:"message"`
}

type recipient struct {
	ID string `json:"id"`
}

type message struct {
	Text string `json:"text"`
}

// Deliver sends text to the recipient, retrying transient failures with
// exponential backoff (2^attempt * backoff before each retry).
func (c *Client) Deliver(ctx context.Context, accessToken, recipientID, text string) error {
	body, err := json.Marshal(sendRequest{
		Recipient: recipient{ID: recipientID},
		Message:   message{Text: text},
	})
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := (1 << (attempt - 1)) * c.backoff
			c.logger.Warn("retrying delivery", "attempt", attempt+1, "backoff", backoff, "err", lastErr)
			select {
			case <-ctx.Done():
				return &DeliveryError{Attempts: attempt, Last: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		err := c.send(ctx, accessToken, body)
		if err == nil {
			return nil
		}
		if perm, ok := err.(*PermanentError); ok {
			return perm
		}
		lastErr = err
	}

	return &DeliveryError{Attempts: maxAttempts, Last: lastErr}
}

func (c *Client) send(ctx context.Context, accessToken string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/me/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		// Rate limiting is transient regardless of being a 4xx.
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &transientError{status: resp.StatusCode, body: string(respBody)}
	case resp.StatusCode >= 400 && resp.StatusCode <= 499:
		return &PermanentError{Status: resp.StatusCode}
	default:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &transientError{status: resp.StatusCode, body: string(respBody)}
	}
}
