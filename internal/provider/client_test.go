package provider

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"shopbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testGenClient(url string, timeout time.Duration) *Client {
	return New(Config{
		APIKey:  "test-key",
		APIBase: url,
		Model:   "test-model",
		Timeout: timeout,
		Logger:  testLogger(),
	})
}

var testCatalog = []domain.Product{{Name: "Red Mug", Price: "$15.00"}}

func TestGenerateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if !strings.Contains(r.URL.Path, "test-model") {
			t.Errorf("model missing from path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"The Red Mug is $15.00."}]}}]}`))
	}))
	defer srv.Close()

	got, err := testGenClient(srv.URL, time.Second).Generate(context.Background(), testCatalog, "how much is the mug?")
	if err != nil {
		t.Fatal(err)
	}
	if got != "The Red Mug is $15.00." {
		t.Errorf("got %q", got)
	}
}

func TestGenerateEmptyInputSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := testGenClient(srv.URL, time.Second)
	for _, text := range []string{"", "   ", "\t\n"} {
		if _, err := c.Generate(context.Background(), testCatalog, text); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Generate(%q): expected ErrEmptyInput, got %v", text, err)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("empty input must not reach the network, saw %d calls", calls.Load())
	}
}

func TestGenerateTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := testGenClient(srv.URL, 50*time.Millisecond).Generate(context.Background(), testCatalog, "hello")

	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if timeout.Timeout != 50*time.Millisecond {
		t.Errorf("timeout error should carry the configured threshold, got %s", timeout.Timeout)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("call was not cancelled promptly, took %s", elapsed)
	}
}

func TestGenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("overloaded"))
	}))
	defer srv.Close()

	_, err := testGenClient(srv.URL, time.Second).Generate(context.Background(), testCatalog, "hello")

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Status != http.StatusServiceUnavailable {
		t.Errorf("status = %d", upstream.Status)
	}
	if upstream.Body != "overloaded" {
		t.Errorf("body = %q", upstream.Body)
	}
}

func TestGenerateEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	_, err := testGenClient(srv.URL, time.Second).Generate(context.Background(), testCatalog, "hello")
	if !errors.Is(err, ErrNoCandidates) {
		t.Errorf("expected ErrNoCandidates, got %v", err)
	}
}

func TestGenerateNoTextContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":""}]}}]}`))
	}))
	defer srv.Close()

	_, err := testGenClient(srv.URL, time.Second).Generate(context.Background(), testCatalog, "hello")
	if !errors.Is(err, ErrNoTextContent) {
		t.Errorf("expected ErrNoTextContent, got %v", err)
	}
}
