package webhook

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"shopbot/internal/metrics"
)

// NewRouter wires the webhook endpoints plus health and metrics.
func NewRouter(h *Handler, mc *metrics.Collector, webhookPath string) chi.Router {
	if webhookPath == "" {
		webhookPath = "/webhook"
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Hub-Signature-256"},
	}))

	r.Get(webhookPath, h.HandleChallenge)
	r.Post(webhookPath, h.HandleEvents)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", mc.Handler())

	return r
}

// NewServer builds the HTTP server with conservative read timeouts.
func NewServer(addr string, router chi.Router) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
