// Package webhook receives signed event deliveries from the messaging
// platform and feeds text messages into the pipeline.
//
// Malformed or unauthenticated POSTs are acknowledged with 200 and dropped:
// a non-200 would only trigger the platform's own retry storm.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"

	"shopbot/internal/domain"
	"shopbot/internal/metrics"
)

const maxBodyBytes = 1 << 20

// Processor consumes inbound events. It must never return: every event
// outcome is contained inside processing.
type Processor interface {
	Process(ctx context.Context, ev domain.InboundEvent)
}

// Handler implements the platform webhook endpoints.
type Handler struct {
	verifyToken string
	appSecret   string
	proc        Processor
	logger      *slog.Logger
	received    *metrics.Counter
	rejected    *metrics.Counter
}

type HandlerConfig struct {
	VerifyToken string
	AppSecret   string
	Processor   Processor
	Logger      *slog.Logger
	Metrics     *metrics.Collector
}

func NewHandler(cfg HandlerConfig) *Handler {
	mc := cfg.Metrics
	if mc == nil {
		mc = metrics.NewCollector()
	}
	return &Handler{
		verifyToken: cfg.VerifyToken,
		appSecret:   cfg.AppSecret,
		proc:        cfg.Processor,
		logger:      cfg.Logger,
		received:    mc.Counter("shopbot_events_received_total", "Text message events accepted into the pipeline.", ""),
		rejected:    mc.Counter("shopbot_webhook_rejected_total", "Webhook deliveries dropped before processing.", ""),
	}
}

// HandleChallenge answers the platform's subscription verification GET.
func (h *Handler) HandleChallenge(w http.ResponseWriter, r *http.Request) {
	if h.verifyToken == "" {
		h.logger.Error("webhook verify token not configured")
		http.Error(w, "verify token not configured", http.StatusInternalServerError)
		return
	}

	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		h.logger.Info("webhook subscription verified")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, html.EscapeString(challenge))
		return
	}

	h.logger.Warn("webhook verification failed", "mode", mode)
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// Platform event envelope.

type eventEnvelope struct {
	Object string  `json:"object"`
	Entry  []entry `json:"entry"`
}

type entry struct {
	ID        string      `json:"id"`
	Time      int64       `json:"time"`
	Messaging []messaging `json:"messaging"`
}

type messaging struct {
	Sender    party       `json:"sender"`
	Recipient party       `json:"recipient"`
	Timestamp int64       `json:"timestamp"`
	Message   *messageRef `json:"message,omitempty"`
}

type party struct {
	ID string `json:"id"`
}

type messageRef struct {
	Text string `json:"text"`
}

// HandleEvents processes a signed event delivery. Events within one delivery
// run sequentially, in payload order. The response is always 200.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.ack(w)
		return
	}

	sig := r.Header.Get("X-Hub-Signature-256")
	if !VerifySignature(sig, body, h.appSecret) {
		h.logger.Warn("webhook signature rejected", "has_header", sig != "")
		h.rejected.Inc()
		h.ack(w)
		return
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		h.logger.Warn("webhook payload is not valid JSON", "err", err)
		h.rejected.Inc()
		h.ack(w)
		return
	}
	if envelope.Object != "page" {
		h.logger.Warn("webhook for unexpected object type", "object", envelope.Object)
		h.rejected.Inc()
		h.ack(w)
		return
	}

	for _, e := range envelope.Entry {
		for _, m := range e.Messaging {
			// Read receipts, delivery confirmations and attachment-only
			// messages never enter the pipeline.
			if m.Message == nil || m.Message.Text == "" {
				continue
			}
			h.received.Inc()
			h.proc.Process(r.Context(), domain.InboundEvent{
				ChannelID: m.Recipient.ID,
				SenderID:  m.Sender.ID,
				Timestamp: m.Timestamp,
				Text:      m.Message.Text,
			})
		}
	}

	h.ack(w)
}

func (h *Handler) ack(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "EVENT_RECEIVED")
}
