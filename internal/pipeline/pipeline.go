// Package pipeline runs one inbound event through the reply stages: resolve
// channel, fetch catalog, generate, classify, decrypt credential, deliver,
// log. Every failure is contained here; the webhook endpoint always
// acknowledges regardless of outcome.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"shopbot/internal/classify"
	"shopbot/internal/domain"
	"shopbot/internal/messenger"
	"shopbot/internal/metrics"
	"shopbot/internal/provider"
	"shopbot/internal/vault"
)

// Pipeline orchestrates the reply flow for inbound events.
type Pipeline struct {
	channels   domain.ChannelStore
	catalog    domain.Catalog
	cipher     *vault.Cipher
	generator  domain.Generator
	classifier *classify.Classifier
	deliverer  domain.Deliverer
	log        domain.MessageLog
	logger     *slog.Logger
	metrics    *metrics.Collector
}

type Config struct {
	Channels  domain.ChannelStore
	Catalog   domain.Catalog
	Cipher    *vault.Cipher
	Generator domain.Generator
	Deliverer domain.Deliverer
	Log       domain.MessageLog
	Logger    *slog.Logger
	Metrics   *metrics.Collector
}

func New(cfg Config) *Pipeline {
	mc := cfg.Metrics
	if mc == nil {
		mc = metrics.NewCollector()
	}
	return &Pipeline{
		channels:   cfg.Channels,
		catalog:    cfg.Catalog,
		cipher:     cfg.Cipher,
		generator:  cfg.Generator,
		classifier: classify.New(cfg.Logger),
		deliverer:  cfg.Deliverer,
		log:        cfg.Log,
		logger:     cfg.Logger,
		metrics:    mc,
	}
}

// Process runs one event to completion. It never panics and never returns:
// failures at any stage are logged with stage context and swallowed, so the
// caller can acknowledge unconditionally. A generation or delivery failure
// produces silence toward the customer, not an error message.
func (p *Pipeline) Process(ctx context.Context, ev domain.InboundEvent) {
	logger := p.logger.With("event_id", uuid.NewString(), "channel", ev.ChannelID, "sender", ev.SenderID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline panic recovered", "panic", r)
			p.stageCounter("panic").Inc()
		}
	}()

	channel, err := p.channels.Get(ctx, ev.ChannelID)
	if err != nil {
		p.fail(logger, "resolve_channel", err)
		return
	}
	if channel == nil {
		// Channels can be disconnected mid-flight; not an error.
		logger.Warn("event for unrecognized channel")
		p.stageCounter("unknown_channel").Inc()
		return
	}

	products, err := p.catalog.Products(ctx, channel.OwnerID)
	if err != nil {
		p.fail(logger, "fetch_catalog", err)
		return
	}

	answer, err := p.generator.Generate(ctx, products, ev.Text)
	if err != nil {
		var timeout *provider.TimeoutError
		var upstream *provider.UpstreamError
		switch {
		case errors.As(err, &timeout):
			logger.Error("generation timed out", "threshold", timeout.Timeout)
		case errors.As(err, &upstream):
			logger.Error("generation upstream failure", "status", upstream.Status)
		default:
			logger.Error("generation failed", "err", err)
		}
		p.stageCounter("generate").Inc()
		return
	}

	resp, err := p.classifier.Classify(answer, products)
	if err != nil {
		p.fail(logger, "classify", err)
		return
	}
	logger.Info("answer classified", "kind", resp.Kind)

	token, err := p.cipher.Decrypt(channel.TokenCiphertext)
	if err != nil {
		// Indicates data corruption upstream; should be rare.
		p.fail(logger, "decrypt_credential", err)
		return
	}

	if err := p.deliverer.Deliver(ctx, token, ev.SenderID, resp.Text); err != nil {
		var perm *messenger.PermanentError
		if errors.As(err, &perm) {
			logger.Error("delivery failed permanently", "status", perm.Status)
		} else {
			logger.Error("delivery failed after retry budget", "err", err)
		}
		p.stageCounter("deliver").Inc()
		return
	}

	if err := p.log.Append(ctx, domain.LogEntry{
		Timestamp: time.Now(),
		OwnerID:   channel.OwnerID,
		ChannelID: ev.ChannelID,
		SenderID:  ev.SenderID,
		Text:      resp.Text,
	}); err != nil {
		// The reply already went out; log-sink failure is observability loss only.
		logger.Error("message log append failed", "err", err)
	}

	p.metrics.Counter("shopbot_replies_delivered_total", "Replies successfully delivered.", "").Inc()
	logger.Info("reply delivered", "kind", resp.Kind)
}

func (p *Pipeline) fail(logger *slog.Logger, stage string, err error) {
	logger.Error("pipeline stage failed", "stage", stage, "err", err)
	p.stageCounter(stage).Inc()
}

func (p *Pipeline) stageCounter(stage string) *metrics.Counter {
	return p.metrics.Counter("shopbot_pipeline_failures_total", "Events aborted before delivery, by stage.", `stage="`+stage+`"`)
}
