// Package worker drains the audit outbox into Kafka. The outbox table is
// written in the same transaction as the domain mutation, so Kafka receives
// every event exactly as the registry recorded it, eventually and in order.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"attestor/internal/audit"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	defaultPollInterval = time.Second
	defaultBatchSize    = 100
)

// Outbox is the slice of the audit store the worker needs.
type Outbox interface {
	PendingOutbox(ctx context.Context, limit int) ([]audit.OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Worker polls the outbox and produces pending entries to a Kafka topic.
type Worker struct {
	outbox       Outbox
	client       *kgo.Client
	topic        string
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int
}

type Option func(*Worker)

func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) {
		w.pollInterval = interval
	}
}

func WithBatchSize(size int) Option {
	return func(w *Worker) {
		w.batchSize = size
	}
}

func New(outbox Outbox, client *kgo.Client, topic string, logger *slog.Logger, opts ...Option) *Worker {
	w := &Worker{
		outbox:       outbox,
		client:       client,
		topic:        topic,
		logger:       logger,
		pollInterval: defaultPollInterval,
		batchSize:    defaultBatchSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run drains the outbox until the context is cancelled. Publish failures are
// logged and retried on the next tick; entries are only marked published
// after Kafka acknowledges them.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drainOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drainOnce(ctx context.Context) error {
	entries, err := w.outbox.PendingOutbox(ctx, w.batchSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	records := make([]*kgo.Record, len(entries))
	for i, entry := range entries {
		records[i] = &kgo.Record{
			Topic: w.topic,
			Key:   []byte(entry.EventType),
			Value: entry.Payload,
		}
	}

	results := w.client.ProduceSync(ctx, records...)
	if err := results.FirstErr(); err != nil {
		return err
	}

	ids := make([]uuid.UUID, len(entries))
	for i, entry := range entries {
		ids[i] = entry.ID
	}
	if err := w.outbox.MarkPublished(ctx, ids); err != nil {
		return err
	}

	w.logger.DebugContext(ctx, "published audit events", "count", len(entries))
	return nil
}
