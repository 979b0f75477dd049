package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	r "github.com/guaracyalima/xeco-public-sub002/checkout-service/internal/repository"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic = "checkout-outbox"

	batchSize       = 100
	staleReason     = "checkout was not confirmed by the relay in time"
	eventTypeHeader = "event_type"
)

// Repository is the part of the checkout repository the poller drives.
type Repository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*r.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
	GetStaleSessions(ctx context.Context, olderThan time.Duration, limit int) ([]*r.CheckoutSession, error)
	FailCheckoutSession(ctx context.Context, id, reason string) error
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	Brokers    []string
	Topic      string
	StaleAfter time.Duration
}

// OutboxPoller publishes committed outbox events to Kafka and fails sessions
// that never got a gateway checkout.
type OutboxPoller struct {
	timeout      time.Duration
	eventTick    time.Duration
	recoveryTick time.Duration
	staleAfter   time.Duration
	repo         Repository
	writer       MessageWriter
	logger       *slog.Logger
}

func NewOutboxPoller(repo Repository, cfg Config, logger *slog.Logger) *OutboxPoller {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return newOutboxPoller(repo, w, cfg.StaleAfter, logger)
}

func newOutboxPoller(repo Repository, w MessageWriter, staleAfter time.Duration, logger *slog.Logger) *OutboxPoller {
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OutboxPoller{
		timeout:      5 * time.Second,
		eventTick:    time.Second,
		recoveryTick: 30 * time.Second,
		staleAfter:   staleAfter,
		repo:         repo,
		writer:       w,
		logger:       logger,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	recoveryTicker := time.NewTicker(p.recoveryTick)
	defer eventTicker.Stop()
	defer recoveryTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-recoveryTicker.C:
			p.recoverStaleSessions(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to fetch outbox events", "error", err)
		return
	}

	for _, event := range events {
		if err := p.publishToKafka(ctx, event); err != nil {
			p.logger.ErrorContext(ctx, "failed to publish outbox event", "event_id", event.ID, "error", err)
			// keep per-aggregate order: later events wait for the next tick
			return
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			// the event is published again next tick; consumers dedupe by checkout id
			p.logger.ErrorContext(ctx, "failed to mark outbox event as processed", "event_id", event.ID, "error", err)
			continue
		}
	}
}

// recoverStaleSessions fails sessions stuck in INITIATED, typically because
// the caller went away while the relay call was in flight.
func (p *OutboxPoller) recoverStaleSessions(ctx context.Context) {
	sessions, err := p.repo.GetStaleSessions(ctx, p.staleAfter, batchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to get stale sessions", "error", err)
		return
	}
	for _, session := range sessions {
		err := p.repo.FailCheckoutSession(ctx, session.ID, staleReason)
		if errors.Is(err, r.ErrStatusConflict) {
			// moved on since the query ran
			continue
		}
		if err != nil {
			p.logger.ErrorContext(ctx, "failed to fail stale session", "session_id", session.ID, "error", err)
			continue
		}
		p.logger.WarnContext(ctx, "stale checkout session failed", "session_id", session.ID, "created_at", session.CreatedAt)
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *r.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateId), // checkout_id for ordering
		Value: event.Payload,             // Already JSON from database
		Headers: []kafka.Header{
			{Key: eventTypeHeader, Value: []byte(event.EventType)},
		},
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		return fmt.Errorf("write outbox event %d: %w", event.ID, err)
	}
	return nil
}
