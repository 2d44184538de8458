// Package analytics publishes best-effort usage events to Kafka.  Every
// failure is logged and dropped; the emitter never propagates errors into
// the request path.
package analytics

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/placescope/placescope/internal/infrastructure/monitoring/logging"
	"github.com/placescope/placescope/internal/infrastructure/monitoring/metrics"
	"github.com/placescope/placescope/pkg/errors"
)

// EventType names a published event.
type EventType string

const (
	EventDatasetLoaded   EventType = "dataset_loaded"
	EventFiltersChanged  EventType = "filters_changed"
	EventInsightSelected EventType = "insight_selected"
	EventSimilarEntered  EventType = "similar_entered"
	EventSimilarExited   EventType = "similar_exited"
	EventPlaceSelected   EventType = "place_selected"
)

// Event is the wire shape published on the analytics topic.
type Event struct {
	ID      string         `json:"id"`
	Type    EventType      `json:"type"`
	At      time.Time      `json:"at"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Emitter publishes usage events.  Implementations are safe for concurrent
// use.
type Emitter interface {
	Emit(ctx context.Context, eventType EventType, payload map[string]any)
	Close() error
}

// NopEmitter discards every event.  It serves deployments with analytics
// disabled.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, EventType, map[string]any) {}
func (NopEmitter) Close() error                                   { return nil }

// Config holds Kafka producer parameters for the event emitter.
type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// messageWriter abstracts kafka.Writer for testing.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEmitter publishes events through an asynchronous kafka.Writer.
// Broker failures surface in the completion callback and are logged there.
type KafkaEmitter struct {
	writer messageWriter
	topic  string
	log    logging.Logger
	closed atomic.Bool
	now    func() time.Time
}

// NewKafkaEmitter builds an emitter for the configured brokers and topic.
func NewKafkaEmitter(cfg Config, log logging.Logger) (*KafkaEmitter, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeBadRequest, "analytics brokers not configured")
	}
	if cfg.Topic == "" {
		cfg.Topic = "placescope.events"
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	e := &KafkaEmitter{topic: cfg.Topic, log: log, now: time.Now}
	e.writer = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				log.Warn("analytics publish failed",
					logging.Int("events", len(msgs)),
					logging.Err(err))
			}
		},
	}
	log.Info("analytics emitter started",
		logging.Strings("brokers", cfg.Brokers),
		logging.String("topic", cfg.Topic))
	return e, nil
}

// Emit publishes one event.  Marshal or enqueue failures are logged and the
// event is dropped.
func (e *KafkaEmitter) Emit(ctx context.Context, eventType EventType, payload map[string]any) {
	if e.closed.Load() {
		return
	}

	ev := Event{
		ID:      uuid.New().String(),
		Type:    eventType,
		At:      e.now().UTC(),
		Payload: payload,
	}
	value, err := json.Marshal(ev)
	if err != nil {
		e.log.Warn("analytics event not serializable",
			logging.String("type", string(eventType)),
			logging.Err(err))
		metrics.AnalyticsEventsTotal.WithLabelValues(string(eventType), "dropped").Inc()
		return
	}

	msg := kafka.Message{
		Key:   []byte(eventType),
		Value: value,
		Time:  ev.At,
	}
	if err := e.writer.WriteMessages(ctx, msg); err != nil {
		e.log.Warn("analytics publish failed",
			logging.String("type", string(eventType)),
			logging.Err(err))
		metrics.AnalyticsEventsTotal.WithLabelValues(string(eventType), "dropped").Inc()
		return
	}
	metrics.AnalyticsEventsTotal.WithLabelValues(string(eventType), "ok").Inc()
	e.log.Debug("analytics event emitted",
		logging.String("type", string(eventType)),
		logging.String("id", ev.ID))
}

// Close flushes pending messages and releases the writer.  It is idempotent.
func (e *KafkaEmitter) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := e.writer.Close()
	e.log.Info("analytics emitter closed")
	return err
}
