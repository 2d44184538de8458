package analytics

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/placescope/placescope/internal/infrastructure/monitoring/logging"
	"github.com/placescope/placescope/pkg/errors"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closes int
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closes++
	return nil
}

var emittedAt = time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC)

func newFakeEmitter(w *fakeWriter, log logging.Logger) *KafkaEmitter {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &KafkaEmitter{
		writer: w,
		topic:  "placescope.events",
		log:    log,
		now:    func() time.Time { return emittedAt },
	}
}

func TestEmit_PublishesEnvelope(t *testing.T) {
	w := &fakeWriter{}
	e := newFakeEmitter(w, nil)

	e.Emit(context.Background(), EventFiltersChanged, map[string]any{"district": "mitte"})

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "filters_changed", string(msg.Key))
	assert.True(t, msg.Time.Equal(emittedAt))

	var ev Event
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, EventFiltersChanged, ev.Type)
	assert.True(t, ev.At.Equal(emittedAt))
	assert.Equal(t, "mitte", ev.Payload["district"])

	_, err := uuid.Parse(ev.ID)
	assert.NoError(t, err, "event ids are uuids")
}

func TestEmit_EveryEventGetsAFreshID(t *testing.T) {
	w := &fakeWriter{}
	e := newFakeEmitter(w, nil)

	e.Emit(context.Background(), EventPlaceSelected, nil)
	e.Emit(context.Background(), EventPlaceSelected, nil)

	require.Len(t, w.msgs, 2)
	var first, second Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &first))
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &second))
	assert.NotEqual(t, first.ID, second.ID)
}

func TestEmit_WriteFailureIsLoggedAndDropped(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	log := logging.NewLoggerFromCore(core)

	w := &fakeWriter{err: io.ErrClosedPipe}
	e := newFakeEmitter(w, log)

	e.Emit(context.Background(), EventDatasetLoaded, nil)

	require.Equal(t, 1, observed.Len())
	entry := observed.All()[0]
	assert.Equal(t, "analytics publish failed", entry.Message)
	assert.Equal(t, "dataset_loaded", entry.ContextMap()["type"])
}

func TestEmit_AfterCloseIsANoOp(t *testing.T) {
	w := &fakeWriter{}
	e := newFakeEmitter(w, nil)

	require.NoError(t, e.Close())
	e.Emit(context.Background(), EventSimilarEntered, nil)

	assert.Empty(t, w.msgs)
}

func TestClose_Idempotent(t *testing.T) {
	w := &fakeWriter{}
	e := newFakeEmitter(w, nil)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.Equal(t, 1, w.closes)
}

func TestNewKafkaEmitter_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaEmitter(Config{}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestNewKafkaEmitter_Defaults(t *testing.T) {
	e, err := NewKafkaEmitter(Config{Brokers: []string{"localhost:9092"}}, nil)
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, "placescope.events", e.topic)
	kw, ok := e.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, time.Second, kw.BatchTimeout)
	assert.True(t, kw.Async)
}

func TestNopEmitter(t *testing.T) {
	var e Emitter = NopEmitter{}
	e.Emit(context.Background(), EventSimilarExited, map[string]any{"anchor": "cafe-1"})
	assert.NoError(t, e.Close())
}
