package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalog-search/pkg/logger"
)

// --- fakes ---

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	closed    int
	drained   chan struct{}
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{queue: msgs, drained: make(chan struct{}, 1)}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	select {
	case r.drained <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed++
	return nil
}

func eventMessage(t *testing.T, offset int64, eventType string) kafka.Message {
	t.Helper()
	ev, err := NewEvent(context.Background(), eventType, "product", "42", "catalog-search", map[string]int{"id": 42})
	require.NoError(t, err)
	data, err := ev.Marshal()
	require.NoError(t, err)
	return kafka.Message{Topic: "catalog.product.events", Offset: offset, Value: data}
}

// runUntilDrained starts c, waits for the reader to run out of messages and
// stops it.
func runUntilDrained(t *testing.T, c *Consumer, r *fakeReader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	select {
	case <-r.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain messages")
	}
	cancel()
	require.NoError(t, <-done)
}

// --- Event ---

func TestNewEvent_CarriesCorrelationID(t *testing.T) {
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	ev, err := NewEvent(ctx, "product.updated", "product", "7", "catalog-search", map[string]string{"name_en": "Milk"})
	require.NoError(t, err)

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, "corr-1", ev.CorrelationID)
	assert.Equal(t, 1, ev.Version)

	data, err := ev.Marshal()
	require.NoError(t, err)
	decoded, err := UnmarshalEvent(data)
	require.NoError(t, err)

	var payload map[string]string
	require.NoError(t, decoded.UnmarshalData(&payload))
	assert.Equal(t, "Milk", payload["name_en"])
}

func TestUnmarshalEvent_RequiresType(t *testing.T) {
	_, err := UnmarshalEvent([]byte(`{"event_id":"x"}`))
	assert.Error(t, err)

	_, err = UnmarshalEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "catalog.product.events", Topic("product", "events"))
}

// --- Producer ---

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, logger: logger.Discard()}

	ev, err := NewEvent(logger.WithCorrelationID(context.Background(), "c-9"), "brand.deleted", "brand", "3", "catalog-search", nil)
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), "catalog.brand.events", ev))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("3"), w.msgs[0].Key)
	assert.Equal(t, "catalog.brand.events", w.msgs[0].Topic)

	headers := map[string]string{}
	for _, h := range w.msgs[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "brand.deleted", headers["event_type"])
	assert.Equal(t, "c-9", headers["correlation_id"])
}

func TestProducer_PublishError(t *testing.T) {
	p := &Producer{writer: &fakeWriter{err: errors.New("leader not available")}, logger: logger.Discard()}
	ev, _ := NewEvent(context.Background(), "product.created", "product", "1", "catalog-search", nil)

	err := p.Publish(context.Background(), "catalog.product.events", ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	assert.Error(t, PingBrokers(context.Background(), nil))
}

// --- Consumer ---

func TestConsumer_HandlesAndCommits(t *testing.T) {
	r := newFakeReader(eventMessage(t, 1, "product.created"), eventMessage(t, 2, "product.updated"))

	var seen []string
	c := newConsumer(r, "catalog.product.events", "search", func(_ context.Context, ev *Event) error {
		seen = append(seen, ev.EventType)
		return nil
	}, logger.Discard())

	runUntilDrained(t, c, r)

	assert.Equal(t, []string{"product.created", "product.updated"}, seen)
	assert.Equal(t, []int64{1, 2}, r.committed)
	assert.Equal(t, 1, r.closed)
}

func TestConsumer_SkipsPoisonMessages(t *testing.T) {
	bad := kafka.Message{Topic: "catalog.product.events", Offset: 1, Value: []byte("{")}
	r := newFakeReader(bad, eventMessage(t, 2, "product.deleted"))

	attempts := 0
	c := newConsumer(r, "catalog.product.events", "search", func(context.Context, *Event) error {
		attempts++
		return errors.New("redis down")
	}, logger.Discard())
	c.backoff = time.Millisecond

	runUntilDrained(t, c, r)

	assert.Equal(t, maxHandlerRetries, attempts)
	assert.Equal(t, []int64{1, 2}, r.committed)
}

func TestConsumer_RetriesThenSucceeds(t *testing.T) {
	r := newFakeReader(eventMessage(t, 5, "product.updated"))

	attempts := 0
	c := newConsumer(r, "catalog.product.events", "search", func(context.Context, *Event) error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	}, logger.Discard())
	c.backoff = time.Millisecond

	runUntilDrained(t, c, r)

	assert.Equal(t, 2, attempts)
	assert.Equal(t, []int64{5}, r.committed)
	assert.Equal(t, "catalog.product.events", c.Topic())
}
