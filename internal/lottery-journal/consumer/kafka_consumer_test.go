package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/lottery-dapp-poc/pkg/contracts/events"
)

type read struct {
	msg kafka.Message
	err error
}

// fakeReader entrega a fila e depois bloqueia até o contexto acabar
type fakeReader struct {
	mu    sync.Mutex
	queue []read
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		next := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return next.msg, next.err
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

type fakeSink struct {
	mu       sync.Mutex
	failures int
	got      []events.TxEvent
	done     chan struct{}
	want     int
}

func (s *fakeSink) Record(_ context.Context, ev events.TxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("connection refused")
	}
	s.got = append(s.got, ev)
	if len(s.got) == s.want {
		close(s.done)
	}
	return nil
}

func message(t *testing.T, ev events.TxEvent) read {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return read{msg: kafka.Message{Key: []byte(ev.ID), Value: b}}
}

type counters struct {
	mu       sync.Mutex
	consumed int
	persist  int
	errors   map[string]int
}

func (c *counters) wire(p *Processor) {
	c.errors = map[string]int{}
	p.OnConsumed = func() { c.mu.Lock(); c.consumed++; c.mu.Unlock() }
	p.OnPersist = func() { c.mu.Lock(); c.persist++; c.mu.Unlock() }
	p.OnError = func(stage string) { c.mu.Lock(); c.errors[stage]++; c.mu.Unlock() }
}

func TestProcessorPersistsInOrderAndSkipsInvalid(t *testing.T) {
	submitted := events.TxEvent{ID: "a", Operation: "betMany", Status: events.TxSubmitted, Hash: "0x01"}
	confirmed := events.TxEvent{ID: "a", Operation: "betMany", Status: events.TxConfirmed, Hash: "0x01"}

	reader := &fakeReader{queue: []read{
		message(t, submitted),
		{msg: kafka.Message{Value: []byte("not json")}},
		{msg: kafka.Message{Value: []byte(`{"operation":"approve"}`)}}, // sem id
		{err: errors.New("broker unavailable")},
		message(t, confirmed),
	}}
	sink := &fakeSink{done: make(chan struct{}), want: 2}
	p := &Processor{Log: zap.NewNop(), Reader: reader, Sink: sink, RetryBackoff: time.Millisecond}
	var c counters
	c.wire(p)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- p.Run(ctx) }()

	select {
	case <-sink.done:
	case <-time.After(2 * time.Second):
		t.Fatal("events not persisted")
	}
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	require.Len(t, sink.got, 2)
	assert.Equal(t, events.TxSubmitted, sink.got[0].Status)
	assert.Equal(t, events.TxConfirmed, sink.got[1].Status)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, 4, c.consumed)
	assert.Equal(t, 2, c.persist)
	assert.Equal(t, 2, c.errors["decode"])
	assert.Equal(t, 1, c.errors["read"])
}

func TestProcessorRetriesFailedWrites(t *testing.T) {
	ev := events.TxEvent{ID: "b", Operation: "approve", Status: events.TxFailed, Reason: "reverted"}
	reader := &fakeReader{queue: []read{message(t, ev)}}
	sink := &fakeSink{failures: 3, done: make(chan struct{}), want: 1}
	p := &Processor{Log: zap.NewNop(), Reader: reader, Sink: sink, RetryBackoff: time.Millisecond}
	var c counters
	c.wire(p)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- p.Run(ctx) }()

	select {
	case <-sink.done:
	case <-time.After(2 * time.Second):
		t.Fatal("event not persisted after retries")
	}
	cancel()
	<-errc

	assert.Equal(t, "reverted", sink.got[0].Reason)
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, 3, c.errors["db_upsert"])
	assert.Equal(t, 1, c.persist)
}

func TestProcessorStopsWhileRetrying(t *testing.T) {
	reader := &fakeReader{queue: []read{message(t, events.TxEvent{ID: "c", Status: events.TxSubmitted})}}
	sink := &fakeSink{failures: 1 << 30, done: make(chan struct{}), want: 1}
	p := &Processor{Log: zap.NewNop(), Reader: reader, Sink: sink, RetryBackoff: 10 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, p.Run(ctx), context.DeadlineExceeded)
	assert.Empty(t, sink.got)
}
