package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_PublishConsume(t *testing.T) {
	broker := NewMemory()
	t.Cleanup(func() { _ = broker.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Message, 1)
	ready := make(chan struct{})
	var once sync.Once

	errCh := make(chan error, 1)
	go func() {
		errCh <- broker.Consume(ctx, "otp_dispatch", func(_ context.Context, msg Message) error {
			got <- msg
			return nil
		}, WithQueueGroup("otp_dispatch_sms"), WithAutoAck(true))
	}()

	require.Eventually(t, func() bool {
		broker.mu.Lock()
		defer broker.mu.Unlock()
		if len(broker.groups["otp_dispatch"]) == 1 {
			once.Do(func() { close(ready) })
			return true
		}
		return false
	}, time.Second, 5*time.Millisecond)
	<-ready

	_, err := broker.Publish(ctx, "otp_dispatch", OutgoingMessage{
		Body:    []byte(`{"phone":"+919876543210"}`),
		Headers: []Header{{Key: "cID", Value: []byte("abc")}},
	})
	require.NoError(t, err)

	select {
	case msg := <-got:
		assert.JSONEq(t, `{"phone":"+919876543210"}`, string(msg.Body()))
		assert.Equal(t, "abc", HeaderValue(msg, "cID"))
		assert.Empty(t, HeaderValue(msg, "missing"))
		assert.Equal(t, "otp_dispatch", msg.Topic())
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}

func TestMemory_NoSubscriberDrops(t *testing.T) {
	broker := NewMemory()
	_, err := broker.Publish(context.Background(), "nobody", OutgoingMessage{Body: []byte("x")})
	assert.NoError(t, err)

	require.NoError(t, broker.Close())
	_, err = broker.Publish(context.Background(), "nobody", OutgoingMessage{})
	assert.Error(t, err)
}

type stubMessage struct {
	memoryMessage
	acked, nacked bool
}

func (s *stubMessage) Ack(context.Context) error  { s.acked = true; return nil }
func (s *stubMessage) Nack(context.Context) error { s.nacked = true; return nil }

func TestHandle_AutoAck(t *testing.T) {
	ok := &stubMessage{}
	require.NoError(t, handle(context.Background(), "test", func(context.Context, Message) error { return nil }, ok, true))
	assert.True(t, ok.acked)

	failed := &stubMessage{}
	errBoom := errors.New("boom")
	assert.ErrorIs(t, handle(context.Background(), "test", func(context.Context, Message) error { return errBoom }, failed, true), errBoom)
	assert.True(t, failed.nacked)

	panicked := &stubMessage{}
	assert.Error(t, handle(context.Background(), "test", func(context.Context, Message) error { panic("x") }, panicked, true))
	assert.True(t, panicked.nacked)

	manual := &stubMessage{}
	_ = handle(context.Background(), "test", func(context.Context, Message) error { return nil }, manual, false)
	assert.False(t, manual.acked)
}

func TestNewFromDriver(t *testing.T) {
	_, err := NewFromDriver(context.Background(), "kafka", FactoryOptions{})
	assert.ErrorIs(t, err, ErrUnknownDriver)

	m, err := NewFromDriver(context.Background(), " memory ", FactoryOptions{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, m)

	_, err = NewFromDriver(context.Background(), DriverNATS, FactoryOptions{ConnectAttempts: 2, ConnectBackoff: time.Millisecond})
	assert.ErrorIs(t, err, ErrNATSURLRequired)
}

func TestNewConsumeOptions(t *testing.T) {
	co := newConsumeOptions(WithConcurrency(0), nil, WithChannel("c"), WithMaxInFlight(5))
	assert.Equal(t, 1, co.concurrency)
	assert.Equal(t, "c", co.channel)
	assert.Equal(t, 5, co.maxInFlight)
}
