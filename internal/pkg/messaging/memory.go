package messaging

import (
	"context"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Memory is an in-process broker. Each published message goes to one
// subscriber per queue group (channel), round-robin, like NATS queue groups.
type Memory struct {
	mu     sync.Mutex
	groups map[string]map[string]*memoryGroup
	closed bool
	seq    atomic.Uint64
	done   chan struct{}
}

type memoryGroup struct {
	subs []chan *memoryMessage
	next int
}

// NewMemory returns an empty in-process broker.
func NewMemory() *Memory {
	return &Memory{
		groups: make(map[string]map[string]*memoryGroup),
		done:   make(chan struct{}),
	}
}

// Close stops all consumers.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// Publish hands msg to every queue group subscribed to destination. With no
// subscriber the message is dropped, as on a core NATS subject.
func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return PublishResult{}, io.ErrClosedPipe
	}

	now := time.Now()
	var targets []chan *memoryMessage
	for _, g := range m.groups[destination] {
		if len(g.subs) == 0 {
			continue
		}
		targets = append(targets, g.subs[g.next%len(g.subs)])
		g.next++
	}
	m.mu.Unlock()

	for _, ch := range targets {
		mm := &memoryMessage{
			id:      strconv.FormatUint(m.seq.Add(1), 10),
			topic:   destination,
			body:    append([]byte(nil), msg.Body...),
			headers: append([]Header(nil), msg.Headers...),
			at:      now,
		}
		select {
		case ch <- mm:
		case <-ctx.Done():
			return PublishResult{}, ctx.Err()
		case <-m.done:
			return PublishResult{}, io.ErrClosedPipe
		}
	}

	return PublishResult{Topic: destination, Timestamp: now}, nil
}

// Consume registers a subscriber and processes messages until ctx is done or
// the broker is closed.
func (m *Memory) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if handler == nil {
		return ErrHandlerRequired
	}

	co := newConsumeOptions(opts...)
	group := co.queueGroup
	if group == "" {
		group = co.channel
	}

	ch := make(chan *memoryMessage, co.concurrency)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return io.ErrClosedPipe
	}
	if m.groups[source] == nil {
		m.groups[source] = make(map[string]*memoryGroup)
	}
	g := m.groups[source][group]
	if g == nil {
		g = &memoryGroup{}
		m.groups[source][group] = g
	}
	g.subs = append(g.subs, ch)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case mm := <-ch:
					_ = handle(ctx, "memory", handler, mm, co.autoAck)
				case <-ctx.Done():
					return
				case <-m.done:
					return
				}
			}
		})
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

type memoryMessage struct {
	id      string
	topic   string
	body    []byte
	headers []Header
	at      time.Time
}

func (m *memoryMessage) Body() []byte                 { return m.body }
func (m *memoryMessage) Headers() []Header            { return m.headers }
func (m *memoryMessage) ID() string                   { return m.id }
func (m *memoryMessage) Topic() string                { return m.topic }
func (m *memoryMessage) Timestamp() time.Time         { return m.at }
func (m *memoryMessage) Ack(ctx context.Context) error  { return ctx.Err() }
func (m *memoryMessage) Nack(ctx context.Context) error { return ctx.Err() }
