package messaging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryConfig configures the in-process broker.
type MemoryConfig struct {
	// Buffer is the queue length per consumer group. Publish blocks when full.
	Buffer int
}

// Memory is an in-process broker. Every consumer group of a topic receives
// each message once; groups without a live Consume call still queue messages.
type Memory struct {
	buffer int
	seq    atomic.Int64

	mu     sync.Mutex
	topics map[string]map[string]chan *Message
	closed bool
}

// NewMemory constructs an in-process broker.
func NewMemory(cfg MemoryConfig) *Memory {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1024
	}
	return &Memory{buffer: cfg.Buffer, topics: map[string]map[string]chan *Message{}}
}

// Close stops accepting messages. Running consumers exit with their context.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Publish enqueues a copy of msg for every group subscribed to topic.
func (m *Memory) Publish(ctx context.Context, topic string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return io.ErrClosedPipe
	}
	queues := make([]chan *Message, 0, len(m.topics[topic]))
	for _, q := range m.topics[topic] {
		queues = append(queues, q)
	}
	m.mu.Unlock()

	id := strconv.FormatInt(m.seq.Add(1), 10)
	for _, q := range queues {
		delivered := &Message{
			ID:        id,
			Topic:     topic,
			Key:       msg.Key,
			Body:      msg.Body,
			Headers:   msg.Headers,
			Timestamp: time.Now(),
		}
		select {
		case q <- delivered:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers a group on topic so messages published before Consume
// starts are not lost.
func (m *Memory) Subscribe(topic, group string) {
	m.queue(topic, group)
}

// Consume processes messages of the group until ctx is done. A failing
// message is requeued until it has been tried maxAttempts times.
func (m *Memory) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if err := validateConsume(ctx, topic, handler); err != nil {
		return err
	}
	co := newConsumeOptions(opts...)
	q := m.queue(topic, co.group)

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case msg := <-q:
					m.handle(ctx, q, handler, msg, co.maxAttempts)
				case <-ctx.Done():
					return
				}
			}
		})
	}
	wg.Wait()

	return ctx.Err()
}

func (m *Memory) handle(ctx context.Context, q chan *Message, handler Handler, msg *Message, maxAttempts int) {
	msg.Attempt++
	err := dispatch(ctx, DriverMemory, handler, msg)
	if err == nil || errors.Is(err, ErrDrop) {
		return
	}
	if msg.Attempt >= maxAttempts {
		slog.ErrorContext(ctx, "memory handler failed, giving up", "topic", msg.Topic, "attempt", msg.Attempt, "error", err)
		return
	}

	select {
	case q <- msg:
	default:
		slog.ErrorContext(ctx, "memory queue full, message lost", "topic", msg.Topic, "error", err)
	}
}

func (m *Memory) queue(topic, group string) chan *Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	groups, ok := m.topics[topic]
	if !ok {
		groups = map[string]chan *Message{}
		m.topics[topic] = groups
	}
	q, ok := groups[group]
	if !ok {
		q = make(chan *Message, m.buffer)
		groups[group] = q
	}
	return q
}
