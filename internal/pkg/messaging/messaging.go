package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
)

// HeaderCorrelationID carries the request correlation id across the broker.
const HeaderCorrelationID = "x-correlation-id"

var (
	// ErrUnsupported is returned when a feature is not supported by the selected broker.
	ErrUnsupported = errors.New("messaging: unsupported operation")
	// ErrTopicRequired is returned when the topic is empty.
	ErrTopicRequired = errors.New("messaging: topic is required")
	// ErrHandlerRequired is returned when Consume is called with a nil handler.
	ErrHandlerRequired = errors.New("messaging: handler is required")
	// ErrGroupRequired is returned when a broker needs a consumer group and none was given.
	ErrGroupRequired = errors.New("messaging: consumer group is required")
	// ErrDrop marks a handler error as permanent: the message is acked and not redelivered.
	ErrDrop = errors.New("messaging: drop message")
)

// Messaging is a broker client that can publish and consume messages.
type Messaging interface {
	io.Closer

	Publisher
	Consumer
}

// Publisher publishes messages to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg OutgoingMessage) error
}

// Consumer consumes messages from a topic. Consume blocks until ctx is done
// or the subscription fails.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes a received message.
type Handler func(ctx context.Context, msg *Message) error

// OutgoingMessage is a message to be published.
type OutgoingMessage struct {
	// Key is used by Kafka for partitioning; other drivers ignore it.
	Key     []byte
	Body    []byte
	Headers map[string]string
}

// Message is a received message.
type Message struct {
	ID        string
	Topic     string
	Key       []byte
	Body      []byte
	Headers   map[string]string
	Timestamp time.Time
	// Attempt starts at 1 for the first delivery when the broker tracks it.
	Attempt int
}

// Header returns the value of a header or "" when absent.
func (m *Message) Header(key string) string {
	if m == nil || m.Headers == nil {
		return ""
	}
	return m.Headers[key]
}

// NewJSONMessage encodes v as the body of a message keyed by key and stamps
// the correlation id found in ctx.
func NewJSONMessage(ctx context.Context, key string, v any) (OutgoingMessage, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return OutgoingMessage{}, err
	}

	msg := OutgoingMessage{Body: body, Headers: map[string]string{}}
	if key != "" {
		msg.Key = []byte(key)
	}
	if cID := instrument.GetCorrelationID(ctx); cID != "" {
		msg.Headers[HeaderCorrelationID] = cID
	}

	return msg, nil
}

// DecodeJSON unmarshals the message body into v. A malformed body is
// reported as ErrDrop since redelivery cannot fix it.
func DecodeJSON(msg *Message, v any) error {
	if err := json.Unmarshal(msg.Body, v); err != nil {
		return errors.Join(ErrDrop, err)
	}
	return nil
}

func validateConsume(ctx context.Context, topic string, handler Handler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	return nil
}
