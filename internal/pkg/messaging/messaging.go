// Package messaging provides a broker-agnostic API for publishing and
// consuming events.
//
// Use cases depend only on the interfaces here, so the underlying broker
// (NATS or Kafka) can be swapped through configuration without touching
// business code.
package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrDestinationRequired is returned when a publish or consume call has
	// no subject/topic.
	ErrDestinationRequired = errors.New("messaging: destination is required")
	// ErrHandlerRequired is returned when Consume is called with a nil handler.
	ErrHandlerRequired = errors.New("messaging: handler is required")
	// ErrClosed is returned when the client has already been closed.
	ErrClosed = errors.New("messaging: client is closed")
	// ErrUnknownDriver indicates an unsupported messaging driver.
	ErrUnknownDriver = errors.New("messaging: unknown driver")
)

// Event is an outgoing message.
type Event struct {
	// Body is the message payload.
	Body []byte
	// Key is used by Kafka for partitioning; NATS ignores it.
	Key []byte
	// Headers carries message metadata.
	Headers map[string]string
}

// Inbound is a received message.
type Inbound interface {
	// Body returns the message payload.
	Body() []byte
	// Source returns the subject or topic the message arrived on.
	Source() string
	// Headers returns message metadata.
	Headers() map[string]string
	// Timestamp returns when the message was received.
	Timestamp() time.Time
}

// Handler processes a received message. Returning an error leaves the message
// to the broker's redelivery semantics.
type Handler func(ctx context.Context, msg Inbound) error

// Messaging is a broker-agnostic client that can publish and consume events.
type Messaging interface {
	io.Closer

	// Publish sends an event to the destination subject or topic.
	Publish(ctx context.Context, destination string, event Event) error

	// Consume blocks, delivering messages from source to handler until ctx is
	// canceled. group names the queue group (NATS) or consumer group (Kafka)
	// so multiple instances share the work.
	Consume(ctx context.Context, source, group string, handler Handler) error
}
