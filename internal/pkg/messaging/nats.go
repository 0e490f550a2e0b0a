package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/atomic"
)

// ErrNATSURLRequired is returned when the NATS server URL is missing.
var ErrNATSURLRequired = errors.New("messaging: nats url is required")

// NATSConfig configures the NATS implementation.
type NATSConfig struct {
	// URL is the NATS server address.
	URL string
	// Options are passed to the NATS client.
	Options []nats.Option
}

// NATS is a messaging implementation backed by core NATS.
type NATS struct {
	conn   *nats.Conn
	closed atomic.Bool
}

// NewNATS constructs a NATS messaging client.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, ErrNATSURLRequired
	}

	conn, err := nats.Connect(cfg.URL, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect: %w", err)
	}

	return &NATS{conn: conn}, nil
}

// Close drains and closes the NATS connection.
func (n *NATS) Close() error {
	if n.closed.Swap(true) {
		return nil
	}

	err := n.conn.Drain()
	n.conn.Close()

	return err
}

// Publish sends an event to a NATS subject.
func (n *NATS) Publish(ctx context.Context, destination string, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}
	if n.closed.Load() {
		return ErrClosed
	}

	msg := nats.NewMsg(destination)
	msg.Data = event.Body
	for k, v := range event.Headers {
		msg.Header.Set(k, v)
	}

	if err := n.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("messaging: nats publish: %w", err)
	}
	if err := n.conn.Flush(); err != nil {
		return fmt.Errorf("messaging: nats flush: %w", err)
	}

	return nil
}

// Consume subscribes to a NATS subject and blocks until ctx is canceled.
func (n *NATS) Consume(ctx context.Context, source, group string, handler Handler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if source == "" {
		return ErrDestinationRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	if n.closed.Load() {
		return ErrClosed
	}

	sub, err := n.conn.QueueSubscribe(source, group, func(m *nats.Msg) {
		_ = handleWithRecover(ctx, "nats", handler, newNATSInbound(m, time.Now()))
	})
	if err != nil {
		return fmt.Errorf("messaging: nats subscribe: %w", err)
	}

	if err := n.conn.Flush(); err != nil {
		return errors.Join(fmt.Errorf("messaging: nats flush: %w", err), sub.Drain())
	}

	<-ctx.Done()

	return errors.Join(ctx.Err(), sub.Drain())
}

type natsInbound struct {
	msg        *nats.Msg
	receivedAt time.Time
}

func newNATSInbound(msg *nats.Msg, receivedAt time.Time) *natsInbound {
	return &natsInbound{msg: msg, receivedAt: receivedAt}
}

func (m *natsInbound) Body() []byte   { return m.msg.Data }
func (m *natsInbound) Source() string { return m.msg.Subject }

func (m *natsInbound) Headers() map[string]string {
	if len(m.msg.Header) == 0 {
		return nil
	}

	headers := make(map[string]string, len(m.msg.Header))
	for k, values := range m.msg.Header {
		if len(values) > 0 {
			headers[k] = values[0]
		}
	}

	return headers
}

func (m *natsInbound) Timestamp() time.Time { return m.receivedAt }
