package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/atomic"
)

var (
	// ErrKafkaBrokersRequired is returned when no Kafka brokers are configured.
	ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")
	// ErrKafkaGroupRequired is returned when Consume is called without a group.
	ErrKafkaGroupRequired = errors.New("messaging: kafka consumer group is required")
)

// KafkaConfig configures the Kafka implementation.
type KafkaConfig struct {
	// Brokers lists Kafka broker addresses.
	Brokers []string
}

// Kafka is a messaging implementation backed by kafka-go.
type Kafka struct {
	brokers []string

	mu      sync.Mutex
	writers map[string]*kafka.Writer
	closed  atomic.Bool
}

// NewKafka constructs a Kafka messaging client.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}

	return &Kafka{
		brokers: append([]string{}, cfg.Brokers...),
		writers: map[string]*kafka.Writer{},
	}, nil
}

// Close shuts down all Kafka writers.
func (k *Kafka) Close() error {
	if k.closed.Swap(true) {
		return nil
	}

	k.mu.Lock()
	writers := make([]*kafka.Writer, 0, len(k.writers))
	for _, w := range k.writers {
		writers = append(writers, w)
	}
	k.writers = nil
	k.mu.Unlock()

	var closeErr error
	for _, w := range writers {
		closeErr = errors.Join(closeErr, w.Close())
	}

	return closeErr
}

// Publish sends an event to a Kafka topic.
func (k *Kafka) Publish(ctx context.Context, destination string, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}
	if k.closed.Load() {
		return ErrClosed
	}

	msg := kafka.Message{
		Key:   event.Key,
		Value: event.Body,
		Time:  time.Now(),
	}
	for hk, hv := range event.Headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: hk, Value: []byte(hv)})
	}

	if err := k.writer(destination).WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("messaging: kafka publish: %w", err)
	}

	return nil
}

// Consume reads a Kafka topic through a consumer group and blocks until ctx
// is canceled.
func (k *Kafka) Consume(ctx context.Context, source, group string, handler Handler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if source == "" {
		return ErrDestinationRequired
	}
	if group == "" {
		return ErrKafkaGroupRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	if k.closed.Load() {
		return ErrClosed
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: k.brokers,
		Topic:   source,
		GroupID: group,
	})
	defer reader.Close()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}

			return fmt.Errorf("messaging: kafka fetch: %w", err)
		}

		if herr := handleWithRecover(ctx, "kafka", handler, newKafkaInbound(msg)); herr != nil {
			continue // leave the offset uncommitted so the message is redelivered
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("messaging: kafka commit: %w", err)
		}
	}
}

func (k *Kafka) writer(topic string) *kafka.Writer {
	k.mu.Lock()
	defer k.mu.Unlock()

	if w, ok := k.writers[topic]; ok {
		return w
	}

	w := &kafka.Writer{
		Addr:     kafka.TCP(k.brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
	k.writers[topic] = w

	return w
}

type kafkaInbound struct {
	msg kafka.Message
}

func newKafkaInbound(msg kafka.Message) *kafkaInbound {
	return &kafkaInbound{msg: msg}
}

func (m *kafkaInbound) Body() []byte   { return m.msg.Value }
func (m *kafkaInbound) Source() string { return m.msg.Topic }

func (m *kafkaInbound) Headers() map[string]string {
	if len(m.msg.Headers) == 0 {
		return nil
	}

	headers := make(map[string]string, len(m.msg.Headers))
	for _, h := range m.msg.Headers {
		headers[h.Key] = string(h.Value)
	}

	return headers
}

func (m *kafkaInbound) Timestamp() time.Time { return m.msg.Time }
