package messaging

import (
	"context"
	"errors"
	"testing"
)

func TestNewFromDriverUnknown(t *testing.T) {
	// Act
	_, err := NewFromDriver("rabbitmq", FactoryOptions{})

	// Assert
	if !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
}

func TestNewNATSRequiresURL(t *testing.T) {
	// Act
	_, err := NewNATS(NATSConfig{})

	// Assert
	if !errors.Is(err, ErrNATSURLRequired) {
		t.Fatalf("expected missing url error, got %v", err)
	}
}

func TestNewKafkaRequiresBrokers(t *testing.T) {
	// Act
	_, err := NewKafka(KafkaConfig{})

	// Assert
	if !errors.Is(err, ErrKafkaBrokersRequired) {
		t.Fatalf("expected missing brokers error, got %v", err)
	}
}

func TestKafkaPublishValidation(t *testing.T) {
	// Arrange
	k, err := NewKafka(KafkaConfig{Brokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Act / Assert
	if err := k.Publish(context.Background(), "", Event{}); !errors.Is(err, ErrDestinationRequired) {
		t.Fatalf("expected destination error, got %v", err)
	}

	if err := k.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := k.Publish(context.Background(), "topic", Event{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func TestKafkaConsumeValidation(t *testing.T) {
	// Arrange
	k, err := NewKafka(KafkaConfig{Brokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	handler := func(context.Context, Inbound) error { return nil }

	// Act / Assert
	if err := k.Consume(context.Background(), "", "group", handler); !errors.Is(err, ErrDestinationRequired) {
		t.Fatalf("expected destination error, got %v", err)
	}
	if err := k.Consume(context.Background(), "topic", "", handler); !errors.Is(err, ErrKafkaGroupRequired) {
		t.Fatalf("expected group error, got %v", err)
	}
	if err := k.Consume(context.Background(), "topic", "group", nil); !errors.Is(err, ErrHandlerRequired) {
		t.Fatalf("expected handler error, got %v", err)
	}
}
