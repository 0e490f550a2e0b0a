package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/regainhq/regain/internal/pkg/instrument"
	"github.com/regainhq/regain/internal/pkg/mail"
)

// fakeMail records sent messages and can fail the first N sends.
type fakeMail struct {
	sent     []mail.Message
	failures int
	err      error
}

func (f *fakeMail) Send(_ context.Context, msg mail.Message) error {
	if f.failures > 0 {
		f.failures--
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMail) Close() error { return nil }

func TestSendOTP(t *testing.T) {
	// Arrange
	client := &fakeMail{}
	m := NewMailer(client, "no-reply@regain.dev", instrument.NewNoop())

	// Act
	err := m.SendOTP(context.Background(), "jane@example.com", "123456", 15*time.Minute)

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(client.sent))
	}
	msg := client.sent[0]
	if msg.From != "no-reply@regain.dev" {
		t.Fatalf("unexpected sender %q", msg.From)
	}
	if len(msg.To) != 1 || msg.To[0] != "jane@example.com" {
		t.Fatalf("unexpected recipients %v", msg.To)
	}
	if msg.Subject != "Your Password Reset Code" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.TextBody, "123456") || !strings.Contains(msg.HTMLBody, "123456") {
		t.Fatal("code missing from message body")
	}
	if !strings.Contains(msg.TextBody, "15 minutes") {
		t.Fatalf("expiry missing from text body: %q", msg.TextBody)
	}
}

func TestSendOTPRetriesTransientFailure(t *testing.T) {
	// Arrange
	client := &fakeMail{failures: 2, err: errors.New("smtp: connection reset")}
	m := NewMailer(client, "no-reply@regain.dev", instrument.NewNoop())

	// Act
	err := m.SendOTP(context.Background(), "jane@example.com", "123456", 15*time.Minute)

	// Assert
	if err != nil {
		t.Fatalf("expected retries to recover, got %v", err)
	}
	if len(client.sent) != 1 {
		t.Fatalf("expected one delivered message, got %d", len(client.sent))
	}
}

func TestSendOTPExhaustsRetries(t *testing.T) {
	// Arrange
	sendErr := errors.New("smtp: connection reset")
	client := &fakeMail{failures: 10, err: sendErr}
	m := NewMailer(client, "no-reply@regain.dev", instrument.NewNoop())

	// Act
	err := m.SendOTP(context.Background(), "jane@example.com", "123456", 15*time.Minute)

	// Assert
	if !errors.Is(err, sendErr) {
		t.Fatalf("expected underlying send error, got %v", err)
	}
	if len(client.sent) != 0 {
		t.Fatalf("expected no delivered message, got %d", len(client.sent))
	}
}

func TestSendPasswordChanged(t *testing.T) {
	// Arrange
	client := &fakeMail{}
	m := NewMailer(client, "no-reply@regain.dev", instrument.NewNoop())

	// Act
	err := m.SendPasswordChanged(context.Background(), "jane@example.com")

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(client.sent))
	}
	msg := client.sent[0]
	if msg.Subject != "Your Password Was Changed" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.TextBody, "reset it immediately") {
		t.Fatalf("warning missing from text body: %q", msg.TextBody)
	}
}
