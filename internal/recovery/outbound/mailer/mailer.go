package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/regainhq/regain/internal/pkg/instrument"
	"github.com/regainhq/regain/internal/pkg/mail"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/codes"
)

// Mailer composes and delivers the recovery emails. SMTP hiccups are retried
// with exponential backoff before the failure is surfaced.
type Mailer struct {
	client mail.Mail
	from   string
	ins    instrument.Instrumentation
}

func NewMailer(client mail.Mail, from string, ins instrument.Instrumentation) *Mailer {
	return &Mailer{client: client, from: from, ins: ins}
}

// SendOTP emails the verification code. The ttl is rendered into the body so
// the message never promises more time than the stored challenge has.
func (m *Mailer) SendOTP(ctx context.Context, email, code string, ttl time.Duration) error {
	ctx, span := m.ins.Tracer("recovery.outbound.mailer").Start(ctx, "SendOTP")
	defer span.End()

	minutes := int(ttl.Minutes())

	msg := mail.Message{
		From:    m.from,
		To:      []string{email},
		Subject: "Your Password Reset Code",
		TextBody: fmt.Sprintf(
			"Your password reset code is: %s\n\nThis code will expire in %d minutes.\n\nIf you did not request a password reset, please ignore this email.",
			code, minutes,
		),
		HTMLBody: fmt.Sprintf(
			"<p>Your password reset code is: <strong>%s</strong></p><p>This code will expire in %d minutes.</p><p>If you did not request a password reset, please ignore this email.</p>",
			code, minutes,
		),
	}

	if err := m.send(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

// SendPasswordChanged emails a best-effort confirmation after a reset.
func (m *Mailer) SendPasswordChanged(ctx context.Context, email string) error {
	ctx, span := m.ins.Tracer("recovery.outbound.mailer").Start(ctx, "SendPasswordChanged")
	defer span.End()

	msg := mail.Message{
		From:    m.from,
		To:      []string{email},
		Subject: "Your Password Was Changed",
		TextBody: "The password for your account was just changed.\n\n" +
			"If this was you, no action is needed. If you did not change your password, please reset it immediately.",
		HTMLBody: "<p>The password for your account was just changed.</p>" +
			"<p>If this was you, no action is needed. If you did not change your password, please reset it immediately.</p>",
	}

	if err := m.send(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (m *Mailer) send(ctx context.Context, msg mail.Message) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := m.client.Send(ctx, msg); err != nil {
			return retry.RetryableError(err)
		}

		return nil
	})
}
