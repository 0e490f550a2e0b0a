package mq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/regainhq/regain/internal/pkg/instrument"
	"github.com/regainhq/regain/internal/pkg/messaging"
	"github.com/regainhq/regain/internal/recovery/usecase"
	"go.opentelemetry.io/otel/codes"
)

// PasswordChangedDestination is the subject/topic carrying password change
// notifications.
const PasswordChangedDestination = "recovery.password.changed"

const keyOfCorrelationID string = "cID"

type passwordChangedMessage struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	ChangedAt time.Time `json:"changed_at"`
}

type Messaging struct {
	client messaging.Messaging
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Messaging, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishPasswordChanged(ctx context.Context, msg usecase.PasswordChangedEvent) error {
	ctx, span := m.ins.Tracer("recovery.outbound.mq").Start(ctx, "PublishPasswordChanged")
	defer span.End()

	body, err := json.Marshal(passwordChangedMessage{
		UserID:    msg.UserID,
		Email:     msg.Email,
		ChangedAt: time.Now().UTC(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if err := m.client.Publish(ctx, PasswordChangedDestination, messaging.Event{
		Body:    body,
		Headers: map[string]string{keyOfCorrelationID: cID},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
