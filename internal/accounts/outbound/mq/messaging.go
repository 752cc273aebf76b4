package mq

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/shandysiswandi/clovigo/internal/accounts/usecase"
	"github.com/shandysiswandi/clovigo/internal/pkg/instrument"
	"github.com/shandysiswandi/clovigo/internal/pkg/messaging"
	"github.com/shandysiswandi/clovigo/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Messaging
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Messaging, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishOTPDispatch(ctx context.Context, msg usecase.OTPDispatchEvent) error {
	ctx, span := m.ins.Tracer("accounts.outbound.mq").Start(ctx, "PublishOTPDispatch")
	defer span.End()

	span.SetAttributes(attribute.Int64("user.id", msg.UserID), attribute.String("otp.reason", msg.Reason))

	body, err := json.Marshal(event.OTPDispatchMessage{
		UserID:    msg.UserID,
		Username:  msg.Username,
		PhoneNo:   msg.PhoneNo,
		Code:      msg.Code,
		ExpiresAt: msg.ExpiresAt,
		Reason:    msg.Reason,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, event.OTPDispatchDestination, messaging.OutgoingMessage{
		Body:    body,
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
