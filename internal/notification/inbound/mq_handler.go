package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/shandysiswandi/clovigo/internal/notification/usecase"
	"github.com/shandysiswandi/clovigo/internal/pkg/instrument"
	"github.com/shandysiswandi/clovigo/internal/pkg/messaging"
	"github.com/shandysiswandi/clovigo/internal/pkg/uid"
	"github.com/shandysiswandi/clovigo/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, msg messaging.Message) context.Context {
	if cID := messaging.HeaderValue(msg, keyOfCorrelationID); cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

// OTPDispatchSMS never logs the message body: it carries a plaintext code.
func (h *MQHandler) OTPDispatchSMS(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "OTPDispatchSMS")
	defer span.End()

	span.SetAttributes(attribute.String("messaging.message.id", msg.ID()))
	slog.InfoContext(ctx, "consume: otp dispatch sms", "msg_id", msg.ID(), "topic", msg.Topic())

	var payload event.OTPDispatchMessage
	if err := json.Unmarshal(msg.Body(), &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of otp dispatch", "msg_id", msg.ID(), "error", err)
		return nil
	}

	if err := h.uc.ConsumeOTPDispatch(ctx, usecase.ConsumeOTPDispatchInput{
		UserID:    payload.UserID,
		Username:  payload.Username,
		PhoneNo:   payload.PhoneNo,
		Code:      payload.Code,
		ExpiresAt: payload.ExpiresAt,
		Reason:    payload.Reason,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume otp dispatch", "msg_id", msg.ID(), "user_id", payload.UserID, "error", err)
		return err
	}

	return nil
}
