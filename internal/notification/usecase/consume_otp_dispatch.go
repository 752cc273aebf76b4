package usecase

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shandysiswandi/clovigo/internal/notification/entity"
)

type ConsumeOTPDispatchInput struct {
	UserID    int64     `validate:"required,gt=0"`
	Username  string    `validate:"required"`
	PhoneNo   string    `validate:"required,phone"`
	Code      string    `validate:"required,otpcode"`
	ExpiresAt time.Time `validate:"required"`
	Reason    string
}

// ConsumeOTPDispatch renders the OTP text and hands it to the SMS gateway.
// Undeliverable input and gateway failures are logged and dropped: a code is
// sent at most once and the user asks for a new one through resend.
func (s *Usecase) ConsumeOTPDispatch(ctx context.Context, in ConsumeOTPDispatchInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeOTPDispatch")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "user_id", in.UserID, "error", err)
		return nil
	}

	remaining := in.ExpiresAt.Sub(s.clock.Now())
	if remaining <= 0 {
		slog.WarnContext(ctx, "otp dispatch dropped", "user_id", in.UserID, "reason", in.Reason,
			"error", entity.ErrCodeAlreadyExpire)
		s.count(ctx, s.failed, in.Reason)
		return nil
	}

	var body strings.Builder
	if err := s.otpTpl.Execute(&body, map[string]any{
		"Code":     in.Code,
		"Username": in.Username,
		"Minutes":  int(math.Ceil(remaining.Minutes())),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to render otp sms", "user_id", in.UserID, "error", err)
		return err
	}

	delivery, err := s.repoSMS.Send(ctx, entity.SMS{
		To:     in.PhoneNo,
		Sender: s.cfg.GetString("modules.notification.sms.sender"),
		Body:   body.String(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to send otp sms", "user_id", in.UserID, "reason", in.Reason, "error", err)
		s.count(ctx, s.failed, in.Reason)
		return nil
	}

	slog.InfoContext(ctx, "otp sms sent", "user_id", in.UserID, "reason", in.Reason,
		"message_id", delivery.MessageID, "status", delivery.Status)
	s.count(ctx, s.sent, in.Reason)

	return nil
}
