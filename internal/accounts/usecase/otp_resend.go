package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/shandysiswandi/clovigo/internal/accounts/entity"
	"github.com/shandysiswandi/clovigo/internal/pkg/goerror"
)

type OTPResendInput struct {
	Username string `json:"username" validate:"required,max=150"`
}

type OTPResendOutput struct {
	ExpiresAt         time.Time
	AttemptsRemaining int
	LockedUntil       *time.Time
}

// OTPResend issues a new code for a dormant account. The record change is
// committed before the code is dispatched; a failed dispatch is reported as
// delivery failure and the new code stays in place.
func (s *Usecase) OTPResend(ctx context.Context, in OTPResendInput) (*OTPResendOutput, error) {
	ctx, span := s.startSpan(ctx, "OTPResend")
	defer span.End()

	in.Username = strings.TrimSpace(in.Username)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	user, err := s.repoDB.GetUserByIdentifier(ctx, in.Username)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "otp resend for unknown identity", "username", in.Username)
		return nil, s.otpError(ctx, "resend", entity.ErrOTPInvalidIdentity, nil)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by identifier", "username", in.Username, "error", err)
		return nil, goerror.NewServer(err)
	}

	if user.IsActive {
		return nil, s.otpError(ctx, "resend", entity.ErrAccountAlreadyActive, nil)
	}

	var (
		rec    entity.OTPRecord
		code   string
		genErr error
	)
	err = s.repoDB.WithUserLock(ctx, user.ID, func(ctx context.Context, tx TxRepo) error {
		now := s.clock.Now()

		current, err := tx.GetOTP(ctx, user.ID)
		if err != nil && !errors.Is(err, goerror.ErrNotFound) {
			return err
		}
		if current != nil {
			rec = *current
			if err := rec.CanResend(now); err != nil {
				return err
			}
		}

		var digest string
		code, digest, genErr = s.newCode(ctx)
		if genErr != nil {
			return genErr
		}

		if current == nil {
			rec = entity.NewOTPRecord(user.ID, digest, now, s.policy)
		} else if err := rec.Resend(digest, now, s.policy); err != nil {
			return err
		}

		return tx.SaveOTP(ctx, rec)
	})
	if genErr != nil {
		return nil, genErr
	}
	if errors.Is(err, entity.ErrOTPRateLimited) || errors.Is(err, entity.ErrOTPAlreadyRequested) {
		slog.WarnContext(ctx, "otp resend rejected", "user_id", user.ID, "error", err)
		return nil, s.otpError(ctx, "resend", err, &rec)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo resend otp", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	add(ctx, s.otpIssued, attribute.String("reason", "resend"))
	span.SetAttributes(attribute.Int("otp.attempts_remaining", rec.AttemptsRemaining))

	if err := s.dispatch(ctx, *user, code, rec.ExpiresAt, "resend"); err != nil {
		return nil, s.otpError(ctx, "resend", err, &rec)
	}

	return &OTPResendOutput{
		ExpiresAt:         rec.ExpiresAt,
		AttemptsRemaining: rec.AttemptsRemaining,
		LockedUntil:       rec.LockedUntil,
	}, nil
}
