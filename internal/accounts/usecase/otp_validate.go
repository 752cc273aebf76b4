package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/shandysiswandi/clovigo/internal/accounts/entity"
	"github.com/shandysiswandi/clovigo/internal/pkg/goerror"
)

type OTPValidateInput struct {
	Username string `json:"username" validate:"required,max=150"`
	// OTP is compared as submitted.
	OTP string `json:"otp" validate:"required,max=10"`
	// RoleHint names the profile to activate. Empty means probe by precedence.
	RoleHint entity.Role `json:"role"`
}

type OTPValidateOutput struct {
	UserID int64
	// Role is the activated profile, empty when the user has none.
	Role           entity.Role
	ProfileActive  bool
	ProfileOTPDone bool
}

// OTPValidate consumes the code: the user becomes active, the record is
// deleted and one role profile is activated, all in one transaction.
func (s *Usecase) OTPValidate(ctx context.Context, in OTPValidateInput) (*OTPValidateOutput, error) {
	ctx, span := s.startSpan(ctx, "OTPValidate")
	defer span.End()

	in.Username = strings.TrimSpace(in.Username)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	user, err := s.repoDB.GetUserByIdentifier(ctx, in.Username)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "otp validate for unknown identity", "username", in.Username)
		return nil, s.otpError(ctx, "validate", entity.ErrOTPInvalidIdentity, nil)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by identifier", "username", in.Username, "error", err)
		return nil, goerror.NewServer(err)
	}

	out := &OTPValidateOutput{UserID: user.ID}
	err = s.repoDB.WithUserLock(ctx, user.ID, func(ctx context.Context, tx TxRepo) error {
		rec, err := tx.GetOTP(ctx, user.ID)
		if errors.Is(err, goerror.ErrNotFound) {
			return entity.ErrOTPInvalidIdentity
		}
		if err != nil {
			return err
		}

		if err := rec.Check(in.OTP, s.clock.Now(), s.hmac); err != nil {
			return err
		}

		if err := tx.ActivateUser(ctx, user.ID); err != nil {
			return err
		}
		if err := tx.DeleteOTP(ctx, user.ID); err != nil {
			return err
		}

		held, err := tx.ProfileRoles(ctx, user.ID)
		if err != nil {
			return err
		}

		role, ok := entity.ResolveRole(in.RoleHint, held)
		if !ok {
			return nil
		}

		isOTP, isActive := role.Activation()
		if err := tx.ActivateProfile(ctx, user.ID, role, isOTP, isActive); err != nil {
			return err
		}

		out.Role, out.ProfileOTPDone, out.ProfileActive = role, isOTP, isActive
		return nil
	})
	if errors.Is(err, entity.ErrOTPInvalidIdentity) || errors.Is(err, entity.ErrOTPExpired) || errors.Is(err, entity.ErrOTPMismatch) {
		slog.WarnContext(ctx, "otp validation rejected", "user_id", user.ID, "error", err)
		return nil, s.otpError(ctx, "validate", err, nil)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo validate otp", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	add(ctx, s.otpValidated, attribute.String("role", out.Role.String()))
	if out.Role == "" {
		slog.WarnContext(ctx, "otp validated without role profile", "user_id", user.ID)
	}

	return out, nil
}
