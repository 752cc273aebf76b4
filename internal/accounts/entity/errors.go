package entity

import (
	"errors"

	"github.com/shandysiswandi/clovigo/internal/pkg/goerror"
)

var (
	ErrOTPInvalidIdentity  = errors.New("accounts: no otp record for identity")
	ErrOTPExpired          = errors.New("accounts: otp expired")
	ErrOTPMismatch         = errors.New("accounts: otp mismatch")
	ErrOTPRateLimited      = errors.New("accounts: otp resend rate limited")
	ErrOTPAlreadyRequested = errors.New("accounts: otp already requested")
	ErrOTPDeliveryFailed   = errors.New("accounts: otp delivery failed")

	ErrAccountAlreadyActive = errors.New("accounts: account already active")
	ErrUnknownRole          = errors.New("accounts: unknown role")
)

// Unique constraints of the accounts schema, mapped to the request field
// that violated them.
var constraintFields = map[string]string{
	"accounts_users_username_key":           "username",
	"accounts_users_pkey":                   "user_id",
	"accounts_sellers_gst_no_key":           "gst_no",
	"accounts_sellers_pan_no_key":           "pan_no",
	"accounts_sellers_account_no_key":       "account_no",
	"accounts_delivery_boys_license_no_key": "license_no",
}

// ConflictError is a unique violation on a known field. It matches
// goerror.ErrConflict with errors.Is.
type ConflictError struct {
	Field string
}

// NewConflictError maps a constraint name to its field. Unknown constraints
// yield an empty Field.
func NewConflictError(constraint string) *ConflictError {
	return &ConflictError{Field: constraintFields[constraint]}
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return goerror.ErrConflict.Error()
	}
	return goerror.ErrConflict.Error() + ": " + e.Field
}

func (e *ConflictError) Is(target error) bool {
	return target == goerror.ErrConflict
}
