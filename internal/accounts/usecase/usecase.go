package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/clovigo/internal/accounts/entity"
	"github.com/shandysiswandi/clovigo/internal/pkg/clock"
	"github.com/shandysiswandi/clovigo/internal/pkg/config"
	"github.com/shandysiswandi/clovigo/internal/pkg/goerror"
	"github.com/shandysiswandi/clovigo/internal/pkg/hash"
	"github.com/shandysiswandi/clovigo/internal/pkg/idempotency"
	"github.com/shandysiswandi/clovigo/internal/pkg/instrument"
	"github.com/shandysiswandi/clovigo/internal/pkg/jwt"
	"github.com/shandysiswandi/clovigo/internal/pkg/otp"
	"github.com/shandysiswandi/clovigo/internal/pkg/uid"
	"github.com/shandysiswandi/clovigo/internal/pkg/validator"
)

// OTPDispatchEvent asks the notification side to deliver a code by SMS.
type OTPDispatchEvent struct {
	UserID    int64
	Username  string
	PhoneNo   string
	Code      string
	ExpiresAt time.Time
	Reason    string
}

// Document is an uploaded file waiting to be stored.
type Document struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// TxRepo is the view of the store inside a per-user locked transaction.
type TxRepo interface {
	GetOTP(ctx context.Context, userID int64) (*entity.OTPRecord, error)
	SaveOTP(ctx context.Context, rec entity.OTPRecord) error
	DeleteOTP(ctx context.Context, userID int64) error
	ActivateUser(ctx context.Context, userID int64) error
	ProfileRoles(ctx context.Context, userID int64) ([]entity.Role, error)
	ActivateProfile(ctx context.Context, userID int64, role entity.Role, isOTP, isActive bool) error
}

type repoDB interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
	GetUserByUsername(ctx context.Context, username string) (*entity.User, error)
	GetUserByIdentifier(ctx context.Context, identifier string) (*entity.User, error)
	GetUserByID(ctx context.Context, id int64) (*entity.User, error)
	GetProfile(ctx context.Context, userID int64, role entity.Role) (*entity.ProfileDetail, error)

	CreateAccount(ctx context.Context, acc entity.NewAccount) error

	// WithUserLock runs fn in one transaction holding the row lock of the
	// user. fn's error rolls the transaction back.
	WithUserLock(ctx context.Context, userID int64, fn func(ctx context.Context, tx TxRepo) error) error
}

type repoMessaging interface {
	PublishOTPDispatch(ctx context.Context, ev OTPDispatchEvent) error
}

type repoDocument interface {
	Upload(ctx context.Context, folder string, userID int64, doc Document) (string, error)
	Remove(ctx context.Context, keys ...string)
	URL(ctx context.Context, key string) (string, error)
}

type Usecase struct {
	repoDB        repoDB
	repoMessaging repoMessaging
	repoDocument  repoDocument
	idemp         idempotency.Idempotency
	validator     validator.Validator
	cfg           config.Config
	policy        entity.OTPPolicy
	code          otp.Generator
	hmac          hash.Hash
	bcrypt        hash.Hash
	uid           uid.NumberID
	clock         clock.Clocker
	jwt           jwt.JWT
	ins           instrument.Instrumentation

	otpIssued    metric.Int64Counter
	otpRejected  metric.Int64Counter
	otpValidated metric.Int64Counter
}

type Dependency struct {
	RepoDB        repoDB
	RepoMessaging repoMessaging
	RepoDocument  repoDocument
	Idempotency   idempotency.Idempotency
	Validator     validator.Validator
	Config        config.Config
	Policy        entity.OTPPolicy
	Code          otp.Generator
	HMAC          hash.Hash
	Bcrypt        hash.Hash
	UID           uid.NumberID
	Clock         clock.Clocker
	JWT           jwt.JWT
	Instrument    instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	uc := &Usecase{
		repoDB:        dep.RepoDB,
		repoMessaging: dep.RepoMessaging,
		repoDocument:  dep.RepoDocument,
		idemp:         dep.Idempotency,
		validator:     dep.Validator,
		cfg:           dep.Config,
		policy:        dep.Policy.Normalize(),
		code:          dep.Code,
		hmac:          dep.HMAC,
		bcrypt:        dep.Bcrypt,
		uid:           dep.UID,
		clock:         dep.Clock,
		jwt:           dep.JWT,
		ins:           dep.Instrument,
	}

	meter := dep.Instrument.Meter("accounts.usecase")
	uc.otpIssued = counter(meter, "accounts.otp.issued", "OTP codes issued or reissued")
	uc.otpRejected = counter(meter, "accounts.otp.rejected", "OTP resend or validation requests rejected")
	uc.otpValidated = counter(meter, "accounts.otp.validated", "OTP codes validated successfully")

	return uc
}

func counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		slog.Error("failed to create counter", "name", name, "error", err)
		return nil
	}
	return c
}

func add(ctx context.Context, c metric.Int64Counter, attrs ...attribute.KeyValue) {
	if c != nil {
		c.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("accounts.usecase").Start(ctx, name)
}

// newCode returns a fresh code and its digest.
func (s *Usecase) newCode(ctx context.Context) (code, digest string, err error) {
	code, err = s.code.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp code", "error", err)
		return "", "", goerror.NewServer(err)
	}

	sum, err := s.hmac.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp code", "error", err)
		return "", "", goerror.NewServer(err)
	}

	return code, string(sum), nil
}

// dispatch publishes the code after the record transaction committed. It
// is bounded by the policy timeout and survives a cancelled request.
func (s *Usecase) dispatch(ctx context.Context, user entity.User, code string, expiresAt time.Time, reason string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.policy.DispatchTimeout)
	defer cancel()

	err := s.repoMessaging.PublishOTPDispatch(ctx, OTPDispatchEvent{
		UserID:    user.ID,
		Username:  user.Username,
		PhoneNo:   user.PhoneNo,
		Code:      code,
		ExpiresAt: expiresAt,
		Reason:    reason,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to dispatch otp", "user_id", user.ID, "reason", reason, "error", err)
		return errors.Join(entity.ErrOTPDeliveryFailed, err)
	}

	return nil
}

// otpError turns an OTP lifecycle error into the user-facing error. rec
// supplies the timestamps for RateLimited and AlreadyRequested.
func (s *Usecase) otpError(ctx context.Context, op string, err error, rec *entity.OTPRecord) error {
	reason := ""
	var out error

	switch {
	case errors.Is(err, entity.ErrOTPInvalidIdentity):
		reason = "invalid_identity"
		out = goerror.NewBusinessCause(entity.ErrOTPInvalidIdentity, "Invalid username or OTP not requested", goerror.CodeNotFound)

	case errors.Is(err, entity.ErrOTPExpired):
		reason = "expired"
		out = goerror.NewBusinessCause(entity.ErrOTPExpired, "OTP has expired. Please request a new one.", goerror.CodeGone)

	case errors.Is(err, entity.ErrOTPMismatch):
		reason = "mismatch"
		out = goerror.NewBusinessCause(entity.ErrOTPMismatch, "Invalid OTP", goerror.CodeInvalidFormat)

	case errors.Is(err, entity.ErrOTPRateLimited) && rec != nil && rec.LockedUntil != nil:
		reason = "rate_limited"
		at := rec.LockedUntil.UTC().Format(time.RFC3339)
		out = goerror.NewBusinessCause(entity.ErrOTPRateLimited,
			"Maximum OTP attempts reached. Try again after "+at, goerror.CodeTooManyRequest, "retry_at", at)

	case errors.Is(err, entity.ErrOTPAlreadyRequested) && rec != nil:
		reason = "already_requested"
		at := rec.ExpiresAt.UTC().Format(time.RFC3339)
		out = goerror.NewBusinessCause(entity.ErrOTPAlreadyRequested,
			"OTP already sent. It is valid until "+at, goerror.CodeConflict, "expires_at", at)

	case errors.Is(err, entity.ErrOTPDeliveryFailed):
		reason = "delivery_failed"
		out = goerror.NewBusinessCause(entity.ErrOTPDeliveryFailed,
			"Failed to send OTP. Please try again later.", goerror.CodeUnavailable)

	case errors.Is(err, entity.ErrAccountAlreadyActive):
		reason = "already_active"
		out = goerror.NewBusinessCause(entity.ErrAccountAlreadyActive, "Account is already active", goerror.CodeConflict)

	default:
		return err
	}

	add(ctx, s.otpRejected, attribute.String("op", op), attribute.String("reason", reason))
	return out
}
