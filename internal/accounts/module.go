package accounts

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shandysiswandi/clovigo/internal/accounts/entity"
	"github.com/shandysiswandi/clovigo/internal/accounts/inbound"
	"github.com/shandysiswandi/clovigo/internal/accounts/outbound/db"
	"github.com/shandysiswandi/clovigo/internal/accounts/outbound/document"
	"github.com/shandysiswandi/clovigo/internal/accounts/outbound/mq"
	"github.com/shandysiswandi/clovigo/internal/accounts/usecase"
	"github.com/shandysiswandi/clovigo/internal/pkg/clock"
	"github.com/shandysiswandi/clovigo/internal/pkg/config"
	"github.com/shandysiswandi/clovigo/internal/pkg/hash"
	"github.com/shandysiswandi/clovigo/internal/pkg/idempotency"
	"github.com/shandysiswandi/clovigo/internal/pkg/instrument"
	"github.com/shandysiswandi/clovigo/internal/pkg/jwt"
	"github.com/shandysiswandi/clovigo/internal/pkg/messaging"
	"github.com/shandysiswandi/clovigo/internal/pkg/otp"
	"github.com/shandysiswandi/clovigo/internal/pkg/router"
	"github.com/shandysiswandi/clovigo/internal/pkg/storage"
	"github.com/shandysiswandi/clovigo/internal/pkg/uid"
	"github.com/shandysiswandi/clovigo/internal/pkg/validator"
)

type Dependency struct {
	DBConn      *pgxpool.Pool              `validate:"required"`
	Router      *router.Router             `validate:"required"`
	Idempotency idempotency.Idempotency    `validate:"required"`
	Messaging   messaging.Messaging        `validate:"required"`
	Storage     storage.Storage            `validate:"required"`
	Config      config.Config              `validate:"required"`
	Instrument  instrument.Instrumentation `validate:"required"`
	UID         uid.NumberID               `validate:"required"`
	HMAC        hash.Hash                  `validate:"required"`
	Bcrypt      hash.Hash                  `validate:"required"`
	Clock       clock.Clocker              `validate:"required"`
	Validator   validator.Validator        `validate:"required"`
	JWT         jwt.JWT                    `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	policy := PolicyFromConfig(dep.Config)
	urlExpiry := dep.Config.GetMinute("modules.accounts.documents.url_expiry_minutes")

	uc := usecase.New(usecase.Dependency{
		RepoDB:        db.NewDB(dep.DBConn, dep.Instrument),
		RepoMessaging: mq.NewMessaging(dep.Messaging, dep.Instrument),
		RepoDocument:  document.NewStore(dep.Storage, dep.HMAC, urlExpiry, dep.Instrument),
		Idempotency:   dep.Idempotency,
		Validator:     dep.Validator,
		Config:        dep.Config,
		Policy:        policy,
		Code:          otp.NewHOTP(policy.CodeLength),
		HMAC:          dep.HMAC,
		Bcrypt:        dep.Bcrypt,
		UID:           dep.UID,
		Clock:         dep.Clock,
		JWT:           dep.JWT,
		Instrument:    dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc, dep.Config.GetInt64("modules.accounts.documents.max_request_bytes"))

	return nil
}

// PolicyFromConfig reads modules.accounts.otp.*. Missing or non-positive
// values fall back to entity.DefaultOTPPolicy; a code length the generator
// cannot produce falls back to otp.DefaultDigits.
func PolicyFromConfig(cfg config.Config) entity.OTPPolicy {
	p := entity.OTPPolicy{
		CodeLength:      cfg.GetInt("modules.accounts.otp.code_length"),
		TTL:             cfg.GetMinute("modules.accounts.otp.ttl_minutes"),
		MaxTry:          cfg.GetInt("modules.accounts.otp.max_try"),
		Lockout:         cfg.GetMinute("modules.accounts.otp.lockout_minutes"),
		DispatchTimeout: cfg.GetSecond("modules.accounts.otp.dispatch_timeout_seconds"),
	}

	if p.CodeLength > 0 && (p.CodeLength < otp.MinDigits || p.CodeLength > otp.MaxDigits) {
		slog.Warn("otp code length out of range, using default",
			"code_length", p.CodeLength, "min", otp.MinDigits, "max", otp.MaxDigits, "default", otp.DefaultDigits)
		p.CodeLength = otp.DefaultDigits
	}

	return p.Normalize()
}
