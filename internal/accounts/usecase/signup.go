package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/shandysiswandi/clovigo/internal/accounts/entity"
	"github.com/shandysiswandi/clovigo/internal/pkg/goerror"
	"github.com/shandysiswandi/clovigo/internal/pkg/idempotency"
)

const (
	folderDocument = "document"
	folderLicense  = "license"
)

type UserInput struct {
	Username string `json:"username" validate:"required,username"`
	PhoneNo  string `json:"phone_no" validate:"required,phone"`
	Password string `json:"password" validate:"required,password"`
}

type SignupCustomerInput struct {
	IdempotencyKey string    `json:"-"`
	User           UserInput `json:"user"`
}

type SignupSellerInput struct {
	IdempotencyKey string    `json:"-"`
	User           UserInput `json:"user"`
	ShopName       string    `json:"shop_name" validate:"required,max=255"`
	ShopAddress1   string    `json:"shop_address_1" validate:"required"`
	ShopAddress2   string    `json:"shop_address_2" validate:"required"`
	ShopLandmark   string    `json:"shop_landmark" validate:"required"`
	GSTNo          string    `json:"gst_no" validate:"required,max=50"`
	PANNo          string    `json:"pan_no" validate:"omitempty,max=50"`
	AccountNo      string    `json:"account_no" validate:"omitempty,max=50"`
	FileGST        *Document `json:"file_gst" validate:"required"`
	FilePAN        *Document `json:"file_pan" validate:"required"`
}

type SignupDeliveryBoyInput struct {
	IdempotencyKey string    `json:"-"`
	User           UserInput `json:"user"`
	LicenseNo      string    `json:"license_no" validate:"required,max=50"`
	FileLicense    *Document `json:"file_license" validate:"required"`
}

// SignupOutput is the pending account. It is also what a replayed
// idempotent request returns, so it round-trips through JSON.
type SignupOutput struct {
	UserID       int64       `json:"user_id"`
	Username     string      `json:"username"`
	Role         entity.Role `json:"role"`
	IsActive     bool        `json:"is_active"`
	OTPExpiresAt time.Time   `json:"otp_expires_at"`
	OTPDelivered bool        `json:"otp_delivered"`
}

func (s *Usecase) SignupCustomer(ctx context.Context, in SignupCustomerInput) (*SignupOutput, error) {
	ctx, span := s.startSpan(ctx, "SignupCustomer")
	defer span.End()

	in.User = normalizeUser(in.User)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	return s.idempotent(ctx, entity.RoleCustomer, in.IdempotencyKey, func(ctx context.Context) (*SignupOutput, error) {
		return s.signup(ctx, in.User, entity.RoleCustomer, func(context.Context, int64) (entity.ProfileDetail, []string, error) {
			return entity.ProfileDetail{}, nil, nil
		})
	})
}

func (s *Usecase) SignupSeller(ctx context.Context, in SignupSellerInput) (*SignupOutput, error) {
	ctx, span := s.startSpan(ctx, "SignupSeller")
	defer span.End()

	in.User = normalizeUser(in.User)
	in.ShopName = strings.TrimSpace(in.ShopName)
	in.GSTNo = strings.ToUpper(strings.TrimSpace(in.GSTNo))
	in.PANNo = strings.ToUpper(strings.TrimSpace(in.PANNo))
	in.AccountNo = strings.TrimSpace(in.AccountNo)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}
	if err := s.checkDocuments(map[string]*Document{"file_gst": in.FileGST, "file_pan": in.FilePAN}); err != nil {
		return nil, err
	}

	return s.idempotent(ctx, entity.RoleSeller, in.IdempotencyKey, func(ctx context.Context) (*SignupOutput, error) {
		return s.signup(ctx, in.User, entity.RoleSeller, func(ctx context.Context, userID int64) (entity.ProfileDetail, []string, error) {
			gst, err := s.repoDocument.Upload(ctx, folderDocument, userID, *in.FileGST)
			if err != nil {
				return entity.ProfileDetail{}, nil, err
			}

			pan, err := s.repoDocument.Upload(ctx, folderDocument, userID, *in.FilePAN)
			if err != nil {
				return entity.ProfileDetail{}, []string{gst}, err
			}

			return entity.ProfileDetail{Seller: &entity.SellerDetail{
				ShopName:     in.ShopName,
				ShopAddress1: strings.TrimSpace(in.ShopAddress1),
				ShopAddress2: strings.TrimSpace(in.ShopAddress2),
				ShopLandmark: strings.TrimSpace(in.ShopLandmark),
				GSTNo:        in.GSTNo,
				PANNo:        in.PANNo,
				AccountNo:    in.AccountNo,
				FileGST:      gst,
				FilePAN:      pan,
			}}, []string{gst, pan}, nil
		})
	})
}

func (s *Usecase) SignupDeliveryBoy(ctx context.Context, in SignupDeliveryBoyInput) (*SignupOutput, error) {
	ctx, span := s.startSpan(ctx, "SignupDeliveryBoy")
	defer span.End()

	in.User = normalizeUser(in.User)
	in.LicenseNo = strings.ToUpper(strings.TrimSpace(in.LicenseNo))

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}
	if err := s.checkDocuments(map[string]*Document{"file_license": in.FileLicense}); err != nil {
		return nil, err
	}

	return s.idempotent(ctx, entity.RoleDeliveryBoy, in.IdempotencyKey, func(ctx context.Context) (*SignupOutput, error) {
		return s.signup(ctx, in.User, entity.RoleDeliveryBoy, func(ctx context.Context, userID int64) (entity.ProfileDetail, []string, error) {
			key, err := s.repoDocument.Upload(ctx, folderLicense, userID, *in.FileLicense)
			if err != nil {
				return entity.ProfileDetail{}, nil, err
			}

			return entity.ProfileDetail{DeliveryBoy: &entity.DeliveryBoyDetail{
				LicenseNo:   in.LicenseNo,
				FileLicense: key,
			}}, []string{key}, nil
		})
	})
}

func normalizeUser(u UserInput) UserInput {
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	u.PhoneNo = strings.TrimSpace(u.PhoneNo)
	return u
}

// checkDocuments enforces the configured size limit and content types.
func (s *Usecase) checkDocuments(docs map[string]*Document) error {
	maxBytes := s.cfg.GetInt64("modules.accounts.documents.max_bytes")
	allowed := s.cfg.GetArray("modules.accounts.documents.allowed_types")

	var kv []string
	for field, doc := range docs {
		if doc == nil {
			continue
		}
		if maxBytes > 0 && doc.Size > maxBytes {
			kv = append(kv, field, fmt.Sprintf("%s must be at most %d bytes", field, maxBytes))
			continue
		}
		if len(allowed) > 0 && !containsFold(allowed, mediaType(doc.ContentType)) {
			kv = append(kv, field, field+" must be one of "+strings.Join(allowed, ", "))
		}
	}

	if len(kv) > 0 {
		return goerror.NewInvalidInput(nil, kv...)
	}
	return nil
}

func mediaType(ct string) string {
	mt, _, _ := strings.Cut(ct, ";")
	return strings.TrimSpace(mt)
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

// idempotent replays the stored result of an earlier signup with the same
// key. Without a key fn runs directly.
func (s *Usecase) idempotent(ctx context.Context, role entity.Role, key string, fn func(context.Context) (*SignupOutput, error)) (*SignupOutput, error) {
	key = strings.TrimSpace(key)
	if key == "" || s.idemp == nil {
		return fn(ctx)
	}

	raw, replayed, err := s.idemp.Do(ctx, "accounts:signup:"+role.String()+":"+key,
		func(ctx context.Context) ([]byte, error) {
			out, err := fn(ctx)
			if err != nil {
				return nil, err
			}
			return json.Marshal(out)
		},
		idempotency.WithRetention(s.cfg.GetHour("modules.accounts.idempotency_retention_hours")),
	)
	if errors.Is(err, idempotency.ErrInProgress) {
		return nil, goerror.NewBusiness("A signup with this idempotency key is in progress", goerror.CodeConflict)
	}
	if err != nil {
		var gerr *goerror.Error
		if errors.As(err, &gerr) {
			return nil, err
		}
		slog.ErrorContext(ctx, "failed to run idempotent signup", "role", role, "error", err)
		return nil, goerror.NewServer(err)
	}

	var out SignupOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		slog.ErrorContext(ctx, "failed to decode idempotent signup result", "error", err)
		return nil, goerror.NewServer(err)
	}
	if replayed {
		slog.InfoContext(ctx, "signup replayed from idempotency key", "user_id", out.UserID)
	}

	return &out, nil
}

type profileBuilder func(ctx context.Context, userID int64) (entity.ProfileDetail, []string, error)

// signup creates the user, its role profile and the first OTP record in one
// transaction, then dispatches the code. Documents uploaded by build are
// removed when the transaction fails.
func (s *Usecase) signup(ctx context.Context, in UserInput, role entity.Role, build profileBuilder) (*SignupOutput, error) {
	exists, err := s.repoDB.UsernameExists(ctx, in.Username)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo check username", "username", in.Username, "error", err)
		return nil, goerror.NewServer(err)
	}
	if exists {
		return nil, goerror.NewBusinessCause(goerror.ErrConflict, "Username already taken", goerror.CodeConflict,
			"user.username", "username already exists")
	}

	hashed, err := s.bcrypt.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "error", err)
		return nil, goerror.NewServer(err)
	}

	code, digest, err := s.newCode(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := entity.User{
		ID:        s.uid.Generate(),
		Username:  in.Username,
		PhoneNo:   in.PhoneNo,
		Password:  string(hashed),
		CreatedAt: now,
		UpdatedAt: now,
	}

	profile, uploaded, err := build(ctx, user.ID)
	if err != nil {
		s.repoDocument.Remove(ctx, uploaded...)
		slog.ErrorContext(ctx, "failed to upload signup documents", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}
	profile.Profile = entity.Profile{UserID: user.ID, Role: role, Rank: entity.DefaultRank}
	profile.CreatedAt = now

	rec := entity.NewOTPRecord(user.ID, digest, now, s.policy)

	if err := s.repoDB.CreateAccount(ctx, entity.NewAccount{User: user, Profile: profile, OTP: rec}); err != nil {
		s.repoDocument.Remove(ctx, uploaded...)

		var conflict *entity.ConflictError
		if errors.As(err, &conflict) {
			slog.WarnContext(ctx, "signup conflict", "username", user.Username, "field", conflict.Field)
			return nil, goerror.NewBusinessCause(err, "Account already exists", goerror.CodeConflict,
				conflictKey(conflict.Field), conflict.Field+" already exists")
		}

		slog.ErrorContext(ctx, "failed to repo create account", "username", user.Username, "error", err)
		return nil, goerror.NewServer(err)
	}

	add(ctx, s.otpIssued, attribute.String("reason", "signup"), attribute.String("role", role.String()))

	delivered := true
	if err := s.dispatch(ctx, user, code, rec.ExpiresAt, "signup"); err != nil {
		delivered = false
	}

	return &SignupOutput{
		UserID:       user.ID,
		Username:     user.Username,
		Role:         role,
		IsActive:     false,
		OTPExpiresAt: rec.ExpiresAt,
		OTPDelivered: delivered,
	}, nil
}

func conflictKey(field string) string {
	switch field {
	case "":
		return "account"
	case "username":
		return "user.username"
	default:
		return field
	}
}
