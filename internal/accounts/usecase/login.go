package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/clovigo/internal/accounts/entity"
	"github.com/shandysiswandi/clovigo/internal/pkg/goerror"
	"github.com/shandysiswandi/clovigo/internal/pkg/jwt"
)

type LoginInput struct {
	Role     string `json:"role" validate:"required"`
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required"`
}

type LoginOutput struct {
	UserID           int64
	Username         string
	Role             entity.Role
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Login authenticates a user for one role and issues a token pair carrying
// that role.
func (s *Usecase) Login(ctx context.Context, in LoginInput) (*LoginOutput, error) {
	ctx, span := s.startSpan(ctx, "Login")
	defer span.End()

	in.Username = strings.ToLower(strings.TrimSpace(in.Username))

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	role, ok := entity.ParseRole(in.Role)
	if !ok {
		return nil, goerror.NewInvalidInput(nil, "role", "Invalid user role")
	}

	user, err := s.repoDB.GetUserByUsername(ctx, in.Username)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "login for unknown username", "username", in.Username)
		return nil, goerror.NewBusiness("Invalid username or password", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by username", "username", in.Username, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !s.bcrypt.Verify(user.Password, in.Password) {
		slog.WarnContext(ctx, "password user account not match", "user_id", user.ID)
		return nil, goerror.NewBusiness("Invalid username or password", goerror.CodeUnauthorized)
	}

	if !user.IsActive {
		return nil, goerror.NewBusiness("Account is inactive", goerror.CodeForbidden)
	}

	profile, err := s.repoDB.GetProfile(ctx, user.ID, role)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness(role.Title()+" account not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get profile", "user_id", user.ID, "role", role, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !profile.IsActive {
		return nil, goerror.NewBusiness(role.Title()+" account not activated", goerror.CodeForbidden)
	}

	pair, err := s.jwt.Issue(jwt.Subject{UserID: user.ID, Username: user.Username, Role: role.String()})
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue jwt", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &LoginOutput{
		UserID:           user.ID,
		Username:         user.Username,
		Role:             role,
		AccessToken:      pair.Access,
		RefreshToken:     pair.Refresh,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}, nil
}
