package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/clovigo/internal/accounts/entity"
	"github.com/shandysiswandi/clovigo/internal/pkg/goerror"
	"github.com/shandysiswandi/clovigo/internal/pkg/jwt"
)

type ProfileOutput struct {
	User    entity.User
	Profile entity.ProfileDetail
	// Documents maps document fields to time-limited download URLs.
	Documents map[string]string
}

// Profile returns the caller's user record and the profile of the role in
// their token.
func (s *Usecase) Profile(ctx context.Context) (*ProfileOutput, error) {
	ctx, span := s.startSpan(ctx, "Profile")
	defer span.End()

	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	role, ok := entity.ParseRole(clm.Role)
	if !ok {
		return nil, goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
	}

	user, err := s.repoDB.GetUserByID(ctx, clm.UserID)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("Account not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by id", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	profile, err := s.repoDB.GetProfile(ctx, user.ID, role)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness(role.Title()+" account not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get profile", "user_id", user.ID, "role", role, "error", err)
		return nil, goerror.NewServer(err)
	}

	docs := map[string]string{}
	switch {
	case profile.Seller != nil:
		docs["file_gst"] = profile.Seller.FileGST
		docs["file_pan"] = profile.Seller.FilePAN
	case profile.DeliveryBoy != nil:
		docs["file_license"] = profile.DeliveryBoy.FileLicense
	}

	for field, key := range docs {
		u, err := s.repoDocument.URL(ctx, key)
		if err != nil {
			slog.WarnContext(ctx, "failed to sign document url", "user_id", user.ID, "field", field, "error", err)
			delete(docs, field)
			continue
		}
		docs[field] = u
	}

	return &ProfileOutput{User: *user, Profile: *profile, Documents: docs}, nil
}
