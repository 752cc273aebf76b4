package inbound

import (
	"context"

	"github.com/shandysiswandi/clovigo/internal/notification/usecase"
)

type uc interface {
	ConsumeOTPDispatch(ctx context.Context, in usecase.ConsumeOTPDispatchInput) error
}
