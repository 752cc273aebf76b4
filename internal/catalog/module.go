package catalog

import (
	"go.uber.org/atomic"

	"github.com/shandysiswandi/clovigo/internal/catalog/inbound"
	"github.com/shandysiswandi/clovigo/internal/pkg/router"
	"github.com/shandysiswandi/clovigo/internal/pkg/validator"
)

type Dependency struct {
	Router    *router.Router      `validate:"required"`
	Ready     *atomic.Bool        `validate:"required"`
	Validator validator.Validator `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	inbound.RegisterHTTPEndpoint(dep.Router, dep.Ready)

	return nil
}
