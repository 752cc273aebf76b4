package notification

import (
	"context"
	"strings"

	"github.com/shandysiswandi/clovigo/internal/notification/entity"
	"github.com/shandysiswandi/clovigo/internal/notification/inbound"
	"github.com/shandysiswandi/clovigo/internal/notification/outbound/sms"
	"github.com/shandysiswandi/clovigo/internal/notification/usecase"
	"github.com/shandysiswandi/clovigo/internal/pkg/clock"
	"github.com/shandysiswandi/clovigo/internal/pkg/config"
	"github.com/shandysiswandi/clovigo/internal/pkg/goroutine"
	"github.com/shandysiswandi/clovigo/internal/pkg/instrument"
	"github.com/shandysiswandi/clovigo/internal/pkg/messaging"
	"github.com/shandysiswandi/clovigo/internal/pkg/uid"
	"github.com/shandysiswandi/clovigo/internal/pkg/validator"
)

type Dependency struct {
	Ctx        context.Context
	Messaging  messaging.Messaging        `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	uc, err := usecase.NewNotification(usecase.Dependency{
		RepoSMS:    newSender(dep.Config, dep.Clock, dep.Instrument),
		Config:     dep.Config,
		Clock:      dep.Clock,
		Validator:  dep.Validator,
		Instrument: dep.Instrument,
	})
	if err != nil {
		return err
	}

	if dep.Ctx != nil {
		inbound.RegisterMQConsumer(dep.Ctx, dep.Config, dep.Goroutine, dep.Messaging, dep.UUID, uc, dep.Instrument)
	}

	return nil
}

type smsSender interface {
	Send(ctx context.Context, msg entity.SMS) (entity.Delivery, error)
}

// newSender picks the SMS backend from modules.notification.sms.driver:
// "gateway" posts to the configured provider, anything else logs the text.
func newSender(cfg config.Config, clk clock.Clocker, ins instrument.Instrumentation) smsSender {
	if strings.ToLower(cfg.GetString("modules.notification.sms.driver")) != "gateway" {
		return sms.NewLogSender(clk)
	}

	return sms.NewGateway(sms.GatewayConfig{
		URL:          cfg.GetString("modules.notification.sms.url"),
		APIKey:       cfg.GetString("modules.notification.sms.api_key"),
		APIKeyHeader: cfg.GetString("modules.notification.sms.api_key_header"),
		Timeout:      cfg.GetSecond("modules.notification.sms.timeout_seconds"),
	}, clk, ins)
}
