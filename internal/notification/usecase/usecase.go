package usecase

import (
	"context"
	"log/slog"
	"strings"
	"text/template"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/clovigo/internal/notification/entity"
	"github.com/shandysiswandi/clovigo/internal/pkg/clock"
	"github.com/shandysiswandi/clovigo/internal/pkg/config"
	"github.com/shandysiswandi/clovigo/internal/pkg/instrument"
	"github.com/shandysiswandi/clovigo/internal/pkg/validator"
)

// DefaultOTPTemplate is used when modules.notification.sms.otp_template is empty.
const DefaultOTPTemplate = "Your CloviGo verification code is {{.Code}}. It expires in {{.Minutes}} minutes. Do not share it with anyone."

type repoSMS interface {
	Send(ctx context.Context, msg entity.SMS) (entity.Delivery, error)
}

type Usecase struct {
	repoSMS   repoSMS
	cfg       config.Config
	clock     clock.Clocker
	validator validator.Validator
	ins       instrument.Instrumentation
	otpTpl    *template.Template

	sent   metric.Int64Counter
	failed metric.Int64Counter
}

type Dependency struct {
	RepoSMS    repoSMS
	Config     config.Config
	Clock      clock.Clocker
	Validator  validator.Validator
	Instrument instrument.Instrumentation
}

func NewNotification(dep Dependency) (*Usecase, error) {
	raw := strings.TrimSpace(dep.Config.GetString("modules.notification.sms.otp_template"))
	if raw == "" {
		raw = DefaultOTPTemplate
	}

	tpl, err := template.New("otp_sms").Option("missingkey=error").Parse(raw)
	if err != nil {
		return nil, err
	}

	meter := dep.Instrument.Meter("notification.usecase")
	sent, err := meter.Int64Counter("notification.sms.sent",
		metric.WithDescription("Number of SMS accepted by the gateway"))
	if err != nil {
		slog.Error("failed to create sms sent counter", "error", err)
	}
	failed, err := meter.Int64Counter("notification.sms.failed",
		metric.WithDescription("Number of SMS the gateway did not accept"))
	if err != nil {
		slog.Error("failed to create sms failed counter", "error", err)
	}

	return &Usecase{
		repoSMS:   dep.RepoSMS,
		cfg:       dep.Config,
		clock:     dep.Clock,
		validator: dep.Validator,
		ins:       dep.Instrument,
		otpTpl:    tpl,
		sent:      sent,
		failed:    failed,
	}, nil
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.usecase").Start(ctx, name)
}

func (s *Usecase) count(ctx context.Context, c metric.Int64Counter, reason string) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("otp.reason", reason)))
}
