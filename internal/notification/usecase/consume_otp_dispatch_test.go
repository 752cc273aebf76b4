package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/clovigo/internal/notification/entity"
	"github.com/shandysiswandi/clovigo/internal/pkg/clock"
	"github.com/shandysiswandi/clovigo/internal/pkg/config"
	"github.com/shandysiswandi/clovigo/internal/pkg/instrument"
	"github.com/shandysiswandi/clovigo/internal/pkg/validator"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeGateway struct {
	mu   sync.Mutex
	sent []entity.SMS
	err  error
}

func (f *fakeGateway) Send(_ context.Context, msg entity.SMS) (entity.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, msg)
	if f.err != nil {
		return entity.Delivery{}, f.err
	}
	return entity.Delivery{MessageID: "msg-1", Status: "queued", SentAt: testNow}, nil
}

func newTestUsecase(t *testing.T, cfgYAML string, gw *fakeGateway) *Usecase {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(cfgYAML))
	require.NoError(t, err)
	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	uc, err := NewNotification(Dependency{
		RepoSMS:    gw,
		Config:     cfg,
		Clock:      clock.NewManual(testNow),
		Validator:  v,
		Instrument: instrument.NewNoop(),
	})
	require.NoError(t, err)
	return uc
}

func validInput() ConsumeOTPDispatchInput {
	return ConsumeOTPDispatchInput{
		UserID:    7,
		Username:  "alice",
		PhoneNo:   "+919800000001",
		Code:      "482913",
		ExpiresAt: testNow.Add(10 * time.Minute),
		Reason:    "signup",
	}
}

func TestConsumeOTPDispatch_Sends(t *testing.T) {
	gw := &fakeGateway{}
	uc := newTestUsecase(t, "modules:\n  notification:\n    sms:\n      sender: CLOVI\n", gw)

	require.NoError(t, uc.ConsumeOTPDispatch(context.Background(), validInput()))

	require.Len(t, gw.sent, 1)
	assert.Equal(t, "+919800000001", gw.sent[0].To)
	assert.Equal(t, "CLOVI", gw.sent[0].Sender)
	assert.Equal(t,
		"Your CloviGo verification code is 482913. It expires in 10 minutes. Do not share it with anyone.",
		gw.sent[0].Body)
}

func TestConsumeOTPDispatch_CustomTemplate(t *testing.T) {
	gw := &fakeGateway{}
	uc := newTestUsecase(t, `modules:
  notification:
    sms:
      otp_template: "Hi {{.Username}}, OTP {{.Code}} ({{.Minutes}}m)"
`, gw)

	in := validInput()
	in.ExpiresAt = testNow.Add(90 * time.Second)
	require.NoError(t, uc.ConsumeOTPDispatch(context.Background(), in))

	require.Len(t, gw.sent, 1)
	assert.Equal(t, "Hi alice, OTP 482913 (2m)", gw.sent[0].Body)
}

func TestNewNotification_BadTemplate(t *testing.T) {
	cfg, err := config.NewViperFromBytes("yaml", []byte("modules:\n  notification:\n    sms:\n      otp_template: \"{{.Code\"\n"))
	require.NoError(t, err)

	_, err = NewNotification(Dependency{Config: cfg, Instrument: instrument.NewNoop()})
	assert.Error(t, err)
}

func TestConsumeOTPDispatch_Dropped(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ConsumeOTPDispatchInput)
	}{
		{name: "invalid phone", mutate: func(in *ConsumeOTPDispatchInput) { in.PhoneNo = "12ab" }},
		{name: "non numeric code", mutate: func(in *ConsumeOTPDispatchInput) { in.Code = "12x456" }},
		{name: "missing user", mutate: func(in *ConsumeOTPDispatchInput) { in.UserID = 0 }},
		{name: "already expired", mutate: func(in *ConsumeOTPDispatchInput) { in.ExpiresAt = testNow }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{}
			uc := newTestUsecase(t, "app: {}", gw)

			in := validInput()
			tt.mutate(&in)

			assert.NoError(t, uc.ConsumeOTPDispatch(context.Background(), in))
			assert.Empty(t, gw.sent)
		})
	}
}

func TestConsumeOTPDispatch_GatewayFailureIsNotRetried(t *testing.T) {
	gw := &fakeGateway{err: errors.New("gateway down")}
	uc := newTestUsecase(t, "app: {}", gw)

	assert.NoError(t, uc.ConsumeOTPDispatch(context.Background(), validInput()))
	assert.Len(t, gw.sent, 1)
}
