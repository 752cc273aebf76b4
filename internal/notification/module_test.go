package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/clovigo/internal/notification/outbound/sms"
	"github.com/shandysiswandi/clovigo/internal/pkg/clock"
	"github.com/shandysiswandi/clovigo/internal/pkg/config"
	"github.com/shandysiswandi/clovigo/internal/pkg/goroutine"
	"github.com/shandysiswandi/clovigo/internal/pkg/instrument"
	"github.com/shandysiswandi/clovigo/internal/pkg/messaging"
	"github.com/shandysiswandi/clovigo/internal/pkg/uid"
	"github.com/shandysiswandi/clovigo/internal/pkg/validator"
)

func TestNewSender(t *testing.T) {
	gateway, err := config.NewViperFromBytes("yaml", []byte("modules:\n  notification:\n    sms:\n      driver: Gateway\n      url: http://sms.local/send\n"))
	require.NoError(t, err)
	logOnly, err := config.NewViperFromBytes("yaml", []byte("app: {}"))
	require.NoError(t, err)

	assert.IsType(t, &sms.Gateway{}, newSender(gateway, clock.New(), instrument.NewNoop()))
	assert.IsType(t, &sms.LogSender{}, newSender(logOnly, clock.New(), instrument.NewNoop()))
}

func TestNew(t *testing.T) {
	v, err := validator.NewV10Validator()
	require.NoError(t, err)
	cfg, err := config.NewViperFromBytes("yaml", []byte("modules:\n  notification:\n    consumer_names: otp_dispatch_sms\n"))
	require.NoError(t, err)

	assert.Error(t, New(Dependency{Validator: v}))

	broker := messaging.NewMemory()
	routine := goroutine.NewManager(2)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, New(Dependency{
		Ctx:        ctx,
		Messaging:  broker,
		Config:     cfg,
		Instrument: instrument.NewNoop(),
		UUID:       uid.NewUUID(),
		Clock:      clock.New(),
		Goroutine:  routine,
		Validator:  v,
	}))

	cancel()
	_ = broker.Close()
	_ = routine.Wait()
}
