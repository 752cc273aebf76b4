package goroutine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManager_GoAndWait(t *testing.T) {
	m := NewManager(4)
	errBoom := errors.New("boom")

	var ran atomic.Int32
	for i := range 3 {
		m.Go(context.Background(), func(context.Context) error {
			ran.Add(1)
			if i == 1 {
				return errBoom
			}
			return nil
		})
	}

	err := m.Wait()
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, int32(3), ran.Load())
}

func TestManager_RecoversPanic(t *testing.T) {
	m := NewManager(1)
	m.Go(context.Background(), func(context.Context) error { panic("kaboom") })
	assert.NoError(t, m.Wait())
}

func TestManager_ClosedSkips(t *testing.T) {
	m := NewManager(1)
	assert.NoError(t, m.Wait())

	called := false
	m.Go(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.NoError(t, m.Wait())
	assert.False(t, called)
}

func TestManager_CanceledContext(t *testing.T) {
	m := NewManager(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	m.Go(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.NoError(t, m.Wait())
	assert.False(t, called)
}

func TestManager_Nil(t *testing.T) {
	var m *Manager
	m.Go(context.Background(), func(context.Context) error { return nil })
	assert.NoError(t, m.Wait())
}
