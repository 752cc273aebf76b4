package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plainVerifier struct{}

func (plainVerifier) Verify(hashed, plaintext string) bool { return hashed == plaintext }

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestOTPPolicy_Normalize(t *testing.T) {
	assert.Equal(t, DefaultOTPPolicy(), OTPPolicy{}.Normalize())

	p := OTPPolicy{CodeLength: 4, TTL: time.Minute, MaxTry: 5, Lockout: time.Hour, DispatchTimeout: time.Second}
	assert.Equal(t, p, p.Normalize())
}

func TestNewOTPRecord(t *testing.T) {
	p := DefaultOTPPolicy()
	r := NewOTPRecord(7, "123456", t0, p)

	assert.Equal(t, int64(7), r.UserID)
	assert.Equal(t, 3, r.AttemptsRemaining)
	assert.Equal(t, t0.Add(10*time.Minute), r.ExpiresAt)
	assert.Nil(t, r.LockedUntil)
	assert.True(t, r.Outstanding(t0))
	assert.False(t, r.Locked(t0))
}

func TestOTPRecord_ExpiryBoundary(t *testing.T) {
	r := NewOTPRecord(1, "c", t0, DefaultOTPPolicy())

	assert.False(t, r.Expired(r.ExpiresAt))
	assert.True(t, r.Expired(r.ExpiresAt.Add(time.Nanosecond)))
	assert.False(t, r.Outstanding(r.ExpiresAt))
}

func TestOTPRecord_ResendLifecycle(t *testing.T) {
	p := DefaultOTPPolicy()
	r := NewOTPRecord(1, "c0", t0, p)

	// immediate resend is refused and changes nothing
	before := r
	assert.ErrorIs(t, r.Resend("x", t0.Add(time.Minute), p), ErrOTPAlreadyRequested)
	assert.Equal(t, before, r)

	now := t0
	for i, want := range []int{2, 1, 0} {
		now = r.ExpiresAt.Add(time.Second)
		require.NoError(t, r.Resend("c"+string(rune('1'+i)), now, p))
		assert.Equal(t, want, r.AttemptsRemaining)
		assert.Equal(t, now.Add(p.TTL), r.ExpiresAt)
	}

	require.NotNil(t, r.LockedUntil)
	assert.Equal(t, now.Add(p.Lockout), *r.LockedUntil)
	assert.True(t, r.Locked(now))

	// still locked after the code expired
	assert.ErrorIs(t, r.Resend("y", r.ExpiresAt.Add(time.Minute), p), ErrOTPRateLimited)
	assert.Equal(t, "c3", r.CodeHash)

	// lockout elapsed: budget restored, no attempt consumed
	after := r.LockedUntil.Add(time.Second)
	require.NoError(t, r.Resend("c4", after, p))
	assert.Equal(t, p.MaxTry, r.AttemptsRemaining)
	assert.Nil(t, r.LockedUntil)
	assert.Equal(t, "c4", r.CodeHash)
}

func TestOTPRecord_CanResend(t *testing.T) {
	p := DefaultOTPPolicy()
	fresh := NewOTPRecord(1, "c", t0, p)

	until := t0.Add(time.Hour)
	locked := NewOTPRecord(1, "c", t0, p)
	locked.AttemptsRemaining = 0
	locked.LockedUntil = &until

	tests := []struct {
		name    string
		rec     OTPRecord
		now     time.Time
		wantErr error
	}{
		{name: "outstanding", rec: fresh, now: t0.Add(time.Minute), wantErr: ErrOTPAlreadyRequested},
		{name: "expired", rec: fresh, now: fresh.ExpiresAt.Add(time.Second)},
		{name: "locked", rec: locked, now: t0.Add(30 * time.Minute), wantErr: ErrOTPRateLimited},
		{name: "lock elapsed", rec: locked, now: until.Add(time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.CanResend(tt.now)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOTPRecord_LockedCodeStillValidates(t *testing.T) {
	p := DefaultOTPPolicy()
	p.MaxTry = 1
	r := NewOTPRecord(1, "old", t0, p)

	now := r.ExpiresAt.Add(time.Second)
	require.NoError(t, r.Resend("123456", now, p))
	require.True(t, r.Locked(now))

	assert.NoError(t, r.Check("123456", now.Add(time.Minute), plainVerifier{}))
}

func TestOTPRecord_Check(t *testing.T) {
	r := NewOTPRecord(1, "123456", t0, DefaultOTPPolicy())

	assert.ErrorIs(t, r.Check("000000", t0, plainVerifier{}), ErrOTPMismatch)
	assert.ErrorIs(t, r.Check(" 123456", t0, plainVerifier{}), ErrOTPMismatch)
	assert.NoError(t, r.Check("123456", t0, plainVerifier{}))
	assert.ErrorIs(t, r.Check("123456", r.ExpiresAt.Add(time.Second), plainVerifier{}), ErrOTPExpired)
}
