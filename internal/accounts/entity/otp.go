package entity

import "time"

// OTPPolicy holds the tunables of the OTP lifecycle.
type OTPPolicy struct {
	CodeLength      int
	TTL             time.Duration
	MaxTry          int
	Lockout         time.Duration
	DispatchTimeout time.Duration
}

// DefaultOTPPolicy is a 6 digit code valid for 10 minutes, 3 resends, then a
// 60 minute lockout.
func DefaultOTPPolicy() OTPPolicy {
	return OTPPolicy{
		CodeLength:      6,
		TTL:             10 * time.Minute,
		MaxTry:          3,
		Lockout:         60 * time.Minute,
		DispatchTimeout: 5 * time.Second,
	}
}

// Normalize fills zero or negative fields from DefaultOTPPolicy.
func (p OTPPolicy) Normalize() OTPPolicy {
	def := DefaultOTPPolicy()
	if p.CodeLength <= 0 {
		p.CodeLength = def.CodeLength
	}
	if p.TTL <= 0 {
		p.TTL = def.TTL
	}
	if p.MaxTry <= 0 {
		p.MaxTry = def.MaxTry
	}
	if p.Lockout <= 0 {
		p.Lockout = def.Lockout
	}
	if p.DispatchTimeout <= 0 {
		p.DispatchTimeout = def.DispatchTimeout
	}
	return p
}

// OTPRecord is the single live one-time passcode of a user. Only the HMAC
// digest of the code is stored.
type OTPRecord struct {
	UserID            int64
	CodeHash          string
	IssuedAt          time.Time
	ExpiresAt         time.Time
	AttemptsRemaining int
	LockedUntil       *time.Time
}

// NewOTPRecord starts a record with a full attempt budget.
func NewOTPRecord(userID int64, codeHash string, now time.Time, p OTPPolicy) OTPRecord {
	return OTPRecord{
		UserID:            userID,
		CodeHash:          codeHash,
		IssuedAt:          now,
		ExpiresAt:         now.Add(p.TTL),
		AttemptsRemaining: p.MaxTry,
	}
}

// Locked reports whether resends are suspended at now.
func (r OTPRecord) Locked(now time.Time) bool {
	return r.LockedUntil != nil && now.Before(*r.LockedUntil)
}

// Expired reports whether the code can no longer be validated at now.
func (r OTPRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Outstanding reports whether a previously sent code is still usable.
func (r OTPRecord) Outstanding(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}

// CanResend reports why a resend at now would be refused, or nil.
func (r OTPRecord) CanResend(now time.Time) error {
	if r.Locked(now) {
		return ErrOTPRateLimited
	}
	if r.Outstanding(now) {
		return ErrOTPAlreadyRequested
	}
	return nil
}

// Resend moves the record to a new code. It fails with ErrOTPRateLimited
// while locked and with ErrOTPAlreadyRequested while the current code is
// outstanding; r is left untouched in both cases.
//
// An elapsed lockout restores the attempt budget and the new code does not
// consume an attempt. Otherwise one attempt is consumed and reaching zero
// locks the record until now + Lockout.
func (r *OTPRecord) Resend(codeHash string, now time.Time, p OTPPolicy) error {
	if err := r.CanResend(now); err != nil {
		return err
	}
	released := r.LockedUntil != nil

	r.CodeHash = codeHash
	r.IssuedAt = now
	r.ExpiresAt = now.Add(p.TTL)

	if released {
		r.AttemptsRemaining = p.MaxTry
		r.LockedUntil = nil
		return nil
	}

	r.AttemptsRemaining = max(r.AttemptsRemaining-1, 0)
	if r.AttemptsRemaining == 0 {
		until := now.Add(p.Lockout)
		r.LockedUntil = &until
	}

	return nil
}

type codeVerifier interface {
	Verify(hashed, plaintext string) bool
}

// Check validates code against the record: ErrOTPExpired past ExpiresAt,
// ErrOTPMismatch on a wrong code. The comparison is exact, with no trimming.
func (r OTPRecord) Check(code string, now time.Time, v codeVerifier) error {
	if r.Expired(now) {
		return ErrOTPExpired
	}
	if !v.Verify(r.CodeHash, code) {
		return ErrOTPMismatch
	}
	return nil
}
