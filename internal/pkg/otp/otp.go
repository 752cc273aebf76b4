package otp

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/binary"
	"io"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

const (
	// MinDigits and MaxDigits bound the supported code length.
	MinDigits = 4
	MaxDigits = 8

	// DefaultDigits is used when the configured length is out of range.
	DefaultDigits = 6

	secretSize = 20 // RFC 4226 recommendation
)

// Generator produces numeric one-time codes.
type Generator interface {
	Generate() (string, error)
}

// HOTP implements Generator with github.com/pquerna/otp/hotp.
type HOTP struct {
	digits otp.Digits
	rand   io.Reader
}

// NewHOTP returns a generator of codes with the given number of digits.
func NewHOTP(digits int) *HOTP {
	if digits < MinDigits || digits > MaxDigits {
		digits = DefaultDigits
	}
	return &HOTP{digits: otp.Digits(digits), rand: rand.Reader}
}

// Digits returns the code length.
func (h *HOTP) Digits() int { return int(h.digits) }

// Generate returns a new zero-padded numeric code.
func (h *HOTP) Generate() (string, error) {
	buf := make([]byte, secretSize+8)
	if _, err := io.ReadFull(h.rand, buf); err != nil {
		return "", err
	}

	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf[:secretSize])
	counter := binary.BigEndian.Uint64(buf[secretSize:])

	return hotp.GenerateCodeCustom(secret, counter, hotp.ValidateOpts{
		Digits:    h.digits,
		Algorithm: otp.AlgorithmSHA1,
	})
}
