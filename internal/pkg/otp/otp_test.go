package otp

import (
	"bytes"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHOTP_Generate(t *testing.T) {
	gen := NewHOTP(6)
	re := regexp.MustCompile(`^[0-9]{6}$`)

	seen := map[string]int{}
	for range 200 {
		code, err := gen.Generate()
		require.NoError(t, err)
		assert.Regexp(t, re, code)
		seen[code]++
	}
	assert.Greater(t, len(seen), 150)
}

func TestHOTP_Deterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, secretSize+8)

	a := &HOTP{digits: 6, rand: bytes.NewReader(seed)}
	b := &HOTP{digits: 6, rand: bytes.NewReader(seed)}

	ca, err := a.Generate()
	require.NoError(t, err)
	cb, err := b.Generate()
	require.NoError(t, err)
	assert.Equal(t, ca, cb)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func TestHOTP_RandFailure(t *testing.T) {
	gen := &HOTP{digits: 6, rand: failingReader{}}
	_, err := gen.Generate()
	assert.Error(t, err)
}

func TestNewHOTP_Digits(t *testing.T) {
	assert.Equal(t, 8, NewHOTP(8).Digits())
	assert.Equal(t, DefaultDigits, NewHOTP(2).Digits())
	assert.Equal(t, DefaultDigits, NewHOTP(12).Digits())
}
