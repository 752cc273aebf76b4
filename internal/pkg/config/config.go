package config

import (
	"io"
	"time"
)

// Config is the read-only view of application configuration that modules
// depend on. Missing keys resolve to the zero value of the requested type.
type Config interface {
	// GetString returns the value for key as a string.
	GetString(key string) string

	// GetInt returns the value for key as an int.
	GetInt(key string) int

	// GetInt64 returns the value for key as an int64.
	GetInt64(key string) int64

	// GetBool returns the value for key as a bool.
	GetBool(key string) bool

	// GetFloat64 returns the value for key as a float64.
	GetFloat64(key string) float64

	// GetSecond, GetMinute and GetHour read an integer and scale it to a duration.
	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration
	GetHour(key string) time.Duration

	// GetArray splits a comma-separated value. Blank items are dropped.
	GetArray(key string) []string

	// GetBinary decodes a base64 value, returning nil when it is not valid base64.
	GetBinary(key string) []byte

	io.Closer
}
