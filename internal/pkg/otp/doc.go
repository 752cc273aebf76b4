// Package otp generates numeric one-time codes for phone verification.
//
// Codes come from HOTP (RFC 4226) over a fresh random secret and counter, so
// every call yields an independent, uniformly spread code of the configured
// length. Storage and comparison of the code are the caller's concern.
package otp
