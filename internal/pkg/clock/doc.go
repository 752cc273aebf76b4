// Package clock provides a tiny time abstraction.
//
// Business code depends on Clocker instead of calling time.Now directly.
// TimeClocker reads the system time; Manual is a settable clock for tests
// that need to step across expiry or lockout boundaries.
package clock
