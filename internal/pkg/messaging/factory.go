package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	// DriverNSQ selects the NSQ backend.
	DriverNSQ = "nsq"
	// DriverNATS selects the NATS backend.
	DriverNATS = "nats"
	// DriverMemory selects the in-process broker.
	DriverMemory = "memory"
)

// ErrUnknownDriver indicates an unsupported messaging driver.
var ErrUnknownDriver = errors.New("messaging: unknown driver")

// FactoryOptions groups config for supported messaging backends.
type FactoryOptions struct {
	NSQ  NSQConfig
	NATS NATSConfig

	// ConnectAttempts bounds connection attempts at start-up (default 1).
	ConnectAttempts uint64
	// ConnectBackoff is the first fibonacci backoff step (default 500ms).
	ConnectBackoff time.Duration
}

// NewFromDriver constructs a Messaging implementation by driver name,
// retrying the initial connection with fibonacci backoff.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Messaging, error) {
	driver = strings.TrimSpace(driver)

	var connect func() (Messaging, error)
	switch driver {
	case DriverNSQ:
		connect = func() (Messaging, error) { return NewNSQ(opts.NSQ) }
	case DriverNATS:
		connect = func() (Messaging, error) { return NewNATS(opts.NATS) }
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}

	step := opts.ConnectBackoff
	if step <= 0 {
		step = 500 * time.Millisecond
	}
	attempts := max(opts.ConnectAttempts, 1)
	backoff := retry.WithMaxRetries(attempts-1, retry.NewFibonacci(step))

	var client Messaging
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		c, err := connect()
		if err != nil {
			slog.WarnContext(ctx, "messaging connect failed, retrying", "driver", driver, "error", err)
			return retry.RetryableError(err)
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	return client, nil
}
