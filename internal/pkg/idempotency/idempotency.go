// Package idempotency deduplicates retried operations by client-supplied
// key. The first caller runs the operation and its result is kept for a
// while; callers with the same key get the stored result back instead of
// running it again.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrInProgress is returned while another caller holds the key.
	ErrInProgress = errors.New("idempotency: operation already in progress")
	// ErrInvalidState is returned when the stored entry cannot be decoded.
	ErrInvalidState = errors.New("idempotency: invalid state")
)

type State string

const (
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// Idempotency runs fn at most once per key within the retention window.
// When the key already completed, the stored result is returned and fn is
// not called. A failed fn releases the key so the client may retry. The
// result must be a JSON document.
type Idempotency interface {
	Do(ctx context.Context, key string, fn func(context.Context) ([]byte, error), opts ...Option) (result []byte, replayed bool, err error)
}

type entry struct {
	State  State           `json:"state"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Tracker stores entries in Redis under "<prefix><key>".
type Tracker struct {
	client redis.UniversalClient
	prefix string
}

func New(client redis.UniversalClient, prefix string) *Tracker {
	if prefix == "" {
		prefix = "idempotency:"
	}
	return &Tracker{client: client, prefix: prefix}
}

const (
	defaultLockDuration = time.Minute
	defaultRetention    = 24 * time.Hour
)

type Option func(*options)

type options struct {
	lockDuration time.Duration
	retention    time.Duration
}

// WithLockDuration bounds how long an in-progress entry blocks other callers.
func WithLockDuration(d time.Duration) Option {
	return func(o *options) { o.lockDuration = d }
}

// WithRetention sets how long a completed result is replayed.
func WithRetention(d time.Duration) Option {
	return func(o *options) { o.retention = d }
}

func (t *Tracker) Do(ctx context.Context, key string, fn func(context.Context) ([]byte, error), opts ...Option) ([]byte, bool, error) {
	o := options{lockDuration: defaultLockDuration, retention: defaultRetention}
	for _, opt := range opts {
		opt(&o)
	}
	if o.lockDuration <= 0 {
		o.lockDuration = defaultLockDuration
	}
	if o.retention <= 0 {
		o.retention = defaultRetention
	}

	fk := t.prefix + key
	pending, _ := json.Marshal(entry{State: StateInProgress})

	acquired, err := t.client.SetNX(ctx, fk, pending, o.lockDuration).Result()
	if err != nil {
		return nil, false, err
	}

	if !acquired {
		raw, err := t.client.Get(ctx, fk).Bytes()
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET
			return t.Do(ctx, key, fn, opts...)
		}
		if err != nil {
			return nil, false, err
		}

		var e entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, false, ErrInvalidState
		}

		switch e.State {
		case StateInProgress:
			return nil, false, ErrInProgress
		case StateCompleted:
			return e.Result, true, nil
		default:
			return nil, false, ErrInvalidState
		}
	}

	result, err := fn(ctx)
	if err != nil {
		if delErr := t.client.Del(context.WithoutCancel(ctx), fk).Err(); delErr != nil {
			return nil, false, errors.Join(err, delErr)
		}
		return nil, false, err
	}

	done, err := json.Marshal(entry{State: StateCompleted, Result: result})
	if err != nil {
		return nil, false, err
	}
	if err := t.client.Set(context.WithoutCancel(ctx), fk, done, o.retention).Err(); err != nil {
		return nil, false, err
	}

	return result, false, nil
}
