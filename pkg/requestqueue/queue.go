// Package requestqueue bounds and retries outbound calls to external
// platforms (object storage, email, payment processor).
package requestqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Queue limits how many outbound calls run at once and retries transient
// failures with jittered exponential backoff.
type Queue struct {
	slots      chan struct{}
	maxElapsed time.Duration
}

// Option configures a Queue
type Option func(*Queue)

// WithMaxElapsed caps the total time spent retrying one call
func WithMaxElapsed(d time.Duration) Option {
	return func(q *Queue) {
		q.maxElapsed = d
	}
}

// New creates a queue allowing maxConcurrent calls in flight
func New(maxConcurrent int, opts ...Option) *Queue {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	q := &Queue{
		slots:      make(chan struct{}, maxConcurrent),
		maxElapsed: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Permanent marks an error as non-retryable. Callers wrap errors that a
// retry can never fix (bad request, auth failure).
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do acquires a slot and runs fn, retrying on failure until the backoff
// window is exhausted or ctx is done.
func (q *Queue) Do(ctx context.Context, name string, fn func() error) error {
	select {
	case q.slots <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%s: waiting for slot: %w", name, ctx.Err())
	}
	defer func() { <-q.slots }()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = q.maxElapsed

	if err := backoff.Retry(fn, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
