package requestqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRetriesUntilSuccess(t *testing.T) {
	q := New(2, WithMaxElapsed(5*time.Second))

	var attempts int32
	err := q.Do(context.Background(), "flaky", func() error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.EqualValues(t, 3, attempts)
}

func TestDoPermanentErrorStopsRetrying(t *testing.T) {
	q := New(1, WithMaxElapsed(5*time.Second))

	var attempts int32
	err := q.Do(context.Background(), "denied", func() error {
		atomic.AddInt32(&attempts, 1)
		return Permanent(errors.New("bad request"))
	})

	require.Error(t, err)
	assert.EqualValues(t, 1, attempts)
}

func TestDoBoundsConcurrency(t *testing.T) {
	q := New(2)

	var inFlight, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Do(context.Background(), "work", func() error {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, int32(2))
}

func TestDoRespectsContextWhileWaiting(t *testing.T) {
	q := New(1)

	release := make(chan struct{})
	go func() {
		_ = q.Do(context.Background(), "holder", func() error {
			<-release
			return nil
		})
	}()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Do(ctx, "waiter", func() error { return nil })
	close(release)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
