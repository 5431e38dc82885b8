package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repopulse/internal/quota"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the fake clock instead of blocking, so quota waits
// resolve instantly in tests.
func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestQueue(limit int) (*Queue, *quota.Tracker, *fakeClock) {
	clock := newFakeClock()
	tracker := quota.New(limit, quota.WithClock(clock.Now))
	q := New(tracker, WithSpacing(0), WithSleep(clock.Sleep))
	return q, tracker, clock
}

func TestQueue(t *testing.T) {
	t.Run("RunsTasksInSubmissionOrder", func(t *testing.T) {
		q, _, _ := newTestQueue(100)
		defer q.Close()

		var mu sync.Mutex
		var order []int
		var wg sync.WaitGroup

		// Submit from one goroutine so submission order is defined.
		wg.Add(3)
		for i := 1; i <= 3; i++ {
			i := i
			go func() {
				defer wg.Done()
				// Stagger submissions to fix their order.
				time.Sleep(time.Duration(i) * 20 * time.Millisecond)
				err := q.Submit(context.Background(), func() error {
					mu.Lock()
					order = append(order, i)
					mu.Unlock()
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, []int{1, 2, 3}, order)
	})

	t.Run("TaskErrorDoesNotStopQueue", func(t *testing.T) {
		q, _, _ := newTestQueue(100)
		defer q.Close()

		boom := errors.New("boom")
		err := q.Submit(context.Background(), func() error { return boom })
		assert.ErrorIs(t, err, boom)

		err = q.Submit(context.Background(), func() error { return nil })
		assert.NoError(t, err)
	})

	t.Run("ExhaustedQuotaHoldsNextTask", func(t *testing.T) {
		q, tracker, clock := newTestQueue(1)
		defer q.Close()

		// First task consumes the only remaining call and reports the
		// upstream's zero-remaining metadata.
		reset := clock.Now().Add(10 * time.Minute)
		err := q.Submit(context.Background(), func() error {
			tracker.UpdateFromUpstream(quota.Meta{Remaining: 0, Limit: 1, Used: 1, ResetAt: reset})
			return nil
		})
		require.NoError(t, err)

		// The second task must wait out the reset window. The injected
		// sleep advances the fake clock, so the tracker self-heals and
		// the task runs.
		ran := false
		err = q.Submit(context.Background(), func() error {
			ran = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, ran)
		assert.True(t, clock.Now().After(reset), "queue should have waited past the reset time")
	})

	t.Run("CallerAbandonmentDoesNotCancelTask", func(t *testing.T) {
		q, _, _ := newTestQueue(100)
		defer q.Close()

		started := make(chan struct{})
		finished := make(chan struct{})
		release := make(chan struct{})

		// Occupy the worker.
		go func() {
			_ = q.Submit(context.Background(), func() error {
				close(started)
				<-release
				return nil
			})
		}()
		<-started

		// Second caller gives up while its task is queued.
		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() {
			errCh <- q.Submit(ctx, func() error {
				close(finished)
				return nil
			})
		}()
		time.Sleep(20 * time.Millisecond)
		cancel()
		assert.ErrorIs(t, <-errCh, context.Canceled)

		// The abandoned task still runs once the worker frees up.
		close(release)
		select {
		case <-finished:
		case <-time.After(2 * time.Second):
			t.Fatal("abandoned task never ran")
		}
	})

	t.Run("SubmitAfterClose", func(t *testing.T) {
		q, _, _ := newTestQueue(100)
		q.Close()

		err := q.Submit(context.Background(), func() error { return nil })
		assert.ErrorIs(t, err, ErrClosed)
	})
}
