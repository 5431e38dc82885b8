// Package queue serializes outbound upstream calls behind a single worker.
// Tasks run strictly in submission order; admission is gated on the quota
// tracker, and an exhausted quota suspends the whole queue until the window
// resets.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"repopulse/internal/quota"
)

const (
	// DefaultSpacing is the pause between consecutive tasks, keeping the
	// pipeline from bursting the upstream even when quota allows it.
	DefaultSpacing = 100 * time.Millisecond

	// defaultBuffer bounds how many tasks may wait for the worker.
	defaultBuffer = 256

	// minQuotaWait guards against a zero or negative reset delta, which
	// would otherwise spin the admission loop.
	minQuotaWait = time.Second
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("queue: closed")

type task struct {
	id   string
	fn   func() error
	done chan error
}

// Queue is the FIFO admission pipe for upstream calls.
type Queue struct {
	tracker *quota.Tracker
	tasks   chan *task
	spacing time.Duration
	sleep   func(time.Duration)
	quit    chan struct{}
	stopped atomic.Bool
	pending atomic.Int64
	log     *slog.Logger
}

// Option configures a Queue.
type Option func(*Queue)

// WithSpacing sets the inter-request delay.
func WithSpacing(d time.Duration) Option {
	return func(q *Queue) {
		if d >= 0 {
			q.spacing = d
		}
	}
}

// WithSleep injects the wait primitive, used by tests.
func WithSleep(sleep func(time.Duration)) Option {
	return func(q *Queue) {
		if sleep != nil {
			q.sleep = sleep
		}
	}
}

// WithLogger sets the queue logger.
func WithLogger(log *slog.Logger) Option {
	return func(q *Queue) {
		if log != nil {
			q.log = log
		}
	}
}

// New creates a Queue and starts its worker.
func New(tracker *quota.Tracker, opts ...Option) *Queue {
	q := &Queue{
		tracker: tracker,
		tasks:   make(chan *task, defaultBuffer),
		spacing: DefaultSpacing,
		sleep:   time.Sleep,
		quit:    make(chan struct{}),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	go q.worker()
	return q
}

// Submit enqueues fn and blocks until it has run. A task error is returned
// to its submitter only; the queue keeps draining. Once a task is admitted
// it always runs to completion — a caller abandoning the wait via ctx does
// not cancel the task, and the quota is still spent.
func (q *Queue) Submit(ctx context.Context, fn func() error) error {
	if q.stopped.Load() {
		return ErrClosed
	}
	t := &task{
		id:   uuid.NewString(),
		fn:   fn,
		done: make(chan error, 1),
	}
	q.pending.Add(1)
	select {
	case q.tasks <- t:
	case <-ctx.Done():
		q.pending.Add(-1)
		return ctx.Err()
	case <-q.quit:
		q.pending.Add(-1)
		return ErrClosed
	}

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		// The task still runs; only the caller stops waiting.
		return ctx.Err()
	}
}

// Len returns the number of tasks submitted but not yet completed.
func (q *Queue) Len() int {
	return int(q.pending.Load())
}

// Close stops the worker. Tasks already queued are not run; their
// submitters receive ErrClosed.
func (q *Queue) Close() {
	if q.stopped.CompareAndSwap(false, true) {
		close(q.quit)
	}
}

func (q *Queue) worker() {
	for {
		select {
		case <-q.quit:
			q.drain()
			return
		case t := <-q.tasks:
			q.run(t)
		}
	}
}

func (q *Queue) run(t *task) {
	q.waitForAdmission(t.id)
	select {
	case <-q.quit:
		t.done <- ErrClosed
		q.pending.Add(-1)
		return
	default:
	}

	err := t.fn()
	t.done <- err
	q.pending.Add(-1)

	if q.spacing > 0 {
		q.sleep(q.spacing)
	}
}

// waitForAdmission blocks until the quota tracker admits another call. All
// queued tasks wait together behind the suspended head; nobody skips the
// line.
func (q *Queue) waitForAdmission(taskID string) {
	for !q.tracker.CanAdmit() {
		select {
		case <-q.quit:
			return
		default:
		}
		wait := q.tracker.Status().TimeUntilReset
		if wait < minQuotaWait {
			wait = minQuotaWait
		}
		q.log.Warn("quota exhausted, suspending queue",
			"task_id", taskID,
			"resume_in", wait,
		)
		q.sleep(wait)
	}
}

func (q *Queue) drain() {
	for {
		select {
		case t := <-q.tasks:
			t.done <- ErrClosed
			q.pending.Add(-1)
		default:
			return
		}
	}
}
