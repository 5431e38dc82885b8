// Package quota tracks the upstream API call allowance. The upstream's
// response metadata is authoritative whenever present; local bookkeeping is
// the fallback between calls.
package quota

import (
	"sync"
	"time"

	"repopulse/internal/core"
)

const (
	// AuthenticatedLimit is the hourly allowance with a credential.
	AuthenticatedLimit = 5000
	// AnonymousLimit is the hourly allowance without one.
	AnonymousLimit = 60

	// DefaultWindow is the rolling quota period.
	DefaultWindow = time.Hour

	// nearLimitFraction is the consumed share past which the tracker
	// reports being near the limit.
	nearLimitFraction = 0.8
)

// Meta is the quota metadata carried in an upstream response.
type Meta struct {
	Remaining int
	Limit     int
	Used      int
	ResetAt   time.Time
}

// Tracker holds the process-wide quota state. Safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	remaining int
	limit     int
	used      int
	resetAt   time.Time
	window    time.Duration
	now       func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithWindow overrides the reset window.
func WithWindow(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.window = d
		}
	}
}

// WithClock injects a time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// New creates a Tracker starting with the full allowance.
func New(limit int, opts ...Option) *Tracker {
	if limit <= 0 {
		limit = AnonymousLimit
	}
	t := &Tracker{
		remaining: limit,
		limit:     limit,
		window:    DefaultWindow,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.resetAt = t.now().Add(t.window)
	return t
}

// heal resets the window once it has elapsed. The upstream may be
// unreachable, so the tracker must recover from a stale state on its own.
// Caller must hold t.mu.
func (t *Tracker) heal() {
	if !t.now().Before(t.resetAt) {
		t.remaining = t.limit
		t.used = 0
		t.resetAt = t.now().Add(t.window)
	}
}

// CanAdmit reports whether another upstream call may run now.
func (t *Tracker) CanAdmit() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.heal()
	return t.remaining > 0
}

// RecordUsage books one call against the local estimate. Used when a
// response carried no quota metadata.
func (t *Tracker) RecordUsage() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.heal()
	if t.remaining > 0 {
		t.remaining--
	}
	t.used++
}

// UpdateFromUpstream overwrites the local state with the upstream's
// metadata, which is authoritative whenever it has responded.
func (t *Tracker) UpdateFromUpstream(meta Meta) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if meta.Limit > 0 {
		t.limit = meta.Limit
	}
	if meta.Remaining >= 0 {
		t.remaining = meta.Remaining
	}
	if meta.Used >= 0 {
		t.used = meta.Used
	}
	if !meta.ResetAt.IsZero() {
		t.resetAt = meta.ResetAt
	}
}

// Status returns a read-only snapshot of the quota.
func (t *Tracker) Status() core.QuotaSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.heal()
	until := t.resetAt.Sub(t.now())
	if until < 0 {
		until = 0
	}
	return core.QuotaSnapshot{
		Remaining:      t.remaining,
		Limit:          t.limit,
		Used:           t.used,
		ResetAt:        t.resetAt,
		TimeUntilReset: until,
		NearLimit:      t.nearLimit(),
		RecommendedTTL: t.recommendedTTL(),
	}
}

// IsNearLimit reports whether 80% or more of the allowance is consumed.
func (t *Tracker) IsNearLimit() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.heal()
	return t.nearLimit()
}

// Caller must hold t.mu.
func (t *Tracker) nearLimit() bool {
	if t.limit == 0 {
		return true
	}
	consumed := float64(t.limit-t.remaining) / float64(t.limit)
	return consumed >= nearLimitFraction
}

// RecommendedTTL suggests a cache TTL for newly fetched data: the scarcer
// the remaining quota, the longer fetched values should be memoized.
func (t *Tracker) RecommendedTTL() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.heal()
	return t.recommendedTTL()
}

// Caller must hold t.mu.
func (t *Tracker) recommendedTTL() time.Duration {
	if t.limit == 0 {
		return 30 * time.Minute
	}
	frac := float64(t.remaining) / float64(t.limit)
	switch {
	case frac > 0.5:
		return 5 * time.Minute
	case frac > 0.25:
		return 10 * time.Minute
	case frac > 0.1:
		return 20 * time.Minute
	default:
		return 30 * time.Minute
	}
}
