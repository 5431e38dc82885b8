package quota

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestTracker(t *testing.T) {
	t.Run("StartsWithFullAllowance", func(t *testing.T) {
		clock := newFakeClock()
		tr := New(100, WithClock(clock.Now))

		assert.True(t, tr.CanAdmit())
		st := tr.Status()
		assert.Equal(t, 100, st.Remaining)
		assert.Equal(t, 100, st.Limit)
		assert.Equal(t, 0, st.Used)
	})

	t.Run("ExhaustionBlocksUntilReset", func(t *testing.T) {
		clock := newFakeClock()
		tr := New(100, WithClock(clock.Now))
		reset := clock.Now().Add(30 * time.Minute)

		tr.UpdateFromUpstream(Meta{Remaining: 0, Limit: 100, Used: 100, ResetAt: reset})
		assert.False(t, tr.CanAdmit())

		clock.Advance(29 * time.Minute)
		assert.False(t, tr.CanAdmit())

		// Once the reset time passes, the tracker self-heals.
		clock.Advance(2 * time.Minute)
		require.True(t, tr.CanAdmit())
		st := tr.Status()
		assert.Equal(t, st.Limit, st.Remaining)
		assert.Equal(t, 0, st.Used)
	})

	t.Run("UpstreamMetadataIsAuthoritative", func(t *testing.T) {
		clock := newFakeClock()
		tr := New(5000, WithClock(clock.Now))
		reset := clock.Now().Add(45 * time.Minute)

		tr.UpdateFromUpstream(Meta{Remaining: 12, Limit: 60, Used: 48, ResetAt: reset})

		st := tr.Status()
		assert.Equal(t, 12, st.Remaining)
		assert.Equal(t, 60, st.Limit)
		assert.Equal(t, 48, st.Used)
		assert.Equal(t, reset, st.ResetAt)
		assert.Equal(t, 45*time.Minute, st.TimeUntilReset)
	})

	t.Run("RecordUsageDecrements", func(t *testing.T) {
		clock := newFakeClock()
		tr := New(2, WithClock(clock.Now))

		tr.RecordUsage()
		assert.True(t, tr.CanAdmit())
		tr.RecordUsage()
		assert.False(t, tr.CanAdmit())
	})

	t.Run("NearLimit", func(t *testing.T) {
		clock := newFakeClock()
		tr := New(100, WithClock(clock.Now))

		tr.UpdateFromUpstream(Meta{Remaining: 21, Limit: 100, Used: 79, ResetAt: clock.Now().Add(time.Hour)})
		assert.False(t, tr.IsNearLimit())

		tr.UpdateFromUpstream(Meta{Remaining: 20, Limit: 100, Used: 80, ResetAt: clock.Now().Add(time.Hour)})
		assert.True(t, tr.IsNearLimit())
	})

	t.Run("RecommendedTTLGrowsAsQuotaShrinks", func(t *testing.T) {
		clock := newFakeClock()
		tr := New(100, WithClock(clock.Now))
		reset := clock.Now().Add(time.Hour)

		cases := []struct {
			remaining int
			want      time.Duration
		}{
			{80, 5 * time.Minute},
			{40, 10 * time.Minute},
			{15, 20 * time.Minute},
			{5, 30 * time.Minute},
		}
		for _, tc := range cases {
			tr.UpdateFromUpstream(Meta{Remaining: tc.remaining, Limit: 100, Used: 100 - tc.remaining, ResetAt: reset})
			assert.Equal(t, tc.want, tr.RecommendedTTL(), "remaining=%d", tc.remaining)
		}
	})

	t.Run("ZeroLimitFallsBackToAnonymous", func(t *testing.T) {
		tr := New(0)
		st := tr.Status()
		assert.Equal(t, AnonymousLimit, st.Limit)
	})
}
