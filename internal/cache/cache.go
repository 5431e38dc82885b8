// Package cache provides the in-memory TTL store backing the acquisition
// pipeline. Entries expire individually; capacity is bounded with
// insertion-order (FIFO) eviction.
package cache

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultMaxEntries bounds the store when no capacity is configured.
	DefaultMaxEntries = 500

	// DefaultTTL is used when Set is called with a non-positive TTL.
	DefaultTTL = 10 * time.Minute

	// DefaultSweepInterval is how often the background sweep removes
	// expired entries that are never re-read.
	DefaultSweepInterval = 5 * time.Minute
)

type entry struct {
	value    any
	storedAt time.Time
	ttl      time.Duration
}

// Store is a bounded key/value cache with per-entry expiry. Safe for
// concurrent use.
type Store struct {
	mu         sync.Mutex
	entries    map[string]*entry
	order      []string // insertion order, oldest first
	maxEntries int
	defaultTTL time.Duration
	now        func() time.Time

	sweepEvery time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
	log        *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithMaxEntries sets the capacity bound.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithDefaultTTL sets the TTL applied when Set receives none.
func WithDefaultTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.defaultTTL = d
		}
	}
}

// WithSweepInterval sets the background sweep period.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.sweepEvery = d
		}
	}
}

// WithClock injects a time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used by the background sweep.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a Store and starts its background sweep.
func New(opts ...Option) *Store {
	s := &Store{
		entries:    make(map[string]*entry),
		maxEntries: DefaultMaxEntries,
		defaultTTL: DefaultTTL,
		sweepEvery: DefaultSweepInterval,
		now:        time.Now,
		stop:       make(chan struct{}),
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.sweepLoop()
	return s
}

// Get returns the value for key, or false when the key is absent or its TTL
// has elapsed. An expired entry is removed as a side effect.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if s.now().Sub(e.storedAt) >= e.ttl {
		s.remove(key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key. A non-positive ttl means the default TTL.
// When the store is at capacity the oldest-inserted entry is evicted.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		// Overwrite keeps the original insertion-order slot.
		e.value = value
		e.storedAt = s.now()
		e.ttl = ttl
		return
	}

	if len(s.entries) >= s.maxEntries && len(s.order) > 0 {
		s.remove(s.order[0])
	}

	s.entries[key] = &entry{value: value, storedAt: s.now(), ttl: ttl}
	s.order = append(s.order, key)
}

// Delete removes key from the store. Removing an absent key is a no-op.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(key)
}

// Len returns the current number of entries, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats returns a read-only snapshot of the store configuration and size.
func (s *Store) Stats() (size, maxSize int, defaultTTL time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), s.maxEntries, s.defaultTTL
}

// Close stops the background sweep.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// remove deletes key from both the map and the order slice.
// Caller must hold s.mu.
func (s *Store) remove(key string) {
	if _, ok := s.entries[key]; !ok {
		return
	}
	delete(s.entries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Store) sweepLoop() {
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.log.Debug("cache sweep removed expired entries", "count", n)
			}
		case <-s.stop:
			return
		}
	}
}

// Sweep removes every expired entry and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expired []string
	for k, e := range s.entries {
		if now.Sub(e.storedAt) >= e.ttl {
			expired = append(expired, k)
		}
	}
	for _, k := range expired {
		s.remove(k)
	}
	return len(expired)
}
