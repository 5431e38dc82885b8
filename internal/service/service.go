// Package service is the acquisition orchestrator: it answers resource
// requests from the cache when possible and routes misses through the
// fetcher, assembling fan-out results and deriving health scores.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"repopulse/internal/cache"
	"repopulse/internal/core"
	"repopulse/internal/health"
	"repopulse/internal/observability"
	"repopulse/internal/quota"
)

// Fetcher is the upstream data source consumed by the orchestrator.
// internal/github.Client is the production implementation.
type Fetcher interface {
	GetRepository(ctx context.Context, owner, repo string) (*core.Repository, error)
	ListContributors(ctx context.Context, owner, repo string) ([]core.Contributor, error)
	CommitActivity(ctx context.Context, owner, repo string) ([]core.WeeklyCommits, error)
	IssueStats(ctx context.Context, owner, repo string) (core.IssueStats, error)
	PullStats(ctx context.Context, owner, repo string) (core.PullStats, error)
	FileExists(ctx context.Context, owner, repo, path string) (bool, error)
}

// DocFilePaths are the artifacts probed for the documentation metrics,
// in scoring order.
var DocFilePaths = []string{
	"README.md",
	"LICENSE",
	"CONTRIBUTING.md",
	"CHANGELOG.md",
	"CODE_OF_CONDUCT.md",
}

type inflight struct {
	done chan struct{}
	val  any
	err  error
}

// Service implements core.HealthService.
type Service struct {
	cache   *cache.Store
	fetcher Fetcher
	tracker *quota.Tracker
	engine  *health.Engine
	metrics *observability.Metrics
	log     *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	flight map[string]*inflight
}

// Option configures a Service.
type Option func(*Service)

// WithClock injects a time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics attaches the Prometheus collectors.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log.With("component", "service")
		}
	}
}

// New creates a Service.
func New(store *cache.Store, fetcher Fetcher, tracker *quota.Tracker, engine *health.Engine, opts ...Option) *Service {
	s := &Service{
		cache:   store,
		fetcher: fetcher,
		tracker: tracker,
		engine:  engine,
		log:     slog.Default().With("component", "service"),
		now:     time.Now,
		flight:  make(map[string]*inflight),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetProject returns the repository metadata, cached when possible.
func (s *Service) GetProject(ctx context.Context, owner, repo string) (*core.Repository, error) {
	key := cache.RepoKey(owner, repo)
	if v, ok := s.lookup(key); ok {
		return v.(*core.Repository), nil
	}
	return coalesce(s, ctx, key, func() (*core.Repository, error) {
		r, err := s.fetcher.GetRepository(ctx, owner, repo)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, r, s.tracker.RecommendedTTL())
		return r, nil
	})
}

// GetMetrics returns the normalized metrics, cached when possible. A cache
// miss fans out the sub-fetches concurrently; individual sub-failures
// degrade to zero defaults rather than failing the whole resource.
func (s *Service) GetMetrics(ctx context.Context, owner, repo string) (*core.ProjectMetrics, error) {
	key := cache.MetricsKey(owner, repo)
	if v, ok := s.lookup(key); ok {
		return v.(*core.ProjectMetrics), nil
	}
	return coalesce(s, ctx, key, func() (*core.ProjectMetrics, error) {
		m, err := s.assembleMetrics(ctx, owner, repo)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, m, s.tracker.RecommendedTTL())
		return m, nil
	})
}

// GetHealth returns the derived health score, cached when possible.
func (s *Service) GetHealth(ctx context.Context, owner, repo string) (*core.ProjectHealth, error) {
	key := cache.HealthKey(owner, repo)
	if v, ok := s.lookup(key); ok {
		return v.(*core.ProjectHealth), nil
	}
	return coalesce(s, ctx, key, func() (*core.ProjectHealth, error) {
		m, err := s.GetMetrics(ctx, owner, repo)
		if err != nil {
			return nil, err
		}
		h := s.engine.Calculate(m, s.now())
		s.metrics.ObserveHealthComputed()
		s.cache.Set(key, h, s.tracker.RecommendedTTL())
		return h, nil
	})
}

// GetProjectWithHealth fetches the repository and its health concurrently.
// Health is best-effort: a scoring failure is logged and absorbed.
func (s *Service) GetProjectWithHealth(ctx context.Context, owner, repo string) (*core.ProjectOverview, error) {
	var (
		wg        sync.WaitGroup
		project   *core.Repository
		projErr   error
		scored    *core.ProjectHealth
		healthErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		project, projErr = s.GetProject(ctx, owner, repo)
	}()
	go func() {
		defer wg.Done()
		scored, healthErr = s.GetHealth(ctx, owner, repo)
	}()
	wg.Wait()

	if projErr != nil {
		return nil, projErr
	}
	if healthErr != nil {
		s.log.Warn("health unavailable, returning project without score",
			"owner", owner, "repo", repo, "error", healthErr)
		scored = nil
	}
	return &core.ProjectOverview{Repository: project, Health: scored}, nil
}

// Refresh deletes every cached value for the repository, then re-fetches.
// Health depends on metrics, so all three keys are invalidated together.
func (s *Service) Refresh(ctx context.Context, owner, repo string) (*core.ProjectOverview, error) {
	s.cache.Delete(cache.RepoKey(owner, repo))
	s.cache.Delete(cache.MetricsKey(owner, repo))
	s.cache.Delete(cache.HealthKey(owner, repo))
	return s.GetProjectWithHealth(ctx, owner, repo)
}

// Status returns the operational snapshots.
func (s *Service) Status() core.StatusSnapshot {
	size, maxSize, defaultTTL := s.cache.Stats()
	return core.StatusSnapshot{
		Cache: core.CacheStats{Size: size, MaxSize: maxSize, DefaultTTL: defaultTTL},
		Quota: s.tracker.Status(),
	}
}

// assembleMetrics fans out the sub-fetches and joins them into one
// immutable snapshot. Failures of individual parts are absorbed into zero
// defaults; only when every primary part fails is the error surfaced.
func (s *Service) assembleMetrics(ctx context.Context, owner, repo string) (*core.ProjectMetrics, error) {
	m := &core.ProjectMetrics{Owner: owner, Name: repo, CollectedAt: s.now()}

	var wg sync.WaitGroup
	errs := make([]error, 4)
	docFound := make([]bool, len(DocFilePaths))

	wg.Add(4 + len(DocFilePaths))
	go func() {
		defer wg.Done()
		m.Contributors, errs[0] = s.fetcher.ListContributors(ctx, owner, repo)
	}()
	go func() {
		defer wg.Done()
		m.CommitActivity, errs[1] = s.fetcher.CommitActivity(ctx, owner, repo)
	}()
	go func() {
		defer wg.Done()
		m.Issues, errs[2] = s.fetcher.IssueStats(ctx, owner, repo)
	}()
	go func() {
		defer wg.Done()
		m.Pulls, errs[3] = s.fetcher.PullStats(ctx, owner, repo)
	}()
	for i, path := range DocFilePaths {
		i, path := i, path
		go func() {
			defer wg.Done()
			found, err := s.fetcher.FileExists(ctx, owner, repo, path)
			if err != nil {
				// Best-effort: an unreadable check counts as absent.
				s.log.Warn("doc file check failed", "path", path, "error", err)
				return
			}
			docFound[i] = found
		}()
	}
	wg.Wait()

	failed := 0
	names := []string{"contributors", "commit activity", "issues", "pull requests"}
	var firstErr error
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		if firstErr == nil {
			firstErr = err
		}
		s.log.Warn("metrics sub-fetch failed, using zero default",
			"part", names[i], "owner", owner, "repo", repo,
			"error", core.NewPartialDataError(names[i], err))
	}
	if failed == len(errs) {
		// Nothing usable came back; the primary resource is missing.
		return nil, firstErr
	}

	m.Docs = core.DocFiles{
		Readme:        docFound[0],
		License:       docFound[1],
		Contributing:  docFound[2],
		Changelog:     docFound[3],
		CodeOfConduct: docFound[4],
	}
	return m, nil
}

// lookup reads the cache and records the hit/miss outcome.
func (s *Service) lookup(key string) (any, bool) {
	v, ok := s.cache.Get(key)
	s.metrics.ObserveCacheLookup(ok)
	return v, ok
}

// coalesce deduplicates concurrent misses on one key: the first caller
// fetches, later callers wait for its result instead of enqueueing their
// own upstream calls.
func coalesce[T any](s *Service, ctx context.Context, key string, fn func() (T, error)) (T, error) {
	s.mu.Lock()
	if f, ok := s.flight[key]; ok {
		s.mu.Unlock()
		var zero T
		select {
		case <-f.done:
			if f.err != nil {
				return zero, f.err
			}
			return f.val.(T), nil
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	f := &inflight{done: make(chan struct{})}
	s.flight[key] = f
	s.mu.Unlock()

	val, err := fn()
	f.val, f.err = val, err

	s.mu.Lock()
	delete(s.flight, key)
	s.mu.Unlock()
	close(f.done)

	if err != nil {
		var zero T
		return zero, err
	}
	return val, nil
}
