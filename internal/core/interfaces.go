package core

import "context"

// HealthService is the contract the serving layer consumes. The orchestrator
// in internal/service is the production implementation; handlers never touch
// the cache, quota tracker or request queue directly.
type HealthService interface {
	// GetProject returns the repository metadata, cached when possible.
	GetProject(ctx context.Context, owner, repo string) (*Repository, error)

	// GetMetrics returns the normalized activity metrics, cached when possible.
	GetMetrics(ctx context.Context, owner, repo string) (*ProjectMetrics, error)

	// GetHealth returns the derived health score, cached when possible.
	GetHealth(ctx context.Context, owner, repo string) (*ProjectHealth, error)

	// GetProjectWithHealth fetches the repository and its health score
	// concurrently. Health is best-effort: a scoring failure yields a nil
	// Health field, never an overall failure.
	GetProjectWithHealth(ctx context.Context, owner, repo string) (*ProjectOverview, error)

	// Refresh invalidates all cached values for the repository and performs
	// a fresh fetch, guaranteeing the next read is upstream-fresh.
	Refresh(ctx context.Context, owner, repo string) (*ProjectOverview, error)

	// Status returns the operational cache and quota snapshots.
	Status() StatusSnapshot
}
