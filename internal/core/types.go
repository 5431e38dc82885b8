// Package core provides the shared types and error taxonomy for the
// repository health pipeline.
package core

import "time"

// Repository holds the basic metadata for a hosted repository.
type Repository struct {
	Owner         string    `json:"owner"`
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Description   string    `json:"description,omitempty"`
	Stars         int       `json:"stars"`
	Forks         int       `json:"forks"`
	OpenIssues    int       `json:"open_issues"`
	Language      string    `json:"language,omitempty"`
	DefaultBranch string    `json:"default_branch"`
	Archived      bool      `json:"archived"`
	CreatedAt     time.Time `json:"created_at"`
	PushedAt      time.Time `json:"pushed_at"`
}

// WeeklyCommits is one week of commit activity.
type WeeklyCommits struct {
	WeekStart time.Time `json:"week_start"`
	Total     int       `json:"total"`
}

// Contributor is a single contributor and their contribution count.
type Contributor struct {
	Login         string `json:"login"`
	Contributions int    `json:"contributions"`
}

// IssueStats aggregates issue totals and closing behavior.
type IssueStats struct {
	Total        int     `json:"total"`
	Closed       int     `json:"closed"`
	AvgCloseDays float64 `json:"avg_close_days"`
}

// PullStats aggregates pull request totals and merge behavior.
type PullStats struct {
	Total        int     `json:"total"`
	Merged       int     `json:"merged"`
	AvgMergeDays float64 `json:"avg_merge_days"`
}

// DocFiles records which standard documentation files exist in the repo root.
type DocFiles struct {
	Readme        bool `json:"readme"`
	License       bool `json:"license"`
	Contributing  bool `json:"contributing"`
	Changelog     bool `json:"changelog"`
	CodeOfConduct bool `json:"code_of_conduct"`
}

// ProjectMetrics is the normalized activity snapshot for one repository.
// It is assembled once per cache cycle and is immutable after construction.
type ProjectMetrics struct {
	Owner          string          `json:"owner"`
	Name           string          `json:"name"`
	CommitActivity []WeeklyCommits `json:"commit_activity"`
	Contributors   []Contributor   `json:"contributors"`
	Issues         IssueStats      `json:"issues"`
	Pulls          PullStats       `json:"pulls"`
	Docs           DocFiles        `json:"docs"`
	CollectedAt    time.Time       `json:"collected_at"`
}

// DimensionScores holds the four per-dimension health scores, each in [0,100].
type DimensionScores struct {
	Activity      int `json:"activity"`
	Community     int `json:"community"`
	Maintenance   int `json:"maintenance"`
	Documentation int `json:"documentation"`
}

// HealthInsights are deterministic estimates derived from the metrics.
// They are labeled estimates, not measurements.
type HealthInsights struct {
	// GrowthTrend compares recent commit volume against the preceding
	// period: "growing", "stable" or "declining".
	GrowthTrend string `json:"growth_trend"`
	// TopContributorShare is the top contributor's fraction of all
	// contributions, in [0,1]. Lower means more distributed ownership.
	TopContributorShare float64 `json:"top_contributor_share"`
}

// ProjectHealth is the derived health score for one repository. A refresh
// produces a brand-new value; it is never mutated in place.
type ProjectHealth struct {
	OverallScore    int             `json:"overall_score"`
	Scores          DimensionScores `json:"scores"`
	Recommendations []string        `json:"recommendations"`
	Insights        HealthInsights  `json:"insights"`
	CalculatedAt    time.Time       `json:"calculated_at"`
}

// ProjectOverview bundles a repository with its best-effort health score.
// Health is nil when scoring failed; the repository is still returned.
type ProjectOverview struct {
	Repository *Repository    `json:"repository"`
	Health     *ProjectHealth `json:"health,omitempty"`
}

// QuotaSnapshot is a read-only view of the upstream API quota.
type QuotaSnapshot struct {
	Remaining      int           `json:"remaining"`
	Limit          int           `json:"limit"`
	Used           int           `json:"used"`
	ResetAt        time.Time     `json:"reset_at"`
	TimeUntilReset time.Duration `json:"time_until_reset"`
	NearLimit      bool          `json:"near_limit"`
	RecommendedTTL time.Duration `json:"recommended_ttl"`
}

// CacheStats is a read-only view of the cache store.
type CacheStats struct {
	Size       int           `json:"size"`
	MaxSize    int           `json:"max_size"`
	DefaultTTL time.Duration `json:"default_ttl"`
}

// StatusSnapshot combines the operational snapshots exposed for visibility.
type StatusSnapshot struct {
	Cache CacheStats    `json:"cache"`
	Quota QuotaSnapshot `json:"quota"`
}
