// Package health derives the composite health score from project metrics.
// Scoring is a documented policy, not a law of nature: the weights and tier
// thresholds live in a Policy value and can be loaded from a YAML file.
package health

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MinTier awards Points when the observed value is at least Min.
// Higher is better.
type MinTier struct {
	Min    float64 `yaml:"min"`
	Points int     `yaml:"points"`
}

// MaxTier awards Points when the observed value is at most Max.
// Lower is better.
type MaxTier struct {
	Max    float64 `yaml:"max"`
	Points int     `yaml:"points"`
}

// Weights are the dimension weights of the overall score. They must sum
// to 1.
type Weights struct {
	Activity      float64 `yaml:"activity"`
	Community     float64 `yaml:"community"`
	Maintenance   float64 `yaml:"maintenance"`
	Documentation float64 `yaml:"documentation"`
}

// ActivityPolicy scores recent commit volume and responsiveness.
type ActivityPolicy struct {
	// RecentWeeks is how many trailing weeks of commit activity count.
	RecentWeeks     int       `yaml:"recent_weeks"`
	CommitTiers     []MinTier `yaml:"commit_tiers"`
	IssueCloseTiers []MaxTier `yaml:"issue_close_tiers"`
	PullMergeTiers  []MaxTier `yaml:"pull_merge_tiers"`
}

// CommunityPolicy scores contributor breadth and ownership distribution.
type CommunityPolicy struct {
	ContributorTiers []MinTier `yaml:"contributor_tiers"`
	// ConcentrationTiers score the top contributor's share of all
	// contributions; a lower share scores higher.
	ConcentrationTiers []MaxTier `yaml:"concentration_tiers"`
}

// MaintenancePolicy scores issue-close and PR-merge ratios, 50/50.
type MaintenancePolicy struct {
	CloseRatioTiers []MinTier `yaml:"close_ratio_tiers"`
	MergeRatioTiers []MinTier `yaml:"merge_ratio_tiers"`
}

// DocumentationPolicy is the flat credit per documentation artifact.
type DocumentationPolicy struct {
	Readme        int `yaml:"readme"`
	License       int `yaml:"license"`
	Contributing  int `yaml:"contributing"`
	Changelog     int `yaml:"changelog"`
	CodeOfConduct int `yaml:"code_of_conduct"`
}

// Policy is the complete scoring configuration.
type Policy struct {
	Weights       Weights             `yaml:"weights"`
	Activity      ActivityPolicy      `yaml:"activity"`
	Community     CommunityPolicy     `yaml:"community"`
	Maintenance   MaintenancePolicy   `yaml:"maintenance"`
	Documentation DocumentationPolicy `yaml:"documentation"`
	// RecommendBelow is the dimension score under which an advisory
	// recommendation is emitted.
	RecommendBelow int `yaml:"recommend_below"`
}

// DefaultPolicy returns the built-in scoring policy.
func DefaultPolicy() Policy {
	return Policy{
		Weights: Weights{
			Activity:      0.30,
			Community:     0.25,
			Maintenance:   0.25,
			Documentation: 0.20,
		},
		Activity: ActivityPolicy{
			RecentWeeks: 12,
			CommitTiers: []MinTier{
				{Min: 100, Points: 50},
				{Min: 50, Points: 40},
				{Min: 20, Points: 30},
				{Min: 5, Points: 15},
				{Min: 1, Points: 5},
			},
			IssueCloseTiers: []MaxTier{
				{Max: 2, Points: 25},
				{Max: 7, Points: 20},
				{Max: 14, Points: 15},
				{Max: 30, Points: 10},
			},
			PullMergeTiers: []MaxTier{
				{Max: 2, Points: 25},
				{Max: 7, Points: 20},
				{Max: 14, Points: 15},
				{Max: 30, Points: 10},
			},
		},
		Community: CommunityPolicy{
			ContributorTiers: []MinTier{
				{Min: 50, Points: 60},
				{Min: 20, Points: 50},
				{Min: 10, Points: 40},
				{Min: 5, Points: 25},
				{Min: 2, Points: 15},
				{Min: 1, Points: 5},
			},
			ConcentrationTiers: []MaxTier{
				{Max: 0.30, Points: 40},
				{Max: 0.50, Points: 25},
				{Max: 0.75, Points: 10},
			},
		},
		Maintenance: MaintenancePolicy{
			CloseRatioTiers: []MinTier{
				{Min: 0.90, Points: 50},
				{Min: 0.75, Points: 40},
				{Min: 0.50, Points: 30},
				{Min: 0.25, Points: 15},
			},
			MergeRatioTiers: []MinTier{
				{Min: 0.90, Points: 50},
				{Min: 0.75, Points: 40},
				{Min: 0.50, Points: 30},
				{Min: 0.25, Points: 15},
			},
		},
		Documentation: DocumentationPolicy{
			Readme:        35,
			License:       25,
			Contributing:  20,
			Changelog:     10,
			CodeOfConduct: 10,
		},
		RecommendBelow: 60,
	}
}

// LoadPolicy reads a scoring policy from a YAML file.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("reading policy file: %w", err)
	}
	p := DefaultPolicy()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parsing policy file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate checks the weights sum to 1 within a small tolerance.
func (p Policy) Validate() error {
	sum := p.Weights.Activity + p.Weights.Community + p.Weights.Maintenance + p.Weights.Documentation
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("scoring weights must sum to 1, got %.3f", sum)
	}
	return nil
}

// minPoints returns the points of the highest satisfied tier, or 0.
func minPoints(tiers []MinTier, value float64) int {
	best := 0
	bestMin := -1.0
	for _, t := range tiers {
		if value >= t.Min && t.Min > bestMin {
			best = t.Points
			bestMin = t.Min
		}
	}
	return best
}

// maxPoints returns the points of the tightest satisfied tier, or 0.
func maxPoints(tiers []MaxTier, value float64) int {
	best := 0
	bestMax := -1.0
	matched := false
	for _, t := range tiers {
		if value <= t.Max && (!matched || t.Max < bestMax) {
			best = t.Points
			bestMax = t.Max
			matched = true
		}
	}
	return best
}
