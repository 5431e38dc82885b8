package health

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repopulse/internal/core"
)

var scoredAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

// weeklySeries builds a commit-activity series of n weeks with the given
// total spread evenly.
func weeklySeries(n, total int) []core.WeeklyCommits {
	out := make([]core.WeeklyCommits, n)
	week := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = core.WeeklyCommits{WeekStart: week, Total: total / n}
		week = week.AddDate(0, 0, 7)
	}
	if n > 0 {
		out[n-1].Total += total % n
	}
	return out
}

func abandonedFixture() *core.ProjectMetrics {
	return &core.ProjectMetrics{
		Owner:       "ghost",
		Name:        "tumbleweed",
		CollectedAt: scoredAt,
	}
}

func thrivingFixture() *core.ProjectMetrics {
	contributors := make([]core.Contributor, 60)
	// Top contributor holds just under 30% of all contributions; the rest
	// is spread evenly.
	contributors[0] = core.Contributor{Login: "lead", Contributions: 300}
	for i := 1; i < 60; i++ {
		contributors[i] = core.Contributor{Login: "dev", Contributions: 12}
	}
	return &core.ProjectMetrics{
		Owner:          "acme",
		Name:           "rocket",
		CommitActivity: weeklySeries(12, 120),
		Contributors:   contributors,
		Issues:         core.IssueStats{Total: 100, Closed: 92, AvgCloseDays: 3},
		Pulls:          core.PullStats{Total: 50, Merged: 46, AvgMergeDays: 2},
		Docs: core.DocFiles{
			Readme:        true,
			License:       true,
			Contributing:  true,
			Changelog:     true,
			CodeOfConduct: true,
		},
		CollectedAt: scoredAt,
	}
}

func TestCalculate(t *testing.T) {
	engine := New(DefaultPolicy())

	t.Run("AbandonedProjectScoresNearFloor", func(t *testing.T) {
		h := engine.Calculate(abandonedFixture(), scoredAt)

		assert.Equal(t, 0, h.Scores.Activity)
		assert.Equal(t, 0, h.Scores.Community)
		assert.Equal(t, 0, h.Scores.Maintenance)
		assert.Equal(t, 0, h.Scores.Documentation)
		assert.Equal(t, 0, h.OverallScore)

		for _, want := range []string{
			"Add a README to introduce the project",
			"Add a LICENSE so consumers know their rights",
			"Add a CONTRIBUTING guide for new contributors",
			"Add a CHANGELOG to track releases",
			"Add a CODE_OF_CONDUCT to set community expectations",
		} {
			assert.Contains(t, h.Recommendations, want)
		}
	})

	t.Run("ThrivingProjectScoresHigh", func(t *testing.T) {
		h := engine.Calculate(thrivingFixture(), scoredAt)

		assert.GreaterOrEqual(t, h.OverallScore, 90)
		assert.Equal(t, 100, h.Scores.Documentation)
		assert.Equal(t, 100, h.Scores.Community)
		assert.Empty(t, h.Recommendations)
	})

	t.Run("Deterministic", func(t *testing.T) {
		m := thrivingFixture()
		first, err := json.Marshal(engine.Calculate(m, scoredAt))
		require.NoError(t, err)
		second, err := json.Marshal(engine.Calculate(m, scoredAt))
		require.NoError(t, err)
		assert.Equal(t, first, second, "scoring must be byte-for-byte reproducible")
	})

	t.Run("ScoresStayWithinBounds", func(t *testing.T) {
		h := engine.Calculate(thrivingFixture(), scoredAt)
		for name, s := range map[string]int{
			"activity":      h.Scores.Activity,
			"community":     h.Scores.Community,
			"maintenance":   h.Scores.Maintenance,
			"documentation": h.Scores.Documentation,
			"overall":       h.OverallScore,
		} {
			assert.GreaterOrEqual(t, s, 0, name)
			assert.LessOrEqual(t, s, 100, name)
		}
	})

	t.Run("ConcentratedOwnershipScoresLower", func(t *testing.T) {
		distributed := thrivingFixture()

		concentrated := thrivingFixture()
		concentrated.Contributors[0].Contributions = 10000

		d := engine.Calculate(distributed, scoredAt)
		c := engine.Calculate(concentrated, scoredAt)
		assert.Greater(t, d.Scores.Community, c.Scores.Community)
	})

	t.Run("NoIssuesMeansNoResponsivenessCredit", func(t *testing.T) {
		m := thrivingFixture()
		m.Issues = core.IssueStats{}
		m.Pulls = core.PullStats{}

		h := engine.Calculate(m, scoredAt)
		// Only the commit tier can contribute.
		assert.Equal(t, 50, h.Scores.Activity)
		assert.Equal(t, 0, h.Scores.Maintenance)
	})

	t.Run("PartialDocumentation", func(t *testing.T) {
		m := abandonedFixture()
		m.Docs.Readme = true
		m.Docs.Changelog = true

		h := engine.Calculate(m, scoredAt)
		assert.Equal(t, 45, h.Scores.Documentation)
		assert.NotContains(t, h.Recommendations, "Add a README to introduce the project")
		assert.Contains(t, h.Recommendations, "Add a LICENSE so consumers know their rights")
	})
}

func TestInsights(t *testing.T) {
	engine := New(DefaultPolicy())

	t.Run("GrowingTrend", func(t *testing.T) {
		m := abandonedFixture()
		m.CommitActivity = append(weeklySeries(4, 10), weeklySeries(4, 40)...)

		h := engine.Calculate(m, scoredAt)
		assert.Equal(t, "growing", h.Insights.GrowthTrend)
	})

	t.Run("DecliningTrend", func(t *testing.T) {
		m := abandonedFixture()
		m.CommitActivity = append(weeklySeries(4, 40), weeklySeries(4, 10)...)

		h := engine.Calculate(m, scoredAt)
		assert.Equal(t, "declining", h.Insights.GrowthTrend)
	})

	t.Run("ShortSeriesIsStable", func(t *testing.T) {
		m := abandonedFixture()
		m.CommitActivity = weeklySeries(3, 30)

		h := engine.Calculate(m, scoredAt)
		assert.Equal(t, "stable", h.Insights.GrowthTrend)
	})

	t.Run("TopContributorShare", func(t *testing.T) {
		m := abandonedFixture()
		m.Contributors = []core.Contributor{
			{Login: "a", Contributions: 75},
			{Login: "b", Contributions: 25},
		}

		h := engine.Calculate(m, scoredAt)
		assert.InDelta(t, 0.75, h.Insights.TopContributorShare, 0.0001)
	})
}
