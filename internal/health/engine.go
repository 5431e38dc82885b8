package health

import (
	"fmt"
	"math"
	"time"

	"repopulse/internal/core"
)

// Engine computes health scores. Calculate is a pure function of its
// inputs: identical metrics and timestamp always produce identical output.
type Engine struct {
	policy Policy
}

// New creates an Engine with the given policy.
func New(policy Policy) *Engine {
	return &Engine{policy: policy}
}

// Calculate derives the health score for the given metrics. The caller
// supplies the timestamp so the computation itself stays clock-free.
func (e *Engine) Calculate(m *core.ProjectMetrics, at time.Time) *core.ProjectHealth {
	scores := core.DimensionScores{
		Activity:      e.activityScore(m),
		Community:     e.communityScore(m),
		Maintenance:   e.maintenanceScore(m),
		Documentation: e.documentationScore(m),
	}

	w := e.policy.Weights
	overall := float64(scores.Activity)*w.Activity +
		float64(scores.Community)*w.Community +
		float64(scores.Maintenance)*w.Maintenance +
		float64(scores.Documentation)*w.Documentation

	return &core.ProjectHealth{
		OverallScore:    clamp(int(math.Round(overall))),
		Scores:          scores,
		Recommendations: e.recommendations(m, scores),
		Insights:        insights(m),
		CalculatedAt:    at,
	}
}

// activityScore combines recent commit volume with issue-close and PR-merge
// responsiveness, capped at 100.
func (e *Engine) activityScore(m *core.ProjectMetrics) int {
	p := e.policy.Activity
	score := minPoints(p.CommitTiers, float64(recentCommits(m, p.RecentWeeks)))
	if m.Issues.Closed > 0 {
		score += maxPoints(p.IssueCloseTiers, m.Issues.AvgCloseDays)
	}
	if m.Pulls.Merged > 0 {
		score += maxPoints(p.PullMergeTiers, m.Pulls.AvgMergeDays)
	}
	return clamp(score)
}

// communityScore combines contributor breadth with an ownership
// concentration bonus: the smaller the top contributor's share, the more
// points.
func (e *Engine) communityScore(m *core.ProjectMetrics) int {
	p := e.policy.Community
	score := minPoints(p.ContributorTiers, float64(len(m.Contributors)))
	if share, ok := topContributorShare(m); ok {
		score += maxPoints(p.ConcentrationTiers, share)
	}
	return clamp(score)
}

// maintenanceScore splits evenly between the issue-close ratio and the
// PR-merge ratio.
func (e *Engine) maintenanceScore(m *core.ProjectMetrics) int {
	p := e.policy.Maintenance
	score := 0
	if m.Issues.Total > 0 {
		score += minPoints(p.CloseRatioTiers, float64(m.Issues.Closed)/float64(m.Issues.Total))
	}
	if m.Pulls.Total > 0 {
		score += minPoints(p.MergeRatioTiers, float64(m.Pulls.Merged)/float64(m.Pulls.Total))
	}
	return clamp(score)
}

// documentationScore is flat additive credit per present artifact.
func (e *Engine) documentationScore(m *core.ProjectMetrics) int {
	p := e.policy.Documentation
	score := 0
	if m.Docs.Readme {
		score += p.Readme
	}
	if m.Docs.License {
		score += p.License
	}
	if m.Docs.Contributing {
		score += p.Contributing
	}
	if m.Docs.Changelog {
		score += p.Changelog
	}
	if m.Docs.CodeOfConduct {
		score += p.CodeOfConduct
	}
	return clamp(score)
}

// recommendations emits one advisory per dimension scoring below the
// threshold. For documentation it names every missing artifact.
func (e *Engine) recommendations(m *core.ProjectMetrics, scores core.DimensionScores) []string {
	threshold := e.policy.RecommendBelow
	var recs []string

	if scores.Activity < threshold {
		switch {
		case recentCommits(m, e.policy.Activity.RecentWeeks) < 5:
			recs = append(recs, "Increase commit activity: few commits landed in the last quarter")
		case m.Issues.Closed > 0 && m.Issues.AvgCloseDays > 14:
			recs = append(recs, fmt.Sprintf("Respond to issues faster: issues take %.0f days to close on average", m.Issues.AvgCloseDays))
		default:
			recs = append(recs, "Merge pull requests faster to keep the project moving")
		}
	}
	if scores.Community < threshold {
		if share, ok := topContributorShare(m); ok && share > 0.5 {
			recs = append(recs, fmt.Sprintf("Broaden ownership: the top contributor holds %.0f%% of all contributions", share*100))
		} else {
			recs = append(recs, "Grow the contributor base: the project has few active contributors")
		}
	}
	if scores.Maintenance < threshold {
		recs = append(recs, "Triage the backlog: too many issues and pull requests stay open")
	}
	if scores.Documentation < threshold {
		if !m.Docs.Readme {
			recs = append(recs, "Add a README to introduce the project")
		}
		if !m.Docs.License {
			recs = append(recs, "Add a LICENSE so consumers know their rights")
		}
		if !m.Docs.Contributing {
			recs = append(recs, "Add a CONTRIBUTING guide for new contributors")
		}
		if !m.Docs.Changelog {
			recs = append(recs, "Add a CHANGELOG to track releases")
		}
		if !m.Docs.CodeOfConduct {
			recs = append(recs, "Add a CODE_OF_CONDUCT to set community expectations")
		}
	}
	return recs
}

// insights derives the labeled estimates from real inputs only; there is no
// randomness anywhere in scoring.
func insights(m *core.ProjectMetrics) core.HealthInsights {
	out := core.HealthInsights{GrowthTrend: "stable"}

	// Compare the most recent four weeks of commits with the four before.
	n := len(m.CommitActivity)
	if n >= 8 {
		recent := sumCommits(m.CommitActivity[n-4:])
		prior := sumCommits(m.CommitActivity[n-8 : n-4])
		switch {
		case recent > prior+prior/5:
			out.GrowthTrend = "growing"
		case prior > recent+recent/5:
			out.GrowthTrend = "declining"
		}
	}

	if share, ok := topContributorShare(m); ok {
		out.TopContributorShare = math.Round(share*1000) / 1000
	}
	return out
}

func recentCommits(m *core.ProjectMetrics, weeks int) int {
	series := m.CommitActivity
	if weeks > 0 && len(series) > weeks {
		series = series[len(series)-weeks:]
	}
	return sumCommits(series)
}

func sumCommits(weeks []core.WeeklyCommits) int {
	total := 0
	for _, w := range weeks {
		total += w.Total
	}
	return total
}

// topContributorShare returns the top contributor's fraction of all
// contributions. ok is false when there are no contributions to divide.
func topContributorShare(m *core.ProjectMetrics) (float64, bool) {
	total, top := 0, 0
	for _, c := range m.Contributors {
		total += c.Contributions
		if c.Contributions > top {
			top = c.Contributions
		}
	}
	if total == 0 {
		return 0, false
	}
	return float64(top) / float64(total), true
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
