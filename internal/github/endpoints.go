package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"repopulse/internal/core"
)

const perPage = "100"

// GetRepository fetches the repository metadata.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*core.Repository, error) {
	body, _, err := c.get(ctx, fmt.Sprintf("/repos/%s/%s", owner, repo), nil)
	if err != nil {
		return nil, err
	}
	r := gjson.ParseBytes(body)
	return &core.Repository{
		Owner:         owner,
		Name:          repo,
		FullName:      r.Get("full_name").String(),
		Description:   r.Get("description").String(),
		Stars:         int(r.Get("stargazers_count").Int()),
		Forks:         int(r.Get("forks_count").Int()),
		OpenIssues:    int(r.Get("open_issues_count").Int()),
		Language:      r.Get("language").String(),
		DefaultBranch: r.Get("default_branch").String(),
		Archived:      r.Get("archived").Bool(),
		CreatedAt:     r.Get("created_at").Time(),
		PushedAt:      r.Get("pushed_at").Time(),
	}, nil
}

// ListContributors fetches up to one page of contributors, ordered by
// contribution count as the upstream returns them.
func (c *Client) ListContributors(ctx context.Context, owner, repo string) ([]core.Contributor, error) {
	q := url.Values{"per_page": {perPage}}
	body, _, err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/contributors", owner, repo), q)
	if err != nil {
		return nil, err
	}
	var out []core.Contributor
	gjson.ParseBytes(body).ForEach(func(_, v gjson.Result) bool {
		out = append(out, core.Contributor{
			Login:         v.Get("login").String(),
			Contributions: int(v.Get("contributions").Int()),
		})
		return true
	})
	return out, nil
}

// CommitActivity fetches the weekly commit counts for the past year. The
// upstream answers 202 while it is still computing the statistics; that is
// returned as an empty series, not an error.
func (c *Client) CommitActivity(ctx context.Context, owner, repo string) ([]core.WeeklyCommits, error) {
	body, status, err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/stats/commit_activity", owner, repo), nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusAccepted {
		return nil, nil
	}
	var out []core.WeeklyCommits
	gjson.ParseBytes(body).ForEach(func(_, v gjson.Result) bool {
		out = append(out, core.WeeklyCommits{
			WeekStart: time.Unix(v.Get("week").Int(), 0).UTC(),
			Total:     int(v.Get("total").Int()),
		})
		return true
	})
	return out, nil
}

// IssueStats fetches up to one page of issues (newest first) and aggregates
// totals and the mean close time. Pull requests share the issues endpoint
// upstream and are filtered out.
func (c *Client) IssueStats(ctx context.Context, owner, repo string) (core.IssueStats, error) {
	q := url.Values{"state": {"all"}, "per_page": {perPage}}
	body, _, err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/issues", owner, repo), q)
	if err != nil {
		return core.IssueStats{}, err
	}

	var stats core.IssueStats
	var closeDays float64
	gjson.ParseBytes(body).ForEach(func(_, v gjson.Result) bool {
		if v.Get("pull_request").Exists() {
			return true
		}
		stats.Total++
		if v.Get("state").String() == "closed" {
			stats.Closed++
			closeDays += daysBetween(v.Get("created_at").Time(), v.Get("closed_at").Time())
		}
		return true
	})
	if stats.Closed > 0 {
		stats.AvgCloseDays = closeDays / float64(stats.Closed)
	}
	return stats, nil
}

// PullStats fetches up to one page of pull requests (newest first) and
// aggregates totals and the mean merge time.
func (c *Client) PullStats(ctx context.Context, owner, repo string) (core.PullStats, error) {
	q := url.Values{"state": {"all"}, "per_page": {perPage}}
	body, _, err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/pulls", owner, repo), q)
	if err != nil {
		return core.PullStats{}, err
	}

	var stats core.PullStats
	var mergeDays float64
	gjson.ParseBytes(body).ForEach(func(_, v gjson.Result) bool {
		stats.Total++
		if merged := v.Get("merged_at"); merged.Exists() && merged.Type != gjson.Null {
			stats.Merged++
			mergeDays += daysBetween(v.Get("created_at").Time(), merged.Time())
		}
		return true
	})
	if stats.Merged > 0 {
		stats.AvgMergeDays = mergeDays / float64(stats.Merged)
	}
	return stats, nil
}

// FileExists checks whether a file is present in the repository root.
// A missing file is a normal answer, not an error.
func (c *Client) FileExists(ctx context.Context, owner, repo, path string) (bool, error) {
	_, _, err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, strings.TrimPrefix(path, "/")), nil)
	if err != nil {
		if core.IsKind(err, core.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func daysBetween(from, to time.Time) float64 {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return 0
	}
	return to.Sub(from).Hours() / 24
}
