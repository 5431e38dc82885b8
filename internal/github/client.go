// Package github is the fetcher for the GitHub REST API. Every call routes
// through the request queue, and every response feeds its rate-limit
// metadata back into the quota tracker, success or failure.
package github

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"repopulse/internal/core"
	"repopulse/internal/httpclient"
	"repopulse/internal/observability"
	"repopulse/internal/queue"
	"repopulse/internal/quota"
)

const (
	// DefaultBaseURL is the public GitHub REST API endpoint.
	DefaultBaseURL = "https://api.github.com"

	acceptHeader = "application/vnd.github+json"
	apiVersion   = "2022-11-28"

	// maxBodySize caps how much of a response body is read.
	maxBodySize = 5 * 1024 * 1024
)

// Config holds the fetcher configuration.
type Config struct {
	// BaseURL overrides the API endpoint, used by tests.
	BaseURL string
	// Token is the optional bearer credential. Without it the upstream
	// grants a much smaller quota.
	Token string
	// HTTPClient overrides the transport; nil means the shared factory
	// default.
	HTTPClient *http.Client
}

// Client performs authenticated GitHub API calls through the request queue.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	queue   *queue.Queue
	tracker *quota.Tracker
	metrics *observability.Metrics
	log     *slog.Logger
}

// New creates a Client. The queue and tracker are required collaborators;
// metrics may be nil.
func New(cfg Config, q *queue.Queue, tracker *quota.Tracker, metrics *observability.Metrics, log *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = httpclient.New(nil)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		token:   cfg.Token,
		httpc:   httpc,
		queue:   q,
		tracker: tracker,
		metrics: metrics,
		log:     log.With("component", "github"),
	}
}

// Authenticated reports whether a credential is configured.
func (c *Client) Authenticated() bool {
	return c.token != ""
}

// get performs one GET through the queue and returns the body and status.
// Non-2xx statuses are returned as typed errors; 202 (stats still being
// computed upstream) is passed through to the caller.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, int, error) {
	var (
		body   []byte
		status int
	)
	err := c.queue.Submit(ctx, func() error {
		start := time.Now()
		var err error
		body, status, err = c.do(ctx, path, query)
		c.metrics.ObserveUpstreamCall(outcomeLabel(err), time.Since(start).Seconds())
		c.metrics.SetQuotaRemaining(c.tracker.Status().Remaining)
		return err
	})
	return body, status, err
}

// do executes the HTTP exchange. Runs inside the queue worker.
func (c *Client) do(ctx context.Context, path string, query url.Values) ([]byte, int, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		// No response, no quota metadata; book the attempt locally.
		c.tracker.RecordUsage()
		return nil, 0, core.NewNetworkError(err)
	}
	defer resp.Body.Close()

	meta, hasMeta := rateMeta(resp.Header)
	if hasMeta {
		c.tracker.UpdateFromUpstream(meta)
	} else {
		c.tracker.RecordUsage()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp.StatusCode, core.NewNetworkError(err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, resp.StatusCode, nil
	}
	return body, resp.StatusCode, c.classify(resp.StatusCode, meta, hasMeta, body, path)
}

// classify maps a non-2xx upstream response to the error taxonomy.
func (c *Client) classify(status int, meta quota.Meta, hasMeta bool, body []byte, path string) error {
	switch {
	case status == http.StatusUnauthorized:
		return core.NewUnauthorizedError("credential rejected by upstream")
	case status == http.StatusForbidden || status == http.StatusTooManyRequests:
		// Quota exhaustion is a 403/429 with a zero remaining header.
		if hasMeta && meta.Remaining == 0 {
			c.log.Warn("upstream quota exhausted", "reset_at", meta.ResetAt)
			return core.NewQuotaExceededError(meta.ResetAt)
		}
		return core.NewForbiddenError("access denied by upstream")
	case status == http.StatusNotFound:
		return core.NewNotFoundError(path)
	default:
		return core.NewUpstreamError(status, truncate(string(body), 200))
	}
}

// rateMeta extracts the X-RateLimit-* headers. The second return is false
// when the response carried no quota metadata.
func rateMeta(h http.Header) (quota.Meta, bool) {
	remaining := h.Get("X-RateLimit-Remaining")
	limit := h.Get("X-RateLimit-Limit")
	if remaining == "" || limit == "" {
		return quota.Meta{}, false
	}
	meta := quota.Meta{
		Remaining: atoi(remaining),
		Limit:     atoi(limit),
		Used:      atoi(h.Get("X-RateLimit-Used")),
	}
	if epoch := atoi(h.Get("X-RateLimit-Reset")); epoch > 0 {
		meta.ResetAt = time.Unix(int64(epoch), 0)
	}
	return meta, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if pe, ok := core.AsPipelineError(err); ok {
		return string(pe.Kind)
	}
	return "error"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
