package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"repopulse/internal/core"
)

// Handler holds the HTTP handlers.
type Handler struct {
	svc core.HealthService
}

// NewHandler creates a handler backed by the given service.
func NewHandler(svc core.HealthService) *Handler {
	return &Handler{svc: svc}
}

// GetProject handles GET /api/repos/:owner/:repo. The response carries the
// repository plus a best-effort health score.
func (h *Handler) GetProject(c echo.Context) error {
	owner, repo, err := repoParams(c)
	if err != nil {
		return err
	}
	overview, err := h.svc.GetProjectWithHealth(c.Request().Context(), owner, repo)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, overview)
}

// GetMetrics handles GET /api/repos/:owner/:repo/metrics.
func (h *Handler) GetMetrics(c echo.Context) error {
	owner, repo, err := repoParams(c)
	if err != nil {
		return err
	}
	m, err := h.svc.GetMetrics(c.Request().Context(), owner, repo)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// GetHealth handles GET /api/repos/:owner/:repo/health.
func (h *Handler) GetHealth(c echo.Context) error {
	owner, repo, err := repoParams(c)
	if err != nil {
		return err
	}
	score, err := h.svc.GetHealth(c.Request().Context(), owner, repo)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, score)
}

// Refresh handles POST /api/repos/:owner/:repo/refresh. It invalidates all
// cached values for the repository and returns an upstream-fresh overview.
func (h *Handler) Refresh(c echo.Context) error {
	owner, repo, err := repoParams(c)
	if err != nil {
		return err
	}
	overview, err := h.svc.Refresh(c.Request().Context(), owner, repo)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, overview)
}

// Status handles GET /api/status.
func (h *Handler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Status())
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func repoParams(c echo.Context) (owner, repo string, err error) {
	owner, repo = c.Param("owner"), c.Param("repo")
	if owner == "" || repo == "" {
		return "", "", echo.NewHTTPError(http.StatusBadRequest, "owner and repo are required")
	}
	return owner, repo, nil
}

// handleError converts pipeline errors to HTTP responses.
func handleError(c echo.Context, err error) error {
	var pe *core.PipelineError
	if errors.As(err, &pe) {
		body := map[string]any{
			"error": map[string]any{
				"kind":    pe.Kind,
				"message": pe.Message,
			},
		}
		if pe.Kind == core.KindQuotaExceeded {
			// Surface the reset time so callers know when to come back.
			body["error"].(map[string]any)["reset_at"] = pe.ResetAt
			c.Response().Header().Set("Retry-After", pe.ResetAt.UTC().Format(http.TimeFormat))
		}
		return c.JSON(pe.HTTPStatusCode(), body)
	}

	// Fallback for unexpected errors
	return c.JSON(http.StatusInternalServerError, errorBody("internal_error", "an unexpected error occurred"))
}

func errorBody(kind, message string) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"kind":    kind,
			"message": message,
		},
	}
}
