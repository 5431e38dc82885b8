package core

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineError(t *testing.T) {
	t.Run("QuotaExceededCarriesResetTime", func(t *testing.T) {
		reset := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		err := NewQuotaExceededError(reset)

		require.Equal(t, KindQuotaExceeded, err.Kind)
		assert.Equal(t, reset, err.ResetAt)
		assert.Contains(t, err.Error(), "2026-03-01T12:00:00Z")
		assert.False(t, err.Retryable())
	})

	t.Run("NetworkFailureIsRetryable", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := NewNetworkError(cause)

		assert.True(t, err.Retryable())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("HTTPStatusMapping", func(t *testing.T) {
		cases := []struct {
			err  *PipelineError
			want int
		}{
			{NewUnauthorizedError("bad token"), http.StatusUnauthorized},
			{NewQuotaExceededError(time.Now()), http.StatusTooManyRequests},
			{NewForbiddenError("denied"), http.StatusForbidden},
			{NewNotFoundError("repo octocat/missing"), http.StatusNotFound},
			{NewNetworkError(errors.New("timeout")), http.StatusBadGateway},
			{NewUpstreamError(500, "boom"), http.StatusBadGateway},
		}
		for _, tc := range cases {
			assert.Equal(t, tc.want, tc.err.HTTPStatusCode(), tc.err.Kind)
		}
	})

	t.Run("IsKind", func(t *testing.T) {
		wrapped := NewPartialDataError("contributors", errors.New("boom"))
		assert.True(t, IsKind(wrapped, KindPartialData))
		assert.False(t, IsKind(wrapped, KindNotFound))
		assert.False(t, IsKind(errors.New("plain"), KindPartialData))
	})

	t.Run("AsPipelineErrorThroughWrap", func(t *testing.T) {
		inner := NewNotFoundError("repo a/b")
		outer := errors.Join(errors.New("context"), inner)

		pe, ok := AsPipelineError(outer)
		require.True(t, ok)
		assert.Equal(t, KindNotFound, pe.Kind)
	})
}
