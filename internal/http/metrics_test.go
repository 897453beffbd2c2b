package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "unmatched", normalizePath(""))
	assert.Equal(t, "/api/v1/profiles/:id", normalizePath("/api/v1/profiles/:id"))
}

func TestMetricsMiddleware_ResolvesErrorStatus(t *testing.T) {
	e := echo.New()
	m := NewHTTPMetrics(nil, nil)
	require.NotNil(t, m.requestsTotal)

	handler := m.MetricsMiddleware()(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	assert.NoError(t, handler(c))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.True(t, c.Response().Committed)
}
