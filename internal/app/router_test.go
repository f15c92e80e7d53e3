package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/shelfboard/internal/observability"
)

func TestHealthzReportsDependencies(t *testing.T) {
	cases := []struct {
		name   string
		redis  HealthCheck
		status int
		want   map[string]string
	}{
		{
			name:   "ok",
			redis:  func(context.Context) error { return nil },
			status: http.StatusOK,
			want:   map[string]string{"status": "ok", "postgres": "up", "redis": "up"},
		},
		{
			name:   "degraded",
			redis:  func(context.Context) error { return errors.New("connection refused") },
			status: http.StatusServiceUnavailable,
			want:   map[string]string{"status": "degraded", "postgres": "up", "redis": "down"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := NewRouter(RouterParams{
				Config: &Config{},
				HealthChecks: map[string]HealthCheck{
					"postgres": func(context.Context) error { return nil },
					"redis":    tc.redis,
				},
			})
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			require.Equal(t, tc.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, tc.want, body)
		})
	}
}

func TestRouterSetsSecurityHeaders(t *testing.T) {
	router := NewRouter(RouterParams{Config: &Config{}})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRouterExposesMetrics(t *testing.T) {
	metrics := observability.NewMetrics()
	metrics.ObserveMove(true)
	router := NewRouter(RouterParams{Config: &Config{}, Metrics: metrics})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `shelfboard_layout_moves_total{result="applied"} 1`)
}
