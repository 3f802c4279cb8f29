package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealpulse/internal/services"
	"dealpulse/pkg/contracts"
)

func newHealthRouter(t *testing.T) *chi.Mux {
	t.Helper()

	svc := services.NewHealthService(nil, nil, nil, nil, slog.Default())
	handler := NewHealthHandler(svc, slog.Default())

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func getPath(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	router := newHealthRouter(t)

	t.Run("health", func(t *testing.T) {
		rec := getPath(t, router, "/health")
		require.Equal(t, http.StatusOK, rec.Code)

		var status services.HealthStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, "healthy", status.Status)
		assert.Equal(t, "disabled", status.Checks["store"])
	})

	t.Run("liveness", func(t *testing.T) {
		rec := getPath(t, router, "/health/live")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("readiness", func(t *testing.T) {
		rec := getPath(t, router, "/health/ready")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("version", func(t *testing.T) {
		rec := getPath(t, router, "/version")
		require.Equal(t, http.StatusOK, rec.Code)

		var info contracts.VersionInfo
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
		assert.Equal(t, contracts.Version, info.Version)
	})
}
