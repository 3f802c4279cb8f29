package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealpulse/internal/services"
	"dealpulse/internal/underwriting"
)

func newUnderwritingRouter(t *testing.T) *chi.Mux {
	t.Helper()

	svc := services.NewUnderwritingService(underwriting.NewCalculator(slog.Default()), nil, slog.Default())
	handler := NewUnderwritingHandler(svc, slog.Default())

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func defaultDealBody(t *testing.T) []byte {
	t.Helper()
	data, err := json.Marshal(underwriting.DefaultDealInput())
	require.NoError(t, err)
	return data
}

func TestUnderwriteEndpoint(t *testing.T) {
	router := newUnderwritingRouter(t)

	t.Run("envelope request", func(t *testing.T) {
		body, err := json.Marshal(map[string]any{
			"name": "Maple Court",
			"deal": json.RawMessage(defaultDealBody(t)),
		})
		require.NoError(t, err)

		rec := postJSON(t, router, "/underwrite", body)
		require.Equal(t, http.StatusOK, rec.Code)

		var report services.UnderwriteReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Equal(t, "Maple Court", report.Result.DealName)
		assert.NotEmpty(t, report.Recommendation.Action)
	})

	t.Run("bare deal payload", func(t *testing.T) {
		rec := postJSON(t, router, "/underwrite", defaultDealBody(t))
		require.Equal(t, http.StatusOK, rec.Code)

		var report services.UnderwriteReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.True(t, report.Result.Metrics.IRRSolved)
	})

	t.Run("malformed body renders problem", func(t *testing.T) {
		rec := postJSON(t, router, "/underwrite", []byte(`{"deal":`))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var problem map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
		assert.Equal(t, float64(http.StatusBadRequest), problem["status"])
		assert.Contains(t, problem, "type")
	})

	t.Run("invalid assumptions map to 422", func(t *testing.T) {
		input := underwriting.DefaultDealInput()
		input.Acquisition.ExitCapRate = 0.5
		body, err := json.Marshal(input)
		require.NoError(t, err)

		rec := postJSON(t, router, "/underwrite", body)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestSensitivityEndpoint(t *testing.T) {
	router := newUnderwritingRouter(t)

	t.Run("default spreads", func(t *testing.T) {
		body, err := json.Marshal(map[string]any{
			"deal": json.RawMessage(defaultDealBody(t)),
		})
		require.NoError(t, err)

		rec := postJSON(t, router, "/underwrite/sensitivity", body)
		require.Equal(t, http.StatusOK, rec.Code)

		var result underwriting.SensitivityResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Len(t, result.Grid, 5)
	})

	t.Run("missing deal", func(t *testing.T) {
		rec := postJSON(t, router, "/underwrite/sensitivity", []byte(`{}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
