package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealpulse/internal/dealstore"
	"dealpulse/internal/services"
	"dealpulse/internal/underwriting"
	"dealpulse/pkg/contracts/domain"
)

func newDealsRouter(t *testing.T, store *dealstore.Store) *chi.Mux {
	t.Helper()

	deals := services.NewDealService(store, slog.Default())
	uw := services.NewUnderwritingService(underwriting.NewCalculator(slog.Default()), nil, slog.Default())
	handler := NewDealsHandler(deals, uw, slog.Default())

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	handler.RegisterWriteRoutes(r)
	return r
}

func TestDealsWithoutStore(t *testing.T) {
	router := newDealsRouter(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"list", http.MethodGet, "/deals"},
		{"get", http.MethodGet, "/deals/0f0e0d0c-0b0a-0908-0706-050403020100"},
		{"delete", http.MethodDelete, "/deals/0f0e0d0c-0b0a-0908-0706-050403020100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		})
	}
}

func TestSaveDeal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := dealstore.NewWithPool(mock, "deals", slog.Default())
	require.NoError(t, err)
	router := newDealsRouter(t, store)

	dealJSON, err := json.Marshal(underwriting.DefaultDealInput())
	require.NoError(t, err)

	t.Run("creates deal", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO deals").
			WithArgs(pgxmock.AnyArg(), "Maple Court", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		body, err := json.Marshal(map[string]any{
			"name": "Maple Court",
			"deal": json.RawMessage(dealJSON),
		})
		require.NoError(t, err)

		rec := postJSON(t, router, "/deals", body)
		require.Equal(t, http.StatusCreated, rec.Code)

		var saved domain.DealRecord
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
		assert.NotEmpty(t, saved.ID)
		assert.Equal(t, "Maple Court", saved.Name)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects missing name", func(t *testing.T) {
		body, err := json.Marshal(map[string]any{"deal": json.RawMessage(dealJSON)})
		require.NoError(t, err)

		rec := postJSON(t, router, "/deals", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetDealResultAbsent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := dealstore.NewWithPool(mock, "deals", slog.Default())
	require.NoError(t, err)
	router := newDealsRouter(t, store)

	id := "0f0e0d0c-0b0a-0908-0706-050403020100"

	t.Run("deal without result answers 404", func(t *testing.T) {
		mock.ExpectQuery("SELECT deal_id, result").WithArgs(id).WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery("SELECT EXISTS").WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		rec := getPath(t, router, "/deals/"+id+"/result")
		require.Equal(t, http.StatusNotFound, rec.Code)

		var problem map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
		assert.Equal(t, "/errors/deal/result-not-found", problem["type"])
	})

	t.Run("unknown deal answers 404", func(t *testing.T) {
		mock.ExpectQuery("SELECT deal_id, result").WithArgs(id).WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery("SELECT EXISTS").WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

		rec := getPath(t, router, "/deals/"+id+"/result")
		require.Equal(t, http.StatusNotFound, rec.Code)

		var problem map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
		assert.Equal(t, "/errors/deal/not-found", problem["type"])
	})
}
