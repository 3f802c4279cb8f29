package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"dealpulse/internal/rentroll"
	"dealpulse/internal/services"
	"dealpulse/internal/validation"
	"dealpulse/pkg/contracts/domain"
)

func newRentRollRouter(t *testing.T) *chi.Mux {
	t.Helper()

	svc := services.NewRentRollService(
		rentroll.NewParser(slog.Default()),
		validation.NewFileValidator(slog.Default()),
		nil,
		slog.Default(),
	)
	handler := NewRentRollHandler(svc, slog.Default())

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func workbookUpload(t *testing.T, field, filename string) (*bytes.Buffer, string) {
	t.Helper()

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), "Rent Roll"))
	rows := [][]interface{}{
		{"Unit", "Status", "Market Rent", "Current Rent"},
		{"101", "Occupied", 1200, 1150},
		{"102", "Vacant", 1250, nil},
	}
	for r, row := range rows {
		for c, val := range row {
			if val == nil {
				continue
			}
			cellName, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Rent Roll", cellName, val))
		}
	}

	var workbook bytes.Buffer
	require.NoError(t, f.Write(&workbook))
	require.NoError(t, f.Close())

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(workbook.Bytes())
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &body, writer.FormDataContentType()
}

func TestRentRollParseEndpoint(t *testing.T) {
	router := newRentRollRouter(t)

	t.Run("parses upload", func(t *testing.T) {
		body, contentType := workbookUpload(t, "file", "roll.xlsx")

		req := httptest.NewRequest(http.MethodPost, "/rentroll/parse", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var roll domain.RentRoll
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &roll))
		assert.Equal(t, 2, roll.Summary.UnitCount)
		assert.Equal(t, "roll.xlsx", roll.Filename)
		assert.NotEmpty(t, roll.Suggestions)
	})

	t.Run("missing file field", func(t *testing.T) {
		body, contentType := workbookUpload(t, "wrong_field", "roll.xlsx")

		req := httptest.NewRequest(http.MethodPost, "/rentroll/parse", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		rec := postJSON(t, router, "/rentroll/parse", []byte(`{}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
