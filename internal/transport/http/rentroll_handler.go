package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"dealpulse/internal/config"
	apierrors "dealpulse/internal/errors"
	"dealpulse/internal/services"
)

// rentRollFormField is the multipart field carrying the workbook.
const rentRollFormField = "file"

// RentRollHandler serves the rent-roll intake endpoint.
type RentRollHandler struct {
	service      *services.RentRollService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewRentRollHandler creates the handler.
func NewRentRollHandler(service *services.RentRollService, logger *slog.Logger) *RentRollHandler {
	return &RentRollHandler{
		service:      service,
		logger:       logger,
		errorHandler: apierrors.NewErrorHandler(logger, false),
	}
}

// RegisterRoutes registers the rent-roll routes.
func (h *RentRollHandler) RegisterRoutes(r chi.Router) {
	r.Route("/rentroll", func(r chi.Router) {
		r.Post("/parse", h.Parse)
	})
}

// Parse accepts a multipart xlsx upload and returns the parsed units,
// summary, and income suggestions.
func (h *RentRollHandler) Parse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBytes)

	if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusBadRequest,
			"INVALID_UPLOAD",
			"Request must be multipart/form-data with a workbook file",
			err.Error(),
		))
		return
	}

	file, header, err := r.FormFile(rentRollFormField)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(rentRollFormField, "workbook file is required"))
		return
	}
	defer file.Close()

	roll, err := h.service.ParseUpload(r.Context(), file, header.Filename, header.Size)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "rent roll upload parsed",
		slog.String("filename", header.Filename),
		slog.Int("units", roll.Summary.UnitCount))

	render.JSON(w, r, roll)
}
