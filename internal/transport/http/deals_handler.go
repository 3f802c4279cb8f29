package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "dealpulse/internal/errors"
	"dealpulse/internal/middleware"
	"dealpulse/internal/services"
	api "dealpulse/pkg/contracts/api/v1"
)

// DealsHandler serves the deal persistence endpoints. The write routes
// are token-guarded by the router when an API token is configured.
type DealsHandler struct {
	deals        *services.DealService
	underwriting *services.UnderwritingService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	validator    *middleware.ValidationMiddleware
}

// NewDealsHandler creates the handler.
func NewDealsHandler(deals *services.DealService, underwriting *services.UnderwritingService, logger *slog.Logger) *DealsHandler {
	errorHandler := apierrors.NewErrorHandler(logger, false)
	return &DealsHandler{
		deals:        deals,
		underwriting: underwriting,
		logger:       logger,
		errorHandler: errorHandler,
		validator:    middleware.NewValidationMiddleware(logger, errorHandler),
	}
}

// RegisterRoutes registers the read-only deal routes. Write routes are
// registered separately so the router can wrap them in the auth guard.
func (h *DealsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/deals", h.List)
	r.Get("/deals/{id}", h.Get)
	r.Get("/deals/{id}/result", h.GetResult)
}

// RegisterWriteRoutes registers the mutating deal routes.
func (h *DealsHandler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/deals", h.Save)
	r.Put("/deals/{id}", h.Update)
	r.Delete("/deals/{id}", h.Delete)
	r.Post("/deals/{id}/underwrite", h.UnderwriteStored)
}

// Save persists a new deal.
func (h *DealsHandler) Save(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSaveRequest(w, r)
	if !ok {
		return
	}

	rec, err := h.deals.Save(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, rec)
}

// Update replaces an existing deal's name and payload.
func (h *DealsHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSaveRequest(w, r)
	if !ok {
		return
	}

	rec, err := h.deals.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, rec)
}

// Get returns one deal with its full payload.
func (h *DealsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.deals.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, rec)
}

// List returns a page of deal summaries.
func (h *DealsHandler) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 25)

	list, err := h.deals.List(r.Context(), page, pageSize)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, list)
}

// Delete removes a deal and its stored result.
func (h *DealsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.deals.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// UnderwriteStored runs a persisted deal through the engine and stores
// the result alongside it.
func (h *DealsHandler) UnderwriteStored(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.deals.Get(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	report, err := h.underwriting.Underwrite(r.Context(), rec.Name, rec.Payload)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resultJSON, err := json.Marshal(report)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := h.deals.SaveResult(r.Context(), id, resultJSON); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, report)
}

// GetResult returns the most recent stored result for a deal.
func (h *DealsHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	rec, err := h.deals.GetResult(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, rec)
}

func (h *DealsHandler) decodeSaveRequest(w http.ResponseWriter, r *http.Request) (*api.DealSaveRequest, bool) {
	var req api.DealSaveRequest
	if !decodeJSON(w, r, h.errorHandler, &req) {
		return nil, false
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}
	return &req, true
}

// queryInt parses a positive integer query parameter, falling back to
// def on absence or garbage.
func queryInt(r *http.Request, param string, def int) int {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return def
	}
	return v
}
