package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "dealpulse/internal/errors"
	"dealpulse/internal/services"
	api "dealpulse/pkg/contracts/api/v1"
)

// maxDealBodyBytes caps synchronous underwriting request bodies.
const maxDealBodyBytes = 1 << 20 // 1MB

// UnderwritingHandler serves the synchronous engine endpoints.
type UnderwritingHandler struct {
	service      *services.UnderwritingService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewUnderwritingHandler creates the handler.
func NewUnderwritingHandler(service *services.UnderwritingService, logger *slog.Logger) *UnderwritingHandler {
	return &UnderwritingHandler{
		service:      service,
		logger:       logger,
		errorHandler: apierrors.NewErrorHandler(logger, false),
	}
}

// RegisterRoutes registers the underwriting routes.
func (h *UnderwritingHandler) RegisterRoutes(r chi.Router) {
	r.Route("/underwrite", func(r chi.Router) {
		r.Post("/", h.Underwrite)
		r.Post("/sensitivity", h.Sensitivity)
	})
}

// Underwrite runs one deal through the engine and returns the full
// projection with a recommendation.
func (h *UnderwritingHandler) Underwrite(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeUnderwriteRequest(w, r)
	if !ok {
		return
	}

	report, err := h.service.Underwrite(r.Context(), req.Name, req.Deal)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, report)
}

// Sensitivity runs the perturbation sweep synchronously. Large grids
// belong on the job queue; this endpoint shares the request timeout.
func (h *UnderwritingHandler) Sensitivity(w http.ResponseWriter, r *http.Request) {
	var req api.SensitivityJobRequest
	if !decodeJSON(w, r, h.errorHandler, &req) {
		return
	}
	if len(req.Deal) == 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("deal", "deal payload is required"))
		return
	}

	result, err := h.service.RunSensitivity(r.Context(), req.Deal, req.Config)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, result)
}

// decodeUnderwriteRequest accepts either the envelope form {name, deal}
// or a bare engine payload for convenience.
func (h *UnderwritingHandler) decodeUnderwriteRequest(w http.ResponseWriter, r *http.Request) (*api.UnderwriteRequest, bool) {
	body := http.MaxBytesReader(w, r.Body, maxDealBodyBytes)

	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return nil, false
	}

	var req api.UnderwriteRequest
	if err := json.Unmarshal(raw, &req); err == nil && len(req.Deal) > 0 {
		return &req, true
	}

	// Bare payload: the body is the deal itself.
	return &api.UnderwriteRequest{Deal: raw}, true
}

// decodeJSON decodes a bounded JSON body into v, rendering a problem on
// failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, eh *apierrors.ErrorHandler, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxDealBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		eh.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return false
	}
	return true
}
