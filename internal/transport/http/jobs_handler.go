package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "dealpulse/internal/errors"
	"dealpulse/internal/jobs"
	api "dealpulse/pkg/contracts/api/v1"
	"dealpulse/pkg/contracts/domain"
)

// JobsHandler serves the async job endpoints.
type JobsHandler struct {
	queue        *jobs.Queue
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewJobsHandler creates the handler.
func NewJobsHandler(queue *jobs.Queue, logger *slog.Logger) *JobsHandler {
	return &JobsHandler{
		queue:        queue,
		logger:       logger,
		errorHandler: apierrors.NewErrorHandler(logger, false),
	}
}

// RegisterRoutes registers the job routes.
func (h *JobsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/jobs", func(r chi.Router) {
		r.Post("/sensitivity", h.EnqueueSensitivity)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Delete("/{id}", h.Cancel)
	})
}

// EnqueueSensitivity submits an asynchronous sensitivity sweep and
// returns 202 with the pending job. Progress streams over the websocket.
func (h *JobsHandler) EnqueueSensitivity(w http.ResponseWriter, r *http.Request) {
	var req api.SensitivityJobRequest
	if !decodeJSON(w, r, h.errorHandler, &req) {
		return
	}
	if len(req.Deal) == 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("deal", "deal payload is required"))
		return
	}

	payload, err := jobPayload(req)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	job := &domain.Job{
		Type:     domain.JobTypeSensitivity,
		DealName: dealName(req.Deal),
		Payload:  payload,
	}
	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, job)
}

// Get returns one job, including its result once completed.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.queue.GetJob(chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, job)
}

// List returns jobs filtered by status, newest first, with queue stats.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	var req api.JobListRequest
	req.Status = r.URL.Query().Get("status")
	if req.Status != "" && !validJobStatus(req.Status) {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("status",
			"must be one of: pending, running, completed, failed, cancelled"))
		return
	}

	list := h.queue.ListJobs(domain.JobFilter{Status: domain.JobStatus(req.Status)})
	render.JSON(w, r, list)
}

// Cancel stops a pending or running job.
func (h *JobsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.queue.CancelJob(id); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "job cancelled over API", slog.String("job_id", id))
	render.JSON(w, r, map[string]string{"id": id, "status": string(domain.JobStatusCancelled)})
}

func jobPayload(req api.SensitivityJobRequest) (json.RawMessage, error) {
	return json.Marshal(req)
}

// dealName pulls the optional name out of a raw deal payload for job
// labelling.
func dealName(raw json.RawMessage) string {
	var probe struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(raw, &probe)
	return probe.Name
}

func validJobStatus(s string) bool {
	switch domain.JobStatus(s) {
	case domain.JobStatusPending, domain.JobStatusRunning, domain.JobStatusCompleted,
		domain.JobStatusFailed, domain.JobStatusCancelled:
		return true
	}
	return false
}
