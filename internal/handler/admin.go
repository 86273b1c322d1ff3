package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/lingua/internal/auth"
	"github.com/DukeRupert/lingua/internal/domain"
	"github.com/DukeRupert/lingua/internal/worker"
	"github.com/google/uuid"
)

// JobRunner queues a one-off run of a background job.
// *worker.Worker satisfies it.
type JobRunner interface {
	RunNow(ctx context.Context, jobType string) (uuid.UUID, error)
}

// AdminHandler serves the admin API.
//
// Routes (wrap with RequireUser and RequireAdmin):
//   - POST /api/admin/jobs/{type}
type AdminHandler struct {
	jobs   JobRunner
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(jobs JobRunner, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{jobs: jobs, logger: logger}
}

type runJobResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId"`
	JobType string `json:"jobType"`
}

// RunJob queues a maintenance job such as purge_expired_sessions and
// answers 202 without waiting for it.
func (h *AdminHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	const op = "AdminHandler.RunJob"

	jobType := r.PathValue("type")
	id, err := h.jobs.RunNow(r.Context(), jobType)
	if err != nil {
		if errors.Is(err, worker.ErrUnknownJobType) {
			ErrorResponse(w, r, h.logger, domain.Errorf(domain.ENOTFOUND, op, "Unknown job type"))
			return
		}
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to queue job"))
		return
	}

	attrs := []any{"job_id", id, "job_type", jobType}
	if user := auth.GetUser(r.Context()); user != nil {
		attrs = append(attrs, "admin_id", user.ID)
	}
	h.logger.Info("admin triggered job", attrs...)

	writeJSON(w, http.StatusAccepted, runJobResponse{Success: true, JobID: id.String(), JobType: jobType})
}
