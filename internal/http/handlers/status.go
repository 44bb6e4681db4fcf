package handlers

import (
	"net/http"

	"server/internal/domain"
)

// ReportStatus returns the polling view of a job. Missing records come
// back as processing, never not-found: the worker's first write races the
// first poll, and delivered terminal records are already deleted. Terminal
// records are removed right after they are delivered, making this endpoint
// the sole owner of terminal-state cleanup.
func (a *App) ReportStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}

	job, err := a.Tracker.Get(r.Context(), jobID)
	if err != nil {
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("status: load job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}

	var payload any
	switch job.Status {
	case domain.JobStatusComplete:
		payload = map[string]any{
			"status":      job.Status,
			"report_id":   job.ReportID,
			"report_html": job.ReportHTML,
		}
	case domain.JobStatusError:
		payload = map[string]any{
			"status": job.Status,
			"error":  job.Error,
		}
	default:
		payload = map[string]any{"status": job.Status}
	}

	if job.Status.Terminal() {
		if err := a.Tracker.Delete(r.Context(), jobID); err != nil {
			a.Logger.Warn().Err(err).Str("job_id", jobID).Msg("status: delete terminal job failed")
		}
	}

	a.json(w, http.StatusOK, payload)
}
