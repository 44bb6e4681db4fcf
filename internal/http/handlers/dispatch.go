package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"server/internal/domain"
)

type dispatchRequest struct {
	SessionID       string `json:"session_id"`
	PaymentIntentID string `json:"payment_intent_id"`
}

type dispatchResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// DispatchReport validates that the session still exists, mints a job and
// hands it to the worker over the pending queue. The response does not
// wait for any part of the generation.
func (a *App) DispatchReport(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.SessionID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "session_id required")
		return
	}

	if _, err := a.Sessions.Get(r.Context(), req.SessionID); err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			a.error(w, http.StatusGone, "session_expired", "session expired, please upload your screenshots again")
			return
		}
		a.Logger.Error().Err(err).Str("session_id", req.SessionID).Msg("dispatch: load session failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load session")
		return
	}

	job, err := a.Tracker.Create(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("dispatch: create job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create job")
		return
	}

	if err := a.Queue.Enqueue(r.Context(), domain.JobRequest{
		JobID:           job.ID,
		SessionID:       req.SessionID,
		PaymentIntentID: req.PaymentIntentID,
	}); err != nil {
		a.Logger.Error().Err(err).Str("job_id", job.ID).Msg("dispatch: enqueue failed")
		_ = a.Tracker.Delete(r.Context(), job.ID)
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue job")
		return
	}

	a.json(w, http.StatusAccepted, dispatchResponse{JobID: job.ID, Status: "processing"})
}
