package domain

import "time"

// JobStatus enumerates job lifecycle states. Transitions are strictly
// forward-moving: queued -> processing -> complete|error.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusComplete   JobStatus = "complete"
	JobStatusError      JobStatus = "error"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusComplete || s == JobStatusError
}

// Job tracks one report-generation attempt. It is created queued by the
// dispatch handler, mutated only by the report worker, and read by the
// polling client until a terminal state is delivered.
type Job struct {
	ID          string    `json:"id"`
	Status      JobStatus `json:"status"`
	QueuedAt    time.Time `json:"queued_at"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	ReportID    string    `json:"report_id,omitempty"`
	ReportHTML  string    `json:"report_html,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// JobRequest is the payload handed from the dispatcher to the worker over
// the pending queue. Sessions and jobs are linked only by the session id
// carried here; there is no foreign-key enforcement.
type JobRequest struct {
	JobID           string `json:"job_id"`
	SessionID       string `json:"session_id"`
	PaymentIntentID string `json:"payment_intent_id"`
}
