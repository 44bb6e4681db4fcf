package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/store"
)

// Tracker owns job records in the ephemeral store. The dispatcher creates
// a job queued, the worker is the only mutator, and the polling endpoint
// is the only deleter of terminal records. Every record carries the TTL as
// a backstop for clients that stop polling.
type Tracker struct {
	store store.Store
	ttl   time.Duration
}

func NewTracker(s store.Store, ttl time.Duration) *Tracker {
	return &Tracker{store: s, ttl: ttl}
}

func jobKey(jobID string) string {
	return "job:" + jobID
}

// Create mints a job id and writes the queued record.
func (t *Tracker) Create(ctx context.Context) (*domain.Job, error) {
	job := &domain.Job{
		ID:       uuid.NewString(),
		Status:   domain.JobStatusQueued,
		QueuedAt: time.Now().UTC(),
	}
	if err := t.write(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Get loads a job record. A missing record is reported as a synthetic
// processing state rather than not-found: the worker's first write races
// the client's first poll, and a terminal record may already have been
// delivered and deleted. Neither case is client-distinguishable.
func (t *Tracker) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	data, err := t.store.Get(ctx, jobKey(jobID))
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.Job{ID: jobID, Status: domain.JobStatusProcessing}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	var job domain.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

// MarkProcessing moves the job out of queued and records the start time.
func (t *Tracker) MarkProcessing(ctx context.Context, job *domain.Job) error {
	job.Status = domain.JobStatusProcessing
	job.StartedAt = time.Now().UTC()
	return t.write(ctx, job)
}

// Complete records the terminal success state with the report payload.
func (t *Tracker) Complete(ctx context.Context, job *domain.Job, reportID, reportHTML string) error {
	job.Status = domain.JobStatusComplete
	job.CompletedAt = time.Now().UTC()
	job.ReportID = reportID
	job.ReportHTML = reportHTML
	job.Error = ""
	return t.write(ctx, job)
}

// Fail records the terminal error state with a human-readable message.
func (t *Tracker) Fail(ctx context.Context, job *domain.Job, message string) error {
	job.Status = domain.JobStatusError
	job.CompletedAt = time.Now().UTC()
	job.Error = message
	job.ReportID = ""
	job.ReportHTML = ""
	return t.write(ctx, job)
}

// Delete removes the job record; absent records are a no-op.
func (t *Tracker) Delete(ctx context.Context, jobID string) error {
	return t.store.Delete(ctx, jobKey(jobID))
}

func (t *Tracker) write(ctx context.Context, job *domain.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := t.store.Put(ctx, jobKey(job.ID), data, t.ttl); err != nil {
		return fmt.Errorf("store job: %w", err)
	}
	return nil
}
