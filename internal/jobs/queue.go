package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"server/internal/domain"
	"server/internal/store"
)

const pendingKey = "jobs:pending"

// Queue is the hand-off between the dispatch handler and the worker
// process. It rides on the store's list primitive so the api never relies
// on an in-process goroutine surviving past the response.
type Queue struct {
	store store.Store
}

func NewQueue(s store.Store) *Queue {
	return &Queue{store: s}
}

// Enqueue publishes a job request for the worker.
func (q *Queue) Enqueue(ctx context.Context, req domain.JobRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal job request: %w", err)
	}
	if err := q.store.Push(ctx, pendingKey, data); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next job request, returning
// domain.ErrNotFound when the wait expires empty.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (domain.JobRequest, error) {
	data, err := q.store.Pop(ctx, pendingKey, timeout)
	if err != nil {
		return domain.JobRequest{}, err
	}
	var req domain.JobRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return domain.JobRequest{}, fmt.Errorf("decode job request: %w", err)
	}
	return req, nil
}
