package ratelimit

import (
	"context"
	"fmt"
	"time"

	"server/internal/store"
)

// Result reports the limiter's decision for one request.
type Result struct {
	Allowed   bool
	Remaining int
}

// Limiter is a per-identity fixed-window counter on the ephemeral store.
// The window is anchored by the first request: the caller that observes
// count == 1 sets the counter's expiry to the window length. Racing that
// observation is harmless since the duplicate expiry carries the same
// value. There is no decrement and no reset other than expiry.
type Limiter struct {
	store   store.Store
	ceiling int64
	window  time.Duration
}

func NewLimiter(s store.Store, ceiling int, window time.Duration) *Limiter {
	return &Limiter{store: s, ceiling: int64(ceiling), window: window}
}

func counterKey(identity string) string {
	return "ratelimit:" + identity
}

// Check counts the request against identity's window and decides.
func (l *Limiter) Check(ctx context.Context, identity string) (Result, error) {
	count, err := l.store.Incr(ctx, counterKey(identity))
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: increment: %w", err)
	}
	if count == 1 {
		if err := l.store.Expire(ctx, counterKey(identity), l.window); err != nil {
			return Result{}, fmt.Errorf("ratelimit: set window: %w", err)
		}
	}
	remaining := l.ceiling - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: count <= l.ceiling, Remaining: int(remaining)}, nil
}
