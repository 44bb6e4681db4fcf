package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrNoValidScreenshots = errors.New("no valid screenshots")
	ErrSessionExpired     = errors.New("session expired")
	ErrPaymentRejected    = errors.New("payment rejected")
	ErrRateLimited        = errors.New("rate limit exceeded")
)
