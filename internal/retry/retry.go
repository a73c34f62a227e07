// Package retry provides the bounded polling primitive used to wait for the
// asynchronous effects of LMS commands.
package retry

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted is returned by Poll when the condition was never met within
// the attempt cap or the deadline.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Config bounds a polling loop.
type Config struct {
	// MaxAttempts caps the number of checks. Values below 1 mean a single check.
	MaxAttempts int

	// Interval is the pause between checks.
	Interval time.Duration

	// Deadline optionally bounds the whole loop in wall-clock time. Zero disables it.
	Deadline time.Duration
}

// Poll calls check until it returns true, the attempt cap is reached, the
// deadline passes or ctx is cancelled. It returns the number of checks made.
//
// The error is nil when check succeeded, ErrExhausted when the bound was hit
// and ctx.Err() when the caller's context was cancelled.
func Poll(ctx context.Context, cfg Config, check func(attempt int) bool) (int, error) {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	pollCtx := ctx
	if cfg.Deadline > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, cfg.Deadline)
		defer cancel()
	}

	for attempt := 1; ; attempt++ {
		if check(attempt) {
			return attempt, nil
		}

		// Last attempt, don't wait
		if attempt >= maxAttempts {
			return attempt, ErrExhausted
		}

		select {
		case <-pollCtx.Done():
			if err := ctx.Err(); err != nil {
				return attempt, err
			}
			return attempt, ErrExhausted
		case <-time.After(cfg.Interval):
		}
	}
}
