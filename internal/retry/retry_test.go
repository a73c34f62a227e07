package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPollSucceedsEventually(t *testing.T) {
	calls := 0
	n, err := Poll(context.Background(), Config{MaxAttempts: 5, Interval: time.Millisecond}, func(int) bool {
		calls++
		return calls == 3
	})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if n != 3 || calls != 3 {
		t.Fatalf("attempts = %d, calls = %d, want 3", n, calls)
	}
}

func TestPollStopsAtAttemptCap(t *testing.T) {
	calls := 0
	n, err := Poll(context.Background(), Config{MaxAttempts: 4, Interval: time.Millisecond}, func(int) bool {
		calls++
		return false
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if n != 4 || calls != 4 {
		t.Fatalf("attempts = %d, calls = %d, want 4", n, calls)
	}
}

func TestPollZeroAttemptsChecksOnce(t *testing.T) {
	calls := 0
	_, err := Poll(context.Background(), Config{}, func(int) bool {
		calls++
		return false
	})
	if !errors.Is(err, ErrExhausted) || calls != 1 {
		t.Fatalf("err = %v, calls = %d", err, calls)
	}
}

func TestPollDeadline(t *testing.T) {
	start := time.Now()
	_, err := Poll(context.Background(), Config{
		MaxAttempts: 1000,
		Interval:    10 * time.Millisecond,
		Deadline:    50 * time.Millisecond,
	}, func(int) bool { return false })
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("deadline not enforced")
	}
}

func TestPollContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, err := Poll(ctx, Config{MaxAttempts: 100, Interval: 10 * time.Millisecond}, func(attempt int) bool {
		if attempt == 2 {
			cancel()
		}
		return false
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPollPassesAttemptNumber(t *testing.T) {
	var seen []int
	_, _ = Poll(context.Background(), Config{MaxAttempts: 3}, func(attempt int) bool {
		seen = append(seen, attempt)
		return false
	})
	if len(seen) != 3 || seen[0] != 1 || seen[2] != 3 {
		t.Fatalf("attempts seen %v", seen)
	}
}
