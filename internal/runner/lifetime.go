package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	// ErrAliveTimeout signals that a connection reached its lifetime ceiling.
	// It is classified as the closed outcome and never reported as a failure.
	ErrAliveTimeout = errors.New("alive timeout")
	// ErrLost wraps the reason a connection ended before its ceiling.
	ErrLost = errors.New("connection lost")
)

// Outcome is the terminal classification of an established connection.
type Outcome int

const (
	// OutcomeLost means the connection ended before its lifetime ceiling, for
	// any reason, including a clean close by the remote.
	OutcomeLost Outcome = iota
	// OutcomeClosed means the connection was cut off at its lifetime ceiling
	// or by run cancellation while still alive.
	OutcomeClosed
)

func (o Outcome) String() string {
	if o == OutcomeClosed {
		return "closed"
	}
	return "lost"
}

// OutcomeOf classifies the error returned by supervise.
func OutcomeOf(err error) Outcome {
	switch {
	case errors.Is(err, ErrLost):
		return OutcomeLost
	case errors.Is(err, ErrAliveTimeout), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeClosed
	default:
		return OutcomeLost
	}
}

// supervise runs fn against an established connection. With keepalive == 0
// fn runs to completion and its result is returned unchanged. Otherwise fn
// races a keepalive timer: when the timer wins, fn's context is canceled,
// conn is closed to unblock pending I/O, and ErrAliveTimeout is returned.
//
// Cancellation of ctx abandons fn the same way and returns ctx.Err().
func supervise(ctx context.Context, keepalive time.Duration, conn io.Closer, fn func(ctx context.Context) error) error {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(wctx) }()

	var expired <-chan time.Time
	if keepalive > 0 {
		timer := time.NewTimer(keepalive)
		defer timer.Stop()
		expired = timer.C
	}

	abandon := func() {
		cancel()
		_ = conn.Close()
		<-done
	}

	select {
	case err := <-done:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if keepalive == 0 {
			return err
		}
		if err == nil {
			return ErrLost
		}
		return fmt.Errorf("%w: %w", ErrLost, err)
	case <-expired:
		abandon()
		return ErrAliveTimeout
	case <-ctx.Done():
		abandon()
		return ctx.Err()
	}
}
