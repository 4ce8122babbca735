// Package workload implements the per-connection traffic strategies run on
// every established stream: idle, echo and request-cycle.
//
// A Workload drives one stream until the remote ends it, an I/O error occurs,
// or its context is canceled. Workloads never close the stream themselves;
// the caller owns it and closes it to unblock a pending read on cancellation.
package workload

import (
	"context"
	"time"

	"github.com/torosent/relaybench/internal/websocket"
)

// Stream is the subset of an established connection a workload uses.
type Stream interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
}

// Workload drives a single established stream to completion or
// cancellation.
//
// Drive returns nil when the remote ended the stream cleanly, ctx.Err() when
// it was abandoned through ctx, and the I/O or protocol error otherwise.
type Workload interface {
	Drive(ctx context.Context, s Stream) error
}

// Func adapts an ordinary function to a Workload.
type Func func(ctx context.Context, s Stream) error

// Drive implements Workload.
func (f Func) Drive(ctx context.Context, s Stream) error {
	return f(ctx, s)
}

// DefaultWarmup is the pause before a message workload sends its first
// message.
const DefaultWarmup = time.Second

// sleep pauses for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// settle maps a stream error to the Drive contract.
func settle(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if websocket.IsRemoteClose(err) {
		return nil
	}
	return err
}
