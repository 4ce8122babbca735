package workload

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/torosent/relaybench/internal/metrics"
)

// Echo sends Payload, waits for any data reply, records the round trip and
// sends Payload again, one round trip at a time.
type Echo struct {
	Payload []byte
	Warmup  time.Duration
	Stats   *metrics.Messages
}

// NewEcho creates an echo workload with a random text payload of size bytes.
func NewEcho(size int, warmup time.Duration, stats *metrics.Messages) *Echo {
	return &Echo{
		Payload: RandomText(size),
		Warmup:  warmup,
		Stats:   stats,
	}
}

// Drive implements Workload.
func (e *Echo) Drive(ctx context.Context, s Stream) error {
	if err := sleep(ctx, e.Warmup); err != nil {
		return err
	}

	start := time.Now()
	e.Stats.RecordStart()
	if err := s.WriteMessage(websocket.TextMessage, e.Payload); err != nil {
		return e.fail(ctx, err)
	}

	for {
		msgType, reply, err := s.ReadMessage()
		if err != nil {
			return e.fail(ctx, err)
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		e.Stats.RecordRoundTrip(time.Since(start), len(reply)+len(e.Payload))

		start = time.Now()
		e.Stats.RecordStart()
		if err := s.WriteMessage(websocket.TextMessage, e.Payload); err != nil {
			return e.fail(ctx, err)
		}
	}
}

// fail settles err and counts the in-flight round trip as errored unless the
// stream was abandoned or closed cleanly by the remote.
func (e *Echo) fail(ctx context.Context, err error) error {
	err = settle(ctx, err)
	if err != nil && ctx.Err() == nil {
		e.Stats.RecordError()
	}
	return err
}
