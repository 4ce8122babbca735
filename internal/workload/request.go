package workload

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/torosent/relaybench/internal/metrics"
)

// Request runs subscription cycles against a relay. Each cycle sends a REQ
// with a result limit and counts messages until the matching EOSE, which
// completes the round trip. The subscription is then cancelled with CLOSE and
// a fresh REQ is sent under a new id.
//
// A CLOSED for the active subscription fails the round trip and starts a new
// one. Every incoming text message and every outgoing REQ/CLOSE adds to the
// transferred byte count.
type Request struct {
	Limit  int
	Warmup time.Duration
	Stats  *metrics.Messages

	// NewID generates subscription ids. Defaults to NewSubscriptionID.
	NewID func() string
}

// Drive implements Workload.
func (r *Request) Drive(ctx context.Context, s Stream) error {
	if err := sleep(ctx, r.Warmup); err != nil {
		return err
	}

	sub, start, err := r.query(s)
	if err != nil {
		return r.fail(ctx, err)
	}

	for {
		msgType, data, err := s.ReadMessage()
		if err != nil {
			return r.fail(ctx, err)
		}
		if msgType != websocket.TextMessage {
			continue
		}

		kind, id := Classify(data)
		r.Stats.RecordReceived(len(data), kind == KindEvent)

		switch {
		case kind == KindEOSE && id == sub:
			r.Stats.RecordRoundTrip(time.Since(start), 0)
			closeMsg := CloseMessage(sub)
			if err := s.WriteMessage(websocket.TextMessage, closeMsg); err != nil {
				// nothing is in flight between round trips
				return settle(ctx, err)
			}
			r.Stats.RecordSent(len(closeMsg))
		case kind == KindClosed && id == sub:
			r.Stats.RecordError()
		default:
			continue
		}

		if sub, start, err = r.query(s); err != nil {
			return r.fail(ctx, err)
		}
	}
}

// query starts a new round trip under a fresh subscription id.
func (r *Request) query(s Stream) (string, time.Time, error) {
	sub := r.newID()
	req := ReqMessage(sub, r.Limit)
	start := time.Now()
	r.Stats.RecordStart()
	if err := s.WriteMessage(websocket.TextMessage, req); err != nil {
		return sub, start, err
	}
	r.Stats.RecordSent(len(req))
	return sub, start, nil
}

func (r *Request) newID() string {
	if r.NewID != nil {
		return r.NewID()
	}
	return NewSubscriptionID()
}

// fail settles err and counts the in-flight round trip as errored unless the
// stream was abandoned or closed cleanly by the remote.
func (r *Request) fail(ctx context.Context, err error) error {
	err = settle(ctx, err)
	if err != nil && ctx.Err() == nil {
		r.Stats.RecordError()
	}
	return err
}
