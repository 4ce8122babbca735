package workload

import "context"

// Idle performs no application traffic. It drains and discards incoming
// frames until the stream ends.
type Idle struct{}

// Drive implements Workload.
func (Idle) Drive(ctx context.Context, s Stream) error {
	for {
		if _, _, err := s.ReadMessage(); err != nil {
			return settle(ctx, err)
		}
	}
}
