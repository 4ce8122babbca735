package metrics_test

import (
	"sync"
	"testing"
	"time"

	"github.com/torosent/relaybench/internal/metrics"
)

func TestMessagesEchoAccounting(t *testing.T) {
	m := metrics.NewMessages()
	const size = 64

	for i := 0; i < 3; i++ {
		m.RecordStart()
		m.RecordRoundTrip(time.Duration(i+1)*time.Millisecond, size+size)
	}
	m.RecordStart()

	s := m.Snapshot()
	if s.Total != 4 || s.Complete != 3 {
		t.Errorf("expected total=4 complete=3, got %d/%d", s.Total, s.Complete)
	}
	if s.Size != 3*size*2 {
		t.Errorf("expected size %d, got %d", 3*size*2, s.Size)
	}
	if s.RoundTrip.Count != 3 {
		t.Errorf("expected 3 latency samples, got %d", s.RoundTrip.Count)
	}
	if s.RoundTrip.Min != time.Millisecond || s.RoundTrip.Max != 3*time.Millisecond {
		t.Errorf("unexpected latency bounds: %+v", s.RoundTrip)
	}
}

func TestMessagesRequestAccounting(t *testing.T) {
	m := metrics.NewMessages()
	m.RecordStart()
	m.RecordSent(30)
	m.RecordReceived(100, true)
	m.RecordReceived(100, true)
	m.RecordReceived(20, false)
	m.RecordRoundTrip(5*time.Millisecond, 0)
	m.RecordStart()
	m.RecordError()

	s := m.Snapshot()
	if s.Event != 2 {
		t.Errorf("expected 2 events, got %d", s.Event)
	}
	if s.Size != 250 {
		t.Errorf("expected 250 bytes, got %d", s.Size)
	}
	if s.Total != 2 || s.Complete != 1 || s.Errored != 1 {
		t.Errorf("unexpected counters: %+v", s)
	}
}

func TestMessagesConcurrentRecording(t *testing.T) {
	m := metrics.NewMessages()

	var wg sync.WaitGroup
	workers, perWorker := 10, 100
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.RecordStart()
				m.RecordRoundTrip(time.Millisecond, 2)
			}
		}()
	}
	wg.Wait()

	s := m.Snapshot()
	expected := workers * perWorker
	if s.Total != expected || s.Complete != expected || s.Size != int64(2*expected) {
		t.Fatalf("unexpected counters: %+v", s)
	}
	if s.RoundTrip.Count != int64(expected) {
		t.Fatalf("expected %d latency samples, got %d", expected, s.RoundTrip.Count)
	}
}
