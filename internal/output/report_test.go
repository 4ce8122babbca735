package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/torosent/relaybench/internal/metrics"
	"github.com/torosent/relaybench/internal/threshold"
)

func sampleSummary(withMessages bool) metrics.Summary {
	s := metrics.Summary{
		Mode:       "echo",
		Target:     "ws://127.0.0.1:8080/",
		Duration:   2 * time.Second,
		DurationMs: 2000,
		Connections: metrics.ConnectionStats{
			Total:     10,
			Attempted: 10,
			Complete:  10,
			Closed:    6,
			Lost:      1,
			Errored:   3,
			ConnectTime: metrics.LatencyStats{
				Count: 7,
				Min:   time.Millisecond,
				Max:   9 * time.Millisecond,
				Avg:   3 * time.Millisecond,
				P99Ms: 9,
			},
			Errors: map[string]int{"dial": 1, "handshake": 2},
		},
	}
	if withMessages {
		s.Messages = &metrics.MessageStats{
			Total:    101,
			Complete: 100,
			Errored:  1,
			Size:     2500000,
			RoundTrip: metrics.LatencyStats{
				Count: 100,
				Avg:   2 * time.Millisecond,
			},
		}
	}
	return s
}

func TestPrintReportConnectOnly(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, sampleSummary(false), nil)

	output := buf.String()
	for _, want := range []string{
		"Relay Benchmark Results",
		"Mode:              echo",
		"10 planned, 10 attempted",
		"Closed:          6",
		"Lost:            1",
		"Errored:         3",
		"Connect Time:",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
	if strings.Contains(output, "Messages:") {
		t.Error("connect-only report should not include a Messages section")
	}

	// Errors are listed most frequent first with friendly labels.
	handshake := strings.Index(output, "Handshake rejected: 2")
	dial := strings.Index(output, "Dial failure: 1")
	if handshake == -1 || dial == -1 || handshake > dial {
		t.Errorf("unexpected error breakdown:\n%s", output)
	}
}

func TestPrintReportWithMessagesAndThresholds(t *testing.T) {
	summary := sampleSummary(true)
	ths, err := threshold.ParseMultiple([]string{"connect_errored:count < 1", "messages:count >= 100"})
	if err != nil {
		t.Fatal(err)
	}
	results := threshold.NewEvaluator(ths).Evaluate(summary)

	var buf bytes.Buffer
	PrintReport(&buf, summary, results)
	output := buf.String()

	for _, want := range []string{
		"Messages:",
		"Completed:       100",
		"Transferred:     2.50 MB",
		"Round trips/sec: 50.00",
		"Round-trip Latency:",
		"Thresholds:",
		"✗ connect_errored:count < 1",
		"✓ messages:count >= 100",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestPrintReportNoSamples(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, metrics.Summary{}, nil)
	if !strings.Contains(buf.String(), "No samples") {
		t.Errorf("expected empty latency marker:\n%s", buf.String())
	}
}

func TestPrintJSONReport(t *testing.T) {
	summary := sampleSummary(true)
	results := []threshold.Result{{
		Threshold: threshold.Threshold{Raw: "rtt:p99 < 10"},
		Actual:    4,
		Pass:      true,
	}}

	var buf bytes.Buffer
	if err := WriteReport(&buf, FormatJSON, summary, results); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}

	var got map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"mode", "target", "duration_ms", "connect_stats", "message_stats", "thresholds"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing key %q in %s", key, buf.String())
		}
	}

	var report Report
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Connections.Closed != 6 || report.Messages == nil || report.Messages.Complete != 100 {
		t.Errorf("unexpected decoded report: %+v", report)
	}
	if len(report.Thresholds) != 1 || !report.Thresholds[0].Pass || report.Thresholds[0].Threshold != "rtt:p99 < 10" {
		t.Errorf("unexpected thresholds: %+v", report.Thresholds)
	}
}

func TestPrintJSONReportOmitsMessagesForConnectRuns(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSONReport(&buf, NewReport(sampleSummary(false), nil)); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "message_stats") || strings.Contains(buf.String(), "thresholds") {
		t.Errorf("unexpected optional sections:\n%s", buf.String())
	}
}

func TestPrintYAMLReport(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, FormatYAML, sampleSummary(true), nil); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}
	output := buf.String()
	for _, want := range []string{"mode: echo", "connect_stats:", "closed: 6", "message_stats:", "p99_ms:", "handshake: 2"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in YAML:\n%s", want, output)
		}
	}
}

func TestWriteReportFormats(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, FormatNone, sampleSummary(false), nil); err != nil || buf.Len() != 0 {
		t.Errorf("none format wrote %q, err %v", buf.String(), err)
	}
	if err := WriteReport(&buf, "", sampleSummary(false), nil); err != nil || !strings.Contains(buf.String(), "Relay Benchmark Results") {
		t.Errorf("empty format should render text, err %v", err)
	}
	if err := WriteReport(&buf, "html", sampleSummary(false), nil); err == nil {
		t.Error("unknown format should fail")
	}
}
