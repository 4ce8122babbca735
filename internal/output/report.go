package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/torosent/relaybench/internal/metrics"
	"github.com/torosent/relaybench/internal/threshold"
)

// Format selects how the final report is rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatNone Format = "none"
)

// Report is the serializable end-of-run report.
type Report struct {
	metrics.Summary `yaml:",inline"`
	Thresholds      []ThresholdResult `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
}

// ThresholdResult is one evaluated assertion.
type ThresholdResult struct {
	Threshold string  `json:"threshold" yaml:"threshold"`
	Actual    float64 `json:"actual" yaml:"actual"`
	Pass      bool    `json:"pass" yaml:"pass"`
}

// NewReport pairs a summary with its threshold results.
func NewReport(summary metrics.Summary, results []threshold.Result) Report {
	r := Report{Summary: summary}
	for _, res := range results {
		r.Thresholds = append(r.Thresholds, ThresholdResult{
			Threshold: res.Threshold.Raw,
			Actual:    res.Actual,
			Pass:      res.Pass,
		})
	}
	return r
}

// WriteReport renders the report in the requested format. An empty format is text.
func WriteReport(w io.Writer, format Format, summary metrics.Summary, results []threshold.Result) error {
	switch format {
	case FormatText, "":
		PrintReport(w, summary, results)
		return nil
	case FormatJSON:
		return PrintJSONReport(w, NewReport(summary, results))
	case FormatYAML:
		return PrintYAMLReport(w, NewReport(summary, results))
	case FormatNone:
		return nil
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, s metrics.Summary, results []threshold.Result) {
	c := s.Connections
	fmt.Fprintln(w, "\n--- Relay Benchmark Results ---")
	if s.Mode != "" {
		fmt.Fprintf(w, "Mode:              %s\n", s.Mode)
	}
	if s.Target != "" {
		fmt.Fprintf(w, "Target:            %s\n", s.Target)
	}
	fmt.Fprintf(w, "Duration:          %s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Connections:       %d planned, %d attempted\n", c.Total, c.Attempted)
	fmt.Fprintf(w, "  Closed:          %d\n", c.Closed)
	fmt.Fprintf(w, "  Lost:            %d\n", c.Lost)
	fmt.Fprintf(w, "  Errored:         %d\n", c.Errored)
	if c.Alive > 0 {
		fmt.Fprintf(w, "  Still alive:     %d\n", c.Alive)
	}

	fmt.Fprintln(w, "\nConnect Time:")
	writeLatency(w, c.ConnectTime)

	if len(c.Errors) > 0 {
		fmt.Fprintln(w, "\nConnection Errors:")
		writeErrors(w, c.Errors)
	}

	if m := s.Messages; m != nil {
		fmt.Fprintln(w, "\nMessages:")
		fmt.Fprintf(w, "  Started:         %d\n", m.Total)
		fmt.Fprintf(w, "  Completed:       %d\n", m.Complete)
		fmt.Fprintf(w, "  Errored:         %d\n", m.Errored)
		fmt.Fprintf(w, "  Events:          %d\n", m.Event)
		fmt.Fprintf(w, "  Transferred:     %.2f MB\n", float64(m.Size)/1e6)
		fmt.Fprintf(w, "  Round trips/sec: %.2f\n", s.RoundTripRate())
		fmt.Fprintln(w, "\nRound-trip Latency:")
		writeLatency(w, m.RoundTrip)
	}

	if len(results) > 0 {
		fmt.Fprintln(w, "\nThresholds:")
		for _, r := range results {
			fmt.Fprintf(w, "  %s\n", r.Message)
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, report Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// PrintYAMLReport outputs a YAML-formatted report.
func PrintYAMLReport(w io.Writer, report Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return err
	}
	return enc.Close()
}

func writeLatency(w io.Writer, l metrics.LatencyStats) {
	if l.Count == 0 {
		fmt.Fprintln(w, "  No samples")
		return
	}
	fmt.Fprintf(w, "  Samples:         %d\n", l.Count)
	fmt.Fprintf(w, "  Min:             %s\n", l.Min)
	fmt.Fprintf(w, "  Max:             %s\n", l.Max)
	fmt.Fprintf(w, "  Mean:            %s\n", l.Avg)
	fmt.Fprintf(w, "  P50:             %s\n", l.P50)
	fmt.Fprintf(w, "  P90:             %s\n", l.P90)
	fmt.Fprintf(w, "  P99:             %s\n", l.P99)
}

func writeErrors(w io.Writer, errs map[string]int) {
	kinds := make([]string, 0, len(errs))
	for kind := range errs {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if errs[kinds[i]] != errs[kinds[j]] {
			return errs[kinds[i]] > errs[kinds[j]]
		}
		return kinds[i] < kinds[j]
	})
	for _, kind := range kinds {
		fmt.Fprintf(w, "  %s: %d\n", metrics.FriendlyKind(kind), errs[kind])
	}
}
