package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/torosent/relaybench/internal/metrics"
)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Metric    string  // e.g., "connect_time", "connect_errored"
	Aggregate string  // e.g., "p99", "avg", "max", "rate", "count"
	Operator  string  // e.g., "<", "<=", ">", ">=", "=="
	Value     float64 // The threshold value to compare against
	Raw       string  // Original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against a run summary.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
	}
}

// Evaluate checks all thresholds against the provided summary.
func (e *Evaluator) Evaluate(summary metrics.Summary) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		result := e.evaluateOne(t, summary)
		results = append(results, result)
	}
	return results
}

// Passed reports whether every result passed.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func (e *Evaluator) evaluateOne(t Threshold, summary metrics.Summary) Result {
	actual, err := extractMetricValue(t, summary)
	if err != nil {
		return Result{
			Threshold: t,
			Actual:    0,
			Pass:      false,
			Message:   fmt.Sprintf("error: %v", err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	message := fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value)
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   message,
	}
}

var thresholdPattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
// - "connect_time:p99 < 500"        (connect latency in ms)
// - "connect_errored:rate < 0.01"   (errored share of attempted connections)
// - "connect_lost:count == 0"       (connections that ended early)
// - "connect_closed:count >= 10"    (connections that reached their ceiling)
// - "rtt:avg < 20"                  (round-trip latency in ms)
// - "messages:rate > 100"           (completed round trips per second)
// - "messages_errored:count < 5"    (failed round trips)
// - "events:count > 0"              (relay events received)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := thresholdPattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric:aggregate operator value, e.g., 'connect_time:p99 < 500')", s)
	}

	metric := matches[1]
	aggregate := matches[2]
	operator := matches[3]
	valueStr := matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}

	aggregates, ok := supportedMetrics[metric]
	if !ok {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: %s)", metric, strings.Join(metricNames, ", "))
	}

	if !contains(aggregates, aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", aggregate, metric, strings.Join(aggregates, ", "))
	}

	if !contains(validOperators, operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errors []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errors = append(errors, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errors, "; "))
	}

	return result, nil
}

var (
	latencyAggregates = []string{"p50", "p90", "p99", "avg", "min", "max"}
	counterAggregates = []string{"count", "rate"}

	supportedMetrics = map[string][]string{
		"connect_time":     latencyAggregates,
		"connect_errored":  counterAggregates,
		"connect_lost":     counterAggregates,
		"connect_closed":   counterAggregates,
		"rtt":              latencyAggregates,
		"messages":         counterAggregates,
		"messages_errored": counterAggregates,
		"events":           counterAggregates,
	}
	metricNames = []string{
		"connect_time", "connect_errored", "connect_lost", "connect_closed",
		"rtt", "messages", "messages_errored", "events",
	}

	validOperators = []string{"<", "<=", ">", ">=", "=="}
)

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func extractMetricValue(t Threshold, s metrics.Summary) (float64, error) {
	c := s.Connections
	switch t.Metric {
	case "connect_time":
		return extractLatency(t.Aggregate, c.ConnectTime)
	case "connect_errored":
		return counterValue(t.Aggregate, float64(c.Errored), ratio(c.Errored, c.Attempted))
	case "connect_lost":
		return counterValue(t.Aggregate, float64(c.Lost), ratio(c.Lost, c.Complete))
	case "connect_closed":
		return counterValue(t.Aggregate, float64(c.Closed), ratio(c.Closed, c.Complete))
	case "rtt", "messages", "messages_errored", "events":
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}

	m := s.Messages
	if m == nil {
		return 0, fmt.Errorf("%s requires an echo or req run", t.Metric)
	}
	switch t.Metric {
	case "rtt":
		return extractLatency(t.Aggregate, m.RoundTrip)
	case "messages":
		return counterValue(t.Aggregate, float64(m.Complete), s.RoundTripRate())
	case "messages_errored":
		return counterValue(t.Aggregate, float64(m.Errored), ratio(m.Errored, m.Total))
	default:
		return counterValue(t.Aggregate, float64(m.Event), s.EventRate())
	}
}

func counterValue(aggregate string, count, rate float64) (float64, error) {
	switch aggregate {
	case "count":
		return count, nil
	case "rate":
		return rate, nil
	default:
		return 0, fmt.Errorf("unsupported counter aggregate %q", aggregate)
	}
}

func ratio(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of)
}

func extractLatency(aggregate string, l metrics.LatencyStats) (float64, error) {
	ms := func(v int64) float64 { return float64(v) }
	switch aggregate {
	case "p50":
		return l.P50Ms, nil
	case "p90":
		return l.P90Ms, nil
	case "p99":
		return l.P99Ms, nil
	case "avg":
		return ms(l.AvgMs), nil
	case "min":
		return ms(l.MinMs), nil
	case "max":
		return ms(l.MaxMs), nil
	default:
		return 0, fmt.Errorf("unsupported latency aggregate %q", aggregate)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	// Handle floating point comparison with small epsilon
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
