package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/torosent/relaybench/internal/threshold"
)

// Mode selects the workload run on every connection.
type Mode string

const (
	ModeConnect Mode = "connect"
	ModeEcho    Mode = "echo"
	ModeRequest Mode = "req"
)

// ArrivalModel selects how connection slots are admitted over time.
type ArrivalModel string

const (
	ArrivalModelBatch   ArrivalModel = "batch"
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

// ReportFormat selects the final summary format.
type ReportFormat string

const (
	ReportText ReportFormat = "text"
	ReportJSON ReportFormat = "json"
	ReportYAML ReportFormat = "yaml"
	ReportNone ReportFormat = "none"
)

const (
	DefaultCount          = 100
	DefaultRate           = 50
	DefaultSize           = 512
	DefaultLimit          = 1
	DefaultWarmup         = time.Second
	DefaultConnectTimeout = 60 * time.Second
	DefaultReportInterval = 2 * time.Second
)

type Config struct {
	Mode       Mode     `mapstructure:"-"`
	ConfigFile string   `mapstructure:"-"`
	Target     string   `mapstructure:"target"`
	Count      int      `mapstructure:"count"`
	Rate       int      `mapstructure:"rate"`
	Keepalive  int      `mapstructure:"keepalive"` // seconds, 0 = unbounded
	Threads    int      `mapstructure:"threads"`
	Interfaces []string `mapstructure:"interface"`
	JSON       bool     `mapstructure:"json"`

	Size  int `mapstructure:"size"`  // echo payload bytes
	Limit int `mapstructure:"limit"` // req result limit

	Arrival        ArrivalModel  `mapstructure:"arrival"`
	Warmup         time.Duration `mapstructure:"warmup"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	Headers        []string      `mapstructure:"header"`
	Insecure       bool          `mapstructure:"insecure"`
	ReportInterval time.Duration `mapstructure:"report_interval"`

	Report      ReportFormat `mapstructure:"report"`
	Thresholds  []string     `mapstructure:"threshold"`
	OutputFile  string       `mapstructure:"output_file"`
	Dashboard   bool         `mapstructure:"dashboard"`
	MetricsAddr string       `mapstructure:"metrics_addr"`

	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   *bool   `mapstructure:"propagate"`
}

// Enabled reports whether spans should be exported.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate reports whether trace context is injected into the
// handshake. It defaults to on whenever tracing is enabled.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

// KeepaliveDuration returns the lifetime ceiling.
func (c Config) KeepaliveDuration() time.Duration {
	return time.Duration(c.Keepalive) * time.Second
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string
	var warnings []string

	if strings.TrimSpace(c.Target) == "" {
		issues = append(issues, "target is required (use --help for usage information)")
	} else if _, err := ParseTarget(c.Target); err != nil {
		issues = append(issues, err.Error())
	}

	// Security warnings for high rate/count
	if c.Rate > 1000 {
		warnings = append(warnings, fmt.Sprintf("WARNING: High connection rate configured (%d/s). Ensure you have authorization to test the target system.", c.Rate))
	}
	if c.Count > 50000 {
		warnings = append(warnings, fmt.Sprintf("WARNING: High connection count configured (%d). Ensure you have authorization to test the target system.", c.Count))
	}
	if len(warnings) > 0 {
		for _, w := range warnings {
			fmt.Fprintln(os.Stderr, w)
		}
	}

	if c.Count < 1 {
		issues = append(issues, "count must be >= 1")
	}
	if c.Rate < 1 {
		issues = append(issues, "rate must be >= 1")
	}
	if c.Keepalive < 0 {
		issues = append(issues, "keepalive must be >= 0")
	}
	if c.Threads < 0 {
		issues = append(issues, "threads must be >= 0")
	}
	if c.Warmup < 0 {
		issues = append(issues, "warmup must be >= 0")
	}
	if c.ConnectTimeout < 0 {
		issues = append(issues, "connect-timeout must be >= 0")
	}
	if c.ReportInterval < 0 {
		issues = append(issues, "report-interval must be >= 0")
	}

	switch c.Mode {
	case ModeEcho:
		if c.Size < 1 {
			issues = append(issues, "size must be >= 1")
		}
	case ModeRequest:
		if c.Limit < 1 {
			issues = append(issues, "limit must be >= 1")
		}
	case ModeConnect, "":
	default:
		issues = append(issues, fmt.Sprintf("mode %q is not supported", c.Mode))
	}

	switch c.Arrival {
	case ArrivalModelBatch, ArrivalModelUniform, ArrivalModelPoisson, "":
	default:
		issues = append(issues, fmt.Sprintf("arrival model %q is not supported", c.Arrival))
	}

	switch c.Report {
	case ReportText, ReportJSON, ReportYAML, ReportNone, "":
	default:
		issues = append(issues, fmt.Sprintf("report format %q is not supported", c.Report))
	}

	if c.Dashboard && c.JSON {
		issues = append(issues, "dashboard and json are mutually exclusive")
	}

	if _, err := ParseInterfaces(c.Interfaces); err != nil {
		issues = append(issues, err.Error())
	}
	if _, err := ParseHeaders(c.Headers); err != nil {
		issues = append(issues, err.Error())
	}

	if _, err := threshold.ParseMultiple(c.Thresholds); err != nil {
		issues = append(issues, err.Error())
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		issues = append(issues, fmt.Sprintf("log level %q is not supported", c.Log.Level))
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		issues = append(issues, fmt.Sprintf("log format %q is not supported", c.Log.Format))
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing sample rate must be between 0.0 and 1.0, got %g", c.Tracing.SampleRate))
	}
	switch strings.ToLower(c.Tracing.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing protocol %q is not supported: use \"grpc\" or \"http\"", c.Tracing.Protocol))
	}

	if c.Insecure {
		fmt.Fprintln(os.Stderr, "WARNING: TLS certificate verification is DISABLED (--insecure). Man-in-the-middle attacks are possible.")
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}

	return nil
}
