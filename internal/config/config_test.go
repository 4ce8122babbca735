package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/torosent/relaybench/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	loader := config.NewLoader()

	cfg, err := loader.Load(config.ModeConnect, []string{"ws://relay.example.com"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Mode != config.ModeConnect {
		t.Errorf("Mode = %q, want connect", cfg.Mode)
	}
	if cfg.Target != "ws://relay.example.com" {
		t.Errorf("Target = %q", cfg.Target)
	}
	if cfg.Count != 100 {
		t.Errorf("Count = %d, want 100", cfg.Count)
	}
	if cfg.Rate != 50 {
		t.Errorf("Rate = %d, want 50", cfg.Rate)
	}
	if cfg.Keepalive != 0 || cfg.Threads != 0 {
		t.Errorf("Keepalive = %d, Threads = %d, want 0, 0", cfg.Keepalive, cfg.Threads)
	}
	if cfg.Arrival != config.ArrivalModelBatch {
		t.Errorf("Arrival = %q, want batch", cfg.Arrival)
	}
	if cfg.ConnectTimeout != 60*time.Second {
		t.Errorf("ConnectTimeout = %s, want 60s", cfg.ConnectTimeout)
	}
	if cfg.ReportInterval != 2*time.Second {
		t.Errorf("ReportInterval = %s, want 2s", cfg.ReportInterval)
	}
	if cfg.Report != config.ReportText {
		t.Errorf("Report = %q, want text", cfg.Report)
	}
	if cfg.JSON || cfg.Dashboard {
		t.Errorf("JSON = %v, Dashboard = %v, want false", cfg.JSON, cfg.Dashboard)
	}
	if len(cfg.Interfaces) != 0 || len(cfg.Headers) != 0 {
		t.Errorf("expected no interfaces or headers, got %v %v", cfg.Interfaces, cfg.Headers)
	}
	if cfg.Log.Level != "warn" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Tracing.SampleRate != 1.0 {
		t.Errorf("Tracing.SampleRate = %g, want 1", cfg.Tracing.SampleRate)
	}
	if cfg.Tracing.Propagate != nil {
		t.Errorf("Tracing.Propagate = %v, want unset", *cfg.Tracing.Propagate)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadShortFlags(t *testing.T) {
	loader := config.NewLoader()
	cfg, err := loader.Load(config.ModeConnect, []string{
		"-c", "10", "-r", "5", "-k", "3", "-t", "2",
		"-i", "127.0.0.1", "-i", "127.0.0.2",
		"--json",
		"ws://127.0.0.1:7000/",
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Count != 10 || cfg.Rate != 5 || cfg.Keepalive != 3 || cfg.Threads != 2 {
		t.Errorf("got count=%d rate=%d keepalive=%d threads=%d", cfg.Count, cfg.Rate, cfg.Keepalive, cfg.Threads)
	}
	if cfg.KeepaliveDuration() != 3*time.Second {
		t.Errorf("KeepaliveDuration() = %s, want 3s", cfg.KeepaliveDuration())
	}
	if len(cfg.Interfaces) != 2 || cfg.Interfaces[0] != "127.0.0.1" || cfg.Interfaces[1] != "127.0.0.2" {
		t.Errorf("Interfaces = %v", cfg.Interfaces)
	}
	if !cfg.JSON {
		t.Error("JSON = false, want true")
	}
}

func TestLoadModeFlags(t *testing.T) {
	loader := config.NewLoader()

	echo, err := loader.Load(config.ModeEcho, []string{"--size", "64", "--warmup", "0s", "ws://h"})
	if err != nil {
		t.Fatalf("echo Load() error = %v", err)
	}
	if echo.Size != 64 || echo.Warmup != 0 {
		t.Errorf("echo Size = %d Warmup = %s", echo.Size, echo.Warmup)
	}

	req, err := loader.Load(config.ModeRequest, []string{"--limit", "20", "ws://h"})
	if err != nil {
		t.Fatalf("req Load() error = %v", err)
	}
	if req.Limit != 20 || req.Warmup != time.Second {
		t.Errorf("req Limit = %d Warmup = %s", req.Limit, req.Warmup)
	}

	if _, err := loader.Load(config.ModeConnect, []string{"--size", "64", "ws://h"}); err == nil {
		t.Error("connect mode should reject --size")
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{
		"target": "wss://relay.example.com",
		"count": 7,
		"rate": 3,
		"keepalive": 30,
		"size": 128,
		"warmup": "250ms",
		"header": ["X-Bench=1"],
		"threshold": ["connect_time:p99 < 500"],
		"log": {"level": "debug", "format": "json"},
		"tracing": {"endpoint": "localhost:4317", "propagate": false}
	}`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loader := config.NewLoader()
	cfg, err := loader.Load(config.ModeEcho, []string{"--config", path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}
	if cfg.Target != "wss://relay.example.com" {
		t.Errorf("Target = %q", cfg.Target)
	}
	if cfg.Count != 7 || cfg.Rate != 3 || cfg.Keepalive != 30 || cfg.Size != 128 {
		t.Errorf("got count=%d rate=%d keepalive=%d size=%d", cfg.Count, cfg.Rate, cfg.Keepalive, cfg.Size)
	}
	if cfg.Warmup != 250*time.Millisecond {
		t.Errorf("Warmup = %s, want 250ms", cfg.Warmup)
	}
	if len(cfg.Headers) != 1 || cfg.Headers[0] != "X-Bench=1" {
		t.Errorf("Headers = %v", cfg.Headers)
	}
	if len(cfg.Thresholds) != 1 {
		t.Errorf("Thresholds = %v", cfg.Thresholds)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Tracing.Endpoint != "localhost:4317" {
		t.Errorf("Tracing.Endpoint = %q", cfg.Tracing.Endpoint)
	}
	if cfg.Tracing.Propagate == nil || *cfg.Tracing.Propagate {
		t.Errorf("Tracing.Propagate should be explicitly false")
	}
	if cfg.Tracing.ShouldPropagate() {
		t.Error("ShouldPropagate() = true, want false")
	}
}

func TestLoadConfigFileYAMLWithOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := strings.Join([]string{
		"target: ws://from-file.example.com",
		"count: 7",
		"rate: 3",
		"arrival: Poisson",
		"interface:",
		"  - 10.0.0.1",
		"  - 10.0.0.2:4000",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loader := config.NewLoader()
	cfg, err := loader.Load(config.ModeConnect, []string{"--config", path, "--count", "9", "ws://from-arg.example.com"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Target != "ws://from-arg.example.com" {
		t.Errorf("Target = %q, want the positional URL", cfg.Target)
	}
	if cfg.Count != 9 {
		t.Errorf("Count = %d, want flag value 9", cfg.Count)
	}
	if cfg.Rate != 3 {
		t.Errorf("Rate = %d, want file value 3", cfg.Rate)
	}
	if cfg.Arrival != config.ArrivalModelPoisson {
		t.Errorf("Arrival = %q, want poisson", cfg.Arrival)
	}
	if len(cfg.Interfaces) != 2 {
		t.Errorf("Interfaces = %v", cfg.Interfaces)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("RELAYBENCH_COUNT", "42")
	t.Setenv("RELAYBENCH_RATE", "8")
	t.Setenv("RELAYBENCH_LOG_LEVEL", "debug")
	t.Setenv("RELAYBENCH_TRACING_PROPAGATE", "true")

	loader := config.NewLoader()
	cfg, err := loader.Load(config.ModeConnect, []string{"--rate", "4", "ws://h"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Count != 42 {
		t.Errorf("Count = %d, want env value 42", cfg.Count)
	}
	if cfg.Rate != 4 {
		t.Errorf("Rate = %d, flag should beat env", cfg.Rate)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Tracing.Propagate == nil || !*cfg.Tracing.Propagate {
		t.Error("Tracing.Propagate should be true from env")
	}
}

func TestLoadPropagateFlag(t *testing.T) {
	loader := config.NewLoader()
	cfg, err := loader.Load(config.ModeConnect, []string{"--tracing-propagate=false", "ws://h"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Tracing.Propagate == nil || *cfg.Tracing.Propagate {
		t.Error("Tracing.Propagate should be explicitly false")
	}
}

func TestLoadHelpAndArgumentErrors(t *testing.T) {
	loader := config.NewLoader()

	if _, err := loader.Load(config.ModeConnect, nil); !errors.Is(err, config.ErrHelpRequested) {
		t.Errorf("no args: error = %v, want ErrHelpRequested", err)
	}
	if _, err := loader.Load(config.ModeEcho, []string{"--help"}); !errors.Is(err, config.ErrHelpRequested) {
		t.Errorf("--help: error = %v, want ErrHelpRequested", err)
	}
	if _, err := loader.Load(config.ModeConnect, []string{"ws://a", "ws://b"}); err == nil {
		t.Error("two targets should be rejected")
	}
	if _, err := loader.Load(config.ModeConnect, []string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Error("missing config file should be rejected")
	}
	if _, err := loader.Load(config.ModeConnect, []string{"--count", "many", "ws://h"}); err == nil {
		t.Error("non-numeric count should be rejected")
	}
}

func validConfig() config.Config {
	return config.Config{
		Mode:   config.ModeConnect,
		Target: "ws://127.0.0.1:8080",
		Count:  10,
		Rate:   5,
	}
}

func TestConfigValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	echo := validConfig()
	echo.Mode = config.ModeEcho
	echo.Size = 1
	if err := echo.Validate(); err != nil {
		t.Errorf("echo Validate() error = %v", err)
	}
}

func TestConfigValidationErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *config.Config)
		want   []string
	}{
		{
			name:   "missing target",
			mutate: func(c *config.Config) { c.Target = "" },
			want:   []string{"target"},
		},
		{
			name:   "wrong scheme",
			mutate: func(c *config.Config) { c.Target = "http://example.com" },
			want:   []string{"scheme"},
		},
		{
			name: "out of range values",
			mutate: func(c *config.Config) {
				c.Count = 0
				c.Rate = 0
				c.Keepalive = -1
				c.Threads = -1
			},
			want: []string{"count", "rate", "keepalive", "threads"},
		},
		{
			name: "echo payload size",
			mutate: func(c *config.Config) {
				c.Mode = config.ModeEcho
				c.Size = 0
			},
			want: []string{"size"},
		},
		{
			name: "request limit",
			mutate: func(c *config.Config) {
				c.Mode = config.ModeRequest
				c.Limit = 0
			},
			want: []string{"limit"},
		},
		{
			name: "unknown enums",
			mutate: func(c *config.Config) {
				c.Arrival = "burst"
				c.Report = "html"
				c.Log.Format = "xml"
				c.Log.Level = "loud"
			},
			want: []string{"arrival", "report", "log format", "log level"},
		},
		{
			name: "dashboard with json",
			mutate: func(c *config.Config) {
				c.Dashboard = true
				c.JSON = true
			},
			want: []string{"mutually exclusive"},
		},
		{
			name: "bad bind address and header",
			mutate: func(c *config.Config) {
				c.Interfaces = []string{"not-an-ip"}
				c.Headers = []string{"novalue"}
			},
			want: []string{"interface", "header"},
		},
		{
			name:   "bad threshold",
			mutate: func(c *config.Config) { c.Thresholds = []string{"latency < 5"} },
			want:   []string{"threshold"},
		},
		{
			name: "tracing",
			mutate: func(c *config.Config) {
				c.Tracing.SampleRate = 1.5
				c.Tracing.Protocol = "udp"
			},
			want: []string{"sample rate", "protocol"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() error = nil, want error")
			}
			var verr config.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error type = %T, want ValidationError", err)
			}
			if len(verr.Issues()) < len(tc.want) {
				t.Errorf("Issues() = %v, want at least %d", verr.Issues(), len(tc.want))
			}
			for _, want := range tc.want {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("Validate() error %q missing %q", err.Error(), want)
				}
			}
		})
	}
}

func TestTracingConfigDefaults(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	var tc config.TracingConfig
	if tc.Enabled() || tc.ShouldPropagate() {
		t.Error("empty tracing config should be disabled")
	}

	tc.Endpoint = "localhost:4317"
	if !tc.Enabled() || !tc.ShouldPropagate() {
		t.Error("an endpoint should enable tracing and propagation")
	}
}
