package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// flagKeys maps each CLI flag to the configuration key it overrides.
var flagKeys = map[string]string{
	"target":               "target",
	"count":                "count",
	"rate":                 "rate",
	"keepalive":            "keepalive",
	"threads":              "threads",
	"interface":            "interface",
	"json":                 "json",
	"size":                 "size",
	"limit":                "limit",
	"arrival":              "arrival",
	"warmup":               "warmup",
	"connect-timeout":      "connect_timeout",
	"header":               "header",
	"insecure":             "insecure",
	"report-interval":      "report_interval",
	"report":               "report",
	"threshold":            "threshold",
	"output-file":          "output_file",
	"dashboard":            "dashboard",
	"metrics-addr":         "metrics_addr",
	"log-level":            "log.level",
	"log-format":           "log.format",
	"log-file":             "log.file",
	"tracing-endpoint":     "tracing.endpoint",
	"tracing-protocol":     "tracing.protocol",
	"tracing-service-name": "tracing.service_name",
	"tracing-sample-rate":  "tracing.sample_rate",
	"tracing-insecure":     "tracing.insecure",
	"tracing-propagate":    "tracing.propagate",
}

// RegisterFlags registers the CLI flags of one benchmark mode on a cobra command.
func RegisterFlags(cmd *cobra.Command, mode Mode) {
	configureFlags(cmd.Flags(), mode)
}

// newFlagCommand creates a cobra command with all flags of a mode configured.
func newFlagCommand(mode Mode) *cobra.Command {
	cmd := &cobra.Command{
		Use:           fmt.Sprintf("relaybench %s [URL]", mode),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags(), mode)
	return cmd
}

// configureFlags sets up the flags shared by every mode plus the mode's own.
func configureFlags(flags *pflag.FlagSet, mode Mode) {
	// Connection flags
	flags.String("target", "", "Relay address (ws:// or wss://); the URL argument takes precedence")
	flags.IntP("count", "c", DefaultCount, "Number of connections to open")
	flags.IntP("rate", "r", DefaultRate, "Connections admitted per second")
	flags.IntP("keepalive", "k", 0, "Seconds each connection stays alive (0 = until the remote ends it)")
	flags.IntP("threads", "t", 0, "Worker threads (0 = runtime default)")
	flags.StringSliceP("interface", "i", nil, "Local IP to bind outbound connections to (repeatable, round-robin)")
	flags.String("arrival", string(ArrivalModelBatch), "Admission model: batch, uniform or poisson")
	flags.Duration("connect-timeout", DefaultConnectTimeout, "Connect plus handshake deadline")
	flags.StringSlice("header", nil, "Handshake header in key=value or 'Key: Value' form (repeatable)")
	flags.Bool("insecure", false, "Skip TLS certificate verification for wss:// targets")

	// Workload flags
	switch mode {
	case ModeEcho:
		flags.Int("size", DefaultSize, "Echo payload size in bytes")
		flags.Duration("warmup", DefaultWarmup, "Pause between handshake and the first message")
	case ModeRequest:
		flags.Int("limit", DefaultLimit, "Result limit of each subscription query")
		flags.Duration("warmup", DefaultWarmup, "Pause between handshake and the first query")
	}

	// Output flags
	flags.Bool("json", false, "Emit snapshots as JSON lines")
	flags.Duration("report-interval", DefaultReportInterval, "Interval between snapshots")
	flags.String("report", string(ReportText), "Final report format: text, json, yaml or none")
	flags.String("output-file", "", "Append snapshot JSON lines to this file")
	flags.Bool("dashboard", false, "Show live terminal dashboard")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	flags.StringSlice("threshold", nil, "Pass/fail assertion (repeatable, e.g. 'connect_time:p99 < 500')")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Logging flags
	flags.String("log-level", "warn", "Log level: debug, info, warn or error")
	flags.String("log-format", "text", "Log format: text or json")
	flags.String("log-file", "", "Write logs to this file instead of stderr")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (enables tracing)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.String("tracing-service-name", "", "Service name reported with spans")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of connections traced")
	flags.Bool("tracing-insecure", false, "Use plaintext OTLP transport")
	flags.Bool("tracing-propagate", false, "Inject traceparent into handshakes (default: on when tracing)")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}
