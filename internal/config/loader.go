package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. RELAYBENCH_COUNT or
// RELAYBENCH_LOG_LEVEL.
const EnvPrefix = "RELAYBENCH"

// Loader handles loading configuration from files, the environment and
// command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses the arguments of one benchmark mode into a Config. The first
// positional argument, when present, is the target address.
//
// Precedence, lowest first: built-in defaults, the --config file,
// RELAYBENCH_* environment variables, flags, the positional URL.
func (Loader) Load(mode Mode, args []string) (*Config, error) {
	cmd := newFlagCommand(mode)
	flagSet := cmd.Flags()
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	// If no arguments provided and no config file, show help/usage
	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	v := newViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	for name, key := range flagKeys {
		if name == "tracing-propagate" {
			continue
		}
		if f := flagSet.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if positional := flagSet.Args(); len(positional) > 0 {
		if len(positional) > 1 {
			return nil, fmt.Errorf("expected a single target URL, got %d arguments", len(positional))
		}
		v.Set("target", positional[0])
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Mode = mode
	cfg.ConfigFile = configPath
	cfg.Target = strings.TrimSpace(cfg.Target)
	cfg.Arrival = ArrivalModel(strings.ToLower(string(cfg.Arrival)))
	cfg.Report = ReportFormat(strings.ToLower(string(cfg.Report)))

	if flagSet.Changed("tracing-propagate") {
		val, err := flagSet.GetBool("tracing-propagate")
		if err != nil {
			return nil, err
		}
		cfg.Tracing.Propagate = &val
	} else if v.IsSet("tracing.propagate") {
		val := v.GetBool("tracing.propagate")
		cfg.Tracing.Propagate = &val
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("target", "")
	v.SetDefault("count", DefaultCount)
	v.SetDefault("rate", DefaultRate)
	v.SetDefault("keepalive", 0)
	v.SetDefault("threads", 0)
	v.SetDefault("interface", []string{})
	v.SetDefault("json", false)
	v.SetDefault("size", DefaultSize)
	v.SetDefault("limit", DefaultLimit)
	v.SetDefault("arrival", string(ArrivalModelBatch))
	v.SetDefault("warmup", DefaultWarmup)
	v.SetDefault("connect_timeout", DefaultConnectTimeout)
	v.SetDefault("header", []string{})
	v.SetDefault("insecure", false)
	v.SetDefault("report_interval", DefaultReportInterval)
	v.SetDefault("report", string(ReportText))
	v.SetDefault("threshold", []string{})
	v.SetDefault("output_file", "")
	v.SetDefault("dashboard", false)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.protocol", "grpc")
	v.SetDefault("tracing.service_name", "")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.insecure", false)
}
