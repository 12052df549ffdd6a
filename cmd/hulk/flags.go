package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	LogPath                 string
	FrameworkParametersPath string
	LogLevel                string
	LogFormat               string
	ShutdownTimeout         time.Duration
	ShowVersion             bool
	Validate                bool
}

func parseFlags(fs *flag.FlagSet, args []string) (*CLIConfig, error) {
	cfg := &CLIConfig{}

	fs.StringVar(&cfg.LogPath, "log-path",
		getEnv("HULK_LOG_PATH", "logs"),
		"Directory for the log file and recordings (env: HULK_LOG_PATH)")

	fs.StringVar(&cfg.FrameworkParametersPath, "framework-parameters-path",
		getEnv("HULK_FRAMEWORK_PARAMETERS_PATH", "etc/parameters/framework.json"),
		"Path to the framework parameters (env: HULK_FRAMEWORK_PARAMETERS_PATH)")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("HULK_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: HULK_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("HULK_LOG_FORMAT", "json"),
		"Log format: json, text (env: HULK_LOG_FORMAT)")

	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("HULK_SHUTDOWN_TIMEOUT", 5*time.Second),
		"Time allowed for closing resources on exit (env: HULK_SHUTDOWN_TIMEOUT)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate parameters and topology, then exit")

	fs.Usage = func() {
		_, _ = fmt.Fprintf(fs.Output(), "%s - robot runtime\n\nUsage: %s [options]\n\nOptions:\n", appName, fs.Name())
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion {
		return nil
	}
	if _, err := os.Stat(cfg.FrameworkParametersPath); err != nil {
		return fmt.Errorf("framework parameters not found: %s", cfg.FrameworkParametersPath)
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}
	if cfg.LogPath == "" {
		return fmt.Errorf("log path must not be empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
