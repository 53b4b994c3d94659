package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-pistonpress/internal/config"
)

// envPrefix marks the variables read by pistonpress.
const envPrefix = "PISTONPRESS_"

// envConfig holds configuration from environment variables.
// Provides container-friendly overrides without requiring YAML files.
type envConfig struct {
	// Tier 1 - Essential
	ConfigPath string        // PISTONPRESS_CONFIG: config file name or path
	Templates  string        // PISTONPRESS_TEMPLATES: template directory
	Assets     string        // PISTONPRESS_ASSETS: asset directory
	Timeout    time.Duration // PISTONPRESS_TIMEOUT: per-job timeout

	// Tier 2 - Runtime
	Concurrency int    // PISTONPRESS_CONCURRENCY: jobs printing at once
	Wait        string // PISTONPRESS_WAIT: default wait signal
	PageSize    string // PISTONPRESS_PAGE_SIZE: letter, a4, legal
	Addr        string // PISTONPRESS_ADDR: serve listen address

	// Tier 3 - Logging
	LogLevel  string // PISTONPRESS_LOG_LEVEL: debug, info, warn, error
	LogFormat string // PISTONPRESS_LOG_FORMAT: console, json
}

// knownEnvVars lists valid PISTONPRESS_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	// Tier 1 - Essential
	"PISTONPRESS_CONFIG":    true,
	"PISTONPRESS_TEMPLATES": true,
	"PISTONPRESS_ASSETS":    true,
	"PISTONPRESS_TIMEOUT":   true,
	// Tier 2 - Runtime
	"PISTONPRESS_CONCURRENCY": true,
	"PISTONPRESS_WAIT":        true,
	"PISTONPRESS_PAGE_SIZE":   true,
	"PISTONPRESS_ADDR":        true,
	// Tier 3 - Logging
	"PISTONPRESS_LOG_LEVEL":  true,
	"PISTONPRESS_LOG_FORMAT": true,
	// Read by doctor
	"PISTONPRESS_CONTAINER": true,
}

// loadEnvConfig reads configuration from environment variables.
// Unparseable numbers and durations are ignored.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath: os.Getenv("PISTONPRESS_CONFIG"),
		Templates:  os.Getenv("PISTONPRESS_TEMPLATES"),
		Assets:     os.Getenv("PISTONPRESS_ASSETS"),
		Wait:       os.Getenv("PISTONPRESS_WAIT"),
		PageSize:   os.Getenv("PISTONPRESS_PAGE_SIZE"),
		Addr:       os.Getenv("PISTONPRESS_ADDR"),
		LogLevel:   os.Getenv("PISTONPRESS_LOG_LEVEL"),
		LogFormat:  os.Getenv("PISTONPRESS_LOG_FORMAT"),
	}

	if timeout := os.Getenv("PISTONPRESS_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}

	if n := os.Getenv("PISTONPRESS_CONCURRENCY"); n != "" {
		if c, err := strconv.Atoi(n); err == nil && c > 0 {
			cfg.Concurrency = c
		}
	}

	return cfg
}

// warnUnknownEnvVars writes a warning for each unrecognized PISTONPRESS_* variable.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, envPrefix) {
			continue
		}
		name := strings.SplitN(env, "=", 2)[0]
		if !knownEnvVars[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig overrides config file values with the variables that are set.
// Timeout is resolved separately in resolveTimeout.
// Precedence: CLI flags > env vars > config file > defaults
// (CLI flags are applied later via mergeFlags)
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.Templates != "" {
		cfg.Templates = env.Templates
	}
	if env.Assets != "" {
		cfg.Assets = env.Assets
	}
	if env.Concurrency > 0 {
		cfg.Concurrency = env.Concurrency
	}
	if env.Wait != "" {
		cfg.Print.Wait = env.Wait
	}
	if env.PageSize != "" {
		cfg.Page.Size = env.PageSize
	}
	if env.Addr != "" {
		cfg.Serve.Addr = env.Addr
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		cfg.Log.Format = env.LogFormat
	}
}
