package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	pistonpress "github.com/alnah/go-pistonpress"
	"github.com/alnah/go-pistonpress/internal/config"
	"github.com/alnah/go-pistonpress/internal/hints"
	"github.com/alnah/go-pistonpress/internal/logging"
)

// ErrInvalidTimeout is returned when a timeout flag or config value is unusable.
var ErrInvalidTimeout = errors.New("invalid timeout")

// resolveConfig loads the config file and layers env vars and flags on top.
// Returns the validated config and the resolved per-job timeout (0 = none).
func resolveConfig(common commonFlags, press pressFlags, job jobFlags, env *envConfig) (*config.Config, time.Duration, error) {
	name := common.config
	if name == "" {
		name = env.ConfigPath
	}

	cfg := config.DefaultConfig()
	if name != "" {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) {
				return nil, 0, fmt.Errorf("loading config: %w%s", err, hints.ForConfigNotFound(searchedPaths(err)))
			}
			return nil, 0, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	applyEnvConfig(env, cfg)
	mergeFlags(press, job, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, 0, err
	}

	timeout, err := resolveTimeout(press.timeout, env.Timeout, cfg.Timeout)
	if err != nil {
		return nil, 0, err
	}
	return cfg, timeout, nil
}

// mergeFlags merges CLI flags into config. Set flags override config values.
func mergeFlags(press pressFlags, job jobFlags, cfg *config.Config) {
	if press.templates != "" {
		cfg.Templates = press.templates
	}
	if press.assets != "" {
		cfg.Assets = press.assets
	}
	if press.extension != "" {
		cfg.TemplateExtension = press.extension
	}
	if press.concurrency != 0 {
		cfg.Concurrency = press.concurrency
	}
	if press.browserBin != "" {
		cfg.Browser.Bin = press.browserBin
	}
	if press.noSandbox {
		cfg.Browser.NoSandbox = true
	}

	if job.wait != "" {
		cfg.Print.Wait = job.wait
	}
	if job.allowFailed {
		cfg.Print.AllowFailedSubResources = true
	}
	if job.page.size != "" {
		cfg.Page.Size = job.page.size
	}
	if job.page.orientation != "" {
		cfg.Page.Orientation = job.page.orientation
	}
	if job.page.margin != 0 {
		cfg.Page.Margin = job.page.margin
	}
	if job.page.background {
		cfg.Page.PrintBackground = true
	}
}

// resolveTimeout picks the per-job timeout.
// Priority: flag > env var > config. Zero means no timeout.
func resolveTimeout(flagValue string, envValue time.Duration, configValue string) (time.Duration, error) {
	switch {
	case flagValue != "":
		return parseTimeout(flagValue)
	case envValue > 0:
		return envValue, nil
	case configValue != "":
		return parseTimeout(configValue)
	default:
		return 0, nil
	}
}

func parseTimeout(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrInvalidTimeout, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w %q: must be positive", ErrInvalidTimeout, s)
	}
	return d, nil
}

// jobDefaults builds the page and print options applied to every job.
// PDF options are nil when no page setting is configured.
func jobDefaults(cfg *config.Config) (*pistonpress.PDFOptions, *pistonpress.PrintOptions, error) {
	wait, err := pistonpress.ParseWaitSignal(cfg.Print.Wait)
	if err != nil {
		return nil, nil, err
	}
	opts := &pistonpress.PrintOptions{
		WaitSignal:              wait,
		AllowFailedSubResources: cfg.Print.AllowFailedSubResources,
	}

	page := cfg.Page
	if page == (config.PageConfig{}) {
		return nil, opts, nil
	}
	pdf := &pistonpress.PDFOptions{
		Size:            page.Size,
		Orientation:     page.Orientation,
		PrintBackground: page.PrintBackground,
	}
	if page.Margin > 0 {
		pdf.Margins = pistonpress.UniformMargins(page.Margin)
	}
	if err := pdf.Validate(); err != nil {
		return nil, nil, err
	}
	return pdf, opts, nil
}

// launchOptions translates config into Launch options.
func launchOptions(cfg *config.Config, timeout time.Duration, logger *zap.Logger, metrics *pistonpress.Metrics) []pistonpress.Option {
	opts := []pistonpress.Option{
		pistonpress.WithConcurrency(cfg.Concurrency),
		pistonpress.WithLogger(logger),
		pistonpress.WithNoSandbox(cfg.Browser.NoSandbox),
	}
	if timeout > 0 {
		opts = append(opts, pistonpress.WithTimeout(timeout))
	}
	if cfg.Browser.Bin != "" {
		opts = append(opts, pistonpress.WithBrowserBin(cfg.Browser.Bin))
	}
	if cfg.TemplateExtension != "" {
		opts = append(opts, pistonpress.WithTemplateExtension(cfg.TemplateExtension))
	}
	if metrics != nil {
		opts = append(opts, pistonpress.WithMetrics(metrics))
	}
	return opts
}

// newLogger builds the command logger. --verbose forces debug, --quiet forces error.
func newLogger(w io.Writer, cfg config.LogConfig, common commonFlags) (*zap.Logger, error) {
	level := cfg.Level
	switch {
	case common.verbose:
		level = "debug"
	case common.quiet:
		level = "error"
	}
	return logging.New(w, level, cfg.Format)
}

// searchedPaths extracts the paths listed by config.ErrConfigNotFound.
func searchedPaths(err error) []string {
	_, tried, ok := strings.Cut(err.Error(), "tried ")
	if !ok {
		return nil
	}
	return strings.Split(tried, ", ")
}
