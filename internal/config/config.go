package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-pistonpress/internal/fileutil"
	"github.com/alnah/go-pistonpress/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxPathLength        = 4096 // PATH_MAX on Linux
	MaxExtensionLength   = 16   // ".html", ".tmpl"
	MaxWaitLength        = 20   // "networkidle0"
	MaxPageSizeLength    = 10   // "letter", "a4", "legal"
	MaxOrientationLength = 10   // "portrait", "landscape"
	MaxLevelLength       = 10   // "debug", "info"
	MaxAddrLength        = 255  // "host:port"
)

// Bounds for numeric fields.
const (
	MaxConcurrency = 64
	MaxMargin      = 3.0
)

// configDirName is the directory under os.UserConfigDir searched for named configs.
const configDirName = "go-pistonpress"

// Config holds the settings shared by the print and serve commands.
type Config struct {
	Templates         string        `yaml:"templates"`         // Template directory
	Assets            string        `yaml:"assets"`            // Asset directory served under /assets/
	TemplateExtension string        `yaml:"templateExtension"` // Default ".html"
	Concurrency       int           `yaml:"concurrency"`       // 0 = auto
	Timeout           string        `yaml:"timeout"`           // Per-job bound, e.g. "30s" (empty = none)
	Browser           BrowserConfig `yaml:"browser"`
	Print             PrintConfig   `yaml:"print"`
	Page              PageConfig    `yaml:"page"`
	Log               LogConfig     `yaml:"log"`
	Serve             ServeConfig   `yaml:"serve"`
}

// BrowserConfig controls the Chrome launch.
type BrowserConfig struct {
	Bin       string `yaml:"bin"`       // Empty = ROD_BROWSER_BIN or managed download
	NoSandbox bool   `yaml:"noSandbox"` // Containers, CI
}

// PrintConfig sets the default completion policy for jobs.
type PrintConfig struct {
	Wait                    string `yaml:"wait"` // "ready", "networkidle0", "networkidle2", "load"
	AllowFailedSubResources bool   `yaml:"allowFailedSubResources"`
}

// PageConfig defines PDF page settings.
type PageConfig struct {
	Size            string  `yaml:"size"`        // "letter", "a4", "legal"
	Orientation     string  `yaml:"orientation"` // "portrait", "landscape"
	Margin          float64 `yaml:"margin"`      // inches, applied to every side
	PrintBackground bool    `yaml:"printBackground"`
}

// LogConfig defines logging options.
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "console", "json"
}

// ServeConfig defines the HTTP API options.
type ServeConfig struct {
	Addr string `yaml:"addr"` // Listen address (default ":8080")
}

// Validate checks lengths and enumerations.
// Called automatically by LoadConfig, but available for callers
// that build a Config by hand.
func (c *Config) Validate() error {
	if err := validateFieldLength("templates", c.Templates, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("assets", c.Assets, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("templateExtension", c.TemplateExtension, MaxExtensionLength); err != nil {
		return err
	}
	if c.TemplateExtension != "" {
		if err := fileutil.ValidateExtension(c.TemplateExtension); err != nil {
			return fmt.Errorf("%w: templateExtension: %v", ErrInvalidValue, err)
		}
	}

	if c.Concurrency < 0 || c.Concurrency > MaxConcurrency {
		return fmt.Errorf("%w: concurrency: must be between 0 and %d, got %d", ErrInvalidValue, MaxConcurrency, c.Concurrency)
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}

	if err := validateFieldLength("browser.bin", c.Browser.Bin, MaxPathLength); err != nil {
		return err
	}

	if err := validateFieldLength("print.wait", c.Print.Wait, MaxWaitLength); err != nil {
		return err
	}
	if err := validateEnum("print.wait", c.Print.Wait, "ready", "networkidle0", "networkidle2", "load"); err != nil {
		return err
	}

	if err := validateFieldLength("page.size", c.Page.Size, MaxPageSizeLength); err != nil {
		return err
	}
	if err := validateFieldLength("page.orientation", c.Page.Orientation, MaxOrientationLength); err != nil {
		return err
	}
	if c.Page.Margin < 0 || c.Page.Margin > MaxMargin {
		return fmt.Errorf("%w: page.margin: must be between 0 and %.1f, got %.2f", ErrInvalidValue, MaxMargin, c.Page.Margin)
	}

	if err := validateFieldLength("log.level", c.Log.Level, MaxLevelLength); err != nil {
		return err
	}
	if err := validateEnum("log.level", c.Log.Level, "debug", "info", "warn", "error"); err != nil {
		return err
	}
	if err := validateEnum("log.format", c.Log.Format, "console", "json"); err != nil {
		return err
	}

	if err := validateFieldLength("serve.addr", c.Serve.Addr, MaxAddrLength); err != nil {
		return err
	}

	return nil
}

// TimeoutDuration parses Timeout. Empty means no timeout.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: timeout: %v", ErrInvalidValue, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: timeout: must be positive, got %s", ErrInvalidValue, c.Timeout)
	}
	return d, nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// validateEnum checks value against allowed (case-insensitive). Empty is allowed.
func validateEnum(fieldName, value string, allowed ...string) error {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s: %q (must be one of %s)", ErrInvalidValue, fieldName, value, strings.Join(allowed, ", "))
}

// DefaultConfig returns the built-in defaults. Zero values defer to the library.
func DefaultConfig() *Config {
	return &Config{
		TemplateExtension: ".html",
		Print:             PrintConfig{Wait: "networkidle0"},
		Log:               LogConfig{Level: "info", Format: "console"},
		Serve:             ServeConfig{Addr: ":8080"},
	}
}

// LoadConfig reads a config file over DefaultConfig and validates it.
// nameOrPath is a path when it contains a separator, otherwise a name looked up
// by resolveConfigPath. A missing file is an error, never a silent default.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	path := nameOrPath
	if !strings.ContainsAny(nameOrPath, `/\`) {
		found, err := resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
		path = found
	}

	raw, err := os.ReadFile(path) // #nosec G304 -- config path is user-provided
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	case err != nil:
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(raw, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// configCandidates lists where a config name may live, in lookup order:
// the working directory, then the user config directory.
func configCandidates(name string) []string {
	dirs := []string{""}
	if userDir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(userDir, configDirName))
	}

	var paths []string
	for _, dir := range dirs {
		for _, ext := range []string{".yaml", ".yml"} {
			paths = append(paths, filepath.Join(dir, name+ext))
		}
	}
	return paths
}

// resolveConfigPath returns the first existing candidate for name.
func resolveConfigPath(name string) (string, error) {
	candidates := configCandidates(name)
	for _, path := range candidates {
		if fileutil.FileExists(path) {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(candidates, ", "))
}
