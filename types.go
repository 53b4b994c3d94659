package pistonpress

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Values is the data handed to a template. It must be JSON-serializable.
type Values map[string]any

// Request describes one print job.
type Request struct {
	TemplateName string        // Template identifier (required)
	Values       Values        // Template data (optional, nil = {})
	PDF          *PDFOptions   // Page settings (optional, nil = browser defaults)
	Options      *PrintOptions // Completion and failure policy (optional)
}

// Validate checks the request before any browser work happens.
// Failures are *Error values of kind KindInvalidInput.
func (r Request) Validate() error {
	if strings.TrimSpace(r.TemplateName) == "" {
		return newError(KindInvalidInput, "template name is required")
	}
	if err := r.PDF.Validate(); err != nil {
		return &Error{Kind: KindInvalidInput, Message: "pdf options", Err: err}
	}
	if err := r.Options.Validate(); err != nil {
		return &Error{Kind: KindInvalidInput, Message: "print options", Err: err}
	}
	return nil
}

// printOptions returns the effective print options with defaults applied.
func (r Request) printOptions() PrintOptions {
	if r.Options == nil {
		return PrintOptions{WaitSignal: DefaultWaitSignal}
	}
	opts := *r.Options
	if opts.WaitSignal == "" {
		opts.WaitSignal = DefaultWaitSignal
	}
	return opts
}

// WaitSignal selects when a page counts as ready to print.
type WaitSignal string

// Wait signals.
const (
	// WaitReady waits only for the page to call window.ready().
	WaitReady WaitSignal = "ready"
	// WaitNetworkIdle waits for no in-flight connections for 500ms.
	WaitNetworkIdle WaitSignal = "networkidle0"
	// WaitNetworkAlmostIdle waits for at most two in-flight connections for 500ms.
	WaitNetworkAlmostIdle WaitSignal = "networkidle2"
	// WaitLoad waits for the load event.
	WaitLoad WaitSignal = "load"
)

// DefaultWaitSignal suits static documents with images.
const DefaultWaitSignal = WaitNetworkIdle

// ParseWaitSignal validates a wait signal name (case-insensitive).
// An empty string yields DefaultWaitSignal.
func ParseWaitSignal(s string) (WaitSignal, error) {
	switch w := WaitSignal(strings.ToLower(strings.TrimSpace(s))); w {
	case "":
		return DefaultWaitSignal, nil
	case WaitReady, WaitNetworkIdle, WaitNetworkAlmostIdle, WaitLoad:
		return w, nil
	default:
		return "", fmt.Errorf("%w: %q (must be ready, networkidle0, networkidle2, or load)", ErrInvalidWaitSignal, s)
	}
}

// PrintOptions controls how a job decides it is done.
type PrintOptions struct {
	WaitSignal WaitSignal
	// AllowFailedSubResources ignores responses classified as AssetNotFound.
	AllowFailedSubResources bool
}

// Validate checks the wait signal. Returns nil if o is nil.
func (o *PrintOptions) Validate() error {
	if o == nil {
		return nil
	}
	_, err := ParseWaitSignal(string(o.WaitSignal))
	return err
}

// Page size constants.
const (
	PageSizeLetter = "letter"
	PageSizeA4     = "a4"
	PageSizeLegal  = "legal"
)

// Orientation constants.
const (
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

// Margin and scale bounds.
const (
	MinMargin = 0.0
	MaxMargin = 3.0
	MinScale  = 0.1
	MaxScale  = 2.0
)

// pageDimensions maps page sizes to portrait width and height in inches.
var pageDimensions = map[string][2]float64{
	PageSizeLetter: {8.5, 11},
	PageSizeA4:     {8.27, 11.69},
	PageSizeLegal:  {8.5, 14},
}

// Margins are per-side margins in inches.
type Margins struct {
	Top, Right, Bottom, Left float64
}

// UniformMargins returns margins of m inches on every side.
func UniformMargins(m float64) *Margins {
	return &Margins{Top: m, Right: m, Bottom: m, Left: m}
}

// PDFOptions configures the printed page. Zero fields fall back to browser defaults.
type PDFOptions struct {
	Size            string   // "letter", "a4", "legal"
	Orientation     string   // "portrait", "landscape"
	Width, Height   float64  // inches, override Size when both set
	Margins         *Margins // inches
	PrintBackground bool
	Scale           float64 // 0.1 to 2, zero = 1
}

// Validate checks that settings are in range.
// Returns nil if p is nil (nil means use defaults).
// Does not mutate - uses case-insensitive comparison.
func (p *PDFOptions) Validate() error {
	if p == nil {
		return nil
	}

	if p.Size != "" {
		if _, ok := pageDimensions[strings.ToLower(p.Size)]; !ok {
			return fmt.Errorf("%w: %q", ErrInvalidPageSize, p.Size)
		}
	}

	switch strings.ToLower(p.Orientation) {
	case "", OrientationPortrait, OrientationLandscape:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOrientation, p.Orientation)
	}

	if (p.Width == 0) != (p.Height == 0) || p.Width < 0 || p.Height < 0 {
		return fmt.Errorf("%w: %.2fx%.2f (set both width and height)", ErrInvalidDimensions, p.Width, p.Height)
	}

	if m := p.Margins; m != nil {
		for _, v := range []float64{m.Top, m.Right, m.Bottom, m.Left} {
			if v < MinMargin || v > MaxMargin {
				return fmt.Errorf("%w: %.2f (must be between %.2f and %.2f)", ErrInvalidMargin, v, MinMargin, MaxMargin)
			}
		}
	}

	if p.Scale != 0 && (p.Scale < MinScale || p.Scale > MaxScale) {
		return fmt.Errorf("%w: %.2f (must be between %.2f and %.2f)", ErrInvalidScale, p.Scale, MinScale, MaxScale)
	}

	return nil
}

// paperSize returns width and height in inches, or zeros when unset.
func (p *PDFOptions) paperSize() (width, height float64) {
	if p.Width > 0 && p.Height > 0 {
		return p.Width, p.Height
	}
	if p.Size == "" {
		return 0, 0
	}
	dims := pageDimensions[strings.ToLower(p.Size)]
	return dims[0], dims[1]
}

// landscape reports whether the orientation is landscape.
func (p *PDFOptions) landscape() bool {
	return strings.EqualFold(p.Orientation, OrientationLandscape)
}

// Option configures Launch.
type Option func(*launchConfig)

// launchConfig holds internal configuration for Launch.
type launchConfig struct {
	concurrency       int
	timeout           time.Duration
	logger            *zap.Logger
	browserBin        string
	noSandbox         bool
	metrics           *Metrics
	templateExtension string
}

// WithConcurrency sets how many jobs may share the browser at once.
// Values below 1 resolve automatically (see ResolveConcurrency).
func WithConcurrency(n int) Option {
	return func(c *launchConfig) {
		c.concurrency = n
	}
}

// WithTimeout bounds each print job.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("pistonpress: WithTimeout duration must be positive")
	}
	return func(c *launchConfig) {
		c.timeout = d
	}
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *launchConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBrowserBin uses a specific Chrome/Chromium binary instead of ROD_BROWSER_BIN
// or the managed download.
func WithBrowserBin(path string) Option {
	return func(c *launchConfig) {
		c.browserBin = path
	}
}

// WithNoSandbox disables the Chrome sandbox (containers, CI).
func WithNoSandbox(disable bool) Option {
	return func(c *launchConfig) {
		c.noSandbox = disable
	}
}

// WithMetrics records queue metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(c *launchConfig) {
		c.metrics = m
	}
}

// WithTemplateExtension sets the file extension of templates (default ".html").
func WithTemplateExtension(ext string) Option {
	return func(c *launchConfig) {
		c.templateExtension = ext
	}
}
