package pistonpress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-pistonpress/internal/fileutil"
	"github.com/alnah/go-pistonpress/internal/renderserver"
	"github.com/alnah/go-pistonpress/internal/templatestore"
)

// loopbackAddr lets the OS pick a free port on the loopback interface.
const loopbackAddr = "127.0.0.1:0"

// Directories locates the templates and the static assets they reference.
type Directories struct {
	Templates string // html/template files, one per template name
	Assets    string // served under /assets/
}

// Validate checks that both directories are set and exist.
func (d Directories) Validate() error {
	if d.Templates == "" {
		return fmt.Errorf("%w: templates directory", ErrMissingOption)
	}
	if d.Assets == "" {
		return fmt.Errorf("%w: assets directory", ErrMissingOption)
	}
	if !fileutil.DirExists(d.Templates) {
		return fmt.Errorf("%w: templates %q", ErrDirectoryNotFound, d.Templates)
	}
	if !fileutil.DirExists(d.Assets) {
		return fmt.Errorf("%w: assets %q", ErrDirectoryNotFound, d.Assets)
	}
	return nil
}

// Launch starts the render endpoint and a headless browser, and returns a Queue
// ready to print. Close the Queue to release both.
//
// Jobs share one browser; at most WithConcurrency of them print at once.
func Launch(ctx context.Context, dirs Directories, opts ...Option) (*Queue, error) {
	cfg := &launchConfig{
		logger:            zap.NewNop(),
		templateExtension: templatestore.DefaultExtension,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if err := dirs.Validate(); err != nil {
		return nil, err
	}
	if err := fileutil.ValidateExtension(cfg.templateExtension); err != nil {
		return nil, fmt.Errorf("%w: template extension: %v", ErrInvalidInput, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := cfg.logger
	start := time.Now()

	server := renderserver.New(renderserver.Config{
		TemplatesDir: dirs.Templates,
		AssetsDir:    dirs.Assets,
		Extension:    cfg.templateExtension,
		Logger:       logger.Named("renderserver"),
	})
	if err := server.Listen(loopbackAddr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServerStart, err)
	}

	browser, err := launchBrowser(browserConfig{
		bin:       cfg.browserBin,
		noSandbox: cfg.noSandbox,
		logger:    logger.Named("browser"),
	})
	if err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), serverStopTimeout)
		defer cancel()
		return nil, errors.Join(err, server.Stop(stopCtx))
	}

	if err := ctx.Err(); err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), serverStopTimeout)
		defer cancel()
		return nil, errors.Join(err, browser.Close(), server.Stop(stopCtx))
	}

	printer := newPrinter(browser, server, server.URL(), printerConfig{
		timeout: cfg.timeout,
		logger:  logger.Named("printer"),
	})

	concurrency := ResolveConcurrency(cfg.concurrency)
	queue := NewQueue(printer, concurrency,
		WithQueueLogger(logger.Named("queue")),
		WithQueueMetrics(cfg.metrics),
	)

	logger.Info("press ready",
		zap.String("endpoint", server.URL()),
		zap.Int("concurrency", concurrency),
		zap.Duration("startup", time.Since(start)))

	return queue, nil
}
