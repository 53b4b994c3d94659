package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	pistonpress "github.com/alnah/go-pistonpress"
)

// ErrListen is returned when the API address cannot be bound.
var ErrListen = errors.New("failed to listen")

// Server timeouts. Write timeout is left to the per-job timeout.
const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// runServe exposes the press over HTTP until ctx is canceled.
func runServe(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseServeFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) > 0 {
		return fmt.Errorf("%w: %s", ErrTooManyArgs, strings.Join(positional, " "))
	}

	cfg, timeout, err := resolveConfig(flags.common, flags.press, flags.job, loadEnvConfig())
	if err != nil {
		return err
	}
	if flags.addr != "" {
		cfg.Serve.Addr = flags.addr
	}
	pdfOpts, printOpts, err := jobDefaults(cfg)
	if err != nil {
		return err
	}

	logger, err := newLogger(env.Stderr, cfg.Log, flags.common)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := pistonpress.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	press, err := env.Launch(ctx, pistonpress.Directories{Templates: cfg.Templates, Assets: cfg.Assets},
		launchOptions(cfg, timeout, logger, metrics)...)
	if err != nil {
		return withHint(err, cfg)
	}

	ln, err := net.Listen("tcp", cfg.Serve.Addr)
	if err != nil {
		return errors.Join(fmt.Errorf("%w on %s: %w", ErrListen, cfg.Serve.Addr, err), press.Close())
	}

	a := &api{
		press:    press,
		gatherer: reg,
		pdf:      pdfOpts,
		options:  printOpts,
		logger:   logger.Named("api"),
	}
	srv := &http.Server{
		Handler:           a.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	logger.Info("serving", zap.String("addr", ln.Addr().String()))
	if !flags.common.quiet {
		fmt.Fprintf(env.Stdout, "Listening on http://%s\n", ln.Addr())
	}

	var errs []error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down API: %w", err))
	}
	// Close drains jobs still queued by requests cut off by Shutdown.
	if err := press.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing press: %w", err))
	}
	return errors.Join(errs...)
}
