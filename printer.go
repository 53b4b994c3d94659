package pistonpress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// TemplatePrinter prints templates to PDF. Printer and Queue both implement it.
type TemplatePrinter interface {
	Print(ctx context.Context, req Request) ([]byte, error)
	Close() error
}

// Compile-time interface checks
var (
	_ TemplatePrinter = (*Printer)(nil)
	_ TemplatePrinter = (*Queue)(nil)
)

// stopper is the render endpoint as seen by the printer.
type stopper interface {
	Stop(ctx context.Context) error
}

// serverStopTimeout bounds the graceful shutdown of the render endpoint.
const serverStopTimeout = 5 * time.Second

// Printer renders one template per Print call in its own browser page.
// It is safe for concurrent use, but does not bound concurrency; wrap it in a Queue.
type Printer struct {
	browser pageOpener
	server  stopper
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
	closed  atomic.Bool
}

// printerConfig holds the optional settings of a Printer.
type printerConfig struct {
	timeout time.Duration
	logger  *zap.Logger
}

// newPrinter creates a Printer over an open browser and a running render endpoint.
// server may be nil when the endpoint's lifetime is managed elsewhere.
func newPrinter(browser pageOpener, server stopper, baseURL string, cfg printerConfig) *Printer {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Printer{
		browser: browser,
		server:  server,
		baseURL: baseURL,
		timeout: cfg.timeout,
		logger:  logger,
	}
}

// Print renders req.TemplateName with req.Values and returns the PDF bytes.
// Failures are *Error values; context cancellation is returned as ctx.Err().
// Recovers from internal panics to prevent crashes from propagating to callers.
func (p *Printer) Print(ctx context.Context, req Request) (pdf []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if p.closed.Load() {
		return nil, newError(KindAlreadyClosed, "printer is closed")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	target, err := RenderURL(p.baseURL, req.TemplateName, req.Values)
	if err != nil {
		return nil, err
	}
	opts := req.printOptions()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	log := p.logger.With(zap.String("template", req.TemplateName))
	sw := NewStopwatch()

	session, err := p.browser.OpenPage(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &Error{Kind: KindTransportError, Message: "failed to open page", Err: err}
	}
	log.Debug("page opened", zap.Stringer("elapsed", sw.Mark()))

	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Warn("failed to close page", zap.Error(cerr))
		}
		log.Debug("page closed", zap.Stringer("elapsed", sw.Mark()))
	}()

	if err := p.race(ctx, session, target, opts, log, sw); err != nil {
		return nil, err
	}

	pdf, err = session.PDF(req.PDF)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &Error{Kind: KindTransportError, Message: "PDF generation failed", Err: err}
	}
	log.Debug("pdf generated", zap.Stringer("elapsed", sw.Mark()), zap.Int("bytes", len(pdf)))

	return pdf, nil
}

// signalSource identifies which producer settled a race.
type signalSource int

const (
	sourceReady signalSource = iota
	sourceNavigation
	sourceError
)

func (s signalSource) String() string {
	switch s {
	case sourceReady:
		return "ready"
	case sourceNavigation:
		return "navigation"
	default:
		return "error"
	}
}

// signal is one race participant settling.
type signal struct {
	source signalSource
	err    error
}

// lifecycleEvents maps wait signals to Chrome lifecycle event names.
// WaitReady has no entry: the navigation branch never settles it.
var lifecycleEvents = map[WaitSignal]string{
	WaitNetworkIdle:       "networkIdle",
	WaitNetworkAlmostIdle: "networkAlmostIdle",
	WaitLoad:              "load",
}

// race navigates the session and waits for the first of: window.ready(),
// the navigation wait signal, or a page error. Errors win ties with success.
//
// All three producers read the same ordered event stream, so an error the
// browser reported before a completion signal is always scheduled first.
func (p *Printer) race(ctx context.Context, session pageSession, target string, opts PrintOptions, log *zap.Logger, sw *Stopwatch) error {
	// One slot per producer; each sends at most once.
	signals := make(chan signal, 3)
	gate := newAbortGate(signals)
	nav := newNavigationWatch(lifecycleEvents[opts.WaitSignal], func() {
		log.Debug("navigation settled", zap.String("wait", string(opts.WaitSignal)), zap.Duration("elapsed", sw.Elapsed()))
		signals <- signal{source: sourceNavigation}
	})

	var readyOnce sync.Once
	err := session.Watch(pageEvents{
		Ready: func(detail string) {
			readyOnce.Do(func() {
				log.Debug("window.ready() called", zap.String("detail", detail))
				signals <- signal{source: sourceReady}
			})
		},
		Lifecycle: nav.observe,
		Response: func(r pageResponse) {
			log.Debug("response", zap.Int("status", r.Status), zap.String("url", displayURL(r.URL)))
			if failure := classifyResponse(r, opts.AllowFailedSubResources); failure != nil {
				gate.schedule(failure)
			}
		},
		ScriptError: func(message string) {
			log.Debug("page error", zap.String("message", message))
			gate.schedule(newError(KindPageScriptError, message))
		},
		Crash: func(err error) {
			log.Debug("page crashed", zap.Error(err))
			gate.schedule(&Error{Kind: KindTransportError, Message: "page crashed", Err: err})
		},
		Console: func(level, text string) {
			log.Debug("console", zap.String("level", level), zap.String("text", text))
		},
	})
	if err != nil {
		return &Error{Kind: KindTransportError, Message: "failed to install page hooks", Err: err}
	}

	go func() {
		loaderID, err := session.Navigate(target)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			gate.schedule(&Error{Kind: KindTransportError, Message: "navigation failed", URL: displayURL(target), Err: err})
			return
		}
		log.Debug("navigation committed", zap.String("loader", loaderID))
		nav.committed(loaderID)
	}()

	var won signal
	select {
	case won = <-signals:
	case <-ctx.Done():
		gate.seal()
		return ctx.Err()
	}

	// An abort scheduled alongside the winning success lands before we commit to printing.
	aborted := gate.seal()
	log.Debug("race settled", zap.Stringer("winner", won.source), zap.Bool("aborted", aborted != nil))

	if won.err != nil {
		return won.err
	}
	if aborted != nil {
		return aborted
	}
	return nil
}

// navigationWatch settles the navigation branch when the awaited lifecycle
// event fires for the committed loader. Events can arrive before the loader
// ID is known; they are remembered until then.
type navigationWatch struct {
	event  string
	settle func()

	mu      sync.Mutex
	seen    map[string]bool
	loader  string
	settled bool
}

// newNavigationWatch waits for event. An empty event never settles.
func newNavigationWatch(event string, settle func()) *navigationWatch {
	return &navigationWatch{event: event, settle: settle, seen: map[string]bool{}}
}

func (w *navigationWatch) observe(loaderID, name string) {
	if w.event == "" || name != w.event {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.loader == "" {
		w.seen[loaderID] = true
		return
	}
	if loaderID == w.loader {
		w.settleLocked()
	}
}

func (w *navigationWatch) committed(loaderID string) {
	if w.event == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.loader = loaderID
	if w.seen[loaderID] {
		w.settleLocked()
	}
}

func (w *navigationWatch) settleLocked() {
	if !w.settled {
		w.settled = true
		w.settle()
	}
}

// abortGate collects page errors for one job. Errors are delivered to the race
// from a separate goroutine, never from the browser event callback that found them.
// The first scheduled error is the one reported; later ones are dropped.
type abortGate struct {
	mu      sync.Mutex
	cond    *sync.Cond
	signals chan<- signal
	first   error
	pending int
	fired   bool
	sealed  bool
}

func newAbortGate(signals chan<- signal) *abortGate {
	g := &abortGate{signals: signals}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// schedule queues an abort. No-op once the gate is sealed.
func (g *abortGate) schedule(err error) {
	g.mu.Lock()
	if g.sealed {
		g.mu.Unlock()
		return
	}
	if g.first == nil {
		g.first = err
	}
	g.pending++
	g.mu.Unlock()

	go g.fire()
}

func (g *abortGate) fire() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pending--
	if !g.fired {
		g.fired = true
		g.signals <- signal{source: sourceError, err: g.first}
	}
	g.cond.Broadcast()
}

// seal waits for scheduled aborts to land, stops accepting new ones,
// and returns the first error, if any.
func (g *abortGate) seal() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for g.pending > 0 {
		g.cond.Wait()
	}
	g.sealed = true
	return g.first
}

// Close stops the browser and the render endpoint.
// The first call closes; later calls return nil.
func (p *Printer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	if p.browser != nil {
		if err := p.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing browser: %w", err))
		}
	}
	if p.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), serverStopTimeout)
		defer cancel()
		if err := p.server.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stopping render server: %w", err))
		}
	}
	p.logger.Debug("printer closed")
	return errors.Join(errs...)
}
