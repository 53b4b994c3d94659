package pistonpress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
	"go.uber.org/zap"

	"github.com/alnah/go-pistonpress/internal/process"
)

// Compile-time interface checks
var (
	_ pageOpener  = (*rodBrowser)(nil)
	_ pageSession = (*rodSession)(nil)
)

// readyBinding is the CDP binding behind window.ready().
const readyBinding = "__pistonpressReady"

// readyBridge defines window.ready() in every document. Its optional argument
// is forwarded as JSON; bindings only accept strings.
const readyBridge = `window.ready = function (detail) {
	var payload;
	try { payload = JSON.stringify(detail); } catch (e) {}
	window.` + readyBinding + `(payload === undefined ? "null" : payload);
};`

// errTargetCrashed reports a renderer crash.
var errTargetCrashed = errors.New("target crashed")

// browserConfig controls how Chrome is launched.
type browserConfig struct {
	bin       string
	noSandbox bool
	logger    *zap.Logger
}

// rodBrowser implements pageOpener using go-rod.
// Rod automatically downloads Chromium on first run if not found.
type rodBrowser struct {
	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	logger   *zap.Logger
}

// launchBrowser starts Chrome and connects to it.
func launchBrowser(cfg browserConfig) (*rodBrowser, error) {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	bin := cfg.bin
	if bin == "" {
		bin = os.Getenv("ROD_BROWSER_BIN")
	}
	if bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if cfg.noSandbox || os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("CI") == "true" || bin != "" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	if v, err := browser.Version(); err == nil {
		logger.Debug("browser connected", zap.String("product", v.Product), zap.Int("pid", l.PID()))
	}

	return &rodBrowser{browser: browser, launcher: l, logger: logger}, nil
}

// OpenPage creates a blank page bound to ctx.
func (b *rodBrowser) OpenPage(ctx context.Context) (pageSession, error) {
	b.mu.Lock()
	browser := b.browser
	b.mu.Unlock()
	if browser == nil {
		return nil, newError(KindAlreadyClosed, "browser is closed")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, err
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	return &rodSession{
		raw:    raw,
		page:   raw.Context(sessionCtx),
		cancel: cancel,
	}, nil
}

// Close releases browser resources and kills the Chrome process tree.
func (b *rodBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser == nil {
		return nil
	}

	err := b.browser.Close()
	b.browser = nil

	if b.launcher != nil {
		if pid := b.launcher.PID(); pid > 0 {
			process.KillProcessGroup(pid)
		}
		b.launcher.Kill()
		b.launcher.Cleanup()
		b.launcher = nil
	}
	return err
}

// rodSession implements pageSession over one rod page.
type rodSession struct {
	raw    *rod.Page // bound to the browser context, used for disposal
	page   *rod.Page // bound to the job context
	cancel context.CancelFunc
	once   sync.Once
}

// Watch installs the ready bridge, enables lifecycle events, and forwards
// page events until the session closes. One EachEvent subscription keeps
// errors and completion signals in browser order.
func (s *rodSession) Watch(h pageEvents) error {
	if err := (proto.RuntimeAddBinding{Name: readyBinding}).Call(s.page); err != nil {
		return fmt.Errorf("adding ready binding: %w", err)
	}
	if _, err := s.page.EvalOnNewDocument(readyBridge); err != nil {
		return fmt.Errorf("installing ready bridge: %w", err)
	}
	if err := (proto.PageSetLifecycleEventsEnabled{Enabled: true}).Call(s.page); err != nil {
		return fmt.Errorf("enabling lifecycle events: %w", err)
	}

	wait := s.page.EachEvent(
		func(e *proto.NetworkResponseReceived) {
			if h.Response == nil || e.Response == nil {
				return
			}
			headers := make(map[string]string, len(e.Response.Headers))
			for k, v := range e.Response.Headers {
				headers[k] = v.Str()
			}
			h.Response(pageResponse{URL: e.Response.URL, Status: e.Response.Status, Headers: headers})
		},
		func(e *proto.RuntimeExceptionThrown) {
			if h.ScriptError != nil {
				h.ScriptError(exceptionMessage(e.ExceptionDetails))
			}
		},
		func(e *proto.InspectorTargetCrashed) {
			if h.Crash != nil {
				h.Crash(errTargetCrashed)
			}
		},
		func(e *proto.RuntimeBindingCalled) {
			if h.Ready != nil && e.Name == readyBinding {
				h.Ready(gson.NewFrom(e.Payload).JSON("", ""))
			}
		},
		func(e *proto.PageLifecycleEvent) {
			if h.Lifecycle != nil {
				h.Lifecycle(string(e.LoaderID), string(e.Name))
			}
		},
		func(e *proto.RuntimeConsoleAPICalled) {
			if h.Console == nil {
				return
			}
			parts := make([]string, 0, len(e.Args))
			for _, arg := range e.Args {
				parts = append(parts, remoteObjectText(arg))
			}
			h.Console(string(e.Type), strings.Join(parts, " "))
		},
	)
	go wait()
	return nil
}

// Navigate loads url and returns once the navigation is committed.
func (s *rodSession) Navigate(url string) (string, error) {
	res, err := proto.PageNavigate{URL: url}.Call(s.page)
	if err != nil {
		return "", err
	}
	if res.ErrorText != "" {
		return "", errors.New(res.ErrorText)
	}
	return string(res.LoaderID), nil
}

// PDF prints the page. A nil opts uses Chrome defaults.
func (s *rodSession) PDF(opts *PDFOptions) ([]byte, error) {
	reader, err := s.page.PDF(buildPrintToPDF(opts))
	if err != nil {
		return nil, err
	}

	pdfBuf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading PDF stream: %w", err)
	}
	return pdfBuf, nil
}

// Close closes the page with the browser context, then stops event listeners.
func (s *rodSession) Close() error {
	var err error
	s.once.Do(func() {
		err = s.raw.Close()
		s.cancel()
	})
	return err
}

// buildPrintToPDF constructs proto.PagePrintToPDF from options.
func buildPrintToPDF(opts *PDFOptions) *proto.PagePrintToPDF {
	req := &proto.PagePrintToPDF{}
	if opts == nil {
		return req
	}

	if w, h := opts.paperSize(); w > 0 && h > 0 {
		req.PaperWidth = floatPtr(w)
		req.PaperHeight = floatPtr(h)
	}
	req.Landscape = opts.landscape()
	req.PrintBackground = opts.PrintBackground

	if m := opts.Margins; m != nil {
		req.MarginTop = floatPtr(m.Top)
		req.MarginRight = floatPtr(m.Right)
		req.MarginBottom = floatPtr(m.Bottom)
		req.MarginLeft = floatPtr(m.Left)
	}
	if opts.Scale > 0 {
		req.Scale = floatPtr(opts.Scale)
	}
	return req
}

// exceptionMessage extracts "Name: message" from a runtime exception.
func exceptionMessage(d *proto.RuntimeExceptionDetails) string {
	if d == nil {
		return "uncaught exception"
	}
	if d.Exception != nil && d.Exception.Description != "" {
		// Description includes the stack; keep the first line.
		first, _, _ := strings.Cut(d.Exception.Description, "\n")
		return first
	}
	return d.Text
}

// remoteObjectText renders a console argument.
func remoteObjectText(o *proto.RuntimeRemoteObject) string {
	if o == nil {
		return ""
	}
	if o.Description != "" {
		return o.Description
	}
	return o.Value.String()
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
