// Package renderserver serves rendered templates and their static assets
// to the browser over loopback HTTP.
//
// Routes:
//
//	GET /render?templateName=<name>&values=<json>  rendered template
//	GET /assets/*                                    files under the assets directory
//	GET /favicon.ico                                 204, so browsers never fail on it
//
// Error responses have no body. Failures the printer should classify carry
// ErrorHeader naming the failure ("TemplateNotFound", "AssetNotFound",
// "RenderError"); a malformed values parameter is a bare 400.
package renderserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/alnah/go-pistonpress/internal/templatestore"
)

// Response headers carrying failure classification.
const (
	ErrorHeader        = "X-Render-Error"
	ErrorMessageHeader = "X-Render-Error-Message"
)

// Classification values for ErrorHeader.
const (
	ClassTemplateNotFound = "TemplateNotFound"
	ClassAssetNotFound    = "AssetNotFound"
	ClassRenderError      = "RenderError"
)

// readHeaderTimeout guards the loopback listener against stalled clients.
const readHeaderTimeout = 10 * time.Second

// Sentinel errors for server operations.
var (
	ErrAlreadyStarted = errors.New("render server already started")
	ErrNotStarted     = errors.New("render server not started")
)

// Config locates templates and assets.
type Config struct {
	TemplatesDir string
	AssetsDir    string
	Extension    string      // template file extension (default ".html")
	Logger       *zap.Logger // optional
}

// Server is the loopback render endpoint.
type Server struct {
	cfg     Config
	store   *templatestore.Store
	logger  *zap.Logger
	handler http.Handler

	mu   sync.Mutex
	srv  *http.Server
	addr net.Addr
	done chan error
}

// New creates a Server. It does not listen until Start or Listen.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		cfg:    cfg,
		store:  templatestore.New(cfg.TemplatesDir, cfg.Extension),
		logger: logger,
	}
	s.handler = s.routes()
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(denyRemoteConnections(s.logger))

	r.Get("/render", s.handleRender)
	r.Get("/render/", s.handleRender)
	r.Get("/assets/*", s.handleAsset)
	r.Get("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
	})
	return r
}

// Listen binds addr (use "127.0.0.1:0" for a free port) and starts serving.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	if err := s.Start(ln); err != nil {
		_ = ln.Close()
		return err
	}
	return nil
}

// Start serves on ln in the background.
func (s *Server) Start(ln net.Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return ErrAlreadyStarted
	}

	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.addr = ln.Addr()
	s.done = make(chan error, 1)

	srv, done := s.srv, s.done
	go func() {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
	}()

	s.logger.Debug("render server listening", zap.String("addr", s.addr.String()))
	return nil
}

// URL returns the base URL ("http://127.0.0.1:port"), or "" before Start.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr == nil {
		return ""
	}
	return "http://" + s.addr.String()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.mu.Unlock()

	if srv == nil {
		return ErrNotStarted
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down render server: %w", err)
	}
	return <-done
}

// handleRender renders templateName with the JSON-decoded values.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	name := query.Get("templateName")

	src, err := s.store.Load(name)
	if err != nil {
		if templatestore.IsNotFound(err) {
			s.logger.Debug("template not found", zap.String("template", name), zap.Error(err))
			writeFailure(w, http.StatusNotFound, ClassTemplateNotFound, "")
			return
		}
		s.logger.Error("template read failed", zap.String("template", name), zap.Error(err))
		writeFailure(w, http.StatusInternalServerError, ClassRenderError, err.Error())
		return
	}

	values := map[string]any{}
	if raw := query.Get("values"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &values); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}

	tmpl, err := template.New(name).Parse(src)
	if err != nil {
		s.logger.Error("template parse failed", zap.String("template", name), zap.Error(err))
		writeFailure(w, http.StatusInternalServerError, ClassRenderError, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, values); err != nil {
		s.logger.Error("template execution failed", zap.String("template", name), zap.Error(err))
		writeFailure(w, http.StatusInternalServerError, ClassRenderError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handleAsset serves a static file, tagging missing files as AssetNotFound.
func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + chi.URLParam(r, "*"))
	root := http.Dir(s.cfg.AssetsDir)

	f, err := root.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			writeFailure(w, http.StatusNotFound, ClassAssetNotFound, "")
			return
		}
		writeFailure(w, http.StatusInternalServerError, ClassRenderError, err.Error())
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeFailure(w, http.StatusNotFound, ClassAssetNotFound, "")
		return
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// writeFailure sends an empty-bodied error response carrying its classification.
func writeFailure(w http.ResponseWriter, status int, class, message string) {
	h := w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set(ErrorHeader, class)
	if message != "" {
		// Header values cannot span lines.
		h.Set(ErrorMessageHeader, strings.Join(strings.Fields(message), " "))
	}
	w.WriteHeader(status)
}
