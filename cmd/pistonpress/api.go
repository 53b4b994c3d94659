package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	pistonpress "github.com/alnah/go-pistonpress"
)

// maxRequestBody bounds a print request, values included.
const maxRequestBody = 1 << 20

// statusClientClosedRequest reports a caller that went away mid-job.
const statusClientClosedRequest = 499

// printRequest is the body of POST /print. Field names match case-insensitively,
// so pdf and options take the library's field names in camelCase.
type printRequest struct {
	TemplateName string                    `json:"templateName"`
	Values       pistonpress.Values        `json:"values,omitempty"`
	PDF          *pistonpress.PDFOptions   `json:"pdf,omitempty"`
	Options      *pistonpress.PrintOptions `json:"options,omitempty"`
}

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status  string `json:"status"`
	Waiting int    `json:"waiting"`
	Active  int    `json:"active"`
	Limit   int    `json:"limit"`
}

// api serves print jobs over HTTP.
type api struct {
	press    Press
	gatherer prometheus.Gatherer
	pdf      *pistonpress.PDFOptions   // defaults for requests without pdf
	options  *pistonpress.PrintOptions // defaults for requests without options
	logger   *zap.Logger
}

// routes builds the API router.
func (a *api) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(a.logRequests)

	r.Post("/print", a.handlePrint)
	r.Get("/healthz", a.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	return r
}

func (a *api) handlePrint(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var body printRequest
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, pistonpress.KindInvalidInput.String(), "invalid request body: "+err.Error())
		return
	}

	req := pistonpress.Request{
		TemplateName: body.TemplateName,
		Values:       body.Values,
		PDF:          body.PDF,
		Options:      body.Options,
	}
	if req.PDF == nil {
		req.PDF = a.pdf
	}
	if req.Options == nil {
		req.Options = a.options
	}

	pdf, err := a.press.Print(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		log := a.logger.Warn
		if status >= http.StatusInternalServerError {
			log = a.logger.Error
		}
		log("print failed",
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.String("template", req.TemplateName),
			zap.Int("status", status),
			zap.Error(err))
		writeError(w, status, errorCode(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (a *api) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s := a.press.Stats()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Waiting: s.Waiting,
		Active:  s.Active,
		Limit:   s.Limit,
	})
}

// logRequests logs each request at debug level.
func (a *api) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.Debug("request",
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// statusFor maps a print failure to an HTTP status.
func statusFor(err error) int {
	switch pistonpress.KindOf(err) {
	case pistonpress.KindInvalidInput:
		return http.StatusBadRequest
	case pistonpress.KindTemplateNotFound:
		return http.StatusNotFound
	case pistonpress.KindAssetNotFound, pistonpress.KindRenderError, pistonpress.KindPageScriptError:
		return http.StatusUnprocessableEntity
	case pistonpress.KindTransportError:
		return http.StatusBadGateway
	case pistonpress.KindAlreadyClosed:
		return http.StatusServiceUnavailable
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorCode names a failure in error responses.
func errorCode(err error) string {
	if k := pistonpress.KindOf(err); k != pistonpress.KindUnknown {
		return k.String()
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	case errors.Is(err, context.Canceled):
		return "Canceled"
	default:
		return "Internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}
