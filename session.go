package pistonpress

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/alnah/go-pistonpress/internal/renderserver"
)

// RenderErrorHeader carries the failure classification on render endpoint responses.
// Its value is a Kind name such as "AssetNotFound".
const RenderErrorHeader = renderserver.ErrorHeader

// RenderErrorMessageHeader carries a human-readable detail for RenderErrorHeader.
const RenderErrorMessageHeader = renderserver.ErrorMessageHeader

// pageOpener abstracts the shared browser to enable testing without Chrome.
type pageOpener interface {
	OpenPage(ctx context.Context) (pageSession, error)
	Close() error
}

// pageSession is one exclusively owned browser page.
type pageSession interface {
	// Watch installs window.ready() and starts delivering page events to h.
	// Every event comes from one subscription, in the order the browser sent it.
	Watch(h pageEvents) error
	// Navigate loads url and returns the loader ID of the committed navigation.
	Navigate(url string) (loaderID string, err error)
	// PDF prints the current document.
	PDF(opts *PDFOptions) ([]byte, error)
	// Close disposes of the page. It must be safe to call after the job context ended.
	Close() error
}

// pageEvents receives the browser events a print job races on. Handlers run on
// the event goroutine and must not block.
type pageEvents struct {
	Response    func(pageResponse)
	ScriptError func(message string)
	Crash       func(err error)
	Console     func(level, text string)
	// Ready reports a window.ready() call. detail is its argument as JSON.
	Ready func(detail string)
	// Lifecycle reports a Chrome lifecycle event such as "networkIdle".
	Lifecycle func(loaderID, name string)
}

// pageResponse is the part of an HTTP response the printer classifies.
type pageResponse struct {
	URL     string
	Status  int
	Headers map[string]string
}

// header looks up a response header case-insensitively.
func (r pageResponse) header(name string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// classifyResponse maps an HTTP response to a print failure.
// Returns nil for successful responses and for missing assets the caller chose to allow.
func classifyResponse(r pageResponse, allowFailedSubResources bool) *Error {
	if r.Status < 400 {
		return nil
	}

	source := displayURL(r.URL)
	label := r.header(RenderErrorHeader)
	kind, classified := ParseKind(label)

	switch {
	case classified && kind == KindAssetNotFound:
		if allowFailedSubResources {
			return nil
		}
		return &Error{Kind: KindAssetNotFound, Message: source, URL: source}
	case classified && (kind == KindTemplateNotFound || kind == KindRenderError):
		msg := r.header(RenderErrorMessageHeader)
		if msg == "" {
			msg = fmt.Sprintf("render endpoint returned %d", r.Status)
		}
		return &Error{Kind: kind, Message: msg, URL: source}
	default:
		return &Error{
			Kind:    KindTransportError,
			Message: fmt.Sprintf("failed to load resource (HTTP %d)", r.Status),
			URL:     source,
		}
	}
}

// displayURL shortens loopback URLs to their path; other URLs are kept whole.
func displayURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if ip := net.ParseIP(u.Hostname()); (ip != nil && ip.IsLoopback()) || u.Hostname() == "localhost" {
		return u.Path
	}
	return raw
}
