package pistonpress

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a print failure.
type Kind int

// Failure kinds reported by Print.
const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindTemplateNotFound
	KindAssetNotFound
	KindRenderError
	KindPageScriptError
	KindTransportError
	KindAlreadyClosed
)

// Sentinel errors, one per Kind. Every *Error matches its kind's sentinel with errors.Is.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemplateNotFound = errors.New("template not found")
	ErrAssetNotFound    = errors.New("asset not found")
	ErrRenderError      = errors.New("render failed")
	ErrPageScriptError  = errors.New("page script error")
	ErrTransportError   = errors.New("browser transport error")
	ErrAlreadyClosed    = errors.New("printer already closed")
)

// Bootstrap errors.
var (
	ErrMissingOption     = errors.New("missing option")
	ErrDirectoryNotFound = errors.New("directory not found")
	ErrBrowserConnect    = errors.New("failed to connect to browser")
	ErrServerStart       = errors.New("failed to start render server")
)

// Page settings validation errors.
var (
	ErrInvalidPageSize    = errors.New("invalid page size")
	ErrInvalidOrientation = errors.New("invalid orientation")
	ErrInvalidMargin      = errors.New("invalid margin")
	ErrInvalidScale       = errors.New("invalid scale")
	ErrInvalidDimensions  = errors.New("invalid page dimensions")
	ErrInvalidWaitSignal  = errors.New("invalid wait signal")
)

var kindNames = map[Kind]string{
	KindInvalidInput:     "InvalidInput",
	KindTemplateNotFound: "TemplateNotFound",
	KindAssetNotFound:    "AssetNotFound",
	KindRenderError:      "RenderError",
	KindPageScriptError:  "PageScriptError",
	KindTransportError:   "TransportError",
	KindAlreadyClosed:    "AlreadyClosed",
}

var kindSentinels = map[Kind]error{
	KindInvalidInput:     ErrInvalidInput,
	KindTemplateNotFound: ErrTemplateNotFound,
	KindAssetNotFound:    ErrAssetNotFound,
	KindRenderError:      ErrRenderError,
	KindPageScriptError:  ErrPageScriptError,
	KindTransportError:   ErrTransportError,
	KindAlreadyClosed:    ErrAlreadyClosed,
}

// String returns the wire name of the kind, as carried by the render error header.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// ParseKind maps a wire name (case-insensitive) back to its Kind.
// Returns KindUnknown and false for unrecognized names.
func ParseKind(name string) (Kind, bool) {
	name = strings.TrimSpace(name)
	for k, n := range kindNames {
		if strings.EqualFold(n, name) {
			return k, true
		}
	}
	return KindUnknown, false
}

// Error is the typed failure returned by Print.
type Error struct {
	Kind    Kind
	Message string
	URL     string // source of the failure, path only for loopback resources
	Err     error  // underlying cause, if any
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.URL != "" && e.URL != e.Message {
		fmt.Fprintf(&b, " (%s)", e.URL)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && target == sentinel
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
