package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// Kind classifies a failure by the unit of work it takes down.
type Kind string

const (
	// KindNavigation is a page load failure: timeout, unreachable host.
	// It costs one page.
	KindNavigation Kind = "navigation"
	// KindExtraction is a provider error or malformed structured output.
	// The bar keeps its menu URLs without cocktails.
	KindExtraction Kind = "extraction"
	// KindStorage is a database failure. The bar is skipped.
	KindStorage Kind = "storage"
	// KindConfiguration is a missing credential or unknown model. Fatal.
	KindConfiguration Kind = "configuration"
	// KindUnknown is anything unclassified.
	KindUnknown Kind = "unknown"
)

// Error tags an underlying error with a Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap tags err with kind. A nil err stays nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind of the outermost tagged error in err's chain.
// Untagged transient network errors count as navigation failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if IsTransient(err) || errors.Is(err, context.DeadlineExceeded) {
		return KindNavigation
	}
	return KindUnknown
}

// IsFatal reports whether err should abort a whole run.
func IsFatal(err error) bool {
	return KindOf(err) == KindConfiguration
}

// TransientError wraps an error that is safe to retry (e.g., 429, 5xx, network timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

var transientPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"no such host",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"net::err_",
}

// IsTransient returns true if the error chain holds a TransientError, a
// network timeout, a connection reset/refused, or a message matching a
// known transient pattern (including Chrome's net::ERR_* codes).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
