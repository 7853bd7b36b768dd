// Package errs defines the error-kind taxonomy the engine classifies every
// failure into, and the wrapper type that carries a kind alongside the
// usual Go error chain.
package errs

import "fmt"

// Kind classifies a failure for the purposes of retry and propagation
// decisions, not for display. It is never the whole story: the wrapped
// error still carries the original message.
type Kind int

const (
	// Auth covers token acquisition/refresh failure. Aborts the run.
	Auth Kind = iota
	// Transport covers connection failure, timeout, DNS, TLS.
	Transport
	// RemoteStatus covers a non-2xx HTTP response.
	RemoteStatus
	// LocalIO covers filesystem errors on read, write, rename, stat.
	LocalIO
	// Protocol covers a malformed response body or missing required field.
	Protocol
	// OrderingViolation covers an Entry Source emitting out-of-order keys.
	// Aborts the run.
	OrderingViolation
	// Cancelled covers externally requested termination.
	Cancelled
	// Config covers an invalid source/destination spec, unparseable
	// credential, or unparseable glob. Aborts the run.
	Config
)

func (k Kind) String() string {
	switch k {
	case Auth:
		return "auth"
	case Transport:
		return "transport"
	case RemoteStatus:
		return "remote_status"
	case LocalIO:
		return "local_io"
	case Protocol:
		return "protocol"
	case OrderingViolation:
		return "ordering_violation"
	case Cancelled:
		return "cancelled"
	case Config:
		return "config"
	default:
		return "unknown"
	}
}

// Fatal reports whether errors of this kind abort the whole run rather
// than being recorded per-item (spec §7 propagation rules).
func (k Kind) Fatal() bool {
	switch k {
	case Auth, OrderingViolation, Config:
		return true
	default:
		return false
	}
}

// SyncError is the error type every component in the engine returns: a
// classified kind, the operation and key it happened on, and the
// underlying cause.
type SyncError struct {
	Kind Kind
	Op   string
	Key  string
	Err  error

	// Status carries the raw HTTP status for RemoteStatus errors; zero
	// otherwise.
	Status int
	// Body carries the raw response body for RemoteStatus errors, for
	// diagnostics.
	Body string
}

func (e *SyncError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s %q: %v", e.Kind, e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// New wraps err with a kind, op and key.
func New(kind Kind, op, key string, err error) *SyncError {
	return &SyncError{Kind: kind, Op: op, Key: key, Err: err}
}

// Remote wraps a non-2xx HTTP response as a RemoteStatus error.
func Remote(op, key string, status int, body string, err error) *SyncError {
	return &SyncError{Kind: RemoteStatus, Op: op, Key: key, Status: status, Body: body, Err: err}
}

// Retryable reports whether status is one of the transient conditions the
// Object Client retries transparently (spec §4.B).
func Retryable(status int) bool {
	switch status {
	case 408, 429:
		return true
	default:
		return status >= 500 && status <= 599
	}
}
