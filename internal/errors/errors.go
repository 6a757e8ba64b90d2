// Package errors provides domain-specific error types for tcpreq.
//
// Failures of a request/response exchange are reported as a [StageError]
// carrying a [Kind] from a small, closed taxonomy.  Lower-level network,
// SSH and configuration failures keep their own structured types so the
// CLI can print useful diagnostics.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrNotConnected = errors.New("not connected")
	ErrClosed       = errors.New("endpoint is closed")
	ErrTimeout      = errors.New("operation timed out")
	ErrAuthFailed   = errors.New("authentication failed")
)

// ── Exchange taxonomy ────────────────────────────────────────────────

// Kind classifies why an exchange failed.
type Kind int

const (
	KindUnknown Kind = iota
	EmptyInput
	ConnectTimeout
	ConnectFailure
	SendTimeout
	SendFailure
	ReceiveTimeout
	ReceiveFailure
	TransportException
	Disposed
)

var kindNames = [...]string{
	KindUnknown:        "unknown",
	EmptyInput:         "empty input",
	ConnectTimeout:     "connect timeout",
	ConnectFailure:     "connect failure",
	SendTimeout:        "send timeout",
	SendFailure:        "send failure",
	ReceiveTimeout:     "receive timeout",
	ReceiveFailure:     "receive failure",
	TransportException: "transport exception",
	Disposed:           "client disposed",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// Error lets a Kind act as its own sentinel, so
// errors.Is(err, errors.ReceiveTimeout) works on any wrapped StageError.
func (k Kind) Error() string { return k.String() }

// IsTimeout reports whether k is one of the per-stage timeouts.
func (k Kind) IsTimeout() bool {
	return k == ConnectTimeout || k == SendTimeout || k == ReceiveTimeout
}

// StageError is returned by every failed exchange.
type StageError struct {
	Kind Kind
	Addr string // remote address, empty when no endpoint was opened
	Err  error  // underlying cause, may be nil
}

func (e *StageError) Error() string {
	s := e.Kind.String()
	if e.Addr != "" {
		s += " " + e.Addr
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *StageError) Unwrap() error { return e.Err }

// Is matches a bare Kind target against the error's kind.
func (e *StageError) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf extracts the Kind from err, or KindUnknown.
func KindOf(err error) Kind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// Stage builds a StageError.
func Stage(kind Kind, addr string, err error) *StageError {
	return &StageError{Kind: kind, Addr: addr, Err: err}
}

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // operation: "dial", "listen", "accept", "write", "read"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether the condition is likely transient
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SSHError represents an SSH-specific failure with host context.
type SSHError struct {
	Op   string // "handshake", "auth", "hostkey", "channel"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError, detecting retryability from the
// underlying error.  A nil err yields nil.
func Wrap(op, addr string, err error) error {
	if err == nil {
		return nil
	}
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsRetryable reports whether err looks transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// IsTimeout reports whether err is a stage timeout or a net timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if KindOf(err).IsTimeout() || errors.Is(err, ErrTimeout) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

func classifyRetryable(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
