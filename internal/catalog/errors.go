package catalog

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrKind enumerates the error taxonomy from spec §7. Every failure this
// package, the adapters, and the session driver raise is wrapped in an
// *Error carrying one of these, so callers can switch on kind instead of
// matching strings.
type ErrKind string

const (
	ErrConfigMissing   ErrKind = "config_missing"
	ErrConfigInvalid   ErrKind = "config_invalid"
	ErrConfigIO        ErrKind = "config_io_error"
	ErrInvalidConfig   ErrKind = "invalid_config"
	ErrUnknownProvider ErrKind = "unknown_provider"
	ErrProviderError   ErrKind = "provider_error"
	ErrProtocolError   ErrKind = "protocol_error"
	ErrUnexpectedEnd   ErrKind = "unexpected_end"
	ErrNetworkError    ErrKind = "network_error"
)

// Error is the concrete error type returned by this package and its
// collaborators. Status and Excerpt are only populated for ErrProviderError.
type Error struct {
	Kind       ErrKind
	Message    string
	Status     int    // HTTP status, ErrProviderError only
	Excerpt    string // truncated upstream body, ErrProviderError only
	ContentType string // upstream Content-Type, ErrProviderError only
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is(err, SomeKind) work by comparing Kind against a target
// *Error with the same Kind and no message (used as a sentinel).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapErr(kind ErrKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Sentinel returns a zero-message *Error of the given kind, suitable for
// use with errors.Is: errors.Is(err, catalog.Sentinel(catalog.ErrConfigMissing)).
func Sentinel(kind ErrKind) error { return &Error{Kind: kind} }

// KindOf extracts the Kind of err if it (or something it wraps) is an
// *Error, and ok=false otherwise.
func KindOf(err error) (ErrKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return errors.New("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must be absolute http/https, got scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("must include a host")
	}
	return nil
}
