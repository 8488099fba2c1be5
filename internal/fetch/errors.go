package fetch

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failed fetch.
type Kind string

const (
	NotFound          Kind = "not_found"
	RateLimited       Kind = "rate_limited"
	NetworkError      Kind = "network_error"
	MalformedResponse Kind = "malformed_response"
)

// Kinds lists every classification in a stable order.
var Kinds = []Kind{NotFound, RateLimited, NetworkError, MalformedResponse}

func (k Kind) String() string { return string(k) }

// Retryable reports whether a failure of this kind may succeed on a later attempt.
func (k Kind) Retryable() bool {
	return k == RateLimited || k == NetworkError
}

// Error is a classified fetch failure for a single key.
type Error struct {
	Kind Kind
	Key  string // ticker symbol or series id
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: %s", e.Key, e.Kind)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.Key, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable returns true if the error should trigger a retry.
func (e *Error) IsRetryable() bool {
	return e.Kind.Retryable()
}

// Errorf builds a classified error for key.
func Errorf(kind Kind, key, format string, args ...any) *Error {
	return &Error{Kind: kind, Key: key, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the classification of err. Errors that were never
// classified are treated as NetworkError.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return NetworkError
}

// IsCanceled reports whether err stems from context cancellation or deadline.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// HTTPError is a non-2xx response from a provider.
type HTTPError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}
