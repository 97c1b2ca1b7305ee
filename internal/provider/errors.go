// Package provider holds the error taxonomy shared by the external service
// clients (monitoring API and object storage).
package provider

import (
	"errors"
	"fmt"
)

// ErrCircuitOpen is wrapped by a TransportError when a call was rejected
// without reaching the remote service.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// TransportError reports a network or HTTP failure talking to an external service.
type TransportError struct {
	// Service names the external service (e.g. "uptime-kuma", "spaces").
	Service string

	// Op is the logical operation that failed (e.g. "list monitors").
	Op string

	// StatusCode is the HTTP status code, or 0 if no response was received.
	StatusCode int

	Err error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s: unexpected status code: %d", e.Service, e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s: %v", e.Service, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError reports a response body that could not be decoded.
type ParseError struct {
	Service string
	Op      string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s: decoding response: %v", e.Service, e.Op, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is, or wraps, a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsParse reports whether err is, or wraps, a ParseError.
func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// Kind classifies err for logs and metrics: "transport", "parse" or "other".
func Kind(err error) string {
	switch {
	case IsTransport(err):
		return "transport"
	case IsParse(err):
		return "parse"
	default:
		return "other"
	}
}
