// Package errors defines the error types returned by the embedding service.
// Failures from model backends are mapped onto these types so the HTTP layer
// can pick a status code without knowing which backend produced them.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a classified failure carrying the HTTP status it should surface as.
type Error struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Backend    string `json:"backend"`
	Model      string `json:"model"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s (backend=%s, model=%s, code=%d)",
		e.Type, e.Message, e.Backend, e.Model, e.StatusCode)
}

// HTTPStatusCode returns the status code the error should be reported with.
func (e *Error) HTTPStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// PublicMessage is the message safe to return to clients. Errors about the
// request itself are returned as is. Server-side failures and anything
// raised by a backend can carry backend bodies, addresses or internal state,
// so they get a fixed text per type and the detail stays in the logs.
func (e *Error) PublicMessage() string {
	if e.Backend == "" && e.HTTPStatusCode() < http.StatusInternalServerError {
		return e.Message
	}
	if msg, ok := publicMessages[e.Type]; ok {
		return msg
	}
	return publicMessages[TypeInternalError]
}

var publicMessages = map[string]string{
	TypeAuthentication:     "model backend rejected the service credentials",
	TypeNotFound:           "model not found on the model backend",
	TypeRateLimit:          "model backend is rate limiting requests",
	TypeTimeout:            "model backend timed out",
	TypeBackend:            "model backend returned an error",
	TypeServiceUnavailable: "model backend is unavailable",
	TypeRequestTooLarge:    "model backend rejected the request as too large",
	TypeInternalError:      "internal server error",
}

// Error types.
const (
	TypeInvalidRequest     = "invalid_request_error"
	TypeRequestTooLarge    = "request_too_large"
	TypeAuthentication     = "authentication_error"
	TypeNotFound           = "not_found_error"
	TypeRateLimit          = "rate_limit_error"
	TypeTimeout            = "timeout_error"
	TypeBackend            = "backend_error"
	TypeServiceUnavailable = "service_unavailable_error"
	TypeInternalError      = "internal_error"
)

func newError(status int, typ, backend, model, message string) *Error {
	return &Error{
		StatusCode: status,
		Message:    message,
		Type:       typ,
		Backend:    backend,
		Model:      model,
	}
}

// NewInvalidRequestError creates an invalid request error (400).
func NewInvalidRequestError(message string) *Error {
	return newError(http.StatusBadRequest, TypeInvalidRequest, "", "", message)
}

// NewRequestTooLargeError creates a request too large error (413).
func NewRequestTooLargeError(message string) *Error {
	return newError(http.StatusRequestEntityTooLarge, TypeRequestTooLarge, "", "", message)
}

// NewAuthenticationError is returned when the backend rejects our credentials.
// It surfaces as 502 because the client did nothing wrong.
func NewAuthenticationError(backend, model, message string) *Error {
	return newError(http.StatusBadGateway, TypeAuthentication, backend, model, message)
}

// NewNotFoundError is returned when the backend does not know the model (502).
func NewNotFoundError(backend, model, message string) *Error {
	return newError(http.StatusBadGateway, TypeNotFound, backend, model, message)
}

// NewRateLimitError is returned when the backend throttles us (503).
func NewRateLimitError(backend, model, message string) *Error {
	return newError(http.StatusServiceUnavailable, TypeRateLimit, backend, model, message)
}

// NewTimeoutError creates a gateway timeout error (504).
func NewTimeoutError(backend, model, message string) *Error {
	return newError(http.StatusGatewayTimeout, TypeTimeout, backend, model, message)
}

// NewBackendError creates a bad gateway error (502).
func NewBackendError(backend, model, message string) *Error {
	return newError(http.StatusBadGateway, TypeBackend, backend, model, message)
}

// NewServiceUnavailableError creates a service unavailable error (503).
func NewServiceUnavailableError(backend, model, message string) *Error {
	return newError(http.StatusServiceUnavailable, TypeServiceUnavailable, backend, model, message)
}

// NewInternalError creates an internal server error (500).
func NewInternalError(backend, model, message string) *Error {
	return newError(http.StatusInternalServerError, TypeInternalError, backend, model, message)
}

const maxBodyInMessage = 256

// FromStatus maps a non-2xx backend response onto an Error.
func FromStatus(backend, model string, statusCode int, body []byte) *Error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxBodyInMessage {
		msg = strings.ToValidUTF8(msg[:maxBodyInMessage], "") + "..."
	}
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	msg = fmt.Sprintf("backend returned %d: %s", statusCode, msg)

	switch {
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return NewAuthenticationError(backend, model, msg)
	case statusCode == http.StatusNotFound:
		return NewNotFoundError(backend, model, msg)
	case statusCode == http.StatusRequestEntityTooLarge:
		return newError(http.StatusRequestEntityTooLarge, TypeRequestTooLarge, backend, model, msg)
	case statusCode == http.StatusTooManyRequests:
		return NewRateLimitError(backend, model, msg)
	case statusCode == http.StatusRequestTimeout, statusCode == http.StatusGatewayTimeout:
		return NewTimeoutError(backend, model, msg)
	case statusCode == http.StatusServiceUnavailable:
		return NewServiceUnavailableError(backend, model, msg)
	default:
		return NewBackendError(backend, model, msg)
	}
}

// FromTransport classifies an error returned by http.Client.Do.
func FromTransport(backend, model string, err error) *Error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(backend, model, "backend request timed out")
	}
	if stderrors.Is(err, context.Canceled) {
		return NewServiceUnavailableError(backend, model, "request canceled")
	}
	return NewServiceUnavailableError(backend, model, "backend unreachable: "+err.Error())
}

// As reports whether err is or wraps an *Error, returning it.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}
