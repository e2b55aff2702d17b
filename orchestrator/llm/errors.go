// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrProviderUnavailable is returned by the facade when a provider is not
// configured.
var ErrProviderUnavailable = errors.New("provider is not available")

// UnavailableError wraps ErrProviderUnavailable with the provider name.
func UnavailableError(provider string) error {
	return fmt.Errorf("provider %s is not available: %w", provider, ErrProviderUnavailable)
}

// ProviderError represents an error from an LLM provider.
type ProviderError struct {
	// Provider is the name of the provider that returned the error.
	Provider string `json:"provider"`

	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// StatusCode is the HTTP status code (if applicable).
	StatusCode int `json:"status_code,omitempty"`

	// Retryable indicates if the request can be retried by the caller.
	Retryable bool `json:"retryable"`

	// Cause is the underlying error (if any).
	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Common error codes.
const (
	ErrCodeRateLimit        = "rate_limit"
	ErrCodeAuth             = "authentication_error"
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeModelNotFound    = "model_not_found"
	ErrCodeServerError      = "server_error"
	ErrCodeTimeout          = "timeout"
	ErrCodeUnavailable      = "unavailable"
	ErrCodeUnsupportedModel = "unsupported_model"
)

// NewProviderError creates a new ProviderError.
func NewProviderError(provider, code, message string) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Code:      code,
		Message:   message,
		Retryable: isRetryableCode(code),
	}
}

// WrapError converts err into a ProviderError. op prefixes the message, for
// example "generation failed". Existing ProviderErrors pass through.
func WrapError(provider, op string, statusCode int, err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	code := CodeForStatus(statusCode)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = ErrCodeTimeout
	case errors.Is(err, context.Canceled):
		code = ErrCodeUnavailable
	}
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    fmt.Sprintf("%s %s: %v", provider, op, err),
		StatusCode: statusCode,
		Retryable:  isRetryableCode(code),
		Cause:      err,
	}
}

// CodeForStatus maps an HTTP status to an error code.
func CodeForStatus(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrCodeRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrCodeAuth
	case status == http.StatusNotFound:
		return ErrCodeModelNotFound
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrCodeTimeout
	case status == http.StatusServiceUnavailable:
		return ErrCodeUnavailable
	case status >= 500:
		return ErrCodeServerError
	case status >= 400:
		return ErrCodeInvalidRequest
	default:
		return ErrCodeServerError
	}
}

// isRetryableCode determines if an error code is retryable.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeRateLimit, ErrCodeServerError, ErrCodeTimeout, ErrCodeUnavailable:
		return true
	default:
		return false
	}
}
