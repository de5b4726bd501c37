package types

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrInvalidProviderID        = errors.New("invalid provider ID")
	ErrInvalidProviderName      = errors.New("invalid provider name")
	ErrInvalidAPIHost           = errors.New("invalid API host")
	ErrMissingAPIKey            = errors.New("missing API key")
	ErrMissingEngineID          = errors.New("missing search engine ID")
	ErrMissingBasicAuthPassword = errors.New("missing basic auth password")

	// Request errors
	ErrEmptyQuery   = errors.New("empty search query")
	ErrQueryTooLong = errors.New("query too long")

	// Provider errors
	ErrProviderNotFound     = errors.New("provider not found")
	ErrProviderDisabled     = errors.New("provider disabled")
	ErrProviderRateLimited  = errors.New("provider rate limited")
	ErrProviderUnauthorized = errors.New("provider unauthorized")
	ErrProviderTimeout      = errors.New("provider timeout")
	ErrProviderPanic        = errors.New("provider panicked")

	// Response errors
	ErrInvalidResponse = errors.New("invalid response from provider")
)

// MaxQueryLength bounds the query accepted by adapters.
const MaxQueryLength = 1000

// ProviderError wraps provider-specific errors
type ProviderError struct {
	Provider ProviderID
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Provider, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewHTTPStatusError maps a non-200 status onto a ProviderError with a sentinel.
func NewHTTPStatusError(id ProviderID, status int, body string) *ProviderError {
	var cause error
	switch {
	case status == 401 || status == 403:
		cause = ErrProviderUnauthorized
	case status == 429:
		cause = ErrProviderRateLimited
	default:
		cause = ErrInvalidResponse
	}
	if len(body) > 256 {
		body = body[:256]
	}
	return &ProviderError{
		Provider: id,
		Code:     fmt.Sprintf("HTTP_%d", status),
		Message:  body,
		Err:      cause,
	}
}

// ValidateQuery checks a raw query before any provider is called.
func ValidateQuery(q string) error {
	if q == "" {
		return ErrEmptyQuery
	}
	if len(q) > MaxQueryLength {
		return ErrQueryTooLong
	}
	return nil
}
