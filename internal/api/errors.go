package api

import (
	"errors"
	"fmt"
)

// Common API errors that can be checked with errors.Is.
var (
	// ErrUnauthorized indicates the API key is invalid or expired.
	ErrUnauthorized = errors.New("invalid or expired API key")
	// ErrKeyNotRegistered indicates the collaborator holds no server key
	// matching the envelope's key fingerprint.
	ErrKeyNotRegistered = errors.New("server key not registered")
	// ErrPayloadTooLarge indicates the envelope exceeds the collaborator's
	// request size limit.
	ErrPayloadTooLarge = errors.New("envelope too large")
	// ErrRateLimited indicates the rate limit has been exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrBadSignature indicates a response signature failed verification
	// against the pinned server signing key.
	ErrBadSignature = errors.New("response signature verification failed")
)

// APIError represents an HTTP error from the collaborator service.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		if e.Message != "" {
			return fmt.Sprintf("API error %d: %s (request_id: %s)", e.StatusCode, e.Message, e.RequestID)
		}
		return fmt.Sprintf("API error %d (request_id: %s)", e.StatusCode, e.RequestID)
	}
	if e.Message != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error %d", e.StatusCode)
}

// FHEVaultError implements the FHEVaultError interface.
func (e *APIError) FHEVaultError() {}

// Is implements errors.Is for sentinel error matching.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case 401, 403:
		return target == ErrUnauthorized
	case 404:
		return target == ErrKeyNotRegistered
	case 413:
		return target == ErrPayloadTooLarge
	case 429:
		return target == ErrRateLimited
	}
	return false
}

// NetworkError represents a network-level failure after retries were
// exhausted.
type NetworkError struct {
	Err     error
	URL     string
	Attempt int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// FHEVaultError implements the FHEVaultError interface.
func (e *NetworkError) FHEVaultError() {}
