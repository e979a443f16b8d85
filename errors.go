package fhevault

import (
	"errors"
	"fmt"
	"time"

	"github.com/fhevault/client-go/internal/api"
	"github.com/fhevault/client-go/internal/backend"
	"github.com/fhevault/client-go/internal/crypto"
	"github.com/fhevault/client-go/internal/keyring"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrMissingAPIKey is returned when no API key is provided.
	ErrMissingAPIKey = errors.New("API key is required")

	// ErrClientClosed is returned when operations are attempted on a closed client.
	ErrClientClosed = errors.New("client has been closed")

	// ErrNotInitialized is returned when an operation runs before Initialize.
	ErrNotInitialized = errors.New("client is not initialized")

	// ErrNoKeyPair is returned when an operation needs keys and none are loaded.
	ErrNoKeyPair = errors.New("no keypair available")

	// ErrKeyExpired is returned when a keypair is past its lifetime, for
	// example in an imported backup. A live keypair that expires is
	// regenerated instead.
	ErrKeyExpired = errors.New("keypair has expired")

	// ErrEmptyPassword is returned when an empty password is submitted.
	ErrEmptyPassword = errors.New("password must not be empty")

	// ErrDecryptionFailed is returned when a ciphertext cannot be opened.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrImportFailed is returned when a key backup cannot be decrypted,
	// typically because the password is wrong.
	ErrImportFailed = errors.New("key import failed")

	// ErrSearchUnavailable is returned when encrypted search cannot reach
	// the collaborator. Search has no client-side fallback.
	ErrSearchUnavailable = errors.New("encrypted search unavailable")

	// ErrUnauthorized is returned when the API key is invalid or expired.
	ErrUnauthorized = errors.New("invalid or expired API key")

	// ErrRateLimited is returned when the API rate limit is exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrSignatureInvalid is returned when a collaborator response fails
	// signature verification. It is never masked by a fallback.
	ErrSignatureInvalid = errors.New("signature verification failed")
)

// FHEVaultError is implemented by all SDK errors.
type FHEVaultError interface {
	error
	FHEVaultError() // marker method
}

// APIError represents an HTTP error from the collaborator API.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string // if returned by server
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
	case 429:
		return target == ErrRateLimited
	}
	return false
}

// NetworkError represents a network-level failure.
type NetworkError struct {
	Err     error
	URL     string
	Attempt int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// FHEVaultError implements the FHEVaultError interface.
func (e *NetworkError) FHEVaultError() {}

// TimeoutError represents an operation that exceeded its deadline.
type TimeoutError struct {
	Operation string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %v", e.Operation, e.Timeout)
}

// FHEVaultError implements the FHEVaultError interface.
func (e *TimeoutError) FHEVaultError() {}

// EncryptionError represents a failure inside the encryption backend.
type EncryptionError struct {
	Operation string // "encrypt", "decrypt", "keygen"
	Backend   string // "tfhe" or "simulated"
	Err       error
}

func (e *EncryptionError) Error() string {
	if e.Backend == "" {
		return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s failed on %s backend: %v", e.Operation, e.Backend, e.Err)
}

// Unwrap returns the underlying error.
func (e *EncryptionError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *EncryptionError) Is(target error) bool {
	if target == ErrDecryptionFailed {
		return e.Operation == "decrypt"
	}
	return false
}

// FHEVaultError implements the FHEVaultError interface.
func (e *EncryptionError) FHEVaultError() {}

// SignatureVerificationError indicates a collaborator response that does
// not match the pinned signing key. Treat as potential tampering.
type SignatureVerificationError struct {
	Operation string
	Err       error
}

func (e *SignatureVerificationError) Error() string {
	return fmt.Sprintf("signature verification failed for %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *SignatureVerificationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *SignatureVerificationError) Is(target error) bool {
	return target == ErrSignatureInvalid
}

// FHEVaultError implements the FHEVaultError interface.
func (e *SignatureVerificationError) FHEVaultError() {}

// ValidationError contains multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Errors)
}

// FHEVaultError implements the FHEVaultError interface.
func (e *ValidationError) FHEVaultError() {}

// wrapError converts internal errors to public errors so that errors.Is()
// checks work with the package sentinels.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
			RequestID:  apiErr.RequestID,
		}
	}

	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return &NetworkError{
			Err:     netErr.Err,
			URL:     netErr.URL,
			Attempt: netErr.Attempt,
		}
	}

	if errors.Is(err, api.ErrBadSignature) {
		return &SignatureVerificationError{Operation: op, Err: err}
	}
	if errors.Is(err, crypto.ErrDecryptionFailed) || errors.Is(err, backend.ErrKindMismatch) {
		return &EncryptionError{Operation: "decrypt", Err: err}
	}
	if errors.Is(err, keyring.ErrImportDecryption) {
		return fmt.Errorf("%w: %v", ErrImportFailed, err)
	}
	if errors.Is(err, keyring.ErrImportExpired) {
		return fmt.Errorf("%w: %v", ErrKeyExpired, err)
	}
	if errors.Is(err, keyring.ErrNoKeys) {
		return ErrNoKeyPair
	}

	return err
}

// fallbackEligible reports whether a collaborator failure may be absorbed
// by a client-side fallback. Signature failures and authorization errors
// are always surfaced.
func fallbackEligible(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSignatureInvalid) || errors.Is(err, ErrUnauthorized) {
		return false
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == 429 || apiErr.StatusCode == 404
	}
	var timeoutErr *TimeoutError
	return errors.As(err, &timeoutErr)
}
