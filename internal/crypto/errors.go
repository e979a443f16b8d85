package crypto

import "errors"

var (
	// ErrDecryptionFailed is returned when authenticated decryption fails.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidKeySize is returned when the AES key size is invalid.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidNonceSize is returned when the nonce size is invalid.
	ErrInvalidNonceSize = errors.New("invalid nonce size")

	// ErrSignatureVerificationFailed is returned when verification of a
	// signed collaborator response fails.
	ErrSignatureVerificationFailed = errors.New("signature verification failed")

	// ErrInvalidSigningKeySize is returned when a pinned server signing
	// key has an invalid size.
	ErrInvalidSigningKeySize = errors.New("invalid signing key size")
)
