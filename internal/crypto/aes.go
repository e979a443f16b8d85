package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// NewNonce returns a fresh random AES-GCM nonce.
func NewNonce() ([]byte, error) {
	nonce := make([]byte, AESNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return nonce, nil
}

// RandomBytes returns n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, fmt.Errorf("generate random bytes: %w", err)
	}
	return buf, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != AESKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), AESKeySize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return cipher.NewGCM(block)
}

// Seal encrypts plaintext with AES-256-GCM. The nonce is kept separate from
// the returned ciphertext so callers can store the two fields independently,
// as the wrapped-key record and backup formats do.
func Seal(key, nonce, aad, plaintext []byte) ([]byte, error) {
	if len(nonce) != AESNonceSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidNonceSize, len(nonce), AESNonceSize)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	return gcm.Seal(nil, nonce, plaintext, aad), nil
}

// Open decrypts an AES-256-GCM ciphertext produced by Seal. Authentication
// failure is reported as ErrDecryptionFailed without further detail; a wrong
// key and a tampered ciphertext are indistinguishable by design of GCM.
func Open(key, nonce, aad, ciphertext []byte) ([]byte, error) {
	if len(nonce) != AESNonceSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidNonceSize, len(nonce), AESNonceSize)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

// EncryptAES encrypts data using AES-256-GCM with a combined output.
// Returns: nonce (12 bytes) || ciphertext || tag (16 bytes)
func EncryptAES(key, plaintext, nonce []byte) ([]byte, error) {
	ciphertext, err := Seal(key, nonce, nil, plaintext)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, nonce...), ciphertext...), nil
}

// DecryptAES decrypts a combined nonce||ciphertext||tag buffer produced by
// EncryptAES.
func DecryptAES(key, ciphertext []byte) ([]byte, error) {
	if len(key) != AESKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), AESKeySize)
	}

	if len(ciphertext) < AESNonceSize+AESTagSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	return Open(key, ciphertext[:AESNonceSize], nil, ciphertext[AESNonceSize:])
}
