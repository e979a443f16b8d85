package crypto

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/sha3"
)

// DeriveWrappingKey derives the device wrapping key from the fingerprint
// string. The derivation is deterministic: the same fingerprint always
// yields the same 256-bit key. The fixed salt keeps derivation stateless;
// see the package documentation for the security tradeoff.
func DeriveWrappingKey(fingerprint string) []byte {
	return pbkdf2.Key([]byte(fingerprint), []byte(WrapSalt), PBKDF2Iterations, AESKeySize, sha256.New)
}

// DeriveExportKey derives a one-time backup key from a user password and a
// per-export random salt.
func DeriveExportKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, PBKDF2Iterations, AESKeySize, sha256.New)
}

// DeriveKey derives a key using HKDF-SHA-512.
//
// Parameters:
//   - secret: the input key material (e.g., client key bytes)
//   - salt: optional salt value; if empty, a zero-filled salt is used
//   - info: context/application-specific info for domain separation
//   - length: desired output key length in bytes
func DeriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	if len(salt) == 0 {
		salt = make([]byte, sha512.Size)
	}

	reader := hkdf.New(sha512.New, secret, salt, info)
	key := make([]byte, length)

	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	return key, nil
}

// IndexHash computes the non-reversible SHA3-256 index hash of a search
// query. The collaborator uses it for indexing; the plaintext query cannot
// be recovered from it.
func IndexHash(query string) []byte {
	h := sha3.New256()
	h.Write([]byte(HKDFContext))
	h.Write([]byte{0})
	h.Write([]byte(query))
	return h.Sum(nil)
}
