package crypto

import (
	"fmt"

	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
)

// Verify checks an ML-DSA-65 signature over a collaborator response body.
// publicKey is the pinned server signing key in raw binary form.
func Verify(publicKey, message, signature []byte) error {
	if len(publicKey) != MLDSAPublicKeySize {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidSigningKeySize, len(publicKey), MLDSAPublicKeySize)
	}

	pk := &mldsa65.PublicKey{}
	if err := pk.UnmarshalBinary(publicKey); err != nil {
		return fmt.Errorf("failed to parse public key: %w", err)
	}

	if !mldsa65.Verify(pk, message, nil, signature) {
		return ErrSignatureVerificationFailed
	}

	return nil
}

// ValidateServerPublicKey reports whether a base64url-encoded server
// signing key decodes to the correct ML-DSA-65 public key size.
func ValidateServerPublicKey(serverPublicKey string) bool {
	publicKey, err := FromBase64URL(serverPublicKey)
	if err != nil {
		return false
	}
	return len(publicKey) == MLDSAPublicKeySize
}
