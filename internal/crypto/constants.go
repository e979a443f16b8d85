package crypto

const (
	// HKDFContext is the context string used in HKDF key derivation
	// for domain separation.
	HKDFContext = "fhevault:client:v1"

	// WrapSalt is the fixed application-level salt for wrapping-key
	// derivation. A per-installation salt would require persisting state
	// next to the ciphertext; the derivation is kept stateless instead,
	// a flagged weakening of this layer.
	WrapSalt = "fhevault-device-wrap-v1"

	// PBKDF2Iterations is the iteration count for all PBKDF2 derivations.
	PBKDF2Iterations = 100_000

	// ExportSaltSize is the size of the random salt generated for each
	// password-based export, in bytes.
	ExportSaltSize = 16

	// AESKeySize is the size of an AES-256 key in bytes.
	AESKeySize = 32
	// AESNonceSize is the size of an AES-GCM nonce in bytes.
	AESNonceSize = 12
	// AESTagSize is the size of an AES-GCM authentication tag in bytes.
	AESTagSize = 16

	// MLDSAPublicKeySize is the size of an ML-DSA-65 public key in bytes.
	MLDSAPublicKeySize = 1952
	// MLDSASignatureSize is the size of an ML-DSA-65 signature in bytes.
	MLDSASignatureSize = 3309
)

// AlgsCiphersuite is the canonical string representation of the algorithm suite.
var AlgsCiphersuite = "AES-256-GCM:PBKDF2-SHA-256:HKDF-SHA-512:ML-DSA-65"
