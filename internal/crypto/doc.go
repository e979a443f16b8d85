// Package crypto provides the cryptographic primitives shared by the
// FHEVault client: authenticated symmetric encryption, key derivation,
// and verification of signed collaborator responses.
//
// # Algorithm Suite
//
// The package uses the following cryptographic algorithms:
//
//   - AES-256-GCM: Authenticated encryption for wrapping the keypair at
//     rest, for password-based backups, and for the simulated backend's
//     encrypt operation.
//
//   - PBKDF2-SHA-256 (RFC 8018): Derivation of the device wrapping key
//     from the fingerprint string, and of one-time export keys from a
//     user-supplied password. 100,000 iterations in both cases.
//
//   - HKDF-SHA-512 (RFC 5869): Expansion of client key material into the
//     simulated backend's encryption key, with domain separation.
//
//   - ML-DSA-65 (NIST FIPS 204): Verification of signatures the scoring
//     collaborator attaches to its responses.
//
//   - SHA3-256: Non-reversible index hashes for encrypted search.
//
// # Security Model
//
// The wrapping key is a deterministic function of stable device signals.
// It is recomputed on every cold start and must never be written to the
// key store or transmitted. Fresh salts and nonces are mandatory for the
// export path; the wrapping-key salt is a fixed application constant,
// which is a known, documented weakening of that layer.
//
// Keep client key material secure. It must never be logged, transmitted
// in plaintext, or included in error messages.
package crypto
