// Package backend defines the cryptographic backend contract and its two
// implementations: a TFHE module compiled to WASM and loaded at runtime,
// and an in-process simulation used when the module is unavailable. Both
// expose the identical operation contract; callers can only tell them
// apart through the Simulated flag carried on results.
package backend

import (
	"context"
	"errors"
	"time"
)

// Kind tags key material and ciphertexts with the backend that produced
// them. A value produced under one kind is never fed to the other
// backend's decrypt path.
type Kind string

const (
	// KindTFHE marks material produced by the WASM TFHE module.
	KindTFHE Kind = "tfhe"
	// KindSimulated marks material produced by the in-process simulation.
	KindSimulated Kind = "simulated"
)

var (
	// ErrUnavailable is returned when the real backend cannot be acquired.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrKindMismatch is returned when key material or a ciphertext is
	// handed to a backend of a different kind.
	ErrKindMismatch = errors.New("backend kind mismatch")

	// ErrIncompleteKeyPair is returned when a keypair is missing one of
	// its three parts. Partial keys are never used.
	ErrIncompleteKeyPair = errors.New("incomplete keypair")
)

// KeyPair is the client/public/server-evaluation key triple. ClientKey is
// secret and owned by the key lifecycle manager while resident in memory;
// ServerKey is eventually transmitted to the collaborator for homomorphic
// evaluation.
type KeyPair struct {
	Kind      Kind
	ClientKey []byte
	PublicKey []byte
	ServerKey []byte
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Complete reports whether all three key parts are present.
func (kp *KeyPair) Complete() bool {
	return kp != nil && len(kp.ClientKey) > 0 && len(kp.PublicKey) > 0 && len(kp.ServerKey) > 0
}

// Expired reports whether the pair is past its expiry at the given time.
func (kp *KeyPair) Expired(now time.Time) bool {
	return !kp.ExpiresAt.IsZero() && now.After(kp.ExpiresAt)
}

// Backend is the operation contract shared by the TFHE module and the
// simulation. Decrypt exists for the import validation path and tests;
// production flows never decrypt on the client.
type Backend interface {
	// Name returns a short identifier used in status and diagnostics.
	Name() string

	// Simulated reports whether this backend is the in-process simulation.
	Simulated() bool

	// GenerateKeyPair produces fresh key material. Timestamps are stamped
	// by the key lifecycle manager, not here.
	GenerateKeyPair(ctx context.Context) (*KeyPair, error)

	// Encrypt seals plaintext under the keypair and returns an envelope
	// tagged with this backend's kind.
	Encrypt(ctx context.Context, kp *KeyPair, plaintext []byte) (*Envelope, error)

	// Decrypt opens an envelope produced by this backend. An envelope
	// tagged with a different kind is rejected with ErrKindMismatch.
	Decrypt(ctx context.Context, kp *KeyPair, env *Envelope) ([]byte, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}

// checkPair validates that a keypair is usable by a backend of the given kind.
func checkPair(kp *KeyPair, kind Kind) error {
	if !kp.Complete() {
		return ErrIncompleteKeyPair
	}
	if kp.Kind != kind {
		return ErrKindMismatch
	}
	return nil
}
