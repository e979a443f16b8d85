package fhevault

import (
	"context"
	"crypto/sha256"
	"time"

	"github.com/fhevault/client-go/internal/crypto"
)

// PasswordProof is a commitment proving knowledge of a password without
// revealing it. The verifier replays SHA-256(challenge || password) and
// compares commitments.
type PasswordProof struct {
	Commitment string    `json:"commitment"` // base64url
	Challenge  string    `json:"challenge"`  // base64url, 32 bytes
	CreatedAt  time.Time `json:"createdAt"`
}

// GeneratePasswordProof produces a fresh proof of knowledge for a
// password. Every call uses a new random challenge, so proofs are not
// replayable.
func (c *Client) GeneratePasswordProof(ctx context.Context, password string) (*PasswordProof, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	challenge, err := crypto.RandomBytes(32)
	if err != nil {
		c.metrics.recordFailure(opProof)
		return nil, err
	}

	h := sha256.New()
	h.Write(challenge)
	h.Write([]byte(password))
	commitment := h.Sum(nil)

	c.metrics.record(opProof, time.Since(start))
	return &PasswordProof{
		Commitment: crypto.ToBase64URL(commitment),
		Challenge:  crypto.ToBase64URL(challenge),
		CreatedAt:  time.Now(),
	}, nil
}

// VerifyPasswordProof replays a proof against a candidate password.
func VerifyPasswordProof(proof *PasswordProof, password string) bool {
	if proof == nil {
		return false
	}
	challenge, err := crypto.FromBase64URL(proof.Challenge)
	if err != nil {
		return false
	}
	h := sha256.New()
	h.Write(challenge)
	h.Write([]byte(password))
	return crypto.ToBase64URL(h.Sum(nil)) == proof.Commitment
}
