package backend

import (
	"context"

	"github.com/fhevault/client-go/internal/crypto"
)

// Stand-in key material sizes for the simulation. The buffers are random
// and carry no structure; their only job is to exercise the same storage
// and transport paths as real TFHE keys.
const (
	simClientKeySize = 2048
	simPublicKeySize = 1024
	simServerKeySize = 4096
)

// simKeyInfo is the HKDF domain-separation label for deriving the
// simulation's AES key from the client key.
var simKeyInfo = []byte(crypto.HKDFContext + ":simulated-aead")

// Simulated is the fallback backend. Key generation produces random byte
// buffers standing in for TFHE key material; the encrypt operation derives
// an AES-256 key from the client key and seals with AES-256-GCM.
type Simulated struct{}

// NewSimulated returns the in-process simulation backend.
func NewSimulated() *Simulated {
	return &Simulated{}
}

// Name implements Backend.
func (s *Simulated) Name() string { return string(KindSimulated) }

// Simulated implements Backend.
func (s *Simulated) Simulated() bool { return true }

// GenerateKeyPair implements Backend.
func (s *Simulated) GenerateKeyPair(ctx context.Context) (*KeyPair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clientKey, err := crypto.RandomBytes(simClientKeySize)
	if err != nil {
		return nil, err
	}
	publicKey, err := crypto.RandomBytes(simPublicKeySize)
	if err != nil {
		return nil, err
	}
	serverKey, err := crypto.RandomBytes(simServerKeySize)
	if err != nil {
		return nil, err
	}

	return &KeyPair{
		Kind:      KindSimulated,
		ClientKey: clientKey,
		PublicKey: publicKey,
		ServerKey: serverKey,
	}, nil
}

// Encrypt implements Backend.
func (s *Simulated) Encrypt(ctx context.Context, kp *KeyPair, plaintext []byte) (*Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkPair(kp, KindSimulated); err != nil {
		return nil, err
	}

	key, err := s.aeadKey(kp)
	if err != nil {
		return nil, err
	}

	iv, err := crypto.NewNonce()
	if err != nil {
		return nil, err
	}

	data, err := crypto.Seal(key, iv, nil, plaintext)
	if err != nil {
		return nil, err
	}

	return &Envelope{Kind: KindSimulated, Data: data, IV: iv}, nil
}

// Decrypt implements Backend.
func (s *Simulated) Decrypt(ctx context.Context, kp *KeyPair, env *Envelope) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkPair(kp, KindSimulated); err != nil {
		return nil, err
	}
	if env.Kind != KindSimulated {
		return nil, ErrKindMismatch
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}

	key, err := s.aeadKey(kp)
	if err != nil {
		return nil, err
	}

	return crypto.Open(key, env.IV, nil, env.Data)
}

// Close implements Backend.
func (s *Simulated) Close(ctx context.Context) error { return nil }

func (s *Simulated) aeadKey(kp *KeyPair) ([]byte, error) {
	return crypto.DeriveKey(kp.ClientKey, nil, simKeyInfo, crypto.AESKeySize)
}
