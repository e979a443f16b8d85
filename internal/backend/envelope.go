package backend

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fhevault/client-go/internal/crypto"
)

// Envelope is the wire and storage form of an encrypted value. It is a
// tagged union: KindTFHE carries a sequence of per-unit ciphertext blocks,
// KindSimulated carries a single data/iv pair. The tag is mandatory so a
// ciphertext produced under one backend is never silently fed into the
// other backend's decrypt path.
type Envelope struct {
	Kind   Kind
	Blocks [][]byte // KindTFHE only
	Data   []byte   // KindSimulated only
	IV     []byte   // KindSimulated only
}

type envelopeWire struct {
	Kind   Kind     `json:"kind"`
	Blocks []string `json:"blocks,omitempty"`
	Data   string   `json:"data,omitempty"`
	IV     string   `json:"iv,omitempty"`
}

// Validate checks that the envelope's fields are consistent with its tag.
func (e *Envelope) Validate() error {
	switch e.Kind {
	case KindTFHE:
		if len(e.Blocks) == 0 {
			return fmt.Errorf("tfhe envelope has no ciphertext blocks")
		}
		if e.Data != nil || e.IV != nil {
			return fmt.Errorf("tfhe envelope carries simulated fields")
		}
	case KindSimulated:
		if len(e.Data) == 0 || len(e.IV) == 0 {
			return fmt.Errorf("simulated envelope missing data or iv")
		}
		if len(e.Blocks) != 0 {
			return fmt.Errorf("simulated envelope carries tfhe blocks")
		}
	default:
		return fmt.Errorf("unrecognized envelope kind %q", e.Kind)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	w := envelopeWire{Kind: e.Kind}
	switch e.Kind {
	case KindTFHE:
		w.Blocks = make([]string, len(e.Blocks))
		for i, b := range e.Blocks {
			w.Blocks[i] = crypto.ToBase64URL(b)
		}
	case KindSimulated:
		w.Data = crypto.ToBase64URL(e.Data)
		w.IV = crypto.ToBase64URL(e.IV)
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler, rejecting envelopes whose
// fields do not match their tag.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w envelopeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	out := Envelope{Kind: w.Kind}
	switch w.Kind {
	case KindTFHE:
		out.Blocks = make([][]byte, len(w.Blocks))
		for i, s := range w.Blocks {
			b, err := crypto.FromBase64URL(s)
			if err != nil {
				return fmt.Errorf("decode block %d: %w", i, err)
			}
			out.Blocks[i] = b
		}
	case KindSimulated:
		var err error
		if out.Data, err = crypto.FromBase64URL(w.Data); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
		if out.IV, err = crypto.FromBase64URL(w.IV); err != nil {
			return fmt.Errorf("decode iv: %w", err)
		}
	default:
		return fmt.Errorf("unrecognized envelope kind %q", w.Kind)
	}

	if err := out.Validate(); err != nil {
		return err
	}
	*e = out
	return nil
}

type keyPairWire struct {
	Kind      Kind   `json:"kind"`
	ClientKey string `json:"clientKey"`
	PublicKey string `json:"publicKey"`
	ServerKey string `json:"serverKey"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresAt int64  `json:"expiresAt"`
}

// MarshalJSON implements json.Marshaler. Incomplete pairs are never
// serialized; the record is all-or-nothing.
func (kp *KeyPair) MarshalJSON() ([]byte, error) {
	if !kp.Complete() {
		return nil, ErrIncompleteKeyPair
	}
	if kp.Kind != KindTFHE && kp.Kind != KindSimulated {
		return nil, fmt.Errorf("unrecognized key material kind %q", kp.Kind)
	}

	return json.Marshal(keyPairWire{
		Kind:      kp.Kind,
		ClientKey: crypto.ToBase64URL(kp.ClientKey),
		PublicKey: crypto.ToBase64URL(kp.PublicKey),
		ServerKey: crypto.ToBase64URL(kp.ServerKey),
		CreatedAt: kp.CreatedAt.UnixMilli(),
		ExpiresAt: kp.ExpiresAt.UnixMilli(),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (kp *KeyPair) UnmarshalJSON(data []byte) error {
	var w keyPairWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Kind != KindTFHE && w.Kind != KindSimulated {
		return fmt.Errorf("unrecognized key material kind %q", w.Kind)
	}

	out := KeyPair{Kind: w.Kind}
	var err error
	if out.ClientKey, err = crypto.FromBase64URL(w.ClientKey); err != nil {
		return fmt.Errorf("decode client key: %w", err)
	}
	if out.PublicKey, err = crypto.FromBase64URL(w.PublicKey); err != nil {
		return fmt.Errorf("decode public key: %w", err)
	}
	if out.ServerKey, err = crypto.FromBase64URL(w.ServerKey); err != nil {
		return fmt.Errorf("decode server key: %w", err)
	}
	if !out.Complete() {
		return ErrIncompleteKeyPair
	}

	out.CreatedAt = timeFromMilli(w.CreatedAt)
	out.ExpiresAt = timeFromMilli(w.ExpiresAt)
	*kp = out
	return nil
}

func timeFromMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
