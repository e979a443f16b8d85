package fhevault

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// PasswordMetadata is the non-secret context stored alongside a password
// entry. It is encrypted as one unit; the collaborator never sees it in
// the clear.
type PasswordMetadata struct {
	URL      string    `json:"url,omitempty"`
	Username string    `json:"username,omitempty"`
	Notes    string    `json:"notes,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
	Modified time.Time `json:"modified,omitempty"`
}

// EncryptPassword encrypts a password with the active backend and
// returns a tagged envelope suitable for storage or collaborator calls.
func (c *Client) EncryptPassword(ctx context.Context, password string) (*Envelope, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	be, pair, err := c.session(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	env, err := be.Encrypt(ctx, pair, []byte(password))
	if err != nil {
		c.metrics.recordFailure(opEncrypt)
		return nil, &EncryptionError{Operation: "encrypt", Backend: be.Name(), Err: err}
	}
	c.metrics.record(opEncrypt, time.Since(start))
	return env, nil
}

// EncryptPasswordMetadata encrypts a metadata record as a single unit.
func (c *Client) EncryptPasswordMetadata(ctx context.Context, meta PasswordMetadata) (*Envelope, error) {
	be, pair, err := c.session(ctx)
	if err != nil {
		return nil, err
	}

	plaintext, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("serialize metadata: %w", err)
	}

	start := time.Now()
	env, err := be.Encrypt(ctx, pair, plaintext)
	if err != nil {
		c.metrics.recordFailure(opEncrypt)
		return nil, &EncryptionError{Operation: "encrypt", Backend: be.Name(), Err: err}
	}
	c.metrics.record(opEncrypt, time.Since(start))
	return env, nil
}

// DecryptPassword opens an envelope produced by EncryptPassword. The
// envelope must have been produced by the active backend with the
// current keypair.
func (c *Client) DecryptPassword(ctx context.Context, env *Envelope) (string, error) {
	be, pair, err := c.session(ctx)
	if err != nil {
		return "", err
	}

	start := time.Now()
	plaintext, err := be.Decrypt(ctx, pair, env)
	if err != nil {
		c.metrics.recordFailure(opDecrypt)
		return "", &EncryptionError{Operation: "decrypt", Backend: be.Name(), Err: err}
	}
	c.metrics.record(opDecrypt, time.Since(start))
	return string(plaintext), nil
}

// DecryptPasswordMetadata opens a metadata envelope.
func (c *Client) DecryptPasswordMetadata(ctx context.Context, env *Envelope) (*PasswordMetadata, error) {
	be, pair, err := c.session(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	plaintext, err := be.Decrypt(ctx, pair, env)
	if err != nil {
		c.metrics.recordFailure(opDecrypt)
		return nil, &EncryptionError{Operation: "decrypt", Backend: be.Name(), Err: err}
	}

	var meta PasswordMetadata
	if err := json.Unmarshal(plaintext, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	c.metrics.record(opDecrypt, time.Since(start))
	return &meta, nil
}
