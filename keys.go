package fhevault

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fhevault/client-go/internal/backend"
	"github.com/fhevault/client-go/internal/keyring"
)

// EncryptedBackup is a password-protected, device-independent key export.
type EncryptedBackup = keyring.EncryptedBackup

// KeyInfo describes the active keypair without exposing key material.
type KeyInfo struct {
	Backend     string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	RotationDue bool
}

// KeyInfo returns metadata for the active keypair, or ErrNoKeyPair when
// none is loaded.
func (c *Client) KeyInfo() (*KeyInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClientClosed
	}
	if c.pair == nil {
		return nil, ErrNoKeyPair
	}
	return &KeyInfo{
		Backend:     string(c.pair.Kind),
		CreatedAt:   c.pair.CreatedAt,
		ExpiresAt:   c.pair.ExpiresAt,
		RotationDue: c.keys.RotationDue(),
	}, nil
}

// RotateKeys generates a fresh keypair on the active backend and replaces
// the stored one. Envelopes produced under the old keys become
// undecryptable.
func (c *Client) RotateKeys(ctx context.Context) error {
	c.mu.RLock()
	be := c.backend
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrClientClosed
	}
	if be == nil {
		return ErrNotInitialized
	}

	pair, err := be.GenerateKeyPair(ctx)
	if err != nil {
		return &EncryptionError{Operation: "keygen", Backend: be.Name(), Err: err}
	}
	if err := c.keys.Save(ctx, pair); err != nil {
		return err
	}

	c.mu.Lock()
	c.pair = pair
	c.mu.Unlock()

	c.log.Info().Str("backend", be.Name()).Msg("keypair rotated")
	return nil
}

// ClearKeys removes the stored keypair and forgets the in-memory one.
// The next Initialize generates fresh keys.
func (c *Client) ClearKeys(ctx context.Context) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	if err := c.keys.Clear(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	c.pair = nil
	c.mu.Unlock()
	return nil
}

// ExportKeys produces a password-protected backup of the stored keypair
// for transfer to another device. Each export uses fresh randomness, so
// two exports of the same keys never match.
func (c *Client) ExportKeys(ctx context.Context, password string) (*EncryptedBackup, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}
	backup, err := c.keys.Export(ctx, password)
	if err != nil {
		return nil, wrapError("key export", err)
	}
	return backup, nil
}

// ImportKeys installs a keypair from a backup produced by ExportKeys,
// rewrapping it under this device's fingerprint. A wrong password fails
// with ErrImportFailed and leaves any existing keypair untouched.
func (c *Client) ImportKeys(ctx context.Context, backup *EncryptedBackup, password string) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	pair, err := c.keys.Import(ctx, backup, password)
	if err != nil {
		return wrapError("key import", err)
	}

	c.mu.Lock()
	// Adopt the imported pair only if it matches the active backend;
	// otherwise it waits in the store for the next Initialize.
	if c.backend != nil && backend.Kind(c.backend.Name()) == pair.Kind {
		c.pair = pair
	}
	c.mu.Unlock()
	return nil
}

// ExportKeysToFile writes an ExportKeys backup as JSON with 0600
// permissions.
func (c *Client) ExportKeysToFile(ctx context.Context, path, password string) error {
	backup, err := c.ExportKeys(ctx, password)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize backup: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write backup file: %w", err)
	}
	return nil
}

// ImportKeysFromFile reads a backup written by ExportKeysToFile and
// installs it.
func (c *Client) ImportKeysFromFile(ctx context.Context, path, password string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read backup file: %w", err)
	}
	var backup EncryptedBackup
	if err := json.Unmarshal(data, &backup); err != nil {
		return fmt.Errorf("parse backup file: %w", err)
	}
	return c.ImportKeys(ctx, &backup, password)
}
