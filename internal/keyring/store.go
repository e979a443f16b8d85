// Package keyring manages the device-bound key lifecycle: wrapping-key
// derivation from the device fingerprint, the encrypted single-record key
// store, expiration and rotation bookkeeping, and password-based backups.
package keyring

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// RecordID is the fixed identifier of the single wrapped-key record.
// Exactly one record exists per device profile.
const RecordID = "fhevault-keypair-v1"

// WrappedKeyRecord is the at-rest representation of the keypair: an
// authenticated-encryption envelope plus access metadata. LastAccessed is
// plaintext by design; it carries no key material.
type WrappedKeyRecord struct {
	ID           string `json:"id"`
	IV           string `json:"iv"`         // base64url
	Ciphertext   string `json:"ciphertext"` // base64url
	LastAccessed int64  `json:"lastAccessed"`
}

// Store is the local encrypted key-value store contract. Get returns
// (nil, nil) on a miss. Implementations must make Put atomic: after a
// failed Put the prior record must not be readable again.
type Store interface {
	Get(ctx context.Context, id string) (*WrappedKeyRecord, error)
	Put(ctx context.Context, rec *WrappedKeyRecord) error
	Delete(ctx context.Context, id string) error
}

// FileStore persists the single record as a JSON file with 0600
// permissions. Writes go through a temp file and rename so a crashed
// write never leaves a truncated record. Concurrent mutation of the same
// path by two independent processes is a documented limitation.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store rooted at path. Parent directories are
// created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultStorePath returns the conventional per-user store location.
func DefaultStorePath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, "fhevault", "keystore.json"), nil
}

// Get implements Store.
func (s *FileStore) Get(ctx context.Context, id string) (*WrappedKeyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read key store: %w", err)
	}

	var rec WrappedKeyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse key store: %w", err)
	}
	if rec.ID != id {
		return nil, nil
	}
	return &rec, nil
}

// Put implements Store.
func (s *FileStore) Put(ctx context.Context, rec *WrappedKeyRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".keystore-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace key store: %w", err)
	}
	return nil
}

// Delete implements Store. Deleting an absent record is not an error.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete key store: %w", err)
	}
	return nil
}

// MemStore is an in-memory Store for tests and in-memory-only sessions.
type MemStore struct {
	mu      sync.Mutex
	rec     *WrappedKeyRecord
	FailPut bool // when set, Put fails and drops the prior record
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Get implements Store.
func (m *MemStore) Get(ctx context.Context, id string) (*WrappedKeyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil || m.rec.ID != id {
		return nil, nil
	}
	cp := *m.rec
	return &cp, nil
}

// Put implements Store.
func (m *MemStore) Put(ctx context.Context, rec *WrappedKeyRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPut {
		// Mirrors the atomicity contract: a failed put leaves no readable
		// prior record.
		m.rec = nil
		return fmt.Errorf("put failed")
	}
	cp := *rec
	m.rec = &cp
	return nil
}

// Delete implements Store.
func (m *MemStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = nil
	return nil
}
