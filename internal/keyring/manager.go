package keyring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/awnumar/memguard"
	"github.com/rs/zerolog"

	"github.com/fhevault/client-go/internal/backend"
	"github.com/fhevault/client-go/internal/crypto"
)

const (
	// MaxKeyAge is the hard lifetime of a keypair. A pair older than this
	// is purged on load rather than returned.
	MaxKeyAge = 7 * 24 * time.Hour

	// DefaultRotationWarning is the pre-expiry window in which loads start
	// advising rotation.
	DefaultRotationWarning = 24 * time.Hour
)

var (
	// ErrStoreWrite reports a failed persistence of the wrapped keypair.
	ErrStoreWrite = errors.New("key store write failed")

	// ErrNoKeys reports an export attempt with no stored keypair.
	ErrNoKeys = errors.New("no keypair available")

	// ErrImportDecryption reports a backup that could not be opened with
	// the supplied password. Wrong password and corrupted backup are
	// deliberately indistinguishable.
	ErrImportDecryption = errors.New("backup decryption failed")

	// ErrImportExpired reports a backup whose keypair is already past its
	// lifetime and would be purged on the next load.
	ErrImportExpired = errors.New("backup keypair expired")
)

// recordAAD binds ciphertexts to the record they live in.
var recordAAD = []byte(RecordID)

// Config parameterizes a Manager. Store and Fingerprint are required.
type Config struct {
	Store           Store
	Fingerprint     func() string
	RotationWarning time.Duration
	Log             zerolog.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Manager owns the wrapped keypair record: it derives and caches the
// device wrapping key, and applies the expiry and rotation policy on
// every load. Safe for concurrent use.
type Manager struct {
	store        Store
	fingerprint  func() string
	rotationWarn time.Duration
	log          zerolog.Logger
	now          func() time.Time

	mu          sync.Mutex
	wrapKey     *memguard.Enclave
	rotationDue bool
}

// NewManager builds a Manager from cfg.
func NewManager(cfg Config) *Manager {
	warn := cfg.RotationWarning
	if warn <= 0 {
		warn = DefaultRotationWarning
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		store:        cfg.Store,
		fingerprint:  cfg.Fingerprint,
		rotationWarn: warn,
		log:          cfg.Log,
		now:          now,
	}
}

// wrappingKey opens the cached wrapping-key enclave, deriving it from the
// device fingerprint on first use. The caller must Destroy the returned
// buffer.
func (m *Manager) wrappingKey() (*memguard.LockedBuffer, error) {
	if m.wrapKey == nil {
		key := crypto.DeriveWrappingKey(m.fingerprint())
		// NewEnclave wipes the source slice.
		m.wrapKey = memguard.NewEnclave(key)
	}
	buf, err := m.wrapKey.Open()
	if err != nil {
		return nil, fmt.Errorf("open wrapping key enclave: %w", err)
	}
	return buf, nil
}

// Load returns the stored keypair, or (nil, nil) when no usable pair
// exists. A record that fails to decrypt, fails to parse, or has expired
// counts as missing; expired records are purged as a side effect. A
// successful load refreshes the record's access timestamp.
func (m *Manager) Load(ctx context.Context) (*backend.KeyPair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.store.Get(ctx, RecordID)
	if err != nil {
		m.log.Warn().Err(err).Msg("key store read failed, treating keypair as missing")
		return nil, nil
	}
	if rec == nil {
		return nil, nil
	}

	pair, err := m.openRecord(rec)
	if err != nil {
		m.log.Warn().Err(err).Msg("stored keypair unreadable, treating as missing")
		return nil, nil
	}

	now := m.now()
	if pair.Expired(now) {
		m.log.Info().
			Time("expiresAt", pair.ExpiresAt).
			Msg("stored keypair expired, purging")
		if err := m.store.Delete(ctx, RecordID); err != nil {
			m.log.Warn().Err(err).Msg("failed to purge expired keypair")
		}
		m.rotationDue = false
		return nil, nil
	}

	if remaining := pair.ExpiresAt.Sub(now); remaining <= m.rotationWarn {
		m.rotationDue = true
		m.log.Warn().
			Dur("remaining", remaining).
			Msg("keypair approaching expiry, rotation advised")
	} else {
		m.rotationDue = false
	}

	rec.LastAccessed = now.UnixMilli()
	if err := m.store.Put(ctx, rec); err != nil {
		m.log.Warn().Err(err).Msg("failed to refresh key access timestamp")
	}

	return pair, nil
}

// Save wraps and persists pair under the device wrapping key. A pair
// without lifecycle timestamps is stamped with the current time and the
// standard lifetime. A fresh IV is used for every save.
func (m *Manager) Save(ctx context.Context, pair *backend.KeyPair) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if pair.CreatedAt.IsZero() {
		pair.CreatedAt = now
	}
	if pair.ExpiresAt.IsZero() {
		pair.ExpiresAt = pair.CreatedAt.Add(MaxKeyAge)
	}
	if !pair.Complete() {
		return backend.ErrIncompleteKeyPair
	}

	rec, err := m.sealRecord(pair, now)
	if err != nil {
		return err
	}
	if err := m.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}

	m.rotationDue = false
	m.log.Debug().Time("expiresAt", pair.ExpiresAt).Msg("keypair persisted")
	return nil
}

// Clear removes the stored keypair and drops the cached wrapping key.
// Clearing an empty store succeeds.
func (m *Manager) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Delete(ctx, RecordID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	m.wrapKey = nil
	m.rotationDue = false
	m.log.Info().Msg("keypair cleared")
	return nil
}

// RotationDue reports whether the last load fell inside the rotation
// warning window.
func (m *Manager) RotationDue() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rotationDue
}

// Export produces a password-protected backup of the stored keypair. The
// salt and IV are freshly generated, so repeated exports differ even for
// identical inputs.
func (m *Manager) Export(ctx context.Context, password string) (*EncryptedBackup, error) {
	pair, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, ErrNoKeys
	}

	plaintext, err := json.Marshal(pair)
	if err != nil {
		return nil, fmt.Errorf("serialize keypair: %w", err)
	}

	salt, err := crypto.RandomBytes(crypto.ExportSaltSize)
	if err != nil {
		return nil, err
	}
	iv, err := crypto.NewNonce()
	if err != nil {
		return nil, err
	}

	key := crypto.DeriveExportKey(password, salt)
	ciphertext, err := crypto.Seal(key, iv, nil, plaintext)
	if err != nil {
		return nil, err
	}

	return &EncryptedBackup{
		Version:    BackupVersion,
		Salt:       crypto.ToBase64URL(salt),
		IV:         crypto.ToBase64URL(iv),
		Ciphertext: crypto.ToBase64URL(ciphertext),
		ExportedAt: m.now(),
	}, nil
}

// Import decrypts backup with password and installs the contained
// keypair under the device wrapping key. The backup is fully validated
// and decrypted before any state changes, so a failed import leaves the
// currently stored keypair untouched.
func (m *Manager) Import(ctx context.Context, backup *EncryptedBackup, password string) (*backend.KeyPair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := backup.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportDecryption, err)
	}

	salt, _ := crypto.FromBase64URL(backup.Salt)
	iv, _ := crypto.FromBase64URL(backup.IV)
	ciphertext, _ := crypto.FromBase64URL(backup.Ciphertext)

	key := crypto.DeriveExportKey(password, salt)
	plaintext, err := crypto.Open(key, iv, nil, ciphertext)
	if err != nil {
		return nil, ErrImportDecryption
	}

	var pair backend.KeyPair
	if err := json.Unmarshal(plaintext, &pair); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportDecryption, err)
	}
	if !pair.Complete() {
		return nil, fmt.Errorf("%w: incomplete keypair", ErrImportDecryption)
	}
	if pair.Expired(m.now()) {
		return nil, ErrImportExpired
	}

	if err := m.Save(ctx, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// sealRecord wraps pair into a store record under the device key.
// Caller holds m.mu.
func (m *Manager) sealRecord(pair *backend.KeyPair, now time.Time) (*WrappedKeyRecord, error) {
	buf, err := m.wrappingKey()
	if err != nil {
		return nil, err
	}
	defer buf.Destroy()

	plaintext, err := json.Marshal(pair)
	if err != nil {
		return nil, fmt.Errorf("serialize keypair: %w", err)
	}
	iv, err := crypto.NewNonce()
	if err != nil {
		return nil, err
	}
	ciphertext, err := crypto.Seal(buf.Bytes(), iv, recordAAD, plaintext)
	if err != nil {
		return nil, err
	}

	return &WrappedKeyRecord{
		ID:           RecordID,
		IV:           crypto.ToBase64URL(iv),
		Ciphertext:   crypto.ToBase64URL(ciphertext),
		LastAccessed: now.UnixMilli(),
	}, nil
}

// openRecord unwraps a store record into a keypair. Caller holds m.mu.
func (m *Manager) openRecord(rec *WrappedKeyRecord) (*backend.KeyPair, error) {
	buf, err := m.wrappingKey()
	if err != nil {
		return nil, err
	}
	defer buf.Destroy()

	iv, err := crypto.FromBase64URL(rec.IV)
	if err != nil {
		return nil, fmt.Errorf("invalid record iv: %w", err)
	}
	ciphertext, err := crypto.FromBase64URL(rec.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("invalid record ciphertext: %w", err)
	}

	plaintext, err := crypto.Open(buf.Bytes(), iv, recordAAD, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("unwrap keypair: %w", err)
	}

	var pair backend.KeyPair
	if err := json.Unmarshal(plaintext, &pair); err != nil {
		return nil, fmt.Errorf("parse keypair: %w", err)
	}
	if !pair.Complete() {
		return nil, fmt.Errorf("stored keypair incomplete")
	}
	return &pair, nil
}
