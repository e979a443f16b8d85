package keyring

import (
	"fmt"
	"time"

	"github.com/fhevault/client-go/internal/crypto"
)

// BackupVersion is the current encrypted backup format version.
const BackupVersion = 1

// EncryptedBackup is a password-protected, device-independent export of a
// keypair. The salt and IV are freshly generated for every export, so two
// exports of the same keys under the same password never match.
type EncryptedBackup struct {
	Version    int       `json:"version"`
	Salt       string    `json:"salt"`       // base64url, 16 bytes
	IV         string    `json:"iv"`         // base64url
	Ciphertext string    `json:"ciphertext"` // base64url
	ExportedAt time.Time `json:"exportedAt"`
}

// Validate checks structural integrity of the backup before any key
// derivation happens. It does not prove the password is correct.
func (b *EncryptedBackup) Validate() error {
	if b == nil {
		return fmt.Errorf("nil backup")
	}
	if b.Version != BackupVersion {
		return fmt.Errorf("unsupported backup version %d", b.Version)
	}
	salt, err := crypto.FromBase64URL(b.Salt)
	if err != nil {
		return fmt.Errorf("invalid salt encoding: %w", err)
	}
	if len(salt) != crypto.ExportSaltSize {
		return fmt.Errorf("invalid salt length %d", len(salt))
	}
	iv, err := crypto.FromBase64URL(b.IV)
	if err != nil {
		return fmt.Errorf("invalid iv encoding: %w", err)
	}
	if len(iv) != crypto.AESNonceSize {
		return fmt.Errorf("invalid iv length %d", len(iv))
	}
	ct, err := crypto.FromBase64URL(b.Ciphertext)
	if err != nil {
		return fmt.Errorf("invalid ciphertext encoding: %w", err)
	}
	if len(ct) <= crypto.AESTagSize {
		return fmt.Errorf("ciphertext too short")
	}
	return nil
}
