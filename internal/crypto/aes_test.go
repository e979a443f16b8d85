package crypto

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"
)

func TestSeal_Open_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		plaintext []byte
		aad       []byte
	}{
		{"empty", []byte{}, nil},
		{"simple", []byte("hello world"), nil},
		{"json", []byte(`{"clientKey":"abc","serverKey":"def"}`), nil},
		{"binary", []byte{0x00, 0xff, 0x7f, 0x80}, nil},
		{"with aad", []byte("wrapped keypair"), []byte("fhevault-keystore")},
		{"large", make([]byte, 10000), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := make([]byte, AESKeySize)
			if _, err := rand.Read(key); err != nil {
				t.Fatal(err)
			}

			nonce, err := NewNonce()
			if err != nil {
				t.Fatalf("NewNonce() error = %v", err)
			}

			ciphertext, err := Seal(key, nonce, tt.aad, tt.plaintext)
			if err != nil {
				t.Fatalf("Seal() error = %v", err)
			}

			if len(ciphertext) != len(tt.plaintext)+AESTagSize {
				t.Errorf("ciphertext length = %d, want %d", len(ciphertext), len(tt.plaintext)+AESTagSize)
			}

			decrypted, err := Open(key, nonce, tt.aad, ciphertext)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}

			if !bytes.Equal(decrypted, tt.plaintext) {
				t.Errorf("decrypted = %v, want %v", decrypted, tt.plaintext)
			}
		})
	}
}

func TestSeal_InvalidKeySize(t *testing.T) {
	tests := []struct {
		name    string
		keySize int
	}{
		{"empty", 0},
		{"too short", 16},
		{"too long", 64},
	}

	nonce := make([]byte, AESNonceSize)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := make([]byte, tt.keySize)
			_, err := Seal(key, nonce, nil, []byte("test"))
			if !errors.Is(err, ErrInvalidKeySize) {
				t.Errorf("expected ErrInvalidKeySize, got %v", err)
			}
		})
	}
}

func TestSeal_InvalidNonceSize(t *testing.T) {
	key := make([]byte, AESKeySize)

	for _, size := range []int{0, 8, 16} {
		nonce := make([]byte, size)
		if _, err := Seal(key, nonce, nil, []byte("test")); !errors.Is(err, ErrInvalidNonceSize) {
			t.Errorf("nonce size %d: expected ErrInvalidNonceSize, got %v", size, err)
		}
	}
}

func TestOpen_TamperedCiphertext(t *testing.T) {
	key := make([]byte, AESKeySize)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}

	nonce, err := NewNonce()
	if err != nil {
		t.Fatal(err)
	}

	ciphertext, err := Seal(key, nonce, nil, []byte("sensitive key material"))
	if err != nil {
		t.Fatal(err)
	}

	ciphertext[len(ciphertext)/2] ^= 0xff

	if _, err := Open(key, nonce, nil, ciphertext); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestOpen_WrongKey(t *testing.T) {
	key1 := make([]byte, AESKeySize)
	key2 := make([]byte, AESKeySize)
	if _, err := rand.Read(key1); err != nil {
		t.Fatal(err)
	}
	if _, err := rand.Read(key2); err != nil {
		t.Fatal(err)
	}

	nonce, err := NewNonce()
	if err != nil {
		t.Fatal(err)
	}

	ciphertext, err := Seal(key1, nonce, nil, []byte("sensitive key material"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Open(key2, nonce, nil, ciphertext); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestOpen_WrongAAD(t *testing.T) {
	key := make([]byte, AESKeySize)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}

	nonce, err := NewNonce()
	if err != nil {
		t.Fatal(err)
	}

	ciphertext, err := Seal(key, nonce, []byte("record-1"), []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Open(key, nonce, []byte("record-2"), ciphertext); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestEncryptAES_DecryptAES_RoundTrip(t *testing.T) {
	key := make([]byte, AESKeySize)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}

	nonce, err := NewNonce()
	if err != nil {
		t.Fatal(err)
	}

	plaintext := []byte("combined format")
	ciphertext, err := EncryptAES(key, plaintext, nonce)
	if err != nil {
		t.Fatalf("EncryptAES() error = %v", err)
	}

	if !bytes.Equal(ciphertext[:AESNonceSize], nonce) {
		t.Error("ciphertext doesn't start with nonce")
	}

	decrypted, err := DecryptAES(key, ciphertext)
	if err != nil {
		t.Fatalf("DecryptAES() error = %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("decrypted = %q, want %q", decrypted, plaintext)
	}
}

func TestDecryptAES_CiphertextTooShort(t *testing.T) {
	key := make([]byte, AESKeySize)

	for _, length := range []int{0, AESNonceSize, AESNonceSize + AESTagSize - 1} {
		ciphertext := make([]byte, length)
		if _, err := DecryptAES(key, ciphertext); err == nil {
			t.Errorf("length %d: expected error for short ciphertext", length)
		}
	}
}

func TestRandomBytes(t *testing.T) {
	a, err := RandomBytes(32)
	if err != nil {
		t.Fatal(err)
	}
	b, err := RandomBytes(32)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Error("two random buffers are identical")
	}
}
