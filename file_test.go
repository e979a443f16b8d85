package fhevault

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestFileEncryptDecryptRoundtrip(t *testing.T) {
	co := newCollaborator(t)
	client := initTestClient(t, co)
	ctx := context.Background()

	// Larger than one chunk so chunking and progress both exercise.
	plaintext := bytes.Repeat([]byte("fhevault file payload "), 8000)

	var sealed bytes.Buffer
	var encProgress []int64
	err := client.EncryptFile(ctx, bytes.NewReader(plaintext), &sealed,
		func(done int64) { encProgress = append(encProgress, done) })
	if err != nil {
		t.Fatalf("EncryptFile() error = %v", err)
	}
	if len(encProgress) < 2 {
		t.Errorf("progress called %d times, want per-chunk calls", len(encProgress))
	}
	if last := encProgress[len(encProgress)-1]; last != int64(len(plaintext)) {
		t.Errorf("final progress = %d, want %d", last, len(plaintext))
	}

	var opened bytes.Buffer
	if err := client.DecryptFile(ctx, bytes.NewReader(sealed.Bytes()), &opened, nil); err != nil {
		t.Fatalf("DecryptFile() error = %v", err)
	}
	if !bytes.Equal(opened.Bytes(), plaintext) {
		t.Error("file roundtrip mismatch")
	}
}

func TestFileEmptyRoundtrip(t *testing.T) {
	co := newCollaborator(t)
	client := initTestClient(t, co)
	ctx := context.Background()

	var sealed, opened bytes.Buffer
	if err := client.EncryptFile(ctx, bytes.NewReader(nil), &sealed, nil); err != nil {
		t.Fatalf("EncryptFile() on empty input error = %v", err)
	}
	if err := client.DecryptFile(ctx, bytes.NewReader(sealed.Bytes()), &opened, nil); err != nil {
		t.Fatalf("DecryptFile() error = %v", err)
	}
	if opened.Len() != 0 {
		t.Errorf("decrypted %d bytes from empty input", opened.Len())
	}
}

func TestFileTamperDetected(t *testing.T) {
	co := newCollaborator(t)
	client := initTestClient(t, co)
	ctx := context.Background()

	var sealed bytes.Buffer
	if err := client.EncryptFile(ctx, bytes.NewReader([]byte("sensitive")), &sealed, nil); err != nil {
		t.Fatalf("EncryptFile() error = %v", err)
	}

	data := sealed.Bytes()
	data[len(data)/2] ^= 0xFF

	var opened bytes.Buffer
	err := client.DecryptFile(ctx, bytes.NewReader(data), &opened, nil)
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("error = %v, want ErrDecryptionFailed", err)
	}
}

func TestFileTruncationDetected(t *testing.T) {
	co := newCollaborator(t)
	client := initTestClient(t, co)
	ctx := context.Background()

	var sealed bytes.Buffer
	if err := client.EncryptFile(ctx, bytes.NewReader([]byte("sensitive")), &sealed, nil); err != nil {
		t.Fatalf("EncryptFile() error = %v", err)
	}

	// Cut off the terminator chunk.
	data := sealed.Bytes()
	truncated := data[:len(data)-20]

	var opened bytes.Buffer
	err := client.DecryptFile(ctx, bytes.NewReader(truncated), &opened, nil)
	if err == nil {
		t.Error("DecryptFile() accepted a truncated stream")
	}
}

func TestFileBadHeader(t *testing.T) {
	co := newCollaborator(t)
	client := initTestClient(t, co)

	var opened bytes.Buffer
	err := client.DecryptFile(context.Background(),
		bytes.NewReader([]byte("not an encrypted container")), &opened, nil)
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("error = %v, want ErrDecryptionFailed", err)
	}
}

func TestFileCancellation(t *testing.T) {
	co := newCollaborator(t)
	client := initTestClient(t, co)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sealed bytes.Buffer
	err := client.EncryptFile(ctx, bytes.NewReader([]byte("data")), &sealed, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
