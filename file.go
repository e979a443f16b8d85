package fhevault

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/fhevault/client-go/internal/crypto"
)

// fileChunkSize is the plaintext chunk size for file encryption.
const fileChunkSize = 64 * 1024

// fileMagic identifies the encrypted file container.
var fileMagic = []byte{'F', 'H', 'E', 'V', 1}

// fileKeyInfo is the HKDF info label for the file encryption key.
var fileKeyInfo = []byte(crypto.HKDFContext + ":file-aead")

// ProgressFunc receives the number of plaintext bytes processed so far.
type ProgressFunc func(done int64)

// EncryptFile encrypts a stream in chunks under a key derived from the
// active keypair. Each chunk is sealed independently with its index as
// associated data, so chunks cannot be reordered or dropped without
// detection; a terminator chunk detects truncation. progress may be nil.
//
// ctx is checked between chunks, so large files can be cancelled.
func (c *Client) EncryptFile(ctx context.Context, src io.Reader, dst io.Writer, progress ProgressFunc) error {
	_, pair, err := c.session(ctx)
	if err != nil {
		return err
	}

	key, err := crypto.DeriveKey(pair.ClientKey, nil, fileKeyInfo, crypto.AESKeySize)
	if err != nil {
		return err
	}

	start := time.Now()
	if _, err := dst.Write(fileMagic); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	buf := make([]byte, fileChunkSize)
	var index uint64
	var done int64

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := io.ReadFull(src, buf)
		if readErr == io.ErrUnexpectedEOF {
			readErr = io.EOF
		} else if readErr == io.EOF {
			n = 0
		} else if readErr != nil {
			return fmt.Errorf("read chunk: %w", readErr)
		}

		if n > 0 {
			if err := writeChunk(dst, key, index, buf[:n]); err != nil {
				c.metrics.recordFailure(opFile)
				return err
			}
			index++
			done += int64(n)
			if progress != nil {
				progress(done)
			}
		}

		if readErr == io.EOF {
			// Zero-length terminator chunk marks a complete stream.
			if err := writeChunk(dst, key, index, nil); err != nil {
				c.metrics.recordFailure(opFile)
				return err
			}
			break
		}
	}

	c.metrics.record(opFile, time.Since(start))
	return nil
}

// DecryptFile reverses EncryptFile. A stream that ends without the
// terminator chunk fails with ErrDecryptionFailed, as does any chunk
// that was tampered with or reordered.
func (c *Client) DecryptFile(ctx context.Context, src io.Reader, dst io.Writer, progress ProgressFunc) error {
	_, pair, err := c.session(ctx)
	if err != nil {
		return err
	}

	key, err := crypto.DeriveKey(pair.ClientKey, nil, fileKeyInfo, crypto.AESKeySize)
	if err != nil {
		return err
	}

	start := time.Now()
	header := make([]byte, len(fileMagic))
	if _, err := io.ReadFull(src, header); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	for i, b := range fileMagic {
		if header[i] != b {
			return fmt.Errorf("%w: not an encrypted file container", ErrDecryptionFailed)
		}
	}

	var index uint64
	var done int64

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		plaintext, err := readChunk(src, key, index)
		if err != nil {
			c.metrics.recordFailure(opFile)
			return err
		}
		index++

		if len(plaintext) == 0 {
			// Terminator reached.
			break
		}
		if _, err := dst.Write(plaintext); err != nil {
			return fmt.Errorf("write chunk: %w", err)
		}
		done += int64(len(plaintext))
		if progress != nil {
			progress(done)
		}
	}

	c.metrics.record(opFile, time.Since(start))
	return nil
}

// chunkAAD binds a chunk to its position in the stream.
func chunkAAD(index uint64) []byte {
	aad := make([]byte, 8)
	binary.BigEndian.PutUint64(aad, index)
	return aad
}

func writeChunk(dst io.Writer, key []byte, index uint64, plaintext []byte) error {
	nonce, err := crypto.NewNonce()
	if err != nil {
		return err
	}
	ciphertext, err := crypto.Seal(key, nonce, chunkAAD(index), plaintext)
	if err != nil {
		return err
	}

	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(ciphertext)))
	if _, err := dst.Write(nonce); err != nil {
		return fmt.Errorf("write chunk nonce: %w", err)
	}
	if _, err := dst.Write(length[:]); err != nil {
		return fmt.Errorf("write chunk length: %w", err)
	}
	if _, err := dst.Write(ciphertext); err != nil {
		return fmt.Errorf("write chunk data: %w", err)
	}
	return nil
}

func readChunk(src io.Reader, key []byte, index uint64) ([]byte, error) {
	nonce := make([]byte, crypto.AESNonceSize)
	if _, err := io.ReadFull(src, nonce); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: stream truncated", ErrDecryptionFailed)
		}
		return nil, fmt.Errorf("read chunk nonce: %w", err)
	}

	var length [4]byte
	if _, err := io.ReadFull(src, length[:]); err != nil {
		return nil, fmt.Errorf("read chunk length: %w", err)
	}
	size := binary.BigEndian.Uint32(length[:])
	if size > fileChunkSize+crypto.AESTagSize {
		return nil, fmt.Errorf("%w: oversized chunk", ErrDecryptionFailed)
	}

	ciphertext := make([]byte, size)
	if _, err := io.ReadFull(src, ciphertext); err != nil {
		return nil, fmt.Errorf("read chunk data: %w", err)
	}

	plaintext, err := crypto.Open(key, nonce, chunkAAD(index), ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: chunk %d", ErrDecryptionFailed, index)
	}
	return plaintext, nil
}
