package backend

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/fhevault/client-go/internal/crypto"
)

// Key part selectors for the module's tfhe_key_* exports.
const (
	tfheKeyClient = 0
	tfheKeyPublic = 1
	tfheKeyServer = 2
)

// TFHE drives a TFHE implementation compiled to WASM. The module is loaded
// from the filesystem at probe time; a missing file, a failed
// instantiation, or a missing export all count as "backend unavailable"
// and select the simulation instead.
//
// The module ABI:
//
//	malloc(size) -> ptr                      free(ptr)
//	tfhe_init() -> status
//	tfhe_keygen() -> status
//	tfhe_key_len(part) -> len                tfhe_key_data(part) -> ptr
//	tfhe_load_client_key(ptr, len) -> status
//	tfhe_ct_len() -> len
//	tfhe_encrypt_byte(value, outPtr) -> status
//	tfhe_decrypt_block(ptr, len) -> value or negative status
type TFHE struct {
	// Module memory is single-threaded; every exported call holds mu.
	mu      sync.Mutex
	runtime wazero.Runtime
	module  api.Module

	malloc        api.Function
	free          api.Function
	keygen        api.Function
	keyLen        api.Function
	keyData       api.Function
	loadClientKey api.Function
	ctLen         api.Function
	encryptByte   api.Function
	decryptBlock  api.Function
}

// LoadTFHE probes for the WASM module at modulePath and initializes it.
// Every failure mode wraps ErrUnavailable so the selector can treat them
// uniformly.
func LoadTFHE(ctx context.Context, modulePath string, log zerolog.Logger) (*TFHE, error) {
	wasmBytes, err := os.ReadFile(modulePath)
	if err != nil {
		return nil, fmt.Errorf("%w: read module: %v", ErrUnavailable, err)
	}

	r := wazero.NewRuntime(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("%w: instantiate wasi: %v", ErrUnavailable, err)
	}

	compiled, err := r.CompileModule(ctx, wasmBytes)
	if err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("%w: compile module: %v", ErrUnavailable, err)
	}

	cfg := wazero.NewModuleConfig().WithName("fhevault-tfhe")
	mod, err := r.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("%w: instantiate module: %v", ErrUnavailable, err)
	}

	t := &TFHE{
		runtime:       r,
		module:        mod,
		malloc:        mod.ExportedFunction("malloc"),
		free:          mod.ExportedFunction("free"),
		keygen:        mod.ExportedFunction("tfhe_keygen"),
		keyLen:        mod.ExportedFunction("tfhe_key_len"),
		keyData:       mod.ExportedFunction("tfhe_key_data"),
		loadClientKey: mod.ExportedFunction("tfhe_load_client_key"),
		ctLen:         mod.ExportedFunction("tfhe_ct_len"),
		encryptByte:   mod.ExportedFunction("tfhe_encrypt_byte"),
		decryptBlock:  mod.ExportedFunction("tfhe_decrypt_block"),
	}

	for name, fn := range map[string]api.Function{
		"malloc": t.malloc, "free": t.free,
		"tfhe_keygen": t.keygen, "tfhe_key_len": t.keyLen, "tfhe_key_data": t.keyData,
		"tfhe_load_client_key": t.loadClientKey, "tfhe_ct_len": t.ctLen,
		"tfhe_encrypt_byte": t.encryptByte, "tfhe_decrypt_block": t.decryptBlock,
	} {
		if fn == nil {
			r.Close(ctx)
			return nil, fmt.Errorf("%w: module does not export %s", ErrUnavailable, name)
		}
	}

	init := mod.ExportedFunction("tfhe_init")
	if init == nil {
		r.Close(ctx)
		return nil, fmt.Errorf("%w: module does not export tfhe_init", ErrUnavailable)
	}
	results, err := init.Call(ctx)
	if err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("%w: tfhe_init: %v", ErrUnavailable, err)
	}
	if status := int32(results[0]); status != 0 {
		r.Close(ctx)
		return nil, fmt.Errorf("%w: tfhe_init returned %d", ErrUnavailable, status)
	}

	log.Debug().Str("module", modulePath).Msg("tfhe wasm module initialized")
	return t, nil
}

// Name implements Backend.
func (t *TFHE) Name() string { return string(KindTFHE) }

// Simulated implements Backend.
func (t *TFHE) Simulated() bool { return false }

// GenerateKeyPair implements Backend.
func (t *TFHE) GenerateKeyPair(ctx context.Context) (*KeyPair, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	results, err := t.keygen.Call(ctx)
	if err != nil {
		return nil, fmt.Errorf("tfhe_keygen: %w", err)
	}
	if status := int32(results[0]); status != 0 {
		return nil, fmt.Errorf("tfhe_keygen returned %d", status)
	}

	clientKey, err := t.readKey(ctx, tfheKeyClient)
	if err != nil {
		return nil, err
	}
	publicKey, err := t.readKey(ctx, tfheKeyPublic)
	if err != nil {
		return nil, err
	}
	serverKey, err := t.readKey(ctx, tfheKeyServer)
	if err != nil {
		return nil, err
	}

	return &KeyPair{
		Kind:      KindTFHE,
		ClientKey: clientKey,
		PublicKey: publicKey,
		ServerKey: serverKey,
	}, nil
}

// Encrypt implements Backend. Each plaintext byte becomes one ciphertext
// block in the envelope.
func (t *TFHE) Encrypt(ctx context.Context, kp *KeyPair, plaintext []byte) (*Envelope, error) {
	if err := checkPair(kp, KindTFHE); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.useClientKey(ctx, kp.ClientKey); err != nil {
		return nil, err
	}

	blockLen, err := t.ciphertextLen(ctx)
	if err != nil {
		return nil, err
	}

	outPtr, err := t.allocate(ctx, blockLen)
	if err != nil {
		return nil, err
	}
	defer t.deallocate(ctx, outPtr)

	mem := t.module.Memory()
	blocks := make([][]byte, 0, len(plaintext))
	for i, b := range plaintext {
		results, err := t.encryptByte.Call(ctx, uint64(b), uint64(outPtr))
		if err != nil {
			return nil, fmt.Errorf("tfhe_encrypt_byte at %d: %w", i, err)
		}
		if status := int32(results[0]); status != 0 {
			return nil, fmt.Errorf("tfhe_encrypt_byte at %d returned %d", i, status)
		}

		block, ok := mem.Read(outPtr, blockLen)
		if !ok {
			return nil, fmt.Errorf("read ciphertext block at %d", i)
		}
		blocks = append(blocks, append([]byte{}, block...))
	}

	return &Envelope{Kind: KindTFHE, Blocks: blocks}, nil
}

// Decrypt implements Backend.
func (t *TFHE) Decrypt(ctx context.Context, kp *KeyPair, env *Envelope) ([]byte, error) {
	if err := checkPair(kp, KindTFHE); err != nil {
		return nil, err
	}
	if env.Kind != KindTFHE {
		return nil, ErrKindMismatch
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.useClientKey(ctx, kp.ClientKey); err != nil {
		return nil, err
	}

	mem := t.module.Memory()
	plaintext := make([]byte, 0, len(env.Blocks))
	for i, block := range env.Blocks {
		ptr, err := t.allocate(ctx, uint32(len(block)))
		if err != nil {
			return nil, err
		}
		if !mem.Write(ptr, block) {
			t.deallocate(ctx, ptr)
			return nil, fmt.Errorf("write ciphertext block at %d", i)
		}

		results, err := t.decryptBlock.Call(ctx, uint64(ptr), uint64(len(block)))
		t.deallocate(ctx, ptr)
		if err != nil {
			return nil, fmt.Errorf("tfhe_decrypt_block at %d: %w", i, err)
		}
		value := int32(results[0])
		if value < 0 {
			return nil, crypto.ErrDecryptionFailed
		}
		plaintext = append(plaintext, byte(value))
	}

	return plaintext, nil
}

// Close implements Backend.
func (t *TFHE) Close(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runtime.Close(ctx)
}

func (t *TFHE) readKey(ctx context.Context, part uint64) ([]byte, error) {
	lenResults, err := t.keyLen.Call(ctx, part)
	if err != nil {
		return nil, fmt.Errorf("tfhe_key_len(%d): %w", part, err)
	}
	size := uint32(lenResults[0])
	if size == 0 {
		return nil, fmt.Errorf("tfhe_key_len(%d) returned 0", part)
	}

	ptrResults, err := t.keyData.Call(ctx, part)
	if err != nil {
		return nil, fmt.Errorf("tfhe_key_data(%d): %w", part, err)
	}
	ptr := uint32(ptrResults[0])
	if ptr == 0 {
		return nil, fmt.Errorf("tfhe_key_data(%d) returned null", part)
	}

	data, ok := t.module.Memory().Read(ptr, size)
	if !ok {
		return nil, fmt.Errorf("read key part %d", part)
	}
	return append([]byte{}, data...), nil
}

func (t *TFHE) useClientKey(ctx context.Context, clientKey []byte) error {
	ptr, err := t.allocate(ctx, uint32(len(clientKey)))
	if err != nil {
		return err
	}
	defer t.deallocate(ctx, ptr)

	if !t.module.Memory().Write(ptr, clientKey) {
		return fmt.Errorf("write client key")
	}

	results, err := t.loadClientKey.Call(ctx, uint64(ptr), uint64(len(clientKey)))
	if err != nil {
		return fmt.Errorf("tfhe_load_client_key: %w", err)
	}
	if status := int32(results[0]); status != 0 {
		return fmt.Errorf("tfhe_load_client_key returned %d", status)
	}
	return nil
}

func (t *TFHE) ciphertextLen(ctx context.Context) (uint32, error) {
	results, err := t.ctLen.Call(ctx)
	if err != nil {
		return 0, fmt.Errorf("tfhe_ct_len: %w", err)
	}
	size := uint32(results[0])
	if size == 0 {
		return 0, fmt.Errorf("tfhe_ct_len returned 0")
	}
	return size, nil
}

func (t *TFHE) allocate(ctx context.Context, size uint32) (uint32, error) {
	results, err := t.malloc.Call(ctx, uint64(size))
	if err != nil {
		return 0, fmt.Errorf("malloc failed: %w", err)
	}
	ptr := uint32(results[0])
	if ptr == 0 {
		return 0, fmt.Errorf("malloc returned null")
	}
	return ptr, nil
}

func (t *TFHE) deallocate(ctx context.Context, ptr uint32) {
	if ptr != 0 {
		t.free.Call(ctx, uint64(ptr))
	}
}
