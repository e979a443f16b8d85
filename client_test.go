package fhevault

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fhevault/client-go/internal/keyring"
)

// collaborator is a minimal fake server for facade tests.
type collaborator struct {
	srv *httptest.Server

	serverInfoHits atomic.Int64
	strength       func(w http.ResponseWriter, r *http.Request)
	search         func(w http.ResponseWriter, r *http.Request)
}

func newCollaborator(t *testing.T) *collaborator {
	t.Helper()
	c := &collaborator{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/server-info", func(w http.ResponseWriter, r *http.Request) {
		c.serverInfoHits.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"version": "1.0", "signingKey": ""})
	})
	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	mux.HandleFunc("/api/v1/strength", func(w http.ResponseWriter, r *http.Request) {
		if c.strength != nil {
			c.strength(w, r)
			return
		}
		http.NotFound(w, r)
	})
	mux.HandleFunc("/api/v1/strength/batch", func(w http.ResponseWriter, r *http.Request) {
		if c.strength != nil {
			c.strength(w, r)
			return
		}
		http.NotFound(w, r)
	})
	mux.HandleFunc("/api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		if c.search != nil {
			c.search(w, r)
			return
		}
		http.NotFound(w, r)
	})
	c.srv = httptest.NewServer(mux)
	t.Cleanup(c.srv.Close)
	return c
}

// signedResult wraps a result the way the collaborator signs responses.
// Tests run without a pinned key, so the signature is not checked.
func signedResult(w http.ResponseWriter, result interface{}) {
	raw, _ := json.Marshal(result)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"result":    json.RawMessage(raw),
		"signature": "dW5jaGVja2Vk",
	})
}

func testFingerprint() string {
	return "linux/amd64:testhost###UTC###en_US###8###deadbeef"
}

func newTestClient(t *testing.T, co *collaborator, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithBaseURL(co.srv.URL),
		WithRetries(0),
		WithoutTFHE(),
		WithStore(keyring.NewMemStore()),
		WithFingerprint(testFingerprint),
	}
	client, err := New("test-key", append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func initTestClient(t *testing.T, co *collaborator, opts ...Option) *Client {
	t.Helper()
	client := newTestClient(t, co, opts...)
	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return client
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New("")
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("New(\"\") error = %v, want ErrMissingAPIKey", err)
	}
}

func TestInitializeMemoized(t *testing.T) {
	co := newCollaborator(t)
	client := newTestClient(t, co)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.Initialize(ctx)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Initialize()[%d] error = %v", i, err)
		}
	}
	if hits := co.serverInfoHits.Load(); hits != 1 {
		t.Errorf("server-info fetched %d times, want 1", hits)
	}

	// Another call after success is a no-op.
	if err := client.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() after success error = %v", err)
	}
	if hits := co.serverInfoHits.Load(); hits != 1 {
		t.Errorf("memoized Initialize refetched server-info (%d hits)", hits)
	}
}

func TestInitializeOfflineSucceeds(t *testing.T) {
	co := newCollaborator(t)
	client := newTestClient(t, co)
	co.srv.Close() // collaborator down before first contact

	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() with unreachable collaborator error = %v", err)
	}
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	co := newCollaborator(t)
	client := initTestClient(t, co)
	ctx := context.Background()

	env, err := client.EncryptPassword(ctx, "correct horse battery staple")
	if err != nil {
		t.Fatalf("EncryptPassword() error = %v", err)
	}
	if env.Kind != BackendSimulated {
		t.Errorf("envelope kind = %q, want %q", env.Kind, BackendSimulated)
	}

	got, err := client.DecryptPassword(ctx, env)
	if err != nil {
		t.Fatalf("DecryptPassword() error = %v", err)
	}
	if got != "correct horse battery staple" {
		t.Errorf("DecryptPassword() = %q", got)
	}
}

func TestEncryptPasswordEmpty(t *testing.T) {
	co := newCollaborator(t)
	client := initTestClient(t, co)

	_, err := client.EncryptPassword(context.Background(), "")
	if !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("error = %v, want ErrEmptyPassword", err)
	}
}

func TestMetadataRoundtrip(t *testing.T) {
	co := newCollaborator(t)
	client := initTestClient(t, co)
	ctx := context.Background()

	meta := PasswordMetadata{
		URL:      "https://example.com/login",
		Username: "alice",
		Tags:     []string{"work", "email"},
	}
	env, err := client.EncryptPasswordMetadata(ctx, meta)
	if err != nil {
		t.Fatalf("EncryptPasswordMetadata() error = %v", err)
	}

	got, err := client.DecryptPasswordMetadata(ctx, env)
	if err != nil {
		t.Fatalf("DecryptPasswordMetadata() error = %v", err)
	}
	if got.URL != meta.URL || got.Username != meta.Username || len(got.Tags) != 2 {
		t.Errorf("metadata roundtrip = %+v", got)
	}
}

func TestOperationsBeforeInitialize(t *testing.T) {
	co := newCollaborator(t)
	client := newTestClient(t, co)

	_, err := client.EncryptPassword(context.Background(), "pw")
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("EncryptPassword() error = %v, want ErrNotInitialized", err)
	}
}

func TestOperationsAfterClose(t *testing.T) {
	co := newCollaborator(t)
	client := initTestClient(t, co)

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// Close is idempotent.
	if err := client.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	_, err := client.EncryptPassword(context.Background(), "pw")
	if !errors.Is(err, ErrClientClosed) {
		t.Errorf("EncryptPassword() error = %v, want ErrClientClosed", err)
	}
	if err := client.Initialize(context.Background()); !errors.Is(err, ErrClientClosed) {
		t.Errorf("Initialize() error = %v, want ErrClientClosed", err)
	}
}

func TestResetReinitializes(t *testing.T) {
	co := newCollaborator(t)
	client := initTestClient(t, co)
	ctx := context.Background()

	if err := client.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if _, err := client.EncryptPassword(ctx, "pw"); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("error after Reset = %v, want ErrNotInitialized", err)
	}

	if err := client.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() after Reset error = %v", err)
	}
	if _, err := client.EncryptPassword(ctx, "pw"); err != nil {
		t.Errorf("EncryptPassword() after re-init error = %v", err)
	}
	if hits := co.serverInfoHits.Load(); hits != 2 {
		t.Errorf("server-info hits = %d, want 2 after Reset", hits)
	}
}

func TestStatusDegraded(t *testing.T) {
	co := newCollaborator(t)
	// Pointing at a nonexistent engine module forces simulation.
	client := newTestClient(t, co, WithTFHEModulePath("/nonexistent/tfhe.wasm"))
	ctx := context.Background()
	if err := client.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !status.Initialized {
		t.Error("Initialized = false")
	}
	if !status.Simulated {
		t.Error("Simulated = false, want degraded backend")
	}
	if status.Backend != BackendSimulated {
		t.Errorf("Backend = %q", status.Backend)
	}
	if !status.HasKeyPair {
		t.Error("HasKeyPair = false")
	}
	if !status.CollaboratorOK {
		t.Error("CollaboratorOK = false with healthy fake server")
	}
}

func TestExpiredKeypairRegenerated(t *testing.T) {
	co := newCollaborator(t)
	client := initTestClient(t, co)
	ctx := context.Background()

	oldEnv, err := client.EncryptPassword(ctx, "hunter2-long")
	if err != nil {
		t.Fatalf("EncryptPassword() error = %v", err)
	}

	client.mu.Lock()
	old := client.pair
	old.ExpiresAt = time.Now().Add(-time.Minute)
	client.mu.Unlock()

	env, err := client.EncryptPassword(ctx, "hunter2-long")
	if err != nil {
		t.Fatalf("EncryptPassword() with expired keypair error = %v", err)
	}

	client.mu.RLock()
	fresh := client.pair
	client.mu.RUnlock()
	if fresh == old {
		t.Fatal("expired keypair was not replaced")
	}
	if fresh.Expired(time.Now()) {
		t.Error("regenerated keypair is already expired")
	}

	if _, err := client.DecryptPassword(ctx, env); err != nil {
		t.Errorf("DecryptPassword() with fresh keypair error = %v", err)
	}
	if _, err := client.DecryptPassword(ctx, oldEnv); err == nil {
		t.Error("envelope sealed under the expired keypair still decrypts")
	}
}

func TestKeysPersistAcrossClients(t *testing.T) {
	co := newCollaborator(t)
	store := keyring.NewMemStore()
	ctx := context.Background()

	c1 := initTestClient(t, co, WithStore(store))
	env, err := c1.EncryptPassword(ctx, "persisted secret")
	if err != nil {
		t.Fatalf("EncryptPassword() error = %v", err)
	}
	c1.Close()

	// Same store and fingerprint: the second client loads the same keys
	// and can open the first client's envelope.
	c2 := initTestClient(t, co, WithStore(store))
	got, err := c2.DecryptPassword(ctx, env)
	if err != nil {
		t.Fatalf("DecryptPassword() on second client error = %v", err)
	}
	if got != "persisted secret" {
		t.Errorf("DecryptPassword() = %q", got)
	}
}
