package fhevault

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fhevault/client-go/internal/api"
	"github.com/fhevault/client-go/internal/backend"
	"github.com/fhevault/client-go/internal/fingerprint"
	"github.com/fhevault/client-go/internal/keyring"
)

// Envelope is a tagged ciphertext produced by EncryptPassword and
// consumed by the collaborator API. Its Kind records which backend
// produced it; envelopes never decrypt across backends.
type Envelope = backend.Envelope

// Backend kind tags carried by envelopes and reported by Status. Untyped
// so they compare against both envelope kinds and status strings.
const (
	BackendTFHE      = "tfhe"
	BackendSimulated = "simulated"
)

// Client is the FHEVault client. Create one with New, call Initialize
// before the first operation, and Close when done. All methods are safe
// for concurrent use.
type Client struct {
	cfg       *clientConfig
	log       zerolog.Logger
	apiClient *api.Client
	keys      *keyring.Manager
	metrics   *metricsState

	// initMu serializes Initialize so concurrent callers share a single
	// backend probe and key load. Success is memoized; failure is not,
	// so a transient failure can be retried.
	initMu      sync.Mutex
	initialized bool

	mu      sync.RWMutex
	backend backend.Backend
	pair    *backend.KeyPair
	closed  bool
}

// New creates a FHEVault client. No network or filesystem access happens
// until Initialize.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	log := cfg.logger.With().Str("component", "fhevault").Logger()

	apiOpts := []api.Option{
		api.WithBaseURL(cfg.baseURL),
		api.WithLogger(log),
	}
	if cfg.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(cfg.httpClient))
	}
	retry := api.DefaultRetryConfig()
	if cfg.retries >= 0 {
		retry.MaxRetries = cfg.retries
	}
	apiOpts = append(apiOpts, api.WithRetryConfig(retry))

	apiClient, err := api.New(apiKey, apiOpts...)
	if err != nil {
		return nil, err
	}

	store := cfg.store
	if store == nil {
		path := cfg.storePath
		if path == "" {
			path, err = keyring.DefaultStorePath()
			if err != nil {
				return nil, fmt.Errorf("resolve key store path: %w", err)
			}
		}
		store = keyring.NewFileStore(path)
	}

	fp := cfg.fingerprint
	if fp == nil {
		collector := fingerprint.New(log)
		fp = collector.Fingerprint
	}

	keys := keyring.NewManager(keyring.Config{
		Store:           store,
		Fingerprint:     fp,
		RotationWarning: cfg.rotationWarning,
		Log:             log,
	})

	return &Client{
		cfg:       cfg,
		log:       log,
		apiClient: apiClient,
		keys:      keys,
		metrics:   newMetricsState(cfg.registry),
	}, nil
}

// Initialize prepares the client for operations: it probes the TFHE
// engine (falling back to simulation when unavailable), loads the stored
// keypair or generates a fresh one, and pins the collaborator's signing
// key. Concurrent calls share one initialization; once it succeeds,
// later calls return immediately.
//
// The collaborator being unreachable does not fail Initialize; signed
// response verification stays off until a signing key is pinned.
func (c *Client) Initialize(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	if c.initialized {
		return nil
	}
	if err := c.checkClosed(); err != nil {
		return err
	}

	be := backend.Select(ctx, backend.SelectConfig{
		ModulePath:     c.cfg.tfheModulePath,
		ForceSimulated: c.cfg.forceSimulated,
		Log:            c.log,
	})

	pair, err := c.keys.Load(ctx)
	if err != nil {
		be.Close(ctx)
		return err
	}
	if pair != nil && pair.Kind != backend.Kind(be.Name()) {
		// Keys from the other backend are useless here. Generate fresh
		// ones rather than failing every operation later.
		c.log.Warn().
			Str("stored", string(pair.Kind)).
			Str("backend", be.Name()).
			Msg("stored keypair belongs to a different backend, regenerating")
		pair = nil
	}
	if pair == nil {
		pair, err = be.GenerateKeyPair(ctx)
		if err != nil {
			be.Close(ctx)
			return &EncryptionError{Operation: "keygen", Backend: be.Name(), Err: err}
		}
		if err := c.keys.Save(ctx, pair); err != nil {
			be.Close(ctx)
			return err
		}
		c.log.Info().Str("backend", be.Name()).Msg("generated new keypair")
	}

	infoCtx, cancel := context.WithTimeout(ctx, c.cfg.timeout)
	info, err := c.apiClient.GetServerInfo(infoCtx)
	cancel()
	if err != nil {
		c.log.Warn().Err(err).Msg("collaborator unreachable, response verification disabled")
	} else if err := c.apiClient.PinSigningKey(info.SigningKey); err != nil {
		c.log.Warn().Err(err).Msg("rejected collaborator signing key")
	}

	c.mu.Lock()
	c.backend = be
	c.pair = pair
	c.mu.Unlock()

	c.initialized = true
	c.log.Info().
		Str("backend", be.Name()).
		Bool("simulated", be.Simulated()).
		Msg("client initialized")
	return nil
}

// Reset tears down the initialized state so the next Initialize probes
// the engine and reloads keys from scratch. Operation counters are
// cleared; stored keys are untouched.
func (c *Client) Reset(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	c.mu.Lock()
	be := c.backend
	c.backend = nil
	c.pair = nil
	c.mu.Unlock()

	c.initialized = false
	c.metrics.reset()
	if be != nil {
		return be.Close(ctx)
	}
	return nil
}

// Close releases the backend and marks the client unusable. Close is
// idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	be := c.backend
	c.backend = nil
	c.pair = nil
	c.mu.Unlock()

	if be != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return be.Close(ctx)
	}
	return nil
}

// checkClosed returns ErrClientClosed if the client has been closed.
// Callers may hold c.mu; this takes no locks beyond a read.
func (c *Client) checkClosed() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	return nil
}

// session returns the backend and keypair for one operation, enforcing
// lifecycle state. A keypair that expired mid-process is replaced with a
// fresh one; envelopes produced under the old keys stop decrypting.
func (c *Client) session(ctx context.Context) (backend.Backend, *backend.KeyPair, error) {
	c.mu.RLock()
	be, pair, closed := c.backend, c.pair, c.closed
	c.mu.RUnlock()

	if closed {
		return nil, nil, ErrClientClosed
	}
	if be == nil {
		return nil, nil, ErrNotInitialized
	}
	if pair == nil {
		return nil, nil, ErrNoKeyPair
	}
	if pair.Expired(time.Now()) {
		return c.regenerateExpired(ctx, pair)
	}
	return be, pair, nil
}

// regenerateExpired replaces an expired keypair under the write lock.
// Concurrent operations race to regenerate; the first one wins and the
// rest adopt its pair.
func (c *Client) regenerateExpired(ctx context.Context, old *backend.KeyPair) (backend.Backend, *backend.KeyPair, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, nil, ErrClientClosed
	}
	if c.backend == nil {
		return nil, nil, ErrNotInitialized
	}
	if c.pair != old && c.pair != nil && !c.pair.Expired(time.Now()) {
		return c.backend, c.pair, nil
	}

	pair, err := c.backend.GenerateKeyPair(ctx)
	if err != nil {
		return nil, nil, &EncryptionError{Operation: "keygen", Backend: c.backend.Name(), Err: err}
	}
	if err := c.keys.Save(ctx, pair); err != nil {
		return nil, nil, err
	}
	c.pair = pair
	c.log.Warn().Str("backend", c.backend.Name()).Msg("keypair expired, generated a fresh one")
	return c.backend, pair, nil
}
