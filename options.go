package fhevault

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/fhevault/client-go/internal/keyring"
)

const (
	defaultBaseURL = "https://api.fhevault.io"
	defaultTimeout = 30 * time.Second
)

// tfheModuleEnv names the environment variable consulted for the TFHE
// engine module path when WithTFHEModulePath is not used.
const tfheModuleEnv = "FHEVAULT_TFHE_MODULE"

// clientConfig holds configuration for the client.
type clientConfig struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	retries    int

	storePath       string
	store           keyring.Store
	tfheModulePath  string
	forceSimulated  bool
	rotationWarning time.Duration

	logger      zerolog.Logger
	registry    prometheus.Registerer
	fingerprint func() string
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		baseURL:        defaultBaseURL,
		timeout:        defaultTimeout,
		retries:        3,
		tfheModulePath: os.Getenv(tfheModuleEnv),
		logger:         zerolog.Nop(),
	}
}

// Option configures the client.
type Option func(*clientConfig)

// WithBaseURL sets the collaborator API base URL.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the default timeout for collaborator requests.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithRetries sets the number of retries for collaborator requests.
// Zero disables retrying.
func WithRetries(count int) Option {
	return func(c *clientConfig) {
		c.retries = count
	}
}

// WithStorePath sets the key store file location.
// Default: the fhevault directory under os.UserConfigDir.
func WithStorePath(path string) Option {
	return func(c *clientConfig) {
		c.storePath = path
	}
}

// WithStore installs a custom key store, replacing the file store.
// Useful for tests and for processes that must not touch disk.
func WithStore(store keyring.Store) Option {
	return func(c *clientConfig) {
		c.store = store
	}
}

// WithTFHEModulePath sets the path of the TFHE engine module. When the
// module is missing or unloadable the client falls back to the simulated
// backend.
func WithTFHEModulePath(path string) Option {
	return func(c *clientConfig) {
		c.tfheModulePath = path
	}
}

// WithoutTFHE forces the simulated backend regardless of module
// availability.
func WithoutTFHE() Option {
	return func(c *clientConfig) {
		c.forceSimulated = true
	}
}

// WithRotationWarning sets the pre-expiry window in which key loads start
// advising rotation. Default: 24 hours.
func WithRotationWarning(window time.Duration) Option {
	return func(c *clientConfig) {
		c.rotationWarning = window
	}
}

// WithLogger sets the structured logger. Default: no logging.
func WithLogger(log zerolog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = log
	}
}

// WithMetricsRegistry mirrors the client's operation metrics into a
// Prometheus registry.
func WithMetricsRegistry(reg prometheus.Registerer) Option {
	return func(c *clientConfig) {
		c.registry = reg
	}
}

// WithFingerprint overrides the device fingerprint source. The same
// fingerprint must be supplied on every run to unwrap previously stored
// keys.
func WithFingerprint(fn func() string) Option {
	return func(c *clientConfig) {
		c.fingerprint = fn
	}
}
