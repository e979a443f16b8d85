package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fhevault/client-go/internal/crypto"
)

// Client is the HTTP client for the collaborator API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retry      *RetryConfig
	log        zerolog.Logger

	mu         sync.RWMutex
	signingKey []byte // pinned ML-DSA-65 key, nil until pinned
}

// Option configures the API client.
type Option func(*Client)

// WithBaseURL sets the base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRetryConfig overrides the retry policy.
func WithRetryConfig(cfg *RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithLogger sets the client logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New creates a collaborator API client.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	c := &Client{
		baseURL: "https://api.fhevault.io",
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retry: DefaultRetryConfig(),
		log:   zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// PinSigningKey installs the server's base64url-encoded ML-DSA-65 signing
// key. Once pinned, every signed response is verified and a bad signature
// fails the call.
func (c *Client) PinSigningKey(encoded string) error {
	if !crypto.ValidateServerPublicKey(encoded) {
		return crypto.ErrInvalidSigningKeySize
	}
	key, err := crypto.FromBase64URL(encoded)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.signingKey = key
	c.mu.Unlock()
	return nil
}

// pinnedKey returns the signing key, or nil if none is pinned yet.
func (c *Client) pinnedKey() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.signingKey
}

// signedEnvelope is the wire shape of a signed collaborator response: the
// signature covers the raw bytes of the result field.
type signedEnvelope struct {
	Result    json.RawMessage `json:"result"`
	Signature string          `json:"signature"` // base64url
}

// do sends one JSON request with retries and decodes the response into
// result. The request body is marshalled once and replayed per attempt.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	requestID := uuid.NewString()
	url := c.baseURL + path

	var resp *http.Response
	var lastErr error

	attempt := 0
	for ; ; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", requestID)

		resp, lastErr = c.httpClient.Do(req)

		status := 0
		if lastErr == nil {
			status = resp.StatusCode
			if status < 400 {
				break
			}
		}

		if !c.retry.ShouldRetry(attempt, status) {
			break
		}
		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			resp = nil
		}
		c.log.Debug().
			Str("requestId", requestID).
			Int("status", status).
			Int("attempt", attempt).
			Msg("retrying collaborator request")
		if err := c.retry.Wait(ctx, attempt); err != nil {
			// The deadline expired during backoff. Same outcome as an
			// unreachable collaborator, so report it the same way.
			return &NetworkError{Err: err, URL: url, Attempt: attempt}
		}
	}

	if lastErr != nil {
		return &NetworkError{Err: lastErr, URL: url, Attempt: attempt}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.parseErrorResponse(resp, requestID)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// doSigned sends a request whose response is a signed envelope. With a
// pinned key the signature is verified before the result is decoded; an
// invalid signature fails the call with ErrBadSignature. Without a pinned
// key verification is skipped and logged.
func (c *Client) doSigned(ctx context.Context, method, path string, body, result interface{}) error {
	var env signedEnvelope
	if err := c.do(ctx, method, path, body, &env); err != nil {
		return err
	}

	key := c.pinnedKey()
	if key == nil {
		c.log.Warn().Str("path", path).Msg("no server signing key pinned, skipping response verification")
	} else {
		sig, err := crypto.FromBase64URL(env.Signature)
		if err != nil {
			return fmt.Errorf("%w: malformed signature encoding", ErrBadSignature)
		}
		if err := crypto.Verify(key, env.Result, sig); err != nil {
			return fmt.Errorf("%w: %v", ErrBadSignature, err)
		}
	}

	if result != nil {
		if err := json.Unmarshal(env.Result, result); err != nil {
			return fmt.Errorf("failed to decode signed result: %w", err)
		}
	}
	return nil
}

func (c *Client) parseErrorResponse(resp *http.Response, requestID string) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error     string `json:"error"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		if errResp.RequestID == "" {
			errResp.RequestID = requestID
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errResp.Error,
			RequestID:  errResp.RequestID,
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    string(body),
		RequestID:  requestID,
	}
}
