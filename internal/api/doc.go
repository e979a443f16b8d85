// Package api implements the HTTP client for the FHEVault collaborator
// service.
//
// The collaborator only ever sees ciphertext envelopes and blinded search
// hashes; no plaintext password material crosses this package. Responses
// that influence security decisions (strength scores, search matches) are
// signed by the server with ML-DSA-65 and verified against a pinned
// signing key fetched from /api/v1/server-info.
//
// The client retries transient failures with exponential backoff and
// jitter, tags every request with a unique X-Request-ID, and surfaces
// HTTP errors as *APIError values that match package sentinels via
// errors.Is.
package api
