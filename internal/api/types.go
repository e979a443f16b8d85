package api

import (
	"time"

	"github.com/fhevault/client-go/internal/backend"
)

// ServerInfo describes the collaborator's configuration, including the
// ML-DSA-65 signing key used for response verification.
type ServerInfo struct {
	Version    string   `json:"version"`
	SigningKey string   `json:"signingKey"` // base64url
	Features   []string `json:"features,omitempty"`
}

// StrengthRequest asks the collaborator to score an encrypted password.
type StrengthRequest struct {
	Ciphertext *backend.Envelope `json:"ciphertext"`
}

// StrengthResponse is the collaborator's score for one password.
type StrengthResponse struct {
	Score       int      `json:"score"` // 0..4
	EntropyBits float64  `json:"entropyBits"`
	Feedback    []string `json:"feedback,omitempty"`
}

// BatchStrengthRequest scores several passwords in one round trip.
// Result order matches item order.
type BatchStrengthRequest struct {
	Items []*backend.Envelope `json:"items"`
}

// BatchStrengthResponse carries one result per request item.
type BatchStrengthResponse struct {
	Results []StrengthResponse `json:"results"`
}

// SearchRequest asks the collaborator to match a blinded query against
// the caller's encrypted entries.
type SearchRequest struct {
	IndexHash  string            `json:"indexHash"` // base64url
	Ciphertext *backend.Envelope `json:"ciphertext"`
}

// SearchMatch is one encrypted entry matching a search query.
type SearchMatch struct {
	EntryID    string            `json:"entryId"`
	Ciphertext *backend.Envelope `json:"ciphertext"`
}

// SearchResponse lists the matches for a search request.
type SearchResponse struct {
	Matches []SearchMatch `json:"matches"`
}

// StatusReport is the client-side operational snapshot pushed to the
// collaborator. It contains aggregate counters only.
type StatusReport struct {
	Backend       string  `json:"backend"`
	Simulated     bool    `json:"simulated"`
	Operations    uint64  `json:"operations"`
	AvgLatencyMs  float64 `json:"avgLatencyMs"`
	ClientVersion string  `json:"clientVersion"`
}

// StatusResponse acknowledges a status report.
type StatusResponse struct {
	OK         bool      `json:"ok"`
	ServerTime time.Time `json:"serverTime"`
}
