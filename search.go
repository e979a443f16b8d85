package fhevault

import (
	"context"
	"fmt"
	"time"

	"github.com/fhevault/client-go/internal/api"
	"github.com/fhevault/client-go/internal/crypto"
)

// SearchMatch is one encrypted entry matching a search query. The
// ciphertext decrypts with DecryptPasswordMetadata.
type SearchMatch struct {
	EntryID    string
	Ciphertext *Envelope
}

// SearchPasswords matches a query against the caller's encrypted entries
// on the collaborator. The query leaves the process only as a blinded
// index hash plus a ciphertext; the collaborator never sees it in the
// clear.
//
// Unlike strength checking, search has no client-side fallback: a
// collaborator failure is returned as ErrSearchUnavailable.
func (c *Client) SearchPasswords(ctx context.Context, query string) ([]SearchMatch, error) {
	if query == "" {
		return nil, ErrEmptyPassword
	}
	be, pair, err := c.session(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	env, err := be.Encrypt(ctx, pair, []byte(query))
	if err != nil {
		c.metrics.recordFailure(opSearch)
		return nil, &EncryptionError{Operation: "encrypt", Backend: be.Name(), Err: err}
	}

	resp, err := c.apiClient.EncryptedSearch(ctx, api.SearchRequest{
		IndexHash:  crypto.ToBase64URL(crypto.IndexHash(query)),
		Ciphertext: env,
	})
	if err != nil {
		c.metrics.recordFailure(opSearch)
		wrapped := wrapError("encrypted search", err)
		if fallbackEligible(wrapped) {
			// Still no fallback; the sentinel tells callers why.
			return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, wrapped)
		}
		return nil, wrapped
	}

	matches := make([]SearchMatch, len(resp.Matches))
	for i, m := range resp.Matches {
		matches[i] = SearchMatch{
			EntryID:    m.EntryID,
			Ciphertext: m.Ciphertext,
		}
	}
	c.metrics.record(opSearch, time.Since(start))
	return matches, nil
}
