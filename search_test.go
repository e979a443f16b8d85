package fhevault

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func TestSearchPasswordsNoFallback(t *testing.T) {
	co := newCollaborator(t)
	co.search = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	client := initTestClient(t, co)

	_, err := client.SearchPasswords(context.Background(), "bank")
	if !errors.Is(err, ErrSearchUnavailable) {
		t.Errorf("error = %v, want ErrSearchUnavailable", err)
	}
}

func TestSearchPasswordsSendsBlindedQuery(t *testing.T) {
	co := newCollaborator(t)
	var gotReq struct {
		IndexHash  string          `json:"indexHash"`
		Ciphertext json.RawMessage `json:"ciphertext"`
	}
	co.search = func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		signedResult(w, map[string]interface{}{"matches": []interface{}{}})
	}
	client := initTestClient(t, co)

	matches, err := client.SearchPasswords(context.Background(), "bank")
	if err != nil {
		t.Fatalf("SearchPasswords() error = %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("matches = %v, want empty", matches)
	}
	if gotReq.IndexHash == "" {
		t.Error("request carried no index hash")
	}
	if len(gotReq.Ciphertext) == 0 {
		t.Error("request carried no ciphertext")
	}
	// The plaintext query must never appear in the request.
	if raw := string(gotReq.Ciphertext); raw == `"bank"` {
		t.Error("query sent in the clear")
	}
}

func TestSearchPasswordsResults(t *testing.T) {
	co := newCollaborator(t)
	client := initTestClient(t, co)
	ctx := context.Background()

	// Serve back an envelope this client can decrypt.
	entry, err := client.EncryptPasswordMetadata(ctx, PasswordMetadata{URL: "https://bank.example"})
	if err != nil {
		t.Fatalf("EncryptPasswordMetadata() error = %v", err)
	}
	co.search = func(w http.ResponseWriter, r *http.Request) {
		signedResult(w, map[string]interface{}{
			"matches": []map[string]interface{}{
				{"entryId": "entry-1", "ciphertext": entry},
			},
		})
	}

	matches, err := client.SearchPasswords(ctx, "bank")
	if err != nil {
		t.Fatalf("SearchPasswords() error = %v", err)
	}
	if len(matches) != 1 || matches[0].EntryID != "entry-1" {
		t.Fatalf("matches = %+v", matches)
	}

	meta, err := client.DecryptPasswordMetadata(ctx, matches[0].Ciphertext)
	if err != nil {
		t.Fatalf("DecryptPasswordMetadata() error = %v", err)
	}
	if meta.URL != "https://bank.example" {
		t.Errorf("URL = %q", meta.URL)
	}
}

func TestSearchPasswordsEmptyQuery(t *testing.T) {
	co := newCollaborator(t)
	client := initTestClient(t, co)

	if _, err := client.SearchPasswords(context.Background(), ""); err == nil {
		t.Error("SearchPasswords(\"\") succeeded")
	}
}
