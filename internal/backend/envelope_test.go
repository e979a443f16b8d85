package backend

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestEnvelope_JSON_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
	}{
		{
			name: "tfhe",
			env:  Envelope{Kind: KindTFHE, Blocks: [][]byte{{1, 2, 3}, {4, 5}}},
		},
		{
			name: "simulated",
			env:  Envelope{Kind: KindSimulated, Data: []byte{9, 8, 7}, IV: bytes.Repeat([]byte{1}, 12)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(&tt.env)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}

			var got Envelope
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}

			if got.Kind != tt.env.Kind {
				t.Errorf("kind = %q, want %q", got.Kind, tt.env.Kind)
			}
			if len(got.Blocks) != len(tt.env.Blocks) {
				t.Errorf("blocks = %d, want %d", len(got.Blocks), len(tt.env.Blocks))
			}
			if !bytes.Equal(got.Data, tt.env.Data) || !bytes.Equal(got.IV, tt.env.IV) {
				t.Error("data/iv mismatch after round trip")
			}
		})
	}
}

func TestEnvelope_Unmarshal_Rejects(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"unknown kind", `{"kind":"quantum","data":"AQID"}`},
		{"missing kind", `{"data":"AQID","iv":"AQIDBAUGBwgJCgsM"}`},
		{"tfhe without blocks", `{"kind":"tfhe"}`},
		{"simulated without iv", `{"kind":"simulated","data":"AQID"}`},
		{"tfhe with simulated fields", `{"kind":"tfhe","blocks":["AQID"],"data":"AQID","iv":"AQIDBAUGBwgJCgsM"}`},
		{"bad base64", `{"kind":"simulated","data":"!!!","iv":"AQIDBAUGBwgJCgsM"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var env Envelope
			if err := json.Unmarshal([]byte(tt.json), &env); err == nil {
				t.Errorf("expected error for %s", tt.json)
			}
		})
	}
}

func TestEnvelope_Marshal_RejectsInconsistent(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
	}{
		{"no kind", Envelope{Data: []byte{1}}},
		{"tfhe empty blocks", Envelope{Kind: KindTFHE}},
		{"simulated missing iv", Envelope{Kind: KindSimulated, Data: []byte{1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := json.Marshal(&tt.env); err == nil {
				t.Error("expected marshal error")
			}
		})
	}
}

func TestKeyPair_JSON_RoundTrip(t *testing.T) {
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	kp := &KeyPair{
		Kind:      KindSimulated,
		ClientKey: []byte("client"),
		PublicKey: []byte("public"),
		ServerKey: []byte("server"),
		CreatedAt: created,
		ExpiresAt: created.Add(7 * 24 * time.Hour),
	}

	data, err := json.Marshal(kp)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got KeyPair
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got.Kind != kp.Kind {
		t.Errorf("kind = %q, want %q", got.Kind, kp.Kind)
	}
	if !bytes.Equal(got.ClientKey, kp.ClientKey) ||
		!bytes.Equal(got.PublicKey, kp.PublicKey) ||
		!bytes.Equal(got.ServerKey, kp.ServerKey) {
		t.Error("key material mismatch after round trip")
	}
	if !got.CreatedAt.Equal(kp.CreatedAt) || !got.ExpiresAt.Equal(kp.ExpiresAt) {
		t.Errorf("timestamps mismatch: got %v/%v", got.CreatedAt, got.ExpiresAt)
	}
}

func TestKeyPair_Marshal_RejectsIncomplete(t *testing.T) {
	kp := &KeyPair{Kind: KindSimulated, ClientKey: []byte("client")}
	if _, err := json.Marshal(kp); err == nil {
		t.Error("expected error marshaling incomplete pair")
	}
}

func TestKeyPair_Unmarshal_RejectsIncomplete(t *testing.T) {
	raw := `{"kind":"simulated","clientKey":"Y2xpZW50","publicKey":"","serverKey":"","createdAt":0,"expiresAt":0}`
	var kp KeyPair
	err := json.Unmarshal([]byte(raw), &kp)
	if err == nil {
		t.Fatal("expected error for partial key material")
	}
	if !strings.Contains(err.Error(), "incomplete") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestKeyPair_Unmarshal_RejectsUnknownKind(t *testing.T) {
	raw := `{"kind":"other","clientKey":"YQ","publicKey":"YQ","serverKey":"YQ","createdAt":0,"expiresAt":0}`
	var kp KeyPair
	if err := json.Unmarshal([]byte(raw), &kp); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
