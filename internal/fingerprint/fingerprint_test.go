package fingerprint

import (
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestFingerprint_Deterministic(t *testing.T) {
	c := New(zerolog.Nop())

	f1 := c.Fingerprint()
	f2 := c.Fingerprint()

	if f1 != f2 {
		t.Errorf("fingerprint not stable across calls:\n%q\n%q", f1, f2)
	}
	if f1 == "" {
		t.Error("fingerprint is empty")
	}
}

func TestFingerprint_SignalCount(t *testing.T) {
	c := New(zerolog.Nop())
	parts := strings.Split(c.Fingerprint(), Delimiter)
	if len(parts) != len(defaultSignals()) {
		t.Errorf("got %d components, want %d", len(parts), len(defaultSignals()))
	}
}

func TestFingerprint_FailedSignalDegradesToPlaceholder(t *testing.T) {
	signals := []Signal{
		{Name: "ok", Collect: func() (string, error) { return "value", nil }},
		{Name: "failing", Collect: func() (string, error) { return "", errors.New("boom") }},
		{Name: "empty", Collect: func() (string, error) { return "", nil }},
	}
	c := NewWithSignals(zerolog.Nop(), signals)

	got := c.Fingerprint()
	want := "value" + Delimiter + Placeholder + Delimiter + Placeholder
	if got != want {
		t.Errorf("Fingerprint() = %q, want %q", got, want)
	}
}

func TestFingerprint_DelimiterEscapedInSignalValue(t *testing.T) {
	signals := []Signal{
		{Name: "hostile", Collect: func() (string, error) { return "a" + Delimiter + "b", nil }},
		{Name: "plain", Collect: func() (string, error) { return "c", nil }},
	}
	c := NewWithSignals(zerolog.Nop(), signals)

	parts := strings.Split(c.Fingerprint(), Delimiter)
	if len(parts) != 2 {
		t.Errorf("got %d components, want 2: %q", len(parts), c.Fingerprint())
	}
}

func TestFingerprint_AllSignalsFailing(t *testing.T) {
	signals := []Signal{
		{Name: "a", Collect: func() (string, error) { return "", errors.New("x") }},
		{Name: "b", Collect: func() (string, error) { return "", errors.New("y") }},
	}
	c := NewWithSignals(zerolog.Nop(), signals)

	// Derivation still proceeds from an all-placeholder string; this is an
	// accepted weakening, not a failure.
	if got := c.Fingerprint(); got != Placeholder+Delimiter+Placeholder {
		t.Errorf("Fingerprint() = %q", got)
	}
}
