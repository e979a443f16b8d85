package fhevault

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsIncrementalMean(t *testing.T) {
	m := newMetricsState(nil)

	latencies := []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		60 * time.Millisecond,
	}
	for _, l := range latencies {
		m.record(opEncrypt, l)
	}

	snap := m.snapshot()
	if snap.Operations != 3 {
		t.Errorf("Operations = %d, want 3", snap.Operations)
	}
	wantAvg := 30 * time.Millisecond
	diff := math.Abs(float64(snap.AvgLatency - wantAvg))
	if diff > float64(time.Microsecond) {
		t.Errorf("AvgLatency = %v, want %v", snap.AvgLatency, wantAvg)
	}
	if snap.ByOperation[opEncrypt] != 3 {
		t.Errorf("ByOperation[encrypt] = %d, want 3", snap.ByOperation[opEncrypt])
	}
}

func TestMetricsFailuresAndFallbacks(t *testing.T) {
	m := newMetricsState(nil)

	m.record(opStrength, time.Millisecond)
	m.recordFailure(opStrength)
	m.recordFallback()

	snap := m.snapshot()
	if snap.Failures != 1 {
		t.Errorf("Failures = %d, want 1", snap.Failures)
	}
	if snap.Fallbacks != 1 {
		t.Errorf("Fallbacks = %d, want 1", snap.Fallbacks)
	}
	// Failures do not pollute the success mean.
	if snap.Operations != 1 {
		t.Errorf("Operations = %d, want 1", snap.Operations)
	}
}

func TestMetricsSnapshotIsolation(t *testing.T) {
	m := newMetricsState(nil)
	m.record(opEncrypt, time.Millisecond)

	snap := m.snapshot()
	snap.ByOperation[opEncrypt] = 999

	if got := m.snapshot().ByOperation[opEncrypt]; got != 1 {
		t.Errorf("snapshot mutation leaked into state: %d", got)
	}
}

func TestMetricsPrometheusMirror(t *testing.T) {
	reg := prometheus.NewRegistry()
	co := newCollaborator(t)
	client := initTestClient(t, co, WithMetricsRegistry(reg))
	ctx := context.Background()

	if _, err := client.EncryptPassword(ctx, "pw"); err != nil {
		t.Fatalf("EncryptPassword() error = %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var sawOps, sawLatency bool
	for _, mf := range families {
		switch mf.GetName() {
		case "fhevault_operations_total":
			sawOps = true
		case "fhevault_operation_duration_seconds":
			sawLatency = true
		}
	}
	if !sawOps {
		t.Error("fhevault_operations_total not registered")
	}
	if !sawLatency {
		t.Error("fhevault_operation_duration_seconds not registered")
	}
}

func TestClientMetricsAccumulate(t *testing.T) {
	co := newCollaborator(t)
	client := initTestClient(t, co)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := client.EncryptPassword(ctx, "pw"); err != nil {
			t.Fatalf("EncryptPassword() error = %v", err)
		}
	}

	m := client.Metrics()
	if m.Operations != 5 {
		t.Errorf("Operations = %d, want 5", m.Operations)
	}
	if m.LastOperation.IsZero() {
		t.Error("LastOperation not set")
	}
}
