package fhevault

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation labels used in metrics.
const (
	opEncrypt  = "encrypt"
	opDecrypt  = "decrypt"
	opStrength = "strength"
	opSearch   = "search"
	opProof    = "proof"
	opFile     = "file"
)

// Metrics is a snapshot of the client's operation counters.
type Metrics struct {
	Operations    uint64
	Failures      uint64
	Fallbacks     uint64
	AvgLatency    time.Duration
	ByOperation   map[string]uint64
	LastOperation time.Time
}

// metricsState accumulates operation counters. The running average uses
// an incremental mean so no per-operation history is kept.
type metricsState struct {
	mu          sync.Mutex
	operations  uint64
	failures    uint64
	fallbacks   uint64
	meanLatency float64 // milliseconds
	byOp        map[string]uint64
	lastOp      time.Time

	promOps      *prometheus.CounterVec
	promFailures prometheus.Counter
	promLatency  prometheus.Histogram
}

func newMetricsState(reg prometheus.Registerer) *metricsState {
	m := &metricsState{
		byOp: make(map[string]uint64),
	}
	if reg == nil {
		return m
	}

	m.promOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fhevault",
		Name:      "operations_total",
		Help:      "Completed client operations by type.",
	}, []string{"operation"})
	m.promFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fhevault",
		Name:      "operation_failures_total",
		Help:      "Failed client operations.",
	})
	m.promLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fhevault",
		Name:      "operation_duration_seconds",
		Help:      "Client operation latency.",
		Buckets:   prometheus.DefBuckets,
	})
	reg.MustRegister(m.promOps, m.promFailures, m.promLatency)
	return m
}

// record counts one successful operation and folds its latency into the
// running mean: mean += (x - mean) / n.
func (m *metricsState) record(op string, latency time.Duration) {
	m.mu.Lock()
	m.operations++
	m.byOp[op]++
	ms := float64(latency) / float64(time.Millisecond)
	m.meanLatency += (ms - m.meanLatency) / float64(m.operations)
	m.lastOp = time.Now()
	m.mu.Unlock()

	if m.promOps != nil {
		m.promOps.WithLabelValues(op).Inc()
		m.promLatency.Observe(latency.Seconds())
	}
}

func (m *metricsState) recordFailure(op string) {
	m.mu.Lock()
	m.failures++
	m.mu.Unlock()

	if m.promFailures != nil {
		m.promFailures.Inc()
	}
}

func (m *metricsState) recordFallback() {
	m.mu.Lock()
	m.fallbacks++
	m.mu.Unlock()
}

// reset clears the in-process counters. Prometheus collectors are
// cumulative and stay registered.
func (m *metricsState) reset() {
	m.mu.Lock()
	m.operations = 0
	m.failures = 0
	m.fallbacks = 0
	m.meanLatency = 0
	m.byOp = make(map[string]uint64)
	m.lastOp = time.Time{}
	m.mu.Unlock()
}

func (m *metricsState) snapshot() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	byOp := make(map[string]uint64, len(m.byOp))
	for op, n := range m.byOp {
		byOp[op] = n
	}
	return Metrics{
		Operations:    m.operations,
		Failures:      m.failures,
		Fallbacks:     m.fallbacks,
		AvgLatency:    time.Duration(m.meanLatency * float64(time.Millisecond)),
		ByOperation:   byOp,
		LastOperation: m.lastOp,
	}
}

// Metrics returns a snapshot of the client's operation counters.
func (c *Client) Metrics() Metrics {
	return c.metrics.snapshot()
}
