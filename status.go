package fhevault

import (
	"context"
	"time"

	"github.com/fhevault/client-go/internal/api"
)

// Status is a snapshot of the client's operational state.
type Status struct {
	Initialized bool
	Backend     string
	Simulated   bool
	HasKeyPair  bool
	KeyExpires  time.Time
	RotationDue bool
	Operations  uint64
	Failures    uint64
	Fallbacks   uint64
	AvgLatency  time.Duration

	// CollaboratorOK reports whether the last status push was
	// acknowledged. Always false when the push fails or is skipped.
	CollaboratorOK bool
}

// Status reports the client's operational state and pushes an aggregate
// snapshot to the collaborator. The push is best-effort: a collaborator
// failure is logged and reflected in CollaboratorOK, never returned.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	be := c.backend
	pair := c.pair
	c.mu.RUnlock()

	m := c.metrics.snapshot()
	s := &Status{
		Initialized: be != nil,
		HasKeyPair:  pair != nil,
		RotationDue: c.keys.RotationDue(),
		Operations:  m.Operations,
		Failures:    m.Failures,
		Fallbacks:   m.Fallbacks,
		AvgLatency:  m.AvgLatency,
	}
	if be != nil {
		s.Backend = be.Name()
		s.Simulated = be.Simulated()
	}
	if pair != nil {
		s.KeyExpires = pair.ExpiresAt
	}

	if be != nil {
		resp, err := c.apiClient.ReportStatus(ctx, api.StatusReport{
			Backend:       s.Backend,
			Simulated:     s.Simulated,
			Operations:    s.Operations,
			AvgLatencyMs:  float64(s.AvgLatency) / float64(time.Millisecond),
			ClientVersion: Version,
		})
		if err != nil {
			c.log.Debug().Err(err).Msg("status push failed")
		} else {
			s.CollaboratorOK = resp.OK
		}
	}

	return s, nil
}
