package backend

import (
	"context"

	"github.com/rs/zerolog"
)

// SelectConfig controls the capability probe.
type SelectConfig struct {
	// ModulePath is the filesystem path of the TFHE WASM module. Empty
	// means no module is installed.
	ModulePath string
	// ForceSimulated skips the probe entirely.
	ForceSimulated bool
	Log            zerolog.Logger
}

// Select probes for the real backend and falls back to the simulation.
// It never fails: a missing or broken module downgrades the process to
// degraded-but-functional operation. The downgrade is logged so operators
// can detect devices stuck in permanent fallback mode. The decision is
// the caller's to cache; it holds for the process lifetime.
func Select(ctx context.Context, cfg SelectConfig) Backend {
	if cfg.ForceSimulated {
		cfg.Log.Info().Msg("tfhe backend disabled, using simulation")
		return NewSimulated()
	}
	if cfg.ModulePath == "" {
		cfg.Log.Warn().Msg("no tfhe module path configured, using simulation")
		return NewSimulated()
	}

	t, err := LoadTFHE(ctx, cfg.ModulePath, cfg.Log)
	if err != nil {
		cfg.Log.Warn().Err(err).Str("module", cfg.ModulePath).
			Msg("tfhe backend unavailable, falling back to simulation")
		return NewSimulated()
	}

	cfg.Log.Info().Str("module", cfg.ModulePath).Msg("tfhe backend active")
	return t
}
