package engine

import "github.com/nivala/pricing/internal/config"

// LoadWeights starts from DefaultWeights and applies the overrides carried
// on config.Config. Out-of-range values keep the default so a bad env var
// cannot disable the clamps.
func LoadWeights(cfg config.Config) Weights {
	w := DefaultWeights()
	if cfg.EngineMaxSignalPct > 0 && cfg.EngineMaxSignalPct <= 1 {
		w.MaxSignalPct = cfg.EngineMaxSignalPct
	}
	if cfg.EngineMaxTotalPct >= w.MaxSignalPct && cfg.EngineMaxTotalPct <= 1 {
		w.MaxTotalPct = cfg.EngineMaxTotalPct
	}
	if cfg.EngineConfidenceFloor > 0 && cfg.EngineConfidenceFloor < 1 {
		w.ConfidenceFloor = cfg.EngineConfidenceFloor
	}
	if cfg.PriceFloorMinor > 0 {
		w.FloorMinor = cfg.PriceFloorMinor
	}
	if cfg.PriceCeilingMinor >= w.FloorMinor {
		w.CeilingMinor = cfg.PriceCeilingMinor
	}
	return w
}
