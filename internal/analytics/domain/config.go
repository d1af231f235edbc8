package domain

import "github.com/nivala/pricing/internal/config"

const (
	// DefaultWindowDays is the rolling window used when a caller does not
	// specify one.
	DefaultWindowDays = 90

	// MaxWindowDays bounds admin-supplied windows.
	MaxWindowDays = 365

	// BaselineWindows is how many preceding windows feed the demand
	// baseline mean.
	BaselineWindows = 4
)

// Config carries the aggregation window settings.
type Config struct {
	WindowDays int
}

func LoadConfig(cfg config.Config) Config {
	days := cfg.AnalysisWindowDays
	if days <= 0 || days > MaxWindowDays {
		days = DefaultWindowDays
	}
	return Config{WindowDays: days}
}
