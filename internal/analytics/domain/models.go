// Package domain defines the usage snapshot read model produced by the
// aggregator and consumed by the recommendation generator.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Snapshot is the rolling-window usage statistics for one service type.
// CompletionRate and MeanSatisfaction are pointers because they are undefined
// (not zero) when no sessions, or no rated sessions, fall in the window.
type Snapshot struct {
	ServiceTypeID    snowflake.ID `json:"service_type_id"`
	WindowStart      time.Time    `json:"window_start"`
	WindowEnd        time.Time    `json:"window_end"`
	SessionCount     int          `json:"session_count"`
	CompletedCount   int          `json:"completed_count"`
	CompletionRate   *float64     `json:"completion_rate,omitempty"`
	MeanSatisfaction *float64     `json:"mean_satisfaction,omitempty"`
	MeanRevenueMinor float64      `json:"mean_revenue_minor"`
	UniqueUsers      int          `json:"unique_users"`
	GeneratedAt      time.Time    `json:"generated_at"`
}

type Service interface {
	// ComputeSnapshot aggregates the window. Zero matching sessions yields
	// ErrNoData, never a zero-filled snapshot; infrastructure failures
	// surface as distinct errors so callers can tell them apart.
	ComputeSnapshot(ctx context.Context, serviceTypeID snowflake.ID, windowDays int) (*Snapshot, error)

	// DemandBaseline is the mean session count per window over the
	// preceding windows of the same length. Returns 0 with no history.
	DemandBaseline(ctx context.Context, serviceTypeID snowflake.ID, windowDays int) (float64, error)

	// RefreshSnapshot recomputes and stores the read-model row for the
	// admin UI. ErrNoData is swallowed here: no row is written.
	RefreshSnapshot(ctx context.Context, serviceTypeID snowflake.ID, windowDays int) error

	ListSnapshots(ctx context.Context) ([]Snapshot, error)
}

// ErrNoData reports a window with zero matching sessions. Callers must treat
// it as "insufficient data", never as 0% completion.
var ErrNoData = errors.New("no_data")

var (
	ErrInvalidWindow      = errors.New("invalid_window")
	ErrInvalidServiceType = errors.New("invalid_service_type")
)
