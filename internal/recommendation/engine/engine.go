// Package engine computes price recommendations from usage snapshots. The
// heuristic is deterministic: identical inputs always produce identical
// output, so repeated runs are trustworthy and testable.
package engine

import (
	"fmt"
	"math"
	"strings"

	analyticsdomain "github.com/nivala/pricing/internal/analytics/domain"
	recdomain "github.com/nivala/pricing/internal/recommendation/domain"
)

// Weights tunes the elasticity heuristic. The constants are configuration,
// not a validated statistical model; defaults come from DefaultWeights.
type Weights struct {
	// MaxSignalPct bounds each individual signal's delta contribution.
	MaxSignalPct float64
	// MaxTotalPct clamps the summed delta per cycle.
	MaxTotalPct float64

	// CompletionTarget is the neutral completion rate. Rates above push the
	// price up, rates below push it down.
	CompletionTarget float64
	// CompletionSpread is the rate distance that saturates the signal.
	CompletionSpread float64

	// SatisfactionTarget is the neutral mean rating on the 0 to 5 scale.
	SatisfactionTarget float64
	// SatisfactionSpread is the rating distance that saturates the signal.
	SatisfactionSpread float64
	// SatisfactionVeto suppresses any price raise when the mean rating
	// falls below it.
	SatisfactionVeto float64

	// DemandSpread is the relative demand change (vs the historical
	// baseline) that saturates the demand signal.
	DemandSpread float64

	// MinSessions is the sample size below which confidence is capped at
	// LowSampleConfidence.
	MinSessions int
	// SaturationSessions is the sample size at which confidence reaches 1.
	SaturationSessions  int
	LowSampleConfidence float64
	// ConfidenceFloor suppresses recommendations below it entirely.
	ConfidenceFloor float64

	// MinDeltaPct suppresses recommendations whose delta is too small to
	// be worth an admin's attention.
	MinDeltaPct float64

	// FloorMinor and CeilingMinor bound the proposed price. Zero disables
	// the bound.
	FloorMinor   int64
	CeilingMinor int64
}

func DefaultWeights() Weights {
	return Weights{
		MaxSignalPct:        0.15,
		MaxTotalPct:         0.25,
		CompletionTarget:    0.75,
		CompletionSpread:    0.25,
		SatisfactionTarget:  3.5,
		SatisfactionSpread:  1.5,
		SatisfactionVeto:    2.5,
		DemandSpread:        0.5,
		MinSessions:         10,
		SaturationSessions:  100,
		LowSampleConfidence: 0.3,
		ConfidenceFloor:     0.4,
		MinDeltaPct:         0.01,
		FloorMinor:          100,
		CeilingMinor:        100000,
	}
}

// Input is everything Generate needs. DemandBaseline is the mean session
// count of preceding windows; zero means no history, which neutralizes the
// demand signal.
type Input struct {
	Snapshot          *analyticsdomain.Snapshot
	CurrentPriceMinor int64
	DemandBaseline    float64
}

// Proposal is the generator's raw output before persistence.
type Proposal struct {
	ProposedPriceMinor int64
	PercentDelta       float64
	Confidence         float64
	Reasoning          string
}

type Engine struct {
	weights Weights
}

func New(weights Weights) *Engine {
	return &Engine{weights: weights}
}

// Generate returns a proposal, or nil when the snapshot is too thin or the
// indicated change too small. ErrInvalidPriceState reports a current price
// of zero or less.
func (e *Engine) Generate(in Input) (*Proposal, error) {
	if in.CurrentPriceMinor <= 0 {
		return nil, recdomain.ErrInvalidPriceState
	}
	snap := in.Snapshot
	if snap == nil || snap.SessionCount == 0 {
		return nil, nil
	}

	w := e.weights

	confidence := e.confidence(snap.SessionCount)
	if confidence < w.ConfidenceFloor {
		return nil, nil
	}

	var reasons []string

	completionSignal := 0.0
	if snap.CompletionRate != nil {
		completionSignal = clamp((*snap.CompletionRate-w.CompletionTarget)/w.CompletionSpread*w.MaxSignalPct, -w.MaxSignalPct, w.MaxSignalPct)
		reasons = append(reasons, fmt.Sprintf("completion rate %.0f%% contributes %+.1f%%", *snap.CompletionRate*100, completionSignal*100))
	}

	satisfactionSignal := 0.0
	if snap.MeanSatisfaction != nil {
		satisfactionSignal = clamp((*snap.MeanSatisfaction-w.SatisfactionTarget)/w.SatisfactionSpread*w.MaxSignalPct, -w.MaxSignalPct, w.MaxSignalPct)
		reasons = append(reasons, fmt.Sprintf("mean satisfaction %.1f/5 contributes %+.1f%%", *snap.MeanSatisfaction, satisfactionSignal*100))
	}

	demandSignal := 0.0
	if in.DemandBaseline > 0 {
		ratio := float64(snap.SessionCount)/in.DemandBaseline - 1
		demandSignal = clamp(ratio/w.DemandSpread*w.MaxSignalPct, -w.MaxSignalPct, w.MaxSignalPct)
		reasons = append(reasons, fmt.Sprintf("demand %.0f%% of baseline contributes %+.1f%%", (ratio+1)*100, demandSignal*100))
	}

	delta := completionSignal + satisfactionSignal + demandSignal

	// Unhappy users veto any raise regardless of the other signals.
	if snap.MeanSatisfaction != nil && *snap.MeanSatisfaction < w.SatisfactionVeto && delta > 0 {
		delta = 0
		reasons = append(reasons, fmt.Sprintf("raise suppressed: mean satisfaction below %.1f", w.SatisfactionVeto))
	}

	if delta > w.MaxTotalPct || delta < -w.MaxTotalPct {
		delta = clamp(delta, -w.MaxTotalPct, w.MaxTotalPct)
		reasons = append(reasons, fmt.Sprintf("total change clamped to %+.0f%%", delta*100))
	}

	if math.Abs(delta) < w.MinDeltaPct {
		return nil, nil
	}

	proposed := int64(math.Round(float64(in.CurrentPriceMinor) * (1 + delta)))
	if w.FloorMinor > 0 && proposed < w.FloorMinor {
		proposed = w.FloorMinor
		reasons = append(reasons, fmt.Sprintf("proposed price raised to floor %d", w.FloorMinor))
	}
	if w.CeilingMinor > 0 && proposed > w.CeilingMinor {
		proposed = w.CeilingMinor
		reasons = append(reasons, fmt.Sprintf("proposed price capped at ceiling %d", w.CeilingMinor))
	}
	if proposed == in.CurrentPriceMinor {
		return nil, nil
	}

	// Recompute the delta from the final price so the stored numbers agree.
	finalDelta := float64(proposed-in.CurrentPriceMinor) / float64(in.CurrentPriceMinor)

	return &Proposal{
		ProposedPriceMinor: proposed,
		PercentDelta:       finalDelta,
		Confidence:         confidence,
		Reasoning: fmt.Sprintf("%d sessions over window: %s",
			snap.SessionCount, strings.Join(reasons, "; ")),
	}, nil
}

func (e *Engine) confidence(sessionCount int) float64 {
	w := e.weights
	c := float64(sessionCount) / float64(w.SaturationSessions)
	if c > 1 {
		c = 1
	}
	if sessionCount < w.MinSessions && c > w.LowSampleConfidence {
		c = w.LowSampleConfidence
	}
	return c
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
