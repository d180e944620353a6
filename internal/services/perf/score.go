package perf

import (
	"fmt"

	"MacroLearn/internal/domain/models"
)

// Policy weights and reference ranges for the composite score. Fixed policy
// parameters: the defaults must be preserved for behavioral parity with the
// tuned thresholds downstream.
const (
	DefaultWinRateWeight    = 0.50
	DefaultDrawdownWeight   = 0.35
	DefaultVolatilityWeight = 0.15

	DefaultDrawdownRef   = 1.0
	DefaultVolatilityRef = 1.0

	// neutralSubScore stands in for a metric the sample cannot define,
	// e.g. volatility of a single trade.
	neutralSubScore = 0.5
)

// ScoreConfig parameterizes the composite score.
type ScoreConfig struct {
	WinRateWeight    float64
	DrawdownWeight   float64
	VolatilityWeight float64
	DrawdownRef      float64 // drawdown at or above this scores 0
	VolatilityRef    float64 // volatility at or above this scores 0
}

// DefaultScoreConfig returns the fixed policy defaults.
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		WinRateWeight:    DefaultWinRateWeight,
		DrawdownWeight:   DefaultDrawdownWeight,
		VolatilityWeight: DefaultVolatilityWeight,
		DrawdownRef:      DefaultDrawdownRef,
		VolatilityRef:    DefaultVolatilityRef,
	}
}

// ScoreBreakdown carries the composite score and its sub-scores for
// reasoning output.
type ScoreBreakdown struct {
	WinRateScore    float64
	DrawdownScore   float64
	VolatilityScore float64
	Composite       float64
}

func (b ScoreBreakdown) String() string {
	return fmt.Sprintf("composite=%.3f (wr=%.3f dd=%.3f vol=%.3f)",
		b.Composite, b.WinRateScore, b.DrawdownScore, b.VolatilityScore)
}

// CompositeScore converts a snapshot into a normalized [0,1] score.
// Win rate feeds in directly; drawdown and volatility are normalized against
// their reference ranges and inverted so that worse values score lower.
func CompositeScore(s models.PerformanceSnapshot, cfg ScoreConfig) ScoreBreakdown {
	if cfg.DrawdownRef <= 0 {
		cfg.DrawdownRef = DefaultDrawdownRef
	}
	if cfg.VolatilityRef <= 0 {
		cfg.VolatilityRef = DefaultVolatilityRef
	}

	wr := models.ClampScore(s.WinRate)
	dd := models.ClampScore(1 - s.MaxDrawdown/cfg.DrawdownRef)

	vol := neutralSubScore
	if s.TradeCount >= 2 {
		vol = models.ClampScore(1 - s.Volatility/cfg.VolatilityRef)
	}

	composite := models.ClampScore(
		cfg.WinRateWeight*wr + cfg.DrawdownWeight*dd + cfg.VolatilityWeight*vol)

	return ScoreBreakdown{
		WinRateScore:    wr,
		DrawdownScore:   dd,
		VolatilityScore: vol,
		Composite:       composite,
	}
}
