package policy

import (
	"fmt"

	"MacroLearn/internal/domain/models"
	"MacroLearn/internal/services/perf"
)

// Tuned adjuster defaults. The warmup gate is a hard precondition and is
// never bypassed.
const (
	DefaultWarmupMinTrades = 10
	DefaultUpperThreshold  = 0.70
	DefaultLowerThreshold  = 0.45
	DefaultBiasStep        = 0.05
)

// AdjusterConfig parameterizes the bias adjuster.
type AdjusterConfig struct {
	WarmupMinTrades int
	UpperThreshold  float64
	LowerThreshold  float64
	BiasStep        float64
}

// DefaultAdjusterConfig returns the tuned defaults.
func DefaultAdjusterConfig() AdjusterConfig {
	return AdjusterConfig{
		WarmupMinTrades: DefaultWarmupMinTrades,
		UpperThreshold:  DefaultUpperThreshold,
		LowerThreshold:  DefaultLowerThreshold,
		BiasStep:        DefaultBiasStep,
	}
}

// Decision is one asset's adjuster outcome with the reasoning behind it.
type Decision struct {
	AssetID string
	State   models.LearningState
	Delta   models.BiasDelta
	Reason  string
}

// Adjuster turns a composite score into a proposed bias delta for one asset.
type Adjuster struct {
	cfg AdjusterConfig
}

// NewAdjuster creates an adjuster, filling zero config fields with defaults.
func NewAdjuster(cfg AdjusterConfig) *Adjuster {
	if cfg.WarmupMinTrades <= 0 {
		cfg.WarmupMinTrades = DefaultWarmupMinTrades
	}
	if cfg.UpperThreshold <= 0 {
		cfg.UpperThreshold = DefaultUpperThreshold
	}
	if cfg.LowerThreshold <= 0 {
		cfg.LowerThreshold = DefaultLowerThreshold
	}
	if cfg.BiasStep <= 0 {
		cfg.BiasStep = DefaultBiasStep
	}
	return &Adjuster{cfg: cfg}
}

// Decide applies the warmup gate and threshold rules to one asset.
// Scores at or above the upper threshold propose a positive step on the
// directional component matching the asset's recent net side; scores at or
// below the lower threshold propose the negative step; anything strictly
// between proposes no change.
func (a *Adjuster) Decide(snap models.PerformanceSnapshot, score perf.ScoreBreakdown) Decision {
	d := Decision{AssetID: snap.AssetID, State: models.LearningSuccess}

	if snap.TradeCount < a.cfg.WarmupMinTrades {
		d.State = models.LearningWarmup
		d.Reason = fmt.Sprintf("asset %q is in warmup (%d/%d trades), no bias applied",
			snap.AssetID, snap.TradeCount, a.cfg.WarmupMinTrades)
		return d
	}

	switch {
	case score.Composite >= a.cfg.UpperThreshold:
		d.Delta = directionalDelta(snap, a.cfg.BiasStep)
		d.Reason = fmt.Sprintf("asset %q score %.2f >= %.2f, applying positive bias (%s)",
			snap.AssetID, score.Composite, a.cfg.UpperThreshold, score)
	case score.Composite <= a.cfg.LowerThreshold:
		d.Delta = directionalDelta(snap, -a.cfg.BiasStep)
		d.Reason = fmt.Sprintf("asset %q score %.2f <= %.2f, applying negative bias (%s)",
			snap.AssetID, score.Composite, a.cfg.LowerThreshold, score)
	default:
		d.Reason = fmt.Sprintf("asset %q score %.2f within [%.2f, %.2f], no bias change (%s)",
			snap.AssetID, score.Composite, a.cfg.LowerThreshold, a.cfg.UpperThreshold, score)
	}
	return d
}

// directionalDelta targets the bias component matching the recent net side:
// net-long assets move bull_bias, net-short assets move bear_bias.
func directionalDelta(snap models.PerformanceSnapshot, step float64) models.BiasDelta {
	if snap.RecentNetLong() {
		return models.BiasDelta{Bull: step}
	}
	return models.BiasDelta{Bear: step}
}
