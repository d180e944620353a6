package policy

import (
	"fmt"

	"MacroLearn/internal/domain/models"
)

// Risk guard defaults. The guard protects capital, not learning quality, so
// it evaluates every asset regardless of the warmup gate.
const (
	DefaultMaxConsecutiveLosses = 3
	DefaultRecentDrawdownLimit  = 0.08
	DefaultRiskPerTradeStep     = -0.005
)

// GuardConfig parameterizes the risk guard.
type GuardConfig struct {
	MaxConsecutiveLosses int
	RecentDrawdownLimit  float64
	RiskPerTradeStep     float64 // negative: a reduction directive
}

// DefaultGuardConfig returns the tuned defaults.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		MaxConsecutiveLosses: DefaultMaxConsecutiveLosses,
		RecentDrawdownLimit:  DefaultRecentDrawdownLimit,
		RiskPerTradeStep:     DefaultRiskPerTradeStep,
	}
}

// Directive is the guard's output for one cycle. When triggered, the
// risk_per_trade reduction is merged into the policy deltas and cannot be
// cancelled by a simultaneous bias increase.
type Directive struct {
	Triggered        bool
	RiskPerTradeStep float64
	Reasons          []string
}

// Guard flags drawdown clustering across assets.
type Guard struct {
	cfg GuardConfig
}

// NewGuard creates a guard, filling zero config fields with defaults.
func NewGuard(cfg GuardConfig) *Guard {
	if cfg.MaxConsecutiveLosses <= 0 {
		cfg.MaxConsecutiveLosses = DefaultMaxConsecutiveLosses
	}
	if cfg.RecentDrawdownLimit <= 0 {
		cfg.RecentDrawdownLimit = DefaultRecentDrawdownLimit
	}
	if cfg.RiskPerTradeStep == 0 {
		cfg.RiskPerTradeStep = DefaultRiskPerTradeStep
	}
	return &Guard{cfg: cfg}
}

// Inspect evaluates one asset snapshot and accumulates trigger reasons into
// the directive. Warmup state is irrelevant here.
func (g *Guard) Inspect(snap models.PerformanceSnapshot, d *Directive) {
	if snap.ConsecutiveLosses >= g.cfg.MaxConsecutiveLosses {
		d.Triggered = true
		d.Reasons = append(d.Reasons, fmt.Sprintf(
			"asset %q has %d consecutive losses (limit %d), flagging for risk review",
			snap.AssetID, snap.ConsecutiveLosses, g.cfg.MaxConsecutiveLosses))
	}
	if snap.RecentDrawdown >= g.cfg.RecentDrawdownLimit {
		d.Triggered = true
		d.Reasons = append(d.Reasons, fmt.Sprintf(
			"asset %q recent drawdown %.2f%% exceeds %.2f%%, flagging for risk review",
			snap.AssetID, snap.RecentDrawdown*100, g.cfg.RecentDrawdownLimit*100))
	}
}

// Finalize stamps the directive with the reduction step when triggered.
func (g *Guard) Finalize(d *Directive) {
	if !d.Triggered {
		return
	}
	d.RiskPerTradeStep = g.cfg.RiskPerTradeStep
	d.Reasons = append(d.Reasons, fmt.Sprintf(
		"applying global risk_per_trade reduction of %.4f due to drawdown clustering",
		g.cfg.RiskPerTradeStep))
}
