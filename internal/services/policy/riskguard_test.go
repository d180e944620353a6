package policy

import (
	"testing"

	"MacroLearn/internal/domain/models"
)

func TestGuardConsecutiveLosses(t *testing.T) {
	g := NewGuard(DefaultGuardConfig())
	var d Directive
	g.Inspect(models.PerformanceSnapshot{AssetID: "btc", TradeCount: 20, ConsecutiveLosses: 3}, &d)
	g.Finalize(&d)

	if !d.Triggered {
		t.Fatalf("expected guard to trigger at 3 consecutive losses")
	}
	if d.RiskPerTradeStep != DefaultRiskPerTradeStep {
		t.Fatalf("risk step = %f, want %f", d.RiskPerTradeStep, DefaultRiskPerTradeStep)
	}
	if len(d.Reasons) == 0 {
		t.Fatalf("expected reasons to be recorded")
	}
}

func TestGuardRecentDrawdown(t *testing.T) {
	g := NewGuard(DefaultGuardConfig())
	var d Directive
	g.Inspect(models.PerformanceSnapshot{AssetID: "eth", TradeCount: 20, RecentDrawdown: 0.08}, &d)
	if !d.Triggered {
		t.Fatalf("expected guard to trigger at 8%% recent drawdown")
	}
}

func TestGuardBelowLimits(t *testing.T) {
	g := NewGuard(DefaultGuardConfig())
	var d Directive
	g.Inspect(models.PerformanceSnapshot{AssetID: "btc", TradeCount: 20, ConsecutiveLosses: 2, RecentDrawdown: 0.07}, &d)
	g.Finalize(&d)
	if d.Triggered {
		t.Fatalf("guard should not trigger below both limits")
	}
	if d.RiskPerTradeStep != 0 {
		t.Fatalf("untriggered directive carries a step: %f", d.RiskPerTradeStep)
	}
}

func TestGuardFiresDuringWarmup(t *testing.T) {
	// The guard protects capital and ignores the learning warmup gate.
	g := NewGuard(DefaultGuardConfig())
	var d Directive
	g.Inspect(models.PerformanceSnapshot{AssetID: "btc", TradeCount: 4, ConsecutiveLosses: 4}, &d)
	if !d.Triggered {
		t.Fatalf("guard must evaluate warmup assets too")
	}
}

func TestGuardAccumulatesAcrossAssets(t *testing.T) {
	g := NewGuard(DefaultGuardConfig())
	var d Directive
	g.Inspect(models.PerformanceSnapshot{AssetID: "btc", TradeCount: 20, ConsecutiveLosses: 3}, &d)
	g.Inspect(models.PerformanceSnapshot{AssetID: "eth", TradeCount: 20, RecentDrawdown: 0.10}, &d)
	g.Finalize(&d)
	// Two trigger reasons plus the final reduction line.
	if len(d.Reasons) != 3 {
		t.Fatalf("reasons = %d, want 3: %v", len(d.Reasons), d.Reasons)
	}
}
