package policy

import (
	"testing"

	"MacroLearn/internal/domain/models"
	"MacroLearn/internal/services/perf"
)

func score(composite float64) perf.ScoreBreakdown {
	return perf.ScoreBreakdown{Composite: composite}
}

func TestDecideWarmupGateWinsOverScore(t *testing.T) {
	a := NewAdjuster(DefaultAdjusterConfig())
	snap := models.PerformanceSnapshot{AssetID: "btc", TradeCount: 9, RecentLongs: 5}

	d := a.Decide(snap, score(0.99))
	if d.State != models.LearningWarmup {
		t.Fatalf("state = %s, want warmup", d.State)
	}
	if !d.Delta.IsZero() {
		t.Fatalf("warmup produced a delta: %+v", d.Delta)
	}
	if d.Reason == "" {
		t.Fatalf("expected a reasoning string")
	}
}

func TestDecideThresholdsInclusive(t *testing.T) {
	a := NewAdjuster(DefaultAdjusterConfig())
	snap := models.PerformanceSnapshot{AssetID: "btc", TradeCount: 20, RecentLongs: 5}

	cases := []struct {
		composite float64
		wantBull  float64
	}{
		{0.70, 0.05},  // at the upper threshold
		{0.71, 0.05},  // above
		{0.45, -0.05}, // at the lower threshold
		{0.44, -0.05}, // below
		{0.60, 0},     // between
	}
	for _, tc := range cases {
		d := a.Decide(snap, score(tc.composite))
		if d.State != models.LearningSuccess {
			t.Fatalf("composite %f: state = %s, want success", tc.composite, d.State)
		}
		if d.Delta.Bull != tc.wantBull {
			t.Fatalf("composite %f: bull delta = %f, want %f", tc.composite, d.Delta.Bull, tc.wantBull)
		}
		if d.Delta.Bear != 0 {
			t.Fatalf("composite %f: bear delta = %f, want 0 for net-long asset", tc.composite, d.Delta.Bear)
		}
	}
}

func TestDecideDirectionFollowsRecentSide(t *testing.T) {
	a := NewAdjuster(DefaultAdjusterConfig())

	short := models.PerformanceSnapshot{AssetID: "btc", TradeCount: 20, RecentLongs: 2, RecentShorts: 8}
	d := a.Decide(short, score(0.80))
	if d.Delta.Bear != 0.05 || d.Delta.Bull != 0 {
		t.Fatalf("net-short asset delta = %+v, want bear +0.05", d.Delta)
	}

	// Ties default to the long side.
	tied := models.PerformanceSnapshot{AssetID: "btc", TradeCount: 20, RecentLongs: 5, RecentShorts: 5}
	d = a.Decide(tied, score(0.80))
	if d.Delta.Bull != 0.05 {
		t.Fatalf("tied asset delta = %+v, want bull +0.05", d.Delta)
	}
}

func TestNewAdjusterFillsDefaults(t *testing.T) {
	a := NewAdjuster(AdjusterConfig{})
	if a.cfg.WarmupMinTrades != DefaultWarmupMinTrades ||
		a.cfg.UpperThreshold != DefaultUpperThreshold ||
		a.cfg.LowerThreshold != DefaultLowerThreshold ||
		a.cfg.BiasStep != DefaultBiasStep {
		t.Fatalf("defaults not applied: %+v", a.cfg)
	}
}
