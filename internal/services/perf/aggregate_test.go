package perf

import (
	"math"
	"testing"
	"time"

	"MacroLearn/internal/domain/models"
)

func mkTrade(asset string, offset int, pnl float64, side models.Side) models.Trade {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return models.Trade{
		AssetID:   asset,
		Symbol:    asset + "/USD",
		Side:      side,
		PnlPct:    pnl,
		Timestamp: base.Add(time.Duration(offset) * time.Minute),
	}
}

func TestMergeTradesDedupAndOrder(t *testing.T) {
	a := mkTrade("btc", 2, 0.01, models.SideBuy)
	b := mkTrade("btc", 1, -0.02, models.SideSell)
	dup := a // same asset, ts and pnl

	merged := MergeTrades([]models.Trade{a}, []models.Trade{dup, b})
	got := merged["btc"]
	if len(got) != 2 {
		t.Fatalf("expected 2 trades after dedup, got %d", len(got))
	}
	if !got[0].Timestamp.Before(got[1].Timestamp) {
		t.Fatalf("trades not chronological: %v then %v", got[0].Timestamp, got[1].Timestamp)
	}
}

func TestMergeTradesGroupsByAsset(t *testing.T) {
	merged := MergeTrades([]models.Trade{
		mkTrade("btc", 1, 0.01, models.SideBuy),
		mkTrade("eth", 1, 0.02, models.SideBuy),
		{PnlPct: 0.5}, // no asset id, dropped
	})
	if len(merged) != 2 {
		t.Fatalf("expected 2 assets, got %d", len(merged))
	}
	if len(merged["btc"]) != 1 || len(merged["eth"]) != 1 {
		t.Fatalf("unexpected grouping: %v", merged)
	}
}

func TestSnapshotEmpty(t *testing.T) {
	_, err := Snapshot("btc", nil, 0)
	if err != ErrNoTrades {
		t.Fatalf("expected ErrNoTrades, got %v", err)
	}
}

func TestSnapshotStats(t *testing.T) {
	trades := []models.Trade{
		mkTrade("btc", 1, 0.02, models.SideBuy),
		mkTrade("btc", 2, -0.01, models.SideSell),
		mkTrade("btc", 3, 0.03, models.SideBuy),
		mkTrade("btc", 4, -0.02, models.SideSell),
		mkTrade("btc", 5, -0.01, models.SideSell),
	}
	snap, err := Snapshot("btc", trades, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.TradeCount != 5 {
		t.Fatalf("trade count = %d, want 5", snap.TradeCount)
	}
	if got, want := snap.WinRate, 2.0/5.0; math.Abs(got-want) > 1e-12 {
		t.Fatalf("win rate = %f, want %f", got, want)
	}
	// Peak after the third trade, then two losses: 1 - 0.98*0.99.
	if got, want := snap.MaxDrawdown, 1-0.98*0.99; math.Abs(got-want) > 1e-9 {
		t.Fatalf("max drawdown = %f, want %f", got, want)
	}
	if snap.ConsecutiveLosses != 2 {
		t.Fatalf("consecutive losses = %d, want 2", snap.ConsecutiveLosses)
	}
	if got, want := snap.Volatility, math.Sqrt(0.000376); math.Abs(got-want) > 1e-9 {
		t.Fatalf("volatility = %f, want %f", got, want)
	}
	// Recent window of 3: one long, two shorts.
	if snap.RecentLongs != 1 || snap.RecentShorts != 2 {
		t.Fatalf("recent longs/shorts = %d/%d, want 1/2", snap.RecentLongs, snap.RecentShorts)
	}
	if snap.RecentNetLong() {
		t.Fatalf("expected net short recent window")
	}
}

func TestSnapshotRecentDrawdownWindow(t *testing.T) {
	// Big early loss outside the recent window must not leak into
	// recent_drawdown.
	trades := []models.Trade{
		mkTrade("btc", 1, -0.30, models.SideBuy),
		mkTrade("btc", 2, 0.01, models.SideBuy),
		mkTrade("btc", 3, 0.01, models.SideBuy),
		mkTrade("btc", 4, 0.01, models.SideBuy),
	}
	snap, err := Snapshot("btc", trades, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.RecentDrawdown != 0 {
		t.Fatalf("recent drawdown = %f, want 0", snap.RecentDrawdown)
	}
	if snap.MaxDrawdown < 0.29 {
		t.Fatalf("max drawdown = %f, want >= 0.29", snap.MaxDrawdown)
	}
}

func TestTrailingLossesStopsAtWin(t *testing.T) {
	if got := trailingLosses([]float64{-0.1, 0.2, -0.1, -0.1}); got != 2 {
		t.Fatalf("trailing losses = %d, want 2", got)
	}
	if got := trailingLosses([]float64{0.1, 0.2}); got != 0 {
		t.Fatalf("trailing losses = %d, want 0", got)
	}
}
