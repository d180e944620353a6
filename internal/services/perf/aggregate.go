package perf

import (
	"errors"
	"math"
	"sort"

	"MacroLearn/internal/domain/models"
)

// ErrNoTrades marks an asset with an empty trade sequence. The caller skips
// the asset and continues the cycle for the others.
var ErrNoTrades = errors.New("no trades for asset")

// DefaultRecentWindow is the trailing window for recent-drawdown and
// net-direction statistics.
const DefaultRecentWindow = 10

// MergeTrades unifies trades from the execution result, the caller-supplied
// history and the extended store history into one chronological, deduplicated
// sequence per asset. Dedup key: asset_id + timestamp + pnl.
func MergeTrades(sources ...[]models.Trade) map[string][]models.Trade {
	seen := make(map[string]struct{})
	byAsset := make(map[string][]models.Trade)
	for _, src := range sources {
		for _, t := range src {
			if t.AssetID == "" {
				continue
			}
			k := t.DedupKey()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			byAsset[t.AssetID] = append(byAsset[t.AssetID], t)
		}
	}
	for id := range byAsset {
		ts := byAsset[id]
		sort.Slice(ts, func(i, j int) bool { return ts[i].Timestamp.Before(ts[j].Timestamp) })
	}
	return byAsset
}

// Snapshot derives per-asset statistics from a chronological trade sequence.
// recentWindow bounds the trailing window used for recent drawdown and net
// direction; values <= 0 fall back to DefaultRecentWindow.
func Snapshot(assetID string, trades []models.Trade, recentWindow int) (models.PerformanceSnapshot, error) {
	if len(trades) == 0 {
		return models.PerformanceSnapshot{AssetID: assetID}, ErrNoTrades
	}
	if recentWindow <= 0 {
		recentWindow = DefaultRecentWindow
	}

	pnls := make([]float64, len(trades))
	wins := 0
	for i, t := range trades {
		pnls[i] = t.PnlPct
		if t.Win() {
			wins++
		}
	}

	recent := trades
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}
	recentPnls := pnls
	if len(recentPnls) > recentWindow {
		recentPnls = recentPnls[len(recentPnls)-recentWindow:]
	}

	longs, shorts := 0, 0
	for _, t := range recent {
		if t.Side == models.SideSell {
			shorts++
		} else {
			longs++
		}
	}

	return models.PerformanceSnapshot{
		AssetID:           assetID,
		TradeCount:        len(trades),
		WinRate:           float64(wins) / float64(len(trades)),
		MaxDrawdown:       maxDrawdown(pnls),
		Volatility:        stdDev(pnls),
		ConsecutiveLosses: trailingLosses(pnls),
		RecentDrawdown:    maxDrawdown(recentPnls),
		RecentLongs:       longs,
		RecentShorts:      shorts,
	}, nil
}

// maxDrawdown walks a compounding equity curve seeded at 1.0 and returns the
// largest peak-to-trough fractional decline.
func maxDrawdown(pnls []float64) float64 {
	equity := 1.0
	peak := 1.0
	maxDD := 0.0
	for _, p := range pnls {
		equity *= 1 + p
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return models.ClampScore(maxDD)
}

// stdDev is the population standard deviation of the returns. Fewer than two
// samples yields 0; the scorer treats that as an undefined metric.
func stdDev(pnls []float64) float64 {
	if len(pnls) < 2 {
		return 0
	}
	mean := 0.0
	for _, p := range pnls {
		mean += p
	}
	mean /= float64(len(pnls))
	variance := 0.0
	for _, p := range pnls {
		d := p - mean
		variance += d * d
	}
	variance /= float64(len(pnls))
	return math.Sqrt(variance)
}

// trailingLosses counts the losing run ending at the most recent trade.
func trailingLosses(pnls []float64) int {
	n := 0
	for i := len(pnls) - 1; i >= 0; i-- {
		if pnls[i] >= 0 {
			break
		}
		n++
	}
	return n
}
