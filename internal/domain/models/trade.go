package models

import (
	"fmt"
	"time"
)

// Outcome classifies a closed trade.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Trade is a single closed trade. Immutable once recorded; the core
// never mutates trades it receives.
type Trade struct {
	AssetID   string
	Symbol    string
	Side      Side
	PnlPct    float64 // signed fractional return, e.g. 0.02 for +2%
	Timestamp time.Time
	Source    string // "request", "execution", "store"
}

// Win reports whether the trade closed profitably.
func (t Trade) Win() bool { return t.PnlPct > 0 }

// Outcome derives the win/loss label from the signed return.
func (t Trade) Outcome() Outcome {
	if t.Win() {
		return OutcomeWin
	}
	return OutcomeLoss
}

// DedupKey identifies a trade across sources. Two records with the same
// asset, timestamp and pnl are treated as the same trade.
func (t Trade) DedupKey() string {
	return fmt.Sprintf("%s|%d|%.10f", t.AssetID, t.Timestamp.UnixNano(), t.PnlPct)
}

// PerformanceSnapshot holds per-asset statistics derived from an ordered
// trade sequence. Recomputed fresh each cycle, never persisted.
type PerformanceSnapshot struct {
	AssetID           string
	TradeCount        int
	WinRate           float64 // [0,1]
	MaxDrawdown       float64 // [0,1], peak-to-trough on the equity walk
	Volatility        float64 // stddev of per-trade returns, >= 0
	ConsecutiveLosses int     // trailing losing run ending at the latest trade
	RecentDrawdown    float64 // drawdown over the recent trailing window
	RecentLongs       int
	RecentShorts      int
}

// RecentNetLong reports whether the recent window was net long-biased.
// Ties default to long, matching the bull-first bias convention.
func (s PerformanceSnapshot) RecentNetLong() bool {
	return s.RecentLongs >= s.RecentShorts
}
