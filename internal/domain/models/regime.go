package models

import "time"

// Regime is a discrete label for the current market character.
type Regime string

const (
	RegimeUptrend   Regime = "uptrend"
	RegimeDowntrend Regime = "downtrend"
	RegimeRanging   Regime = "ranging"
	RegimeVolatile  Regime = "volatile"
)

// MinRegimePoints is the minimum price-series length the classifier accepts.
const MinRegimePoints = 200

// PricePoint is one OHLCV bar in a chronological series.
type PricePoint struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// RegimeResult is the classifier output: a label, a confidence in [0,1]
// and a human-readable explanation of the governing indicators.
type RegimeResult struct {
	Regime      Regime
	Confidence  float64
	Explanation string
}
