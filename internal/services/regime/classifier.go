package regime

import (
	"errors"
	"fmt"

	"MacroLearn/internal/domain/models"
)

// Rule thresholds. The table below is evaluated strictly in order; the
// volatility override always wins when it fires.
const (
	atrRatioVolatile = 1.5
	adxTrending      = 25.0
	adxRanging       = 20.0
	proximityBand    = 0.01 // price within 1% of EMA-200 counts as "at" it
	slopeEpsFraction = 0.0005
	adxAccelDelta    = 5.0
)

// ErrShortSeries rejects price series below the minimum length before any
// computation runs.
var ErrShortSeries = errors.New("price history too short for regime classification")

// ErrDegenerateSeries rejects series the indicators cannot be derived from
// (e.g. non-positive EMA or too little indicator runway).
var ErrDegenerateSeries = errors.New("price history insufficient for indicator analysis")

// Inputs holds the derived indicator values the rule table evaluates.
type Inputs struct {
	Price     float64
	EMA200    float64
	EMASlope  float64 // ema[last] - ema[last-3]
	PrevSlope float64 // ema[last-3] - ema[last-5], for flip detection
	ADX       float64
	PrevADX   float64 // 5 periods ago, for acceleration detection
	ATRRatio  float64 // latest ATR over its trailing 20-period mean
	CloseMean float64
}

func (in Inputs) slopeEps() float64 { return in.CloseMean * slopeEpsFraction }

func (in Inputs) proximityPct() float64 {
	if in.EMA200 == 0 {
		return 0
	}
	return abs(in.Price-in.EMA200) / in.EMA200
}

func (in Inputs) adxAccelerating() bool { return in.ADX > in.PrevADX+adxAccelDelta }

func (in Inputs) slopeFlipped() bool {
	return (in.EMASlope > 0 && in.PrevSlope < 0) || (in.EMASlope < 0 && in.PrevSlope > 0)
}

// rule is one entry of the ordered decision table. match gates the rule,
// confidence scores distance from the rule's boundary conditions, and
// nearness ranks the rule when nothing matches cleanly.
type rule struct {
	regime     models.Regime
	match      func(Inputs) bool
	confidence func(Inputs) float64
	nearness   func(Inputs) float64
}

// rules is evaluated first-match-wins. Order is part of the contract:
// a volatility spike overrides any trend or range signal.
var rules = []rule{
	{
		regime:     models.RegimeVolatile,
		match:      func(in Inputs) bool { return in.ATRRatio >= atrRatioVolatile },
		confidence: volatileConfidence,
		nearness:   func(in Inputs) float64 { return clamp01(in.ATRRatio / atrRatioVolatile) },
	},
	{
		regime: models.RegimeUptrend,
		match: func(in Inputs) bool {
			return in.ADX > adxTrending && in.EMASlope > 0 && in.Price > in.EMA200
		},
		confidence: func(in Inputs) float64 { return trendConfidence(in, 1) },
		nearness:   func(in Inputs) float64 { return trendNearness(in, 1) },
	},
	{
		regime: models.RegimeDowntrend,
		match: func(in Inputs) bool {
			return in.ADX > adxTrending && in.EMASlope < 0 && in.Price < in.EMA200
		},
		confidence: func(in Inputs) float64 { return trendConfidence(in, -1) },
		nearness:   func(in Inputs) float64 { return trendNearness(in, -1) },
	},
	{
		regime: models.RegimeRanging,
		match: func(in Inputs) bool {
			return in.ADX < adxRanging &&
				abs(in.EMASlope) < in.slopeEps() &&
				in.proximityPct() < proximityBand
		},
		confidence: rangingConfidence,
		nearness:   rangingNearness,
	},
}

// Classify derives indicators from a chronological price series and runs the
// rule table. Series shorter than models.MinRegimePoints are rejected before
// any computation.
func Classify(points []models.PricePoint) (models.RegimeResult, error) {
	if len(points) < models.MinRegimePoints {
		return models.RegimeResult{}, fmt.Errorf("%w: got %d points, need %d",
			ErrShortSeries, len(points), models.MinRegimePoints)
	}
	in, err := ComputeInputs(points)
	if err != nil {
		return models.RegimeResult{}, err
	}
	return FromIndicators(in), nil
}

// ComputeInputs derives the indicator values the rule table needs.
func ComputeInputs(points []models.PricePoint) (Inputs, error) {
	closes := make([]float64, len(points))
	closeSum := 0.0
	for i, p := range points {
		closes[i] = p.Close
		closeSum += p.Close
	}

	ema := emaSeries(closes, emaPeriod)
	adx := adxSeries(points, adxPeriod)
	atr := atrSeries(points, atrPeriod)
	if len(ema) < 6 || len(adx) < 6 || len(atr) < atrMeanWindow {
		return Inputs{}, ErrDegenerateSeries
	}

	latestATR := atr[len(atr)-1]
	atrMean := trailingMean(atr, atrMeanWindow)
	atrRatio := 1.0
	if atrMean > 0 {
		atrRatio = latestATR / atrMean
	}

	in := Inputs{
		Price:     closes[len(closes)-1],
		EMA200:    ema[len(ema)-1],
		EMASlope:  ema[len(ema)-1] - ema[len(ema)-3],
		PrevSlope: ema[len(ema)-4] - ema[len(ema)-6],
		ADX:       adx[len(adx)-1],
		PrevADX:   adx[len(adx)-6],
		ATRRatio:  atrRatio,
		CloseMean: closeSum / float64(len(closes)),
	}
	if in.EMA200 <= 0 || in.CloseMean <= 0 {
		return Inputs{}, ErrDegenerateSeries
	}
	return in, nil
}

// FromIndicators runs the ordered rule table over precomputed inputs.
// When no rule matches cleanly, the nearest rule by boundary distance wins
// with deliberately low confidence; ties fall back to ranging.
func FromIndicators(in Inputs) models.RegimeResult {
	for _, r := range rules {
		if r.match(in) {
			return models.RegimeResult{
				Regime:     r.regime,
				Confidence: clamp01(r.confidence(in)),
				Explanation: fmt.Sprintf(
					"rule %q matched: adx=%.1f ema_slope=%.4f price=%.2f ema200=%.2f atr_ratio=%.2f",
					r.regime, in.ADX, in.EMASlope, in.Price, in.EMA200, in.ATRRatio),
			}
		}
	}

	// Ambiguous region: no rule matched. Pick the nearest boundary.
	best := rules[len(rules)-1] // ranging default on total degeneracy
	bestNear := -1.0
	for _, r := range rules {
		if n := r.nearness(in); n > bestNear {
			best, bestNear = r, n
		}
	}
	return models.RegimeResult{
		Regime:     best.regime,
		Confidence: clamp01(0.2 * bestNear),
		Explanation: fmt.Sprintf(
			"no rule matched cleanly, nearest is %q (nearness %.2f): adx=%.1f ema_slope=%.4f atr_ratio=%.2f",
			best.regime, bestNear, in.ADX, in.EMASlope, in.ATRRatio),
	}
}

// volatileConfidence grows with the ATR spike beyond the 1.5x threshold and
// gets a small boost when ADX acceleration or an EMA slope flip confirms the
// transition.
func volatileConfidence(in Inputs) float64 {
	c := 0.5 + (in.ATRRatio-atrRatioVolatile)/atrRatioVolatile
	if in.adxAccelerating() || in.slopeFlipped() {
		c += 0.1
	}
	return clamp01(c)
}

// trendConfidence averages how far ADX, the slope and the price sit beyond
// their thresholds. dir is +1 for uptrend, -1 for downtrend.
func trendConfidence(in Inputs, dir float64) float64 {
	adxC := clamp01((in.ADX - adxTrending) / adxTrending)
	slopeC := 0.0
	if eps := in.slopeEps(); eps > 0 {
		slopeC = clamp01(dir * in.EMASlope / (10 * eps))
	}
	priceC := 0.0
	if in.EMA200 > 0 {
		priceC = clamp01(dir * (in.Price - in.EMA200) / (in.EMA200 * 0.05))
	}
	return clamp01(0.25 + 0.75*(adxC+slopeC+priceC)/3)
}

func trendNearness(in Inputs, dir float64) float64 {
	adxC := clamp01(in.ADX / adxTrending)
	slopeC := 0.5
	if eps := in.slopeEps(); eps > 0 {
		slopeC = clamp01(0.5 + dir*in.EMASlope/(2*eps))
	}
	priceC := 0.5
	if in.EMA200 > 0 {
		priceC = clamp01(0.5 + dir*(in.Price-in.EMA200)/(in.EMA200*2*proximityBand))
	}
	return (adxC + slopeC + priceC) / 3
}

// rangingConfidence rewards a weak ADX, a flat slope and price hugging the
// EMA-200.
func rangingConfidence(in Inputs) float64 {
	adxC := clamp01((adxRanging - in.ADX) / adxRanging)
	slopeC := 0.0
	if eps := in.slopeEps(); eps > 0 {
		slopeC = clamp01(1 - abs(in.EMASlope)/eps)
	}
	proxC := clamp01(1 - in.proximityPct()/proximityBand)
	return clamp01(0.25 + 0.75*(adxC+slopeC+proxC)/3)
}

func rangingNearness(in Inputs) float64 {
	adxC := clamp01(1 - (in.ADX-adxRanging)/adxRanging)
	slopeC := 0.5
	if eps := in.slopeEps(); eps > 0 {
		slopeC = clamp01(2 - abs(in.EMASlope)/eps)
	}
	proxC := clamp01(2 - in.proximityPct()/proximityBand)
	return (adxC + slopeC + proxC) / 3
}

func clamp01(v float64) float64 { return models.ClampScore(v) }

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
