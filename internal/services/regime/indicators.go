package regime

import (
	"math"

	"MacroLearn/internal/domain/models"
)

// Indicator periods. These match the conventional settings the downstream
// thresholds were tuned against; changing them invalidates the rule table.
const (
	emaPeriod     = 200
	adxPeriod     = 14
	atrPeriod     = 14
	atrMeanWindow = 20
)

// emaSeries computes an exponential moving average seeded with the SMA of the
// first period values. The returned series is aligned to the tail of the
// input: out[i] corresponds to values[period-1+i].
func emaSeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	out := make([]float64, 0, len(values)-period+1)
	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	ema := seed / float64(period)
	out = append(out, ema)

	alpha := 2.0 / (float64(period) + 1)
	for _, v := range values[period:] {
		ema = (v-ema)*alpha + ema
		out = append(out, ema)
	}
	return out
}

func trueRange(high, low, prevClose float64) float64 {
	tr := high - low
	if d := math.Abs(high - prevClose); d > tr {
		tr = d
	}
	if d := math.Abs(low - prevClose); d > tr {
		tr = d
	}
	return tr
}

// atrSeries computes the Average True Range with Wilder smoothing. The first
// value is the SMA of the first period true ranges.
func atrSeries(points []models.PricePoint, period int) []float64 {
	if period <= 0 || len(points) < period+1 {
		return nil
	}
	trs := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		trs = append(trs, trueRange(points[i].High, points[i].Low, points[i-1].Close))
	}

	out := make([]float64, 0, len(trs)-period+1)
	seed := 0.0
	for _, tr := range trs[:period] {
		seed += tr
	}
	atr := seed / float64(period)
	out = append(out, atr)

	for _, tr := range trs[period:] {
		atr = (atr*float64(period-1) + tr) / float64(period)
		out = append(out, atr)
	}
	return out
}

// adxSeries computes the Average Directional Index with Wilder smoothing of
// the directional movement and true range sums.
func adxSeries(points []models.PricePoint, period int) []float64 {
	if period <= 0 || len(points) < 2*period+1 {
		return nil
	}

	n := len(points) - 1
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	trs := make([]float64, n)
	for i := 1; i < len(points); i++ {
		up := points[i].High - points[i-1].High
		down := points[i-1].Low - points[i].Low
		if up > down && up > 0 {
			plusDM[i-1] = up
		}
		if down > up && down > 0 {
			minusDM[i-1] = down
		}
		trs[i-1] = trueRange(points[i].High, points[i].Low, points[i-1].Close)
	}

	// Wilder-smoothed running sums.
	var smTR, smPlus, smMinus float64
	for i := 0; i < period; i++ {
		smTR += trs[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}

	dxs := make([]float64, 0, n-period+1)
	dx := func() float64 {
		if smTR <= 0 {
			return 0
		}
		diPlus := 100 * smPlus / smTR
		diMinus := 100 * smMinus / smTR
		if diPlus+diMinus == 0 {
			return 0
		}
		return 100 * math.Abs(diPlus-diMinus) / (diPlus + diMinus)
	}
	dxs = append(dxs, dx())
	for i := period; i < n; i++ {
		smTR = smTR - smTR/float64(period) + trs[i]
		smPlus = smPlus - smPlus/float64(period) + plusDM[i]
		smMinus = smMinus - smMinus/float64(period) + minusDM[i]
		dxs = append(dxs, dx())
	}
	if len(dxs) < period {
		return nil
	}

	out := make([]float64, 0, len(dxs)-period+1)
	seed := 0.0
	for _, v := range dxs[:period] {
		seed += v
	}
	adx := seed / float64(period)
	out = append(out, adx)
	for _, v := range dxs[period:] {
		adx = (adx*float64(period-1) + v) / float64(period)
		out = append(out, adx)
	}
	return out
}

// trailingMean averages the last window values of the series.
func trailingMean(series []float64, window int) float64 {
	if window <= 0 || len(series) < window {
		return 0
	}
	sum := 0.0
	for _, v := range series[len(series)-window:] {
		sum += v
	}
	return sum / float64(window)
}
