package regime

import (
	"errors"
	"strings"
	"testing"

	"MacroLearn/internal/domain/models"
)

func TestClassifyRejectsShortSeries(t *testing.T) {
	_, err := Classify(flatSeries(199, 50, 0.5))
	if !errors.Is(err, ErrShortSeries) {
		t.Fatalf("expected ErrShortSeries, got %v", err)
	}
}

func TestClassifyUptrend(t *testing.T) {
	res, err := Classify(trendSeries(260, 100, 0.1, 0.05))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Regime != models.RegimeUptrend {
		t.Fatalf("regime = %s, want uptrend (%s)", res.Regime, res.Explanation)
	}
	if res.Confidence <= 0 || res.Confidence > 1 {
		t.Fatalf("confidence %f out of (0,1]", res.Confidence)
	}
}

func TestClassifyDowntrend(t *testing.T) {
	res, err := Classify(trendSeries(260, 200, -0.1, 0.05))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Regime != models.RegimeDowntrend {
		t.Fatalf("regime = %s, want downtrend (%s)", res.Regime, res.Explanation)
	}
}

func TestClassifyRanging(t *testing.T) {
	res, err := Classify(flatSeries(260, 50, 0.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Regime != models.RegimeRanging {
		t.Fatalf("regime = %s, want ranging (%s)", res.Regime, res.Explanation)
	}
}

func TestClassifyVolatileSpike(t *testing.T) {
	// Quiet series with a true-range spike over the last bars.
	pts := flatSeries(260, 50, 0.5)
	for i := 255; i < 260; i++ {
		pts[i].High = pts[i].Close + 5
		pts[i].Low = pts[i].Close - 5
	}
	res, err := Classify(pts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Regime != models.RegimeVolatile {
		t.Fatalf("regime = %s, want volatile (%s)", res.Regime, res.Explanation)
	}
}

func TestFromIndicatorsVolatileOverridesTrend(t *testing.T) {
	in := Inputs{
		Price: 110, EMA200: 100, EMASlope: 1, PrevSlope: 1,
		ADX: 30, PrevADX: 28, ATRRatio: 1.6, CloseMean: 100,
	}
	res := FromIndicators(in)
	if res.Regime != models.RegimeVolatile {
		t.Fatalf("regime = %s, want volatile over uptrend", res.Regime)
	}
}

func TestFromIndicatorsVolatileConfidenceBoost(t *testing.T) {
	base := Inputs{
		Price: 100, EMA200: 100, EMASlope: 1, PrevSlope: 1,
		ADX: 20, PrevADX: 20, ATRRatio: 1.6, CloseMean: 100,
	}
	plain := FromIndicators(base)

	accel := base
	accel.PrevADX = 10 // ADX jumped more than 5 in 5 periods
	boosted := FromIndicators(accel)
	if boosted.Confidence <= plain.Confidence {
		t.Fatalf("adx acceleration should raise confidence: %f vs %f",
			boosted.Confidence, plain.Confidence)
	}

	flip := base
	flip.PrevSlope = -1
	flipped := FromIndicators(flip)
	if flipped.Confidence <= plain.Confidence {
		t.Fatalf("slope flip should raise confidence: %f vs %f",
			flipped.Confidence, plain.Confidence)
	}
}

func TestFromIndicatorsUptrend(t *testing.T) {
	in := Inputs{
		Price: 110, EMA200: 100, EMASlope: 1, PrevSlope: 1,
		ADX: 30, PrevADX: 28, ATRRatio: 0.9, CloseMean: 100,
	}
	res := FromIndicators(in)
	if res.Regime != models.RegimeUptrend {
		t.Fatalf("regime = %s, want uptrend", res.Regime)
	}
}

func TestFromIndicatorsRanging(t *testing.T) {
	in := Inputs{
		Price: 100.1, EMA200: 100, EMASlope: 0.001, PrevSlope: 0.001,
		ADX: 10, PrevADX: 10, ATRRatio: 1.0, CloseMean: 100,
	}
	res := FromIndicators(in)
	if res.Regime != models.RegimeRanging {
		t.Fatalf("regime = %s, want ranging", res.Regime)
	}
}

func TestFromIndicatorsFallbackLowConfidence(t *testing.T) {
	// ADX in the dead zone between ranging and trending: no rule matches.
	in := Inputs{
		Price: 101, EMA200: 100, EMASlope: 0.2, PrevSlope: 0.2,
		ADX: 22, PrevADX: 22, ATRRatio: 1.0, CloseMean: 100,
	}
	res := FromIndicators(in)
	if res.Confidence > 0.2 {
		t.Fatalf("fallback confidence = %f, want <= 0.2", res.Confidence)
	}
	if !strings.Contains(res.Explanation, "no rule matched") {
		t.Fatalf("fallback explanation missing marker: %q", res.Explanation)
	}
}

func TestComputeInputsDegenerate(t *testing.T) {
	pts := flatSeries(200, 0, 0) // all-zero prices
	_, err := ComputeInputs(pts)
	if !errors.Is(err, ErrDegenerateSeries) {
		t.Fatalf("expected ErrDegenerateSeries, got %v", err)
	}
}
