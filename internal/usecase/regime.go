package usecase

import (
	"context"
	"fmt"
	"time"

	"MacroLearn/internal/domain/models"
	domrepo "MacroLearn/internal/domain/repository"
	"MacroLearn/internal/services/regime"
)

// RegimeClassifier exposes regime classification over posted series and
// over stored candles.
type RegimeClassifier struct {
	candles domrepo.CandleStore
	metrics domrepo.Metrics
}

func NewRegimeClassifier(candles domrepo.CandleStore, metrics domrepo.Metrics) *RegimeClassifier {
	return &RegimeClassifier{candles: candles, metrics: metrics}
}

// Classify labels a caller-supplied chronological series.
func (r *RegimeClassifier) Classify(bars []models.PriceBar) (models.RegimeResult, error) {
	start := time.Now()
	points := make([]models.PricePoint, 0, len(bars))
	for _, b := range bars {
		points = append(points, b.ToPricePoint())
	}
	result, err := regime.Classify(points)
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordError("regime_classify")
		}
		return models.RegimeResult{}, err
	}
	if r.metrics != nil {
		r.metrics.RecordRegime(string(result.Regime))
		r.metrics.RecordLatency("regime_classify_seconds", time.Since(start).Seconds())
	}
	return result, nil
}

// ClassifyStored labels the latest n stored candles for the asset.
func (r *RegimeClassifier) ClassifyStored(ctx context.Context, assetID string, n int) (models.RegimeResult, error) {
	points, err := r.candles.GetLatestNCandles(ctx, assetID, n)
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordError("candle_fetch")
		}
		return models.RegimeResult{}, fmt.Errorf("fetch candles for %q: %w", assetID, err)
	}
	if len(points) < models.MinRegimePoints {
		return models.RegimeResult{}, fmt.Errorf("%w: asset %q has %d stored candles, need %d",
			regime.ErrShortSeries, assetID, len(points), models.MinRegimePoints)
	}
	result, err := regime.Classify(points)
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordError("regime_classify")
		}
		return models.RegimeResult{}, err
	}
	if r.metrics != nil {
		r.metrics.RecordRegime(string(result.Regime))
	}
	return result, nil
}
