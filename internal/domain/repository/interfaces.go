package repository

import (
	"context"

	"MacroLearn/internal/domain/models"
)

// TradeStore is the append-only extended trade history. The learning cycle
// reads it to enrich caller-supplied history; the Kafka ingestion path
// writes to it.
type TradeStore interface {
	Init(ctx context.Context) error // ensure tables exist
	Store(ctx context.Context, t *models.Trade) error
	StoreBatch(ctx context.Context, trades []*models.Trade) error
	FetchHistory(ctx context.Context, assetID string, limit int) ([]models.Trade, error)
	Health(ctx context.Context) error
	Close() error
}

// CandleStore provides read-only access to stored OHLCV series for the
// stored-regime endpoint.
type CandleStore interface {
	GetLatestNCandles(ctx context.Context, assetID string, n int) ([]models.PricePoint, error)
}

// BiasStore owns the persisted per-asset bias rows. ApplyDeltas must be
// atomic per cycle: either every asset's delta commits or none does, and
// concurrent cycles for the same asset must not lose updates.
type BiasStore interface {
	Read(ctx context.Context, assetID string) (models.BiasState, error)
	ApplyDeltas(ctx context.Context, deltas map[string]models.BiasDelta) ([]models.BiasState, error)
	Health(ctx context.Context) error
}

// PolicyPublisher pushes committed policy deltas to downstream consumers.
type PolicyPublisher interface {
	PublishDeltas(ctx context.Context, state models.LearningState, deltas models.PolicyDeltas) error
	Close() error
}

// Metrics records domain-level counters and latencies.
type Metrics interface {
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordCycleState(state string)
	RecordRegime(regime string)
	RecordTradeIngested(assetID string)
}
