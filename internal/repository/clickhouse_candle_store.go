package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"MacroLearn/internal/domain/models"
	domrepo "MacroLearn/internal/domain/repository"
	pkgch "MacroLearn/pkg/clickhouse"
	applogger "MacroLearn/pkg/logger"
)

var candleSchema = []string{
	`CREATE DATABASE IF NOT EXISTS macrolearn`,
	`CREATE TABLE IF NOT EXISTS macrolearn.candles_1m (
        bucket    DateTime CODEC(Delta, ZSTD),
        asset_id  LowCardinality(String),
        open      Float64,
        high      Float64,
        low       Float64,
        close     Float64,
        vol       Float64
    ) ENGINE = ReplacingMergeTree
    PARTITION BY toYYYYMM(bucket)
    ORDER BY (asset_id, bucket)`,
}

// CHCandleStore implements CandleStore backed by ClickHouse.
type CHCandleStore struct {
	db    *sql.DB
	ch    *pkgch.Client
	table string
	l     *applogger.Logger
}

var _ domrepo.CandleStore = (*CHCandleStore)(nil)

func NewCHCandleStore(ch *pkgch.Client) *CHCandleStore {
	return &CHCandleStore{db: ch.DB(), ch: ch, table: "macrolearn.candles_1m"}
}

// SetLogger injects a structured logger.
func (s *CHCandleStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHCandleStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, candleSchema)
}

// GetLatestNCandles returns the newest n bars for the asset in ascending
// bucket order.
func (s *CHCandleStore) GetLatestNCandles(ctx context.Context, assetID string, n int) ([]models.PricePoint, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT bucket, open, high, low, close, vol
        FROM %s FINAL
        WHERE asset_id = ?
        ORDER BY bucket DESC
        LIMIT ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, assetID, n)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse latest_candles query error",
				applogger.String("asset_id", assetID),
				applogger.Int("limit", n),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.PricePoint, 0, n)
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Timestamp, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		tmp = append(tmp, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	if s.l != nil {
		s.l.Debug("clickhouse latest_candles ok",
			applogger.String("asset_id", assetID),
			applogger.Int("limit", n),
			applogger.Int("rows", len(tmp)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return tmp, nil
}
