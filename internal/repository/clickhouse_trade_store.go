package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"MacroLearn/internal/domain/models"
	domrepo "MacroLearn/internal/domain/repository"
	pkgch "MacroLearn/pkg/clickhouse"
	applogger "MacroLearn/pkg/logger"
)

// tradeSchema is idempotent; ReplacingMergeTree folds duplicate rows from
// retried ingestion on (asset_id, ts, pnl_pct).
var tradeSchema = []string{
	`CREATE DATABASE IF NOT EXISTS macrolearn`,
	`CREATE TABLE IF NOT EXISTS macrolearn.trades (
        ts        DateTime64(9) CODEC(Delta, ZSTD),
        asset_id  LowCardinality(String),
        symbol    LowCardinality(String),
        side      LowCardinality(String),
        pnl_pct   Float64,
        source    LowCardinality(String)
    ) ENGINE = ReplacingMergeTree
    PARTITION BY toYYYYMM(ts)
    ORDER BY (asset_id, ts, pnl_pct)`,
}

// CHTradeStore implements TradeStore backed by ClickHouse.
type CHTradeStore struct {
	db    *sql.DB
	ch    *pkgch.Client
	table string
	l     *applogger.Logger
}

var _ domrepo.TradeStore = (*CHTradeStore)(nil)

func NewCHTradeStore(ch *pkgch.Client) *CHTradeStore {
	return &CHTradeStore{db: ch.DB(), ch: ch, table: "macrolearn.trades"}
}

// SetLogger injects a structured logger.
func (s *CHTradeStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHTradeStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, tradeSchema)
}

func (s *CHTradeStore) Store(ctx context.Context, t *models.Trade) error {
	return s.StoreBatch(ctx, []*models.Trade{t})
}

func (s *CHTradeStore) StoreBatch(ctx context.Context, trades []*models.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	// Multi-row VALUES inserts, chunked to bound statement size.
	const chunkSize = 2000
	for start := 0; start < len(trades); start += chunkSize {
		end := start + chunkSize
		if end > len(trades) {
			end = len(trades)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*6)
		for _, t := range trades[start:end] {
			if t == nil || t.AssetID == "" || t.Timestamp.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?)")
			args = append(args, t.Timestamp, t.AssetID, t.Symbol, string(t.Side), t.PnlPct, t.Source)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, asset_id, symbol, side, pnl_pct, source) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse store_trades insert error",
					applogger.Int("rows", len(values)),
					applogger.Error(err),
				)
			}
			return fmt.Errorf("store trades: %w", err)
		}
	}
	return nil
}

// FetchHistory returns up to limit most recent trades for the asset in
// chronological order.
func (s *CHTradeStore) FetchHistory(ctx context.Context, assetID string, limit int) ([]models.Trade, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT ts, asset_id, symbol, side, pnl_pct, source
        FROM %s FINAL
        WHERE asset_id = ?
        ORDER BY ts DESC
        LIMIT ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, assetID, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse fetch_history query error",
				applogger.String("asset_id", assetID),
				applogger.Int("limit", limit),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.Trade, 0, limit)
	for rows.Next() {
		var t models.Trade
		var side string
		if err := rows.Scan(&t.Timestamp, &t.AssetID, &t.Symbol, &side, &t.PnlPct, &t.Source); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.Side = models.Side(side)
		tmp = append(tmp, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	if s.l != nil {
		s.l.Debug("clickhouse fetch_history ok",
			applogger.String("asset_id", assetID),
			applogger.Int("rows", len(tmp)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return tmp, nil
}

func (s *CHTradeStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHTradeStore) Close() error {
	return nil // pool owned by pkg client
}
