package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"MacroLearn/internal/domain/models"
	domrepo "MacroLearn/internal/domain/repository"
	pkgkafka "MacroLearn/pkg/kafka"
	"MacroLearn/pkg/util"
)

// KafkaTradesHandler consumes closed-trade events and appends them to the
// trade store, feeding the extended-history table.
type KafkaTradesHandler struct {
	topic   string
	store   domrepo.TradeStore
	metrics domrepo.Metrics
}

func NewKafkaTradesHandler(topic string, store domrepo.TradeStore, metrics domrepo.Metrics) *KafkaTradesHandler {
	return &KafkaTradesHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaTradesHandler) Topic() string { return h.topic }

// incoming message schema: {asset_id, symbol, ts, pnl_pct, side}
// ts is RFC3339 or unix seconds/milliseconds.
func (h *KafkaTradesHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		AssetID string          `json:"asset_id"`
		Symbol  string          `json:"symbol"`
		Ts      json.RawMessage `json:"ts"`
		PnlPct  float64         `json:"pnl_pct"`
		Side    string          `json:"side"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	ts, ok := parseEventTime(m.Ts)
	if m.AssetID == "" || !ok {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("trade event missing asset_id or ts")
	}
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(ts).Seconds())

	side := models.SideBuy
	if m.Side == string(models.SideSell) {
		side = models.SideSell
	}

	start := time.Now()
	err := h.store.Store(ctx, &models.Trade{
		AssetID:   m.AssetID,
		Symbol:    m.Symbol,
		Side:      side,
		PnlPct:    m.PnlPct,
		Timestamp: ts.UTC(),
		Source:    "stream",
	})
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordTradeIngested(m.AssetID)
	return nil
}

func parseEventTime(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 {
		return time.Time{}, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return util.ParseTime(s)
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil || n <= 0 {
		return time.Time{}, false
	}
	if n > 1e11 { // ms
		n /= 1000
	}
	return time.Unix(n, 0), true
}

var _ pkgkafka.MessageHandler = (*KafkaTradesHandler)(nil)
