package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"MacroLearn/internal/domain/models"
	internalrepo "MacroLearn/internal/repository"
	"MacroLearn/internal/usecase"
	applogger "MacroLearn/pkg/logger"
)

type noTrades struct{}

func (noTrades) Init(ctx context.Context) error                          { return nil }
func (noTrades) Store(ctx context.Context, t *models.Trade) error        { return nil }
func (noTrades) StoreBatch(ctx context.Context, t []*models.Trade) error { return nil }
func (noTrades) FetchHistory(ctx context.Context, assetID string, limit int) ([]models.Trade, error) {
	return nil, nil
}
func (noTrades) Health(ctx context.Context) error { return nil }
func (noTrades) Close() error                     { return nil }

type noMetrics struct{}

func (noMetrics) RecordError(string)            {}
func (noMetrics) RecordLatency(string, float64) {}
func (noMetrics) RecordCycleState(string)       {}
func (noMetrics) RecordRegime(string)           {}
func (noMetrics) RecordTradeIngested(string)    {}

type fixedCandles struct {
	points []models.PricePoint
	err    error
}

func (f fixedCandles) GetLatestNCandles(ctx context.Context, assetID string, n int) ([]models.PricePoint, error) {
	return f.points, f.err
}

func newTestServer(t *testing.T, candles fixedCandles) (*echo.Echo, *LearningEchoHandler) {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	biases := internalrepo.NewMemoryBiasStore()
	cycle := usecase.NewLearningCycle(usecase.DefaultLearningCycleConfig(), noTrades{}, biases, nil, noMetrics{}, nil)
	regimes := usecase.NewRegimeClassifier(candles, noMetrics{})
	updater := usecase.NewBiasUpdater(biases, nil)

	h := NewLearningEchoHandler(l, cycle, regimes, updater)
	e := echo.New()
	h.RegisterRoutes(e)
	return e, h
}

func postJSON(e *echo.Echo, path string, body interface{}) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("transport status = %d, body %s", rec.Code, rec.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func wireTrades(asset string, n int, pnl float64) []models.TradeRecord {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.TradeRecord, n)
	for i := range out {
		out[i] = models.TradeRecord{
			AssetID:         asset,
			Side:            "buy",
			PnlPct:          pnl,
			ExecutedAt:      base.Add(time.Duration(i) * time.Minute),
			Executed:        true,
			ExecutionStatus: "success",
		}
	}
	return out
}

func wireBars(n int, start, step float64) []models.PriceBar {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.PriceBar, n)
	for i := range out {
		c := start + step*float64(i)
		out[i] = models.PriceBar{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open:      c - step/2,
			High:      c + 0.05,
			Low:       c - 0.05,
			Close:     c,
			Volume:    1,
		}
	}
	return out
}

func TestLearnEndpointWarmup(t *testing.T) {
	e, _ := newTestServer(t, fixedCandles{})

	rec := postJSON(e, "/api/learn", map[string]interface{}{
		"trade_history": wireTrades("btc", 5, 0.02),
	})
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusOK {
		t.Fatalf("status = %d, body %s", env.Status, rec.Body.String())
	}
	var res models.LearningResponse
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if res.LearningState != models.LearningWarmup {
		t.Fatalf("learning_state = %s, want warmup", res.LearningState)
	}
}

func TestLearnEndpointCommitsBias(t *testing.T) {
	e, _ := newTestServer(t, fixedCandles{})

	rec := postJSON(e, "/api/learn", map[string]interface{}{
		"trade_history": wireTrades("btc", 12, 0.02),
	})
	env := decodeEnvelope(t, rec)
	var res models.LearningResponse
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if res.LearningState != models.LearningSuccess || !res.Committed {
		t.Fatalf("state=%s committed=%v, want success/committed", res.LearningState, res.Committed)
	}

	// The committed delta must be readable back through the bias endpoint.
	req := httptest.NewRequest(http.MethodGet, "/api/bias/btc", nil)
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	env = decodeEnvelope(t, rr)
	var bias models.BiasUpdateResponse
	if err := json.Unmarshal(env.Data, &bias); err != nil {
		t.Fatalf("decode bias: %v", err)
	}
	if bias.CurrentBias.BullBias != 0.05 {
		t.Fatalf("bull_bias = %f, want 0.05", bias.CurrentBias.BullBias)
	}
}

func TestLearnEndpointRejectsBadTrade(t *testing.T) {
	e, _ := newTestServer(t, fixedCandles{})

	rec := postJSON(e, "/api/learn", map[string]interface{}{
		"trade_history": []map[string]interface{}{{"side": "buy", "pnl_pct": 0.01}},
	})
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing asset_id", env.Status)
	}
}

func TestMarketRegimeEndpoint(t *testing.T) {
	e, _ := newTestServer(t, fixedCandles{})

	rec := postJSON(e, "/api/market-regime", models.MarketRegimeRequest{
		PriceHistory: wireBars(260, 100, 0.1),
	})
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusOK {
		t.Fatalf("status = %d, body %s", env.Status, rec.Body.String())
	}
	var res models.MarketRegimeResponse
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if res.Regime != string(models.RegimeUptrend) {
		t.Fatalf("regime = %s, want uptrend (%s)", res.Regime, res.Explanation)
	}
	if res.Confidence <= 0 || res.Confidence > 1 {
		t.Fatalf("confidence_score %f out of (0,1]", res.Confidence)
	}
}

func TestMarketRegimeEndpointShortSeries(t *testing.T) {
	e, _ := newTestServer(t, fixedCandles{})

	rec := postJSON(e, "/api/market-regime", models.MarketRegimeRequest{
		PriceHistory: wireBars(50, 100, 0.1),
	})
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for short series", env.Status)
	}
}

func TestStoredRegimeEndpointNotEnoughCandles(t *testing.T) {
	e, _ := newTestServer(t, fixedCandles{points: nil})

	req := httptest.NewRequest(http.MethodGet, "/api/regime?asset_id=btc&n=300", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 when store has too few candles", env.Status)
	}
}

func TestUpdateBiasesSingleAndBatch(t *testing.T) {
	e, _ := newTestServer(t, fixedCandles{})

	rec := postJSON(e, "/api/learning/update-biases", models.BiasUpdateRequest{
		AssetID:   "btc",
		BiasDelta: models.BiasDeltaBody{BullBias: 0.1},
	})
	env := decodeEnvelope(t, rec)
	var one models.BiasUpdateResponse
	if err := json.Unmarshal(env.Data, &one); err != nil {
		t.Fatalf("decode single: %v", err)
	}
	if !one.Updated || one.CurrentBias.BullBias != 0.1 {
		t.Fatalf("single update = %+v", one)
	}

	rec = postJSON(e, "/api/learning/update-biases", []models.BiasUpdateRequest{
		{AssetID: "btc", BiasDelta: models.BiasDeltaBody{BullBias: 0.1}},
		{AssetID: "eth", BiasDelta: models.BiasDeltaBody{VolBias: -0.05}},
	})
	env = decodeEnvelope(t, rec)
	var many []models.BiasUpdateResponse
	if err := json.Unmarshal(env.Data, &many); err != nil {
		t.Fatalf("decode batch: %v", err)
	}
	if len(many) != 2 {
		t.Fatalf("batch = %d responses, want 2", len(many))
	}
	if many[0].CurrentBias.BullBias != 0.2 {
		t.Fatalf("btc bull_bias = %f, want cumulative 0.2", many[0].CurrentBias.BullBias)
	}
}

func TestReadyReportsFailedProbe(t *testing.T) {
	e, h := newTestServer(t, fixedCandles{})
	h.AddReadinessProbe("clickhouse", func(ctx context.Context) error { return nil })
	h.AddReadinessProbe("redis", func(ctx context.Context) error { return errors.New("connection refused") })

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 with a failing probe", rec.Code)
	}
	var status map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status["clickhouse"] != "ok" || status["redis"] == "ok" {
		t.Fatalf("probe status = %v", status)
	}
}
