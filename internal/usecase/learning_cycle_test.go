package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"MacroLearn/internal/domain/models"
	internalrepo "MacroLearn/internal/repository"
)

type stubTradeStore struct {
	history  map[string][]models.Trade
	fetchErr error
	stored   []*models.Trade
}

func (s *stubTradeStore) Init(ctx context.Context) error { return nil }
func (s *stubTradeStore) Store(ctx context.Context, t *models.Trade) error {
	s.stored = append(s.stored, t)
	return nil
}
func (s *stubTradeStore) StoreBatch(ctx context.Context, trades []*models.Trade) error {
	s.stored = append(s.stored, trades...)
	return nil
}
func (s *stubTradeStore) FetchHistory(ctx context.Context, assetID string, limit int) ([]models.Trade, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.history[assetID], nil
}
func (s *stubTradeStore) Health(ctx context.Context) error { return nil }
func (s *stubTradeStore) Close() error                     { return nil }

type stubMetrics struct {
	errors []string
	states []string
}

func (m *stubMetrics) RecordError(kind string)                 { m.errors = append(m.errors, kind) }
func (m *stubMetrics) RecordLatency(op string, seconds float64) {}
func (m *stubMetrics) RecordCycleState(state string)           { m.states = append(m.states, state) }
func (m *stubMetrics) RecordRegime(regime string)              {}
func (m *stubMetrics) RecordTradeIngested(assetID string)      {}

type failingBiasStore struct{}

func (failingBiasStore) Read(ctx context.Context, assetID string) (models.BiasState, error) {
	return models.NeutralBias(assetID), nil
}
func (failingBiasStore) ApplyDeltas(ctx context.Context, deltas map[string]models.BiasDelta) ([]models.BiasState, error) {
	return nil, errors.New("store down")
}
func (failingBiasStore) Health(ctx context.Context) error { return nil }

func records(asset string, n int, pnl float64, side string) []models.TradeRecord {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.TradeRecord, n)
	for i := range out {
		out[i] = models.TradeRecord{
			AssetID:         asset,
			Side:            side,
			PnlPct:          pnl,
			ExecutedAt:      base.Add(time.Duration(i) * time.Minute),
			Executed:        true,
			ExecutionStatus: "success",
		}
	}
	return out
}

func newCycle(trades *stubTradeStore, biases *internalrepo.MemoryBiasStore, m *stubMetrics) *LearningCycle {
	return NewLearningCycle(DefaultLearningCycleConfig(), trades, biases, nil, m, nil)
}

func TestRunInsufficientData(t *testing.T) {
	cycle := newCycle(&stubTradeStore{}, internalrepo.NewMemoryBiasStore(), &stubMetrics{})
	resp, err := cycle.Run(context.Background(), models.LearningRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.LearningState != models.LearningInsufficientData {
		t.Fatalf("state = %s, want insufficient_data", resp.LearningState)
	}
	if !resp.Committed {
		t.Fatalf("empty cycle should still report committed")
	}
	if len(resp.Reasoning) == 0 {
		t.Fatalf("expected reasoning")
	}
}

func TestRunWarmup(t *testing.T) {
	cycle := newCycle(&stubTradeStore{}, internalrepo.NewMemoryBiasStore(), &stubMetrics{})
	req := models.LearningRequest{TradeHistory: records("btc", 5, 0.02, "buy")}

	resp, err := cycle.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.LearningState != models.LearningWarmup {
		t.Fatalf("state = %s, want warmup", resp.LearningState)
	}
	if len(resp.PolicyDeltas.AssetBiases) != 0 {
		t.Fatalf("warmup produced bias deltas: %v", resp.PolicyDeltas.AssetBiases)
	}
}

func TestRunPositiveAdjustmentCommits(t *testing.T) {
	biases := internalrepo.NewMemoryBiasStore()
	cycle := newCycle(&stubTradeStore{}, biases, &stubMetrics{})
	req := models.LearningRequest{TradeHistory: records("btc", 12, 0.02, "buy")}

	resp, err := cycle.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.LearningState != models.LearningSuccess {
		t.Fatalf("state = %s, want success", resp.LearningState)
	}
	if !resp.Committed {
		t.Fatalf("expected committed")
	}
	d, ok := resp.PolicyDeltas.AssetBiases["btc"]
	if !ok || d.BullBias != 0.05 {
		t.Fatalf("bull delta = %+v, want +0.05", d)
	}

	st, err := biases.Read(context.Background(), "btc")
	if err != nil {
		t.Fatalf("read bias: %v", err)
	}
	if st.BullBias != 0.05 {
		t.Fatalf("persisted bull bias = %f, want 0.05", st.BullBias)
	}
}

func TestRunMergesStoreHistory(t *testing.T) {
	// Only 5 trades in the request, 7 more in the store: together the
	// asset clears warmup.
	store := &stubTradeStore{history: map[string][]models.Trade{}}
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		store.history["btc"] = append(store.history["btc"], models.Trade{
			AssetID:   "btc",
			Side:      models.SideBuy,
			PnlPct:    0.02,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Source:    "store",
		})
	}
	cycle := newCycle(store, internalrepo.NewMemoryBiasStore(), &stubMetrics{})
	req := models.LearningRequest{TradeHistory: records("btc", 5, 0.02, "buy")}

	resp, err := cycle.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.LearningState != models.LearningSuccess {
		t.Fatalf("state = %s, want success with merged history", resp.LearningState)
	}
}

func TestRunHistoryFetchFailureDegrades(t *testing.T) {
	store := &stubTradeStore{fetchErr: errors.New("clickhouse down")}
	m := &stubMetrics{}
	cycle := newCycle(store, internalrepo.NewMemoryBiasStore(), m)
	req := models.LearningRequest{TradeHistory: records("btc", 12, 0.02, "buy")}

	resp, err := cycle.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("cycle should degrade, not fail: %v", err)
	}
	if resp.LearningState != models.LearningSuccess {
		t.Fatalf("state = %s, want success on request trades alone", resp.LearningState)
	}
	if len(m.errors) == 0 {
		t.Fatalf("expected history_fetch error to be recorded")
	}
}

func TestRunRiskGuardFiresDuringWarmup(t *testing.T) {
	cycle := newCycle(&stubTradeStore{}, internalrepo.NewMemoryBiasStore(), &stubMetrics{})
	req := models.LearningRequest{TradeHistory: records("btc", 4, -0.03, "buy")}

	resp, err := cycle.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.LearningState != models.LearningWarmup {
		t.Fatalf("state = %s, want warmup", resp.LearningState)
	}
	step, ok := resp.PolicyDeltas.Risk["risk_per_trade"]
	if !ok || step != -0.005 {
		t.Fatalf("risk delta = %v, want -0.005 even during warmup", resp.PolicyDeltas.Risk)
	}
}

func TestRunSkipsNonExecutableTrades(t *testing.T) {
	recs := records("btc", 12, 0.02, "buy")
	for i := range recs {
		recs[i].ExecutionStatus = "rejected"
	}
	cycle := newCycle(&stubTradeStore{}, internalrepo.NewMemoryBiasStore(), &stubMetrics{})

	resp, err := cycle.Run(context.Background(), models.LearningRequest{TradeHistory: recs})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.LearningState != models.LearningInsufficientData {
		t.Fatalf("state = %s, want insufficient_data for rejected trades", resp.LearningState)
	}
}

func TestRunCommitFailure(t *testing.T) {
	cycle := NewLearningCycle(DefaultLearningCycleConfig(), &stubTradeStore{}, failingBiasStore{}, nil, &stubMetrics{}, nil)
	req := models.LearningRequest{TradeHistory: records("btc", 12, 0.02, "buy")}

	resp, err := cycle.Run(context.Background(), req)
	if err == nil {
		t.Fatalf("expected commit error")
	}
	if resp.Committed {
		t.Fatalf("commit failure must not report committed")
	}
}
