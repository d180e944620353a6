package history

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"MacroLearn/internal/domain/models"
	"MacroLearn/internal/domain/repository"
	pkghttp "MacroLearn/pkg/http"
)

// Config holds the remote history agent settings.
type Config struct {
	BaseURL string        `yaml:"agent_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// HTTPStore is a TradeStore backed by a remote history agent. Used in
// deployments where trade history lives behind a service boundary instead
// of a local warehouse.
type HTTPStore struct {
	cfg    Config
	client *pkghttp.Client
}

var _ repository.TradeStore = (*HTTPStore)(nil)

// NewHTTPStore creates a store talking to the agent at cfg.BaseURL.
func NewHTTPStore(cfg Config) *HTTPStore {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPStore{
		cfg:    cfg,
		client: pkghttp.NewClient(pkghttp.WithTimeout(timeout)),
	}
}

// Init is a no-op: schema ownership stays with the remote agent.
func (s *HTTPStore) Init(ctx context.Context) error { return nil }

// Store appends one trade through the agent's ingest endpoint.
func (s *HTTPStore) Store(ctx context.Context, t *models.Trade) error {
	return s.StoreBatch(ctx, []*models.Trade{t})
}

// StoreBatch appends trades through the agent's ingest endpoint.
func (s *HTTPStore) StoreBatch(ctx context.Context, trades []*models.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	records := make([]models.TradeRecord, 0, len(trades))
	for _, t := range trades {
		records = append(records, models.TradeRecord{
			AssetID:         t.AssetID,
			Symbol:          t.Symbol,
			Side:            string(t.Side),
			PnlPct:          t.PnlPct,
			ExecutedAt:      t.Timestamp,
			Executed:        true,
			ExecutionStatus: "success",
		})
	}

	err := s.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodPost,
		URL:    s.cfg.BaseURL + "/trades",
		Body:   records,
	}, nil)
	if err != nil {
		return fmt.Errorf("history agent store: %w", err)
	}
	return nil
}

// FetchHistory returns up to limit recent trades for the asset in
// chronological order.
func (s *HTTPStore) FetchHistory(ctx context.Context, assetID string, limit int) ([]models.Trade, error) {
	var records []models.TradeRecord
	err := s.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    s.cfg.BaseURL + "/trades",
		QueryParams: map[string][]string{
			"asset_id": {assetID},
			"limit":    {strconv.Itoa(limit)},
		},
	}, &records)
	if err != nil {
		return nil, fmt.Errorf("history agent fetch: %w", err)
	}

	trades := make([]models.Trade, 0, len(records))
	for _, r := range records {
		trades = append(trades, r.ToTrade("store"))
	}
	return trades, nil
}

// Health probes the agent's health endpoint.
func (s *HTTPStore) Health(ctx context.Context) error {
	err := s.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    s.cfg.BaseURL + "/health",
	}, nil)
	if err != nil {
		return fmt.Errorf("history agent health: %w", err)
	}
	return nil
}

// Close releases nothing; the underlying client has no persistent state.
func (s *HTTPStore) Close() error { return nil }
