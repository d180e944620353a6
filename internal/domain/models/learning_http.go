package models

import "time"

// Request/response schemas for the learning API. Defined in domain for
// consistency and reuse, following the same convention as the regime models.

// TradeRecord is the wire form of a historical trade.
type TradeRecord struct {
	AssetID         string    `json:"asset_id" validate:"required"`
	Symbol          string    `json:"symbol"`
	Side            string    `json:"side" default:"buy" validate:"oneof=buy sell"`
	PnlPct          float64   `json:"pnl_pct"`
	ExecutedAt      time.Time `json:"executed_at" validate:"required"`
	Executed        bool      `json:"executed"`
	ExecutionStatus string    `json:"execution_status" default:"success"`
}

// Executable reports whether the record represents a successfully filled
// trade. Only executable trades feed the learning cycle.
func (t TradeRecord) Executable() bool {
	return t.Executed && t.ExecutionStatus == "success"
}

// ToTrade converts the wire record to the domain trade.
func (t TradeRecord) ToTrade(source string) Trade {
	return Trade{
		AssetID:   t.AssetID,
		Symbol:    t.Symbol,
		Side:      Side(t.Side),
		PnlPct:    t.PnlPct,
		Timestamp: t.ExecutedAt,
		Source:    source,
	}
}

// PriceBar is the wire form of one OHLCV bar.
type PriceBar struct {
	Timestamp time.Time `json:"timestamp" validate:"required"`
	Open      float64   `json:"open" validate:"gt=0"`
	High      float64   `json:"high" validate:"gt=0"`
	Low       float64   `json:"low" validate:"gt=0"`
	Close     float64   `json:"close" validate:"gt=0"`
	Volume    float64   `json:"volume" validate:"gte=0"`
}

// ToPricePoint converts the wire bar to the domain point.
func (p PriceBar) ToPricePoint() PricePoint {
	return PricePoint{
		Timestamp: p.Timestamp,
		Open:      p.Open,
		High:      p.High,
		Low:       p.Low,
		Close:     p.Close,
		Volume:    p.Volume,
	}
}

// PolicyRisk is the caller's current risk policy, echoed back as context.
type PolicyRisk struct {
	RiskPerTrade   float64 `json:"risk_per_trade" validate:"gte=0,lte=1"`
	MaxPositionPct float64 `json:"max_position_pct" validate:"gte=0,lte=1"`
	StopLossPct    float64 `json:"stop_loss_pct" validate:"gte=0,lte=1"`
}

// CurrentPolicy is the policy snapshot supplied with a learning request.
type CurrentPolicy struct {
	AgentWeights map[string]float64 `json:"agent_weights"`
	Risk         PolicyRisk         `json:"risk"`
}

// LearningRequest is the input contract for POST /api/learn.
type LearningRequest struct {
	LearningMode    string                `json:"learning_mode" default:"incremental" validate:"oneof=incremental full"`
	WindowSize      int                   `json:"window_size" default:"50" validate:"gte=1,lte=5000"`
	ExecutionResult *TradeRecord          `json:"execution_result,omitempty"`
	TradeHistory    []TradeRecord         `json:"trade_history" validate:"dive"`
	PriceHistory    map[string][]PriceBar `json:"price_history,omitempty"`
	CurrentPolicy   CurrentPolicy         `json:"current_policy"`
}

// BiasDeltaBody is the wire form of a per-asset bias delta.
type BiasDeltaBody struct {
	BullBias float64 `json:"bull_bias" validate:"gte=-1,lte=1"`
	BearBias float64 `json:"bear_bias" validate:"gte=-1,lte=1"`
	VolBias  float64 `json:"vol_bias" validate:"gte=-1,lte=1"`
}

// PolicyDeltasBody is the wire form of the cycle's proposed adjustments.
type PolicyDeltasBody struct {
	AssetBiases map[string]BiasDeltaBody `json:"asset_biases"`
	Risk        map[string]float64       `json:"risk"`
}

// LearningResponse is the output contract for POST /api/learn.
type LearningResponse struct {
	LearningState LearningState    `json:"learning_state"`
	LearningMode  string           `json:"learning_mode,omitempty"`
	PolicyDeltas  PolicyDeltasBody `json:"policy_deltas"`
	Reasoning     []string         `json:"reasoning"`
	Committed     bool             `json:"committed"`
}

// MarketRegimeRequest is the input contract for POST /api/market-regime.
type MarketRegimeRequest struct {
	PriceHistory []PriceBar `json:"price_history" validate:"required,min=200,dive"`
}

// MarketRegimeResponse is the output contract for regime classification.
type MarketRegimeResponse struct {
	Regime      string  `json:"regime"`
	Confidence  float64 `json:"confidence_score"`
	Explanation string  `json:"explanation"`
}

// StoredRegimeRequest is the query contract for GET /api/regime, which
// classifies from the candle store instead of a posted series.
type StoredRegimeRequest struct {
	AssetID string `query:"asset_id" json:"asset_id" validate:"required"`
	N       int    `query:"n" json:"n" default:"300" validate:"gte=200,lte=5000"`
}

// BiasUpdateRequest is one feedback update from the Manager.
type BiasUpdateRequest struct {
	AssetID   string        `json:"asset_id" validate:"required"`
	BiasDelta BiasDeltaBody `json:"bias_delta"`
	Source    string        `json:"source" default:"manager"`
}

// BiasBody is the wire form of a stored bias row.
type BiasBody struct {
	BullBias    float64   `json:"bull_bias"`
	BearBias    float64   `json:"bear_bias"`
	VolBias     float64   `json:"vol_bias"`
	LastUpdated time.Time `json:"last_updated"`
}

// BiasUpdateResponse acknowledges one applied update.
type BiasUpdateResponse struct {
	AssetID     string   `json:"asset_id"`
	CurrentBias BiasBody `json:"current_bias"`
	Updated     bool     `json:"updated"`
}
