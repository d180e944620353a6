package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"MacroLearn/internal/domain/models"
	domrepo "MacroLearn/internal/domain/repository"
	"MacroLearn/internal/services/perf"
	"MacroLearn/internal/services/policy"
	"MacroLearn/internal/services/regime"
	applogger "MacroLearn/pkg/logger"
)

// LearningCycleConfig bundles the tunables of one cycle run.
type LearningCycleConfig struct {
	RecentWindow int
	HistoryLimit int // extended history fetched per asset from the store
	Score        perf.ScoreConfig
	Adjuster     policy.AdjusterConfig
	Guard        policy.GuardConfig
}

// DefaultLearningCycleConfig returns the tuned defaults.
func DefaultLearningCycleConfig() LearningCycleConfig {
	return LearningCycleConfig{
		RecentWindow: perf.DefaultRecentWindow,
		HistoryLimit: 200,
		Score:        perf.DefaultScoreConfig(),
		Adjuster:     policy.DefaultAdjusterConfig(),
		Guard:        policy.DefaultGuardConfig(),
	}
}

// LearningCycle orchestrates one learning run: aggregate trades, score each
// asset, propose bias deltas, run the risk guard, commit atomically and
// publish the committed deltas downstream.
type LearningCycle struct {
	cfg       LearningCycleConfig
	trades    domrepo.TradeStore
	biases    domrepo.BiasStore
	publisher domrepo.PolicyPublisher // optional
	metrics   domrepo.Metrics
	adjuster  *policy.Adjuster
	guard     *policy.Guard
	l         *applogger.Logger
}

func NewLearningCycle(
	cfg LearningCycleConfig,
	trades domrepo.TradeStore,
	biases domrepo.BiasStore,
	publisher domrepo.PolicyPublisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *LearningCycle {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 200
	}
	return &LearningCycle{
		cfg:       cfg,
		trades:    trades,
		biases:    biases,
		publisher: publisher,
		metrics:   metrics,
		adjuster:  policy.NewAdjuster(cfg.Adjuster),
		guard:     policy.NewGuard(cfg.Guard),
		l:         l,
	}
}

// Run executes one cycle. A commit failure returns the partial response
// with Committed=false alongside the error; no partial bias writes happen.
func (c *LearningCycle) Run(ctx context.Context, req models.LearningRequest) (models.LearningResponse, error) {
	start := time.Now()
	resp := models.LearningResponse{
		LearningMode: req.LearningMode,
		PolicyDeltas: models.PolicyDeltasBody{
			AssetBiases: make(map[string]models.BiasDeltaBody),
			Risk:        make(map[string]float64),
		},
	}

	byAsset := c.aggregate(ctx, req, &resp)
	if len(byAsset) == 0 {
		resp.LearningState = models.LearningInsufficientData
		resp.Committed = true
		resp.Reasoning = append(resp.Reasoning, "no executable trades in request or store, nothing to learn from")
		c.record(models.LearningInsufficientData, start)
		return resp, nil
	}

	assets := make([]string, 0, len(byAsset))
	for id := range byAsset {
		assets = append(assets, id)
	}
	sort.Strings(assets)

	deltas := models.NewPolicyDeltas()
	var directive policy.Directive
	sawPastWarmup := false

	for _, assetID := range assets {
		snap, err := perf.Snapshot(assetID, byAsset[assetID], c.cfg.RecentWindow)
		if err != nil {
			resp.Reasoning = append(resp.Reasoning,
				fmt.Sprintf("asset %q has no usable trades, skipping", assetID))
			continue
		}

		score := perf.CompositeScore(snap, c.cfg.Score)
		decision := c.adjuster.Decide(snap, score)
		resp.Reasoning = append(resp.Reasoning, decision.Reason)
		if decision.State != models.LearningWarmup {
			sawPastWarmup = true
		}
		if !decision.Delta.IsZero() {
			deltas.AssetBiases[assetID] = deltas.AssetBiases[assetID].Add(decision.Delta)
		}

		// The guard evaluates every asset, warmup or not.
		c.guard.Inspect(snap, &directive)
	}

	c.guard.Finalize(&directive)
	if directive.Triggered {
		deltas.Risk["risk_per_trade"] = directive.RiskPerTradeStep
		resp.Reasoning = append(resp.Reasoning, directive.Reasons...)
	}

	c.annotateRegimes(req, &resp)

	switch {
	case sawPastWarmup:
		resp.LearningState = models.LearningSuccess
	default:
		resp.LearningState = models.LearningWarmup
	}

	for assetID, d := range deltas.AssetBiases {
		resp.PolicyDeltas.AssetBiases[assetID] = models.BiasDeltaBody{
			BullBias: d.Bull, BearBias: d.Bear, VolBias: d.Vol,
		}
	}
	for k, v := range deltas.Risk {
		resp.PolicyDeltas.Risk[k] = v
	}

	if len(deltas.AssetBiases) > 0 {
		if _, err := c.biases.ApplyDeltas(ctx, deltas.AssetBiases); err != nil {
			resp.Committed = false
			resp.Reasoning = append(resp.Reasoning, "bias commit failed, no deltas were persisted")
			if c.metrics != nil {
				c.metrics.RecordError("bias_commit")
			}
			c.record(resp.LearningState, start)
			return resp, fmt.Errorf("commit bias deltas: %w", err)
		}
	}
	resp.Committed = true

	if c.publisher != nil && !deltas.Empty() {
		if err := c.publisher.PublishDeltas(ctx, resp.LearningState, deltas); err != nil {
			// Downstream notification is best effort; the commit stands.
			if c.l != nil {
				c.l.Warn("policy delta publish failed", applogger.Error(err))
			}
			if c.metrics != nil {
				c.metrics.RecordError("policy_publish")
			}
		}
	}

	c.record(resp.LearningState, start)
	return resp, nil
}

// aggregate merges the execution result, caller history and extended store
// history into per-asset chronological sequences.
func (c *LearningCycle) aggregate(ctx context.Context, req models.LearningRequest, resp *models.LearningResponse) map[string][]models.Trade {
	var fromReq []models.Trade
	assetIDs := make(map[string]struct{})
	for _, r := range req.TradeHistory {
		if !r.Executable() {
			continue
		}
		fromReq = append(fromReq, r.ToTrade("request"))
		assetIDs[r.AssetID] = struct{}{}
	}

	var fromExec []models.Trade
	if req.ExecutionResult != nil && req.ExecutionResult.Executable() {
		fromExec = append(fromExec, req.ExecutionResult.ToTrade("execution"))
		assetIDs[req.ExecutionResult.AssetID] = struct{}{}
	}

	limit := c.cfg.HistoryLimit
	if req.WindowSize > limit {
		limit = req.WindowSize
	}

	var fromStore []models.Trade
	if c.trades != nil {
		for assetID := range assetIDs {
			hist, err := c.trades.FetchHistory(ctx, assetID, limit)
			if err != nil {
				// Degrade to request-supplied history only.
				if c.l != nil {
					c.l.Warn("extended history fetch failed",
						applogger.String("asset_id", assetID),
						applogger.Error(err),
					)
				}
				if c.metrics != nil {
					c.metrics.RecordError("history_fetch")
				}
				resp.Reasoning = append(resp.Reasoning,
					fmt.Sprintf("extended history unavailable for asset %q, using supplied trades only", assetID))
				continue
			}
			fromStore = append(fromStore, hist...)
		}
	}

	return perf.MergeTrades(fromExec, fromReq, fromStore)
}

// annotateRegimes classifies any supplied price series long enough for the
// rule table and appends the result to the reasoning trail.
func (c *LearningCycle) annotateRegimes(req models.LearningRequest, resp *models.LearningResponse) {
	if len(req.PriceHistory) == 0 {
		return
	}
	assets := make([]string, 0, len(req.PriceHistory))
	for id := range req.PriceHistory {
		assets = append(assets, id)
	}
	sort.Strings(assets)

	for _, assetID := range assets {
		bars := req.PriceHistory[assetID]
		if len(bars) < models.MinRegimePoints {
			continue
		}
		points := make([]models.PricePoint, 0, len(bars))
		for _, b := range bars {
			points = append(points, b.ToPricePoint())
		}
		result, err := regime.Classify(points)
		if err != nil {
			resp.Reasoning = append(resp.Reasoning,
				fmt.Sprintf("regime for asset %q unavailable: %v", assetID, err))
			continue
		}
		if c.metrics != nil {
			c.metrics.RecordRegime(string(result.Regime))
		}
		resp.Reasoning = append(resp.Reasoning,
			fmt.Sprintf("asset %q market regime: %s (confidence %.2f)", assetID, result.Regime, result.Confidence))
	}
}

func (c *LearningCycle) record(state models.LearningState, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordCycleState(string(state))
	c.metrics.RecordLatency("learning_cycle_seconds", time.Since(start).Seconds())
}
