package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"MacroLearn/internal/domain/models"
	icache "MacroLearn/internal/service/cache"
	"MacroLearn/internal/service/metrics"
	"MacroLearn/internal/service/ratelimit"
	"MacroLearn/internal/services/regime"
	"MacroLearn/internal/usecase"
	xhttp "MacroLearn/pkg/http"
	xlogger "MacroLearn/pkg/logger"
)

// LearningEchoHandler exposes the learning cycle, regime classification and
// bias endpoints over Echo.
type LearningEchoHandler struct {
	logger     *xlogger.Logger
	cycle      *usecase.LearningCycle
	regimes    *usecase.RegimeClassifier
	biases     *usecase.BiasUpdater
	cache      icache.BytesCache
	rl         *ratelimit.Limiter
	cacheTTL   time.Duration
	rateCap    float64
	rateRefill float64
	readiness  []ReadinessProbe
}

// ReadinessProbe pings one infrastructure dependency.
type ReadinessProbe struct {
	Name  string
	Check func(ctx context.Context) error
}

func NewLearningEchoHandler(
	logger *xlogger.Logger,
	cycle *usecase.LearningCycle,
	regimes *usecase.RegimeClassifier,
	biases *usecase.BiasUpdater,
) *LearningEchoHandler {
	metrics.Register()
	return &LearningEchoHandler{
		logger:     logger,
		cycle:      cycle,
		regimes:    regimes,
		biases:     biases,
		rl:         ratelimit.New(),
		cacheTTL:   30 * time.Second,
		rateCap:    5,
		rateRefill: 2,
	}
}

// SetCache enables response caching on the stored-regime read path.
func (h *LearningEchoHandler) SetCache(c icache.BytesCache, ttl time.Duration) {
	h.cache = c
	if ttl > 0 {
		h.cacheTTL = ttl
	}
}

// SetRateLimit overrides the per-client token bucket for regime reads.
func (h *LearningEchoHandler) SetRateLimit(capacity, refillPerSec float64) {
	if capacity > 0 {
		h.rateCap = capacity
	}
	if refillPerSec > 0 {
		h.rateRefill = refillPerSec
	}
}

// AddReadinessProbe registers a dependency check for /ready.
func (h *LearningEchoHandler) AddReadinessProbe(name string, check func(ctx context.Context) error) {
	h.readiness = append(h.readiness, ReadinessProbe{Name: name, Check: check})
}

func (h *LearningEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/learn", h.Learn)
	g.POST("/market-regime", h.MarketRegime)
	g.GET("/regime", h.StoredRegime)
	g.POST("/learning/update-biases", h.UpdateBiases)
	g.GET("/bias/:asset_id", h.ReadBias)

	e.GET("/health", h.Health)
	e.GET("/ready", h.Ready)
}

func (h *LearningEchoHandler) Learn(c echo.Context) error {
	start := time.Now()
	endpoint := "learn"
	defer func() { metrics.LearningLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.LearningRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.cycle.Run(c.Request().Context(), *req)
	if err != nil {
		metrics.LearningErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("learning cycle error", xlogger.Error(err))
		// The partial response carries committed:false and the reasoning
		// trail up to the failure.
		return xhttp.DataResponse(c, http.StatusInternalServerError, res)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *LearningEchoHandler) MarketRegime(c echo.Context) error {
	start := time.Now()
	endpoint := "market_regime"
	defer func() { metrics.LearningLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.MarketRegimeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.regimes.Classify(req.PriceHistory)
	if err != nil {
		if errors.Is(err, regime.ErrShortSeries) || errors.Is(err, regime.ErrDegenerateSeries) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithError(err))
		}
		metrics.LearningErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("market regime error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, regimeBody(res))
}

func (h *LearningEchoHandler) StoredRegime(c echo.Context) error {
	start := time.Now()
	endpoint := "stored_regime"
	defer func() { metrics.LearningLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.StoredRegimeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if !h.rl.Allow(c.RealIP()+":regime", h.rateCap, h.rateRefill) {
		h.logger.Warn("stored regime rate_limited", xlogger.String("remote", c.RealIP()))
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	cacheKey := "regime:" + req.AssetID
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
			h.logger.Warn("stored regime cache_get_error", xlogger.Error(err))
		} else if ok {
			h.logger.Debug("stored regime cache_hit", xlogger.String("key", cacheKey))
			return c.JSONBlob(http.StatusOK, b)
		}
	}

	res, err := h.regimes.ClassifyStored(c.Request().Context(), req.AssetID, req.N)
	if err != nil {
		if errors.Is(err, regime.ErrShortSeries) || errors.Is(err, regime.ErrDegenerateSeries) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithError(err))
		}
		metrics.LearningErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("stored regime error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	body := regimeBody(res)
	if h.cache != nil {
		if b, err := json.Marshal(body); err == nil {
			if err := h.cache.SetBytes(cacheKey, b, h.cacheTTL); err != nil {
				h.logger.Warn("stored regime cache_set_error", xlogger.Error(err))
			}
		}
	}
	return c.JSON(http.StatusOK, body)
}

// UpdateBiases accepts a single update object or a batch array.
func (h *LearningEchoHandler) UpdateBiases(c echo.Context) error {
	start := time.Now()
	endpoint := "update_biases"
	defer func() { metrics.LearningLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return xhttp.BadRequestResponse(c, "unreadable body")
	}

	var updates []models.BiasUpdateRequest
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &updates); err != nil {
			return xhttp.BadRequestResponse(c, "invalid batch body: "+err.Error())
		}
	} else {
		var one models.BiasUpdateRequest
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return xhttp.BadRequestResponse(c, "invalid body: "+err.Error())
		}
		updates = append(updates, one)
	}
	for i := range updates {
		if updates[i].AssetID == "" {
			return xhttp.BadRequestResponse(c, "asset_id is required")
		}
		if updates[i].Source == "" {
			updates[i].Source = "manager"
		}
	}

	res, err := h.biases.Apply(c.Request().Context(), updates)
	if err != nil {
		metrics.LearningErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("bias update error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if len(res) == 1 {
		return xhttp.SuccessResponse(c, res[0])
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *LearningEchoHandler) ReadBias(c echo.Context) error {
	assetID := c.Param("asset_id")
	if assetID == "" {
		return xhttp.BadRequestResponse(c, "asset_id is required")
	}
	st, err := h.biases.Read(c.Request().Context(), assetID)
	if err != nil {
		h.logger.Error("bias read error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, models.BiasUpdateResponse{
		AssetID: assetID,
		CurrentBias: models.BiasBody{
			BullBias:    st.BullBias,
			BearBias:    st.BearBias,
			VolBias:     st.VolBias,
			LastUpdated: st.LastUpdated,
		},
		Updated: false,
	})
}

func (h *LearningEchoHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *LearningEchoHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	status := make(map[string]string, len(h.readiness))
	ready := true
	for _, probe := range h.readiness {
		if err := probe.Check(ctx); err != nil {
			status[probe.Name] = err.Error()
			ready = false
			continue
		}
		status[probe.Name] = "ok"
	}
	if !ready {
		return c.JSON(http.StatusServiceUnavailable, status)
	}
	return c.JSON(http.StatusOK, status)
}

func regimeBody(res models.RegimeResult) models.MarketRegimeResponse {
	return models.MarketRegimeResponse{
		Regime:      string(res.Regime),
		Confidence:  res.Confidence,
		Explanation: res.Explanation,
	}
}

var _ xhttp.Handler = (*LearningEchoHandler)(nil)
