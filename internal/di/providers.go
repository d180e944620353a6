package di

import (
	"context"
	"fmt"
	"time"

	domrepo "MacroLearn/internal/domain/repository"
	internalrepo "MacroLearn/internal/repository"
	icache "MacroLearn/internal/service/cache"
	"MacroLearn/internal/services/history"
	"MacroLearn/internal/services/perf"
	"MacroLearn/internal/services/policy"
	"MacroLearn/internal/usecase"
	pkgch "MacroLearn/pkg/clickhouse"
	"MacroLearn/pkg/config"
	pkgkafka "MacroLearn/pkg/kafka"
	applogger "MacroLearn/pkg/logger"
	"MacroLearn/pkg/metrics"
	"MacroLearn/pkg/server"

	"MacroLearn/internal/handler/api"
	xhttp "MacroLearn/pkg/http"
)

// ProvideLogger creates the structured application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if lc.Format == "" {
		lc.Format = "console"
	}
	if lc.Output == "" {
		lc.Output = "stdout"
	}
	return applogger.New(lc)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideTradeStore selects the configured extended-history backend and
// bootstraps its schema.
func ProvideTradeStore(cfg *config.Config, chClient *pkgch.Client, l *applogger.Logger) (domrepo.TradeStore, error) {
	var store domrepo.TradeStore
	if cfg.History.Backend == "http" {
		store = history.NewHTTPStore(history.Config{
			BaseURL: cfg.History.AgentURL,
			Timeout: cfg.History.Timeout,
		})
	} else {
		ch := internalrepo.NewCHTradeStore(chClient)
		ch.SetLogger(l)
		store = ch
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("trade store init: %w", err)
	}
	return store, nil
}

// ProvideCandleStore creates the ClickHouse candle store and bootstraps
// its schema.
func ProvideCandleStore(chClient *pkgch.Client, l *applogger.Logger) (domrepo.CandleStore, error) {
	store := internalrepo.NewCHCandleStore(chClient)
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("candle store init: %w", err)
	}
	return store, nil
}

// ProvideBiasStore selects Redis or the in-process fallback.
func ProvideBiasStore(cfg *config.Config, l *applogger.Logger) domrepo.BiasStore {
	if cfg.Redis.Enabled {
		store := internalrepo.NewRedisBiasStore(internalrepo.RedisBiasConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store.SetLogger(l)
		return store
	}
	return internalrepo.NewMemoryBiasStore()
}

// ProvideKafkaProducer creates a Kafka producer, or nil when messaging is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePolicyPublisher creates the policy-updates publisher, or nil when
// messaging is disabled.
func ProvidePolicyPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.PolicyPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPolicyPublisher(producer, cfg.Kafka.PolicyTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer, or nil when messaging is
// disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaTradesHandler registers the handler for the trades topic.
func ProvideKafkaTradesHandler(store domrepo.TradeStore, m domrepo.Metrics, cfg *config.Config) *usecase.KafkaTradesHandler {
	return usecase.NewKafkaTradesHandler(cfg.Kafka.TradesTopic, store, m)
}

// ProvideLearningCycle creates the cycle use case from config, falling back
// to the tuned defaults for unset fields.
func ProvideLearningCycle(
	cfg *config.Config,
	trades domrepo.TradeStore,
	biases domrepo.BiasStore,
	publisher domrepo.PolicyPublisher,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.LearningCycle {
	cc := usecase.DefaultLearningCycleConfig()
	lc := cfg.Learning
	if lc.RecentWindow > 0 {
		cc.RecentWindow = lc.RecentWindow
	}
	if cfg.History.Limit > 0 {
		cc.HistoryLimit = cfg.History.Limit
	}
	if lc.WarmupMinTrades > 0 {
		cc.Adjuster.WarmupMinTrades = lc.WarmupMinTrades
	}
	if lc.UpperThreshold > 0 {
		cc.Adjuster.UpperThreshold = lc.UpperThreshold
	}
	if lc.LowerThreshold > 0 {
		cc.Adjuster.LowerThreshold = lc.LowerThreshold
	}
	if lc.BiasStep > 0 {
		cc.Adjuster.BiasStep = lc.BiasStep
	}
	if lc.WinRateWeight > 0 || lc.DrawdownWeight > 0 || lc.VolatilityWeight > 0 {
		cc.Score = perf.ScoreConfig{
			WinRateWeight:    lc.WinRateWeight,
			DrawdownWeight:   lc.DrawdownWeight,
			VolatilityWeight: lc.VolatilityWeight,
			DrawdownRef:      lc.DrawdownRef,
			VolatilityRef:    lc.VolatilityRef,
		}
	}
	if lc.MaxConsecutiveLosses > 0 || lc.RecentDrawdownLimit > 0 || lc.RiskPerTradeStep != 0 {
		cc.Guard = policy.GuardConfig{
			MaxConsecutiveLosses: lc.MaxConsecutiveLosses,
			RecentDrawdownLimit:  lc.RecentDrawdownLimit,
			RiskPerTradeStep:     lc.RiskPerTradeStep,
		}
	}
	return usecase.NewLearningCycle(cc, trades, biases, publisher, m, l)
}

// ProvideRegimeClassifier creates the regime use case.
func ProvideRegimeClassifier(candles domrepo.CandleStore, m domrepo.Metrics) *usecase.RegimeClassifier {
	return usecase.NewRegimeClassifier(candles, m)
}

// ProvideBiasUpdater creates the bias feedback use case.
func ProvideBiasUpdater(biases domrepo.BiasStore, l *applogger.Logger) *usecase.BiasUpdater {
	return usecase.NewBiasUpdater(biases, l)
}

// ProvideHTTPHandler builds the Echo handler with cache, rate limits and
// readiness probes.
func ProvideHTTPHandler(
	cfg *config.Config,
	l *applogger.Logger,
	cycle *usecase.LearningCycle,
	regimes *usecase.RegimeClassifier,
	biases *usecase.BiasUpdater,
	biasStore domrepo.BiasStore,
	trades domrepo.TradeStore,
	chClient *pkgch.Client,
) *api.LearningEchoHandler {
	h := api.NewLearningEchoHandler(l, cycle, regimes, biases)

	var bc icache.BytesCache
	if cfg.Redis.Enabled {
		bc = icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	} else {
		bc = icache.NewTTLCache()
	}
	h.SetCache(bc, cfg.Regime.CacheTTL)
	h.SetRateLimit(cfg.Regime.RateCapacity, cfg.Regime.RateRefillRate)

	h.AddReadinessProbe("clickhouse", chClient.Health)
	h.AddReadinessProbe("bias_store", biasStore.Health)
	h.AddReadinessProbe("trade_store", trades.Health)
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaTradesHandler,
	chClient *pkgch.Client,
	publisher domrepo.PolicyPublisher,
	trades domrepo.TradeStore,
	handler *api.LearningEchoHandler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, l, consumer, kh, chClient, publisher, trades)
	var xh xhttp.Handler = handler
	app.SetHTTPHandler(xh)
	return app
}
