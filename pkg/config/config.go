package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		TradesTopic  string   `yaml:"trades_topic"`
		PolicyTopic  string   `yaml:"policy_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	History struct {
		Backend  string        `yaml:"backend"` // clickhouse or http
		AgentURL string        `yaml:"agent_url"`
		Timeout  time.Duration `yaml:"timeout"`
		Limit    int           `yaml:"limit"` // extended history per asset
	} `yaml:"history"`
	Learning struct {
		RecentWindow         int     `yaml:"recent_window"`
		WarmupMinTrades      int     `yaml:"warmup_min_trades"`
		UpperThreshold       float64 `yaml:"upper_threshold"`
		LowerThreshold       float64 `yaml:"lower_threshold"`
		BiasStep             float64 `yaml:"bias_step"`
		WinRateWeight        float64 `yaml:"win_rate_weight"`
		DrawdownWeight       float64 `yaml:"drawdown_weight"`
		VolatilityWeight     float64 `yaml:"volatility_weight"`
		DrawdownRef          float64 `yaml:"drawdown_ref"`
		VolatilityRef        float64 `yaml:"volatility_ref"`
		MaxConsecutiveLosses int     `yaml:"max_consecutive_losses"`
		RecentDrawdownLimit  float64 `yaml:"recent_drawdown_limit"`
		RiskPerTradeStep     float64 `yaml:"risk_per_trade_step"`
	} `yaml:"learning"`
	Regime struct {
		CacheTTL       time.Duration `yaml:"cache_ttl"`
		RateCapacity   float64       `yaml:"rate_capacity"`
		RateRefillRate float64       `yaml:"rate_refill_per_sec"`
	} `yaml:"regime"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("HISTORY_AGENT_URL"); v != "" {
		c.History.AgentURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.History.Backend == "" {
		c.History.Backend = "clickhouse"
	}
	if c.History.Backend != "clickhouse" && c.History.Backend != "http" {
		return fmt.Errorf("history.backend must be 'clickhouse' or 'http', got '%s'", c.History.Backend)
	}
	if c.History.Backend == "http" && c.History.AgentURL == "" {
		return fmt.Errorf("history.agent_url is required when history.backend is 'http'")
	}
	if c.Learning.UpperThreshold != 0 && c.Learning.LowerThreshold != 0 &&
		c.Learning.LowerThreshold >= c.Learning.UpperThreshold {
		return fmt.Errorf("learning.lower_threshold must be below learning.upper_threshold")
	}
	return nil
}
