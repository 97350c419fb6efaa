package domain

import (
	"os"
	"strconv"
	"time"
)

// Config holds the complete service configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Ensemble scoring settings
	Ensemble EnsembleConfig `json:"ensemble"`

	// Explanation settings
	Explain ExplainConfig `json:"explain"`

	// Registered models
	Models []ModelConfig `json:"models"`

	// Component configurations
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`
	Repository RepositoryConfig `json:"repository"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// EnsembleConfig holds the combination and decision parameters.
type EnsembleConfig struct {
	// Strategy selects the combiner: weighted_average, voting or stacking.
	Strategy Strategy `json:"strategy"`

	// FraudThreshold is the vote boundary for the voting strategy.
	FraudThreshold float64 `json:"fraudThreshold"`

	// ConfidenceThreshold gates the decision: below it, every prediction
	// routes to REVIEW regardless of probability.
	ConfidenceThreshold float64 `json:"confidenceThreshold"`

	// MaxConcurrentScores bounds in-flight model calls per request.
	MaxConcurrentScores int `json:"maxConcurrentScores"`
}

// ExplainConfig holds explanation heuristics.
type ExplainConfig struct {
	Enabled bool `json:"enabled"`

	// ImportanceThreshold filters numeric features reported as important.
	ImportanceThreshold float64 `json:"importanceThreshold"`

	// MaxFeatures caps the feature-importance list.
	MaxFeatures int `json:"maxFeatures"`

	// FactorRules are CEL expressions evaluated in order against the
	// transaction metadata. Each returns a string: non-empty means the
	// factor triggered and the string is the human-readable reason.
	FactorRules []FactorRule `json:"factorRules"`
}

// FactorRule is a single key-factor trigger.
type FactorRule struct {
	ID         string `json:"id"`
	Expression string `json:"expression"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
	Endpoint    string `json:"endpoint"`
}

/// DefaultFactorRules mirror the production explanation heuristics: large
// and suspiciously small amounts, off-hours activity, and high-risk
// payment methods.
func DefaultFactorRules() []FactorRule {
	return []FactorRule{
		{
			ID:         "high-amount",
			Expression: `amount > 10000.0 ? "high transaction amount: " + string(amount) : ""`,
		},
		{
			ID:         "low-amount",
			Expression: `amount < 1.0 ? "unusual low amount: " + string(amount) : ""`,
		},
		{
			ID:         "off-hours",
			Expression: `hour < 6 || hour > 22 ? "off-hours transaction: hour " + string(hour) : ""`,
		},
		{
			ID:         "risky-payment-method",
			Expression: `payment_method in ["crypto", "gift_card"] ? "high-risk payment method: " + payment_method : ""`,
		},
	}
}

// DefaultModels returns the stock five-model ensemble with the weights and
// per-family trust constants the models shipped with.
func DefaultModels() []ModelConfig {
	return []ModelConfig{
		{ID: "gradient_boost", Type: "gradient_boost", Weight: 0.40, Enabled: true, ConfidenceMultiplier: 1.0},
		{ID: "sequence_lstm", Type: "sequence", Weight: 0.25, Enabled: true, ConfidenceMultiplier: 0.8},
		{ID: "text_classifier", Type: "text", Weight: 0.15, Enabled: true, ConfidenceMultiplier: 0.7},
		{ID: "graph_network", Type: "graph", Weight: 0.15, Enabled: true, ConfidenceMultiplier: 0.6},
		{ID: "anomaly_detector", Type: "anomaly", Weight: 0.05, Enabled: true, ConfidenceMultiplier: 0.5},
	}
}

// DefaultConfig returns a single-process configuration: in-memory cache,
// channel event bus, SQLite persistence.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Ensemble: EnsembleConfig{
			Strategy:            StrategyWeightedAverage,
			FraudThreshold:      0.5,
			ConfidenceThreshold: 0.7,
			MaxConcurrentScores: 16,
		},
		Explain: ExplainConfig{
			Enabled:             true,
			ImportanceThreshold: 0.1,
			MaxFeatures:         10,
			FactorRules:         DefaultFactorRules(),
		},
		Models: DefaultModels(),
		Cache: CacheConfig{
			Type:       "memory",
			MaxEntries: 1000,
			TTL:        300 * time.Second,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./frauddetector.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "frauddetector",
		},
	}
}

// LoadFromEnv applies FRAUD_* environment overrides on top of cfg.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("FRAUD_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := envInt("FRAUD_PORT"); v > 0 {
		cfg.Server.Port = v
	}
	if v := os.Getenv("FRAUD_STRATEGY"); v != "" {
		cfg.Ensemble.Strategy = Strategy(v)
	}
	if v := envFloat("FRAUD_THRESHOLD"); v > 0 {
		cfg.Ensemble.FraudThreshold = v
	}
	if v := envFloat("FRAUD_CONFIDENCE_THRESHOLD"); v > 0 {
		cfg.Ensemble.ConfidenceThreshold = v
	}
	if v := os.Getenv("FRAUD_EXPLAIN"); v == "false" {
		cfg.Explain.Enabled = false
	}
	if v := os.Getenv("FRAUD_CACHE_TYPE"); v != "" {
		cfg.Cache.Type = v
	}
	if v := os.Getenv("FRAUD_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := envInt("FRAUD_CACHE_MAX_ENTRIES"); v > 0 {
		cfg.Cache.MaxEntries = v
	}
	if v := envInt("FRAUD_CACHE_TTL_SECONDS"); v > 0 {
		cfg.Cache.TTL = time.Duration(v) * time.Second
	}
	if v := os.Getenv("FRAUD_BUS_TYPE"); v != "" {
		cfg.EventBus.Type = v
	}
	if v := os.Getenv("FRAUD_NATS_URL"); v != "" {
		cfg.EventBus.NATSUrl = v
	}
	if v := os.Getenv("FRAUD_DB_DRIVER"); v != "" {
		cfg.Repository.Driver = v
	}
	if v := os.Getenv("FRAUD_SQLITE_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := os.Getenv("FRAUD_POSTGRES_HOST"); v != "" {
		cfg.Repository.PostgresHost = v
	}
	if v := envInt("FRAUD_POSTGRES_PORT"); v > 0 {
		cfg.Repository.PostgresPort = v
	}
	if v := os.Getenv("FRAUD_POSTGRES_USER"); v != "" {
		cfg.Repository.PostgresUser = v
	}
	if v := os.Getenv("FRAUD_POSTGRES_PASSWORD"); v != "" {
		cfg.Repository.PostgresPassword = v
	}
	if v := os.Getenv("FRAUD_POSTGRES_DB"); v != "" {
		cfg.Repository.PostgresDB = v
	}
	if v := os.Getenv("FRAUD_TRACING"); v == "true" {
		cfg.Tracing.Enabled = true
	}
	if v := os.Getenv("FRAUD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func envInt(key string) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return v
}

func envFloat(key string) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return 0
	}
	return v
}
