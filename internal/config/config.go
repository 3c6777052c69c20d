// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/perch-labs/leadscout/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Classifier ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
	Budget     BudgetConfig     `yaml:"budget" mapstructure:"budget"`
	Keywords   KeywordsConfig   `yaml:"keywords" mapstructure:"keywords"`
	Scan       ScanConfig       `yaml:"scan" mapstructure:"scan"`
	Monitor    MonitorConfig    `yaml:"monitor" mapstructure:"monitor"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string      `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string      `yaml:"database_url" mapstructure:"database_url"`
	Pool        *PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// PoolConfig tunes the Postgres connection pool.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// ClassifierConfig tunes the classification call.
type ClassifierConfig struct {
	MaxTokens          int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature        float64 `yaml:"temperature" mapstructure:"temperature"`
	AttemptTimeoutSecs int     `yaml:"attempt_timeout_secs" mapstructure:"attempt_timeout_secs"`
	CallsPerSecond     float64 `yaml:"calls_per_second" mapstructure:"calls_per_second"`
}

// BudgetConfig holds the spend and failure ceilings.
type BudgetConfig struct {
	FailureThreshold int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	DailyCallLimit   int     `yaml:"daily_call_limit" mapstructure:"daily_call_limit"`
	RunCostLimit     float64 `yaml:"run_cost_limit" mapstructure:"run_cost_limit"`
}

// KeywordsConfig points at the term-list file; empty means built-in defaults.
type KeywordsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ScanConfig configures export ingestion.
type ScanConfig struct {
	Platform string `yaml:"platform" mapstructure:"platform"`
}

// MonitorConfig configures the periodic watch-directory scan.
type MonitorConfig struct {
	WatchDir string `yaml:"watch_dir" mapstructure:"watch_dir"`
	Schedule string `yaml:"schedule" mapstructure:"schedule"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadscout.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("classifier.max_tokens", 500)
	v.SetDefault("classifier.temperature", 0.1)
	v.SetDefault("classifier.attempt_timeout_secs", 30)
	v.SetDefault("budget.failure_threshold", 5)
	v.SetDefault("budget.daily_call_limit", 1000)
	v.SetDefault("budget.run_cost_limit", 5.00)
	v.SetDefault("scan.platform", "linkedin")
	v.SetDefault("monitor.schedule", "@every 30m")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks configuration before any network or database work starts.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required")
	}
	if c.Anthropic.Key == "" {
		return eris.New("config: anthropic.key is required (LEADSCOUT_ANTHROPIC_KEY)")
	}
	if c.Scan.Platform != "" && !validPlatform(c.Scan.Platform) {
		return eris.Errorf("config: unknown platform %q", c.Scan.Platform)
	}
	if c.Budget.RunCostLimit < 0 {
		return eris.New("config: budget.run_cost_limit must not be negative")
	}
	return nil
}

func validPlatform(s string) bool {
	for _, p := range model.AllPlatforms() {
		if model.Platform(s) == p {
			return true
		}
	}
	return false
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
