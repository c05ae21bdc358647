package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	OVC      OVCConfig      `yaml:"ovc" mapstructure:"ovc"`
	Retry    RetryConfig    `yaml:"retry" mapstructure:"retry"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Scan     ScanConfig     `yaml:"scan" mapstructure:"scan"`
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// OVCConfig configures the cadastre web service client.
type OVCConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// Timeout returns the per-request timeout.
func (c OVCConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// RetryConfig configures retries of transient failures.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// CacheConfig configures the local response cache.
type CacheConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Path     string `yaml:"path" mapstructure:"path"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// TTL returns how long cached responses stay fresh.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// ScanConfig bounds fan-out queries.
type ScanConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// PostgresConfig configures the table export sink.
type PostgresConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
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
	v.SetEnvPrefix("CATASTRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ovc.base_url", "http://ovc.catastro.meh.es/ovcservweb/OVCSWLocalizacionRC")
	v.SetDefault("ovc.timeout_secs", 30)
	v.SetDefault("ovc.rate_limit", 5)
	v.SetDefault("ovc.user_agent", "catastro-cli/1.0")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 10000)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.path", "catastro-cache.db")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("scan.concurrency", 4)
	v.SetDefault("postgres.database_url", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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

// Validate checks the settings a command mode depends on. Modes are
// "query", "export" and "serve".
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.OVC.BaseURL == "" {
		problems = append(problems, "ovc.base_url is required")
	}
	if c.OVC.RateLimit <= 0 {
		problems = append(problems, "ovc.rate_limit must be > 0")
	}
	if c.OVC.TimeoutSecs <= 0 {
		problems = append(problems, "ovc.timeout_secs must be > 0")
	}
	if c.Retry.MaxAttempts < 1 {
		problems = append(problems, "retry.max_attempts must be >= 1")
	}
	if c.Scan.Concurrency < 1 || c.Scan.Concurrency > 32 {
		problems = append(problems, "scan.concurrency must be between 1 and 32")
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		problems = append(problems, "cache.path is required when cache.enabled is set")
	}

	switch mode {
	case "query":
	case "export":
		if c.Postgres.DatabaseURL == "" {
			problems = append(problems, "postgres.database_url is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
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
