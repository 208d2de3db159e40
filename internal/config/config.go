// Package config loads jobscout configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	defaultServerPort           = 8070
	defaultServerTimeout        = 30
	defaultDatabasePort         = 5432
	defaultMaxOpenConns         = 25
	defaultMaxIdleConns         = 5
	defaultConnMaxLifetime      = 5
	defaultRedisAddress         = "localhost:6379"
	defaultAnthropicModel       = "claude-sonnet-4-5"
	defaultMaxTokens            = 2048
	defaultOracleInterval       = time.Second
	defaultMaxResults           = 50
	defaultExpandBelow          = 100
	defaultCompanyDelay         = 1200 * time.Millisecond
	defaultFlushEvery           = 5
	defaultQueueStream          = "jobscout:jobs"
	defaultQueueGroup           = "search-worker"
	defaultDispatchAttempts     = 3
	defaultDispatchInitialDelay = 2 * time.Second
)

type Config struct {
	Debug    bool           `env:"APP_DEBUG"  yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Oracles  OraclesConfig  `yaml:"oracles"`
	Search   SearchConfig   `yaml:"search"`
	Dispatch DispatchConfig `yaml:"dispatch"`
}

type ServerConfig struct {
	Host         string        `env:"SERVER_HOST" yaml:"host"`
	Port         int           `env:"SERVER_PORT" yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORSOrigins  []string      `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Host            string        `env:"DB_HOST"     yaml:"host"`
	Port            int           `env:"DB_PORT"     yaml:"port"`
	User            string        `env:"DB_USER"     yaml:"user"`
	Password        string        `env:"DB_PASSWORD" yaml:"password"`
	DBName          string        `env:"DB_NAME"     yaml:"dbname"`
	SSLMode         string        `env:"DB_SSLMODE"  yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig holds the queue broker connection. The dispatcher falls back to
// inline execution when the broker is unreachable, so none of this is required.
type RedisConfig struct {
	Address  string `env:"REDIS_ADDRESS"  yaml:"address"`
	Password string `env:"REDIS_PASSWORD" yaml:"password"`
	DB       int    `env:"REDIS_DB"       yaml:"db"`
	Stream   string `yaml:"stream"`
	Group    string `yaml:"group"`
}

// OraclesConfig holds credentials for the three external services. A missing
// credential disables that provider without failing the pipeline.
type OraclesConfig struct {
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Apollo    ApolloConfig    `yaml:"apollo"`
	Hunter    HunterConfig    `yaml:"hunter"`
}

type AnthropicConfig struct {
	APIKey      string        `env:"ANTHROPIC_API_KEY" yaml:"api_key"`
	Model       string        `env:"ANTHROPIC_MODEL"   yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	MinInterval time.Duration `yaml:"min_interval"`
}

type ApolloConfig struct {
	APIKey      string        `env:"APOLLO_API_KEY" yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	MinInterval time.Duration `yaml:"min_interval"`
}

type HunterConfig struct {
	APIKey      string        `env:"HUNTER_API_KEY" yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	MinInterval time.Duration `yaml:"min_interval"`
}

type SearchConfig struct {
	Region       string        `env:"SEARCH_REGION" yaml:"region"`
	MaxResults   int           `yaml:"max_results"`
	ExpandBelow  int           `yaml:"expand_below"`
	CompanyDelay time.Duration `yaml:"company_delay"`
	FlushEvery   int           `yaml:"flush_every"`
}

// DispatchConfig is the whole-job retry policy applied by the queued
// dispatcher. The orchestrator never retries individual oracle calls.
type DispatchConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	Multiplier   float64       `yaml:"multiplier"`
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return errors.New("server.port is required and must be positive")
	}
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.User == "" {
		return errors.New("database.user is required")
	}
	if c.Database.DBName == "" {
		return errors.New("database.dbname is required")
	}
	return nil
}

// Load reads the config file at path, applies defaults, env overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	setDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultServerTimeout * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultServerTimeout * time.Second
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = defaultDatabasePort
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = defaultConnMaxLifetime * time.Minute
	}
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = defaultRedisAddress
	}
	if cfg.Redis.Stream == "" {
		cfg.Redis.Stream = defaultQueueStream
	}
	if cfg.Redis.Group == "" {
		cfg.Redis.Group = defaultQueueGroup
	}
	if cfg.Oracles.Anthropic.Model == "" {
		cfg.Oracles.Anthropic.Model = defaultAnthropicModel
	}
	if cfg.Oracles.Anthropic.MaxTokens == 0 {
		cfg.Oracles.Anthropic.MaxTokens = defaultMaxTokens
	}
	if cfg.Oracles.Anthropic.MinInterval == 0 {
		cfg.Oracles.Anthropic.MinInterval = defaultOracleInterval
	}
	if cfg.Oracles.Apollo.MinInterval == 0 {
		cfg.Oracles.Apollo.MinInterval = defaultOracleInterval
	}
	if cfg.Oracles.Hunter.MinInterval == 0 {
		cfg.Oracles.Hunter.MinInterval = defaultOracleInterval
	}
	if cfg.Search.Region == "" {
		cfg.Search.Region = "utah"
	}
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = defaultMaxResults
	}
	if cfg.Search.ExpandBelow == 0 {
		cfg.Search.ExpandBelow = defaultExpandBelow
	}
	if cfg.Search.CompanyDelay == 0 {
		cfg.Search.CompanyDelay = defaultCompanyDelay
	}
	if cfg.Search.FlushEvery == 0 {
		cfg.Search.FlushEvery = defaultFlushEvery
	}
	if cfg.Dispatch.MaxAttempts == 0 {
		cfg.Dispatch.MaxAttempts = defaultDispatchAttempts
	}
	if cfg.Dispatch.InitialDelay == 0 {
		cfg.Dispatch.InitialDelay = defaultDispatchInitialDelay
	}
	if cfg.Dispatch.Multiplier == 0 {
		cfg.Dispatch.Multiplier = 2.0
	}
}
