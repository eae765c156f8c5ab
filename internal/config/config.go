package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	JWTSecret          string           `json:"jwt_secret" env:"NL2SQL_JWT_SECRET"`
	Port               int              `json:"port" env:"NL2SQL_PORT"`
	JWTTTLHours        int              `json:"jwt_ttl_hours"`
	ExposeErrorDetails bool             `json:"expose_error_details"`
	RequireAuth        bool             `json:"require_auth"`
	AuthRateLimitMs    int              `json:"auth_rate_limit_ms"`
	CORSOrigins        []string         `json:"cors_origins"`
	LogConfig          logger.LogConfig `json:"log_config"`
	Store              StoreConfig      `json:"store"`
	AI                 AIConfig         `json:"ai"`
}

type StoreConfig struct {
	Type           string         `json:"type"`
	ConnectRetries int            `json:"connect_retries"`
	Mongo          MongoConfig    `json:"mongo"`
	Postgres       PostgresConfig `json:"postgres"`
}

type MongoConfig struct {
	URI        string `json:"uri" env:"NL2SQL_MONGO_URI"`
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

type PostgresConfig struct {
	DSN string `json:"dsn" env:"NL2SQL_PG_DSN"`
}

type AIConfig struct {
	Provider        string `json:"provider"`
	APIKey          string `json:"api_key" env:"GEMINI_API_KEY"`
	BaseURL         string `json:"base_url" env:"GEMINI_BASE_URL"`
	Model           string `json:"model"`
	Timeout         int    `json:"timeout"`
	CacheSize       int    `json:"cache_size"`
	CacheTTLMinutes int    `json:"cache_ttl_minutes"`
}

// Load reads the JSON file at path, then applies environment overrides. A
// .env file in the working directory, when present, seeds the environment
// without replacing variables that are already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 7 * 24
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = StoreMongo
	}
	if cfg.Store.ConnectRetries == 0 {
		cfg.Store.ConnectRetries = 5
	}
	switch cfg.Store.Type {
	case StoreMongo:
		if cfg.Store.Mongo.URI == "" {
			return fmt.Errorf("store.mongo.uri is required for mongo store")
		}
		if cfg.Store.Mongo.Database == "" {
			cfg.Store.Mongo.Database = "nl2sql"
		}
		if cfg.Store.Mongo.Collection == "" {
			cfg.Store.Mongo.Collection = "users"
		}
	case StorePostgres:
		if cfg.Store.Postgres.DSN == "" {
			return fmt.Errorf("store.postgres.dsn is required for postgres store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("store.type must be mongo, postgres or memory")
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "gemini"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gemini-2.0-flash"
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 30
	}
	if cfg.AI.CacheSize == 0 {
		cfg.AI.CacheSize = 1000
	}
	if cfg.AI.CacheTTLMinutes == 0 {
		cfg.AI.CacheTTLMinutes = 120
	}
	return nil
}
