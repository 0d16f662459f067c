package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Watcher  WatcherConfig  `mapstructure:"watcher"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects the durable backend. Backend is "mongo" or "postgres".
type StoreConfig struct {
	Backend  string         `mapstructure:"backend"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AuthConfig struct {
	JWTSecret     string          `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration   `mapstructure:"token_ttl"`
	EncryptionKey string          `mapstructure:"encryption_key"`
	RateLimit     RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

// TelegramConfig holds the app-level API credentials used for the OTP login
// flow; per-user session strings live encrypted in the store.
type TelegramConfig struct {
	APIID   int    `mapstructure:"api_id"`
	APIHash string `mapstructure:"api_hash"`
}

type LLMConfig struct {
	DefaultProvider string       `mapstructure:"default_provider"`
	MaxRetries      int          `mapstructure:"max_retries"`
	Groq            GroqConfig   `mapstructure:"groq"`
	Gemini          GeminiConfig `mapstructure:"gemini"`
}

type GroqConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type WatcherConfig struct {
	ReplaceGrace  time.Duration `mapstructure:"replace_grace"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
}

type TradingConfig struct {
	BuyFraction  float64 `mapstructure:"buy_fraction"`
	MinPnL       float64 `mapstructure:"min_pnl"`
	BaseCurrency string  `mapstructure:"base_currency"`
}

type LoggingConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	File   string        `mapstructure:"file"`
	MaxAge time.Duration `mapstructure:"max_age"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")

	// Store
	v.SetDefault("store.backend", "mongo")
	v.SetDefault("store.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongo.database", "alphascan")
	v.SetDefault("store.postgres.host", "localhost")
	v.SetDefault("store.postgres.port", 5432)
	v.SetDefault("store.postgres.user", "alphascan")
	v.SetDefault("store.postgres.database", "alphascan")
	v.SetDefault("store.postgres.ssl_mode", "disable")
	v.SetDefault("store.postgres.max_conns", 20)
	v.SetDefault("store.postgres.min_conns", 5)

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Auth
	v.SetDefault("auth.token_ttl", "168h") // 7 days
	v.SetDefault("auth.rate_limit.requests_per_minute", 60)
	v.SetDefault("auth.rate_limit.burst", 10)

	// LLM
	v.SetDefault("llm.default_provider", "groq")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.groq.model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.gemini.model", "gemini-2.5-flash")

	// Watcher lifecycle
	v.SetDefault("watcher.replace_grace", "1500ms")
	v.SetDefault("watcher.shutdown_grace", "2s")

	// Trading
	v.SetDefault("trading.buy_fraction", 0.6)
	v.SetDefault("trading.min_pnl", 10.0)
	v.SetDefault("trading.base_currency", "EDU")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.max_age", "120h")
}

func bindEnvVars(v *viper.Viper) {
	// Store
	v.BindEnv("store.backend", "STORE_BACKEND")
	v.BindEnv("store.mongo.uri", "MONGO_URI")
	v.BindEnv("store.mongo.database", "DB_NAME")
	v.BindEnv("store.postgres.password", "POSTGRES_PASSWORD")

	// Redis
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Auth
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("auth.encryption_key", "ENCRYPTION_KEY")

	// Telegram app credentials
	v.BindEnv("telegram.api_id", "API_ID")
	v.BindEnv("telegram.api_hash", "API_HASH")

	// LLM API keys
	v.BindEnv("llm.groq.api_key", "GROQ_API_KEY")
	v.BindEnv("llm.groq.model", "GROQ_MODEL")
	v.BindEnv("llm.gemini.api_key", "GEMINI_API_KEY")
}
