package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	BinanceConfig      BinanceConfig      `json:"binance"`
	DatabaseConfig     DatabaseConfig     `json:"database"`
	RedisConfig        RedisConfig        `json:"redis"`
	ScannerConfig      ScannerConfig      `json:"scanner"`
	SignalConfig       SignalConfig       `json:"signal"`
	MLConfig           MLConfig           `json:"ml"`
	TrackerConfig      TrackerConfig      `json:"tracker"`
	NotificationConfig NotificationConfig `json:"notification"`
	LoggingConfig      LoggingConfig      `json:"logging"`
	ServerConfig       ServerConfig       `json:"server"`
	AuthConfig         AuthConfig         `json:"auth"`
	VaultConfig        VaultConfig        `json:"vault"`
}

type BinanceConfig struct {
	BaseURL string `json:"base_url"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds Redis configuration for universe caching
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

type ScannerConfig struct {
	Enabled             bool   `json:"enabled"`
	ScanIntervalMinutes int    `json:"scan_interval_minutes"`
	KlineInterval       string `json:"kline_interval"`
	LookbackBars        int    `json:"lookback_bars"`
	UniverseSize        int    `json:"universe_size"`
	MaxSignalsPerRun    int    `json:"max_signals_per_run"`
	WorkerCount         int    `json:"worker_count"`
}

// SignalConfig controls the signal gates and ATR level multipliers
type SignalConfig struct {
	MinConfidence     float64 `json:"min_confidence"`
	MinTrendStrength  float64 `json:"min_trend_strength"`
	ATRMultiplierSL   float64 `json:"atr_multiplier_sl"`
	ATRMultiplierTP1  float64 `json:"atr_multiplier_tp1"`
	ATRMultiplierTP2  float64 `json:"atr_multiplier_tp2"`
	ATRMultiplierTP3  float64 `json:"atr_multiplier_tp3"`
	EnableAveraging   bool    `json:"enable_averaging"`
	AveragingDistance float64 `json:"averaging_distance"`
}

type MLConfig struct {
	ModelPath string `json:"model_path"`
}

type TrackerConfig struct {
	CheckIntervalSeconds int     `json:"check_interval_seconds"`
	EntryWeightA         float64 `json:"entry_weight_a"`
	EntryWeightB         float64 `json:"entry_weight_b"`
}

type NotificationConfig struct {
	Enabled  bool           `json:"enabled"`
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled         bool   `json:"enabled"`
	BotToken        string `json:"bot_token"`
	ChatID          string `json:"chat_id"`
	CommandsEnabled bool   `json:"commands_enabled"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

type LoggingConfig struct {
	Level      string `json:"level"`
	Pretty     bool   `json:"pretty"`
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

type ServerConfig struct {
	Enabled        bool     `json:"enabled"`
	Port           int      `json:"port"`
	Host           string   `json:"host"`
	ProductionMode bool     `json:"production_mode"`
	AllowOrigins   []string `json:"allow_origins"`
}

type AuthConfig struct {
	Enabled            bool   `json:"enabled"`
	Username           string `json:"username"`
	PasswordHash       string `json:"password_hash"`
	JWTSecret          string `json:"jwt_secret"`
	TokenDurationHours int    `json:"token_duration_hours"`
}

// VaultConfig holds HashiCorp Vault settings for secret loading
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	SecretPath string `json:"secret_path"`
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

func Load(path string) (*Config, error) {
	cfg, err := loadFromFile(path)
	if err != nil {
		// No config file is fine; env vars and defaults carry it.
		cfg = &Config{}
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.BinanceConfig.BaseURL == "" {
		cfg.BinanceConfig.BaseURL = "https://fapi.binance.com"
	}

	if cfg.DatabaseConfig.Host == "" {
		cfg.DatabaseConfig.Host = "localhost"
	}
	if cfg.DatabaseConfig.Port == 0 {
		cfg.DatabaseConfig.Port = 5432
	}
	if cfg.DatabaseConfig.SSLMode == "" {
		cfg.DatabaseConfig.SSLMode = "disable"
	}

	if cfg.RedisConfig.Address == "" {
		cfg.RedisConfig.Address = "localhost:6379"
	}
	if cfg.RedisConfig.PoolSize == 0 {
		cfg.RedisConfig.PoolSize = 10
	}

	if cfg.ScannerConfig.ScanIntervalMinutes == 0 {
		cfg.ScannerConfig.ScanIntervalMinutes = 240
	}
	if cfg.ScannerConfig.KlineInterval == "" {
		cfg.ScannerConfig.KlineInterval = "4h"
	}
	if cfg.ScannerConfig.LookbackBars == 0 {
		cfg.ScannerConfig.LookbackBars = 200
	}
	if cfg.ScannerConfig.UniverseSize == 0 {
		cfg.ScannerConfig.UniverseSize = 20
	}
	if cfg.ScannerConfig.MaxSignalsPerRun == 0 {
		cfg.ScannerConfig.MaxSignalsPerRun = 5
	}
	if cfg.ScannerConfig.WorkerCount == 0 {
		cfg.ScannerConfig.WorkerCount = 4
	}

	if cfg.SignalConfig.MinConfidence == 0 {
		cfg.SignalConfig.MinConfidence = 0.65
	}
	if cfg.SignalConfig.MinTrendStrength == 0 {
		cfg.SignalConfig.MinTrendStrength = 20
	}
	if cfg.SignalConfig.ATRMultiplierSL == 0 {
		cfg.SignalConfig.ATRMultiplierSL = 1.5
	}
	if cfg.SignalConfig.ATRMultiplierTP1 == 0 {
		cfg.SignalConfig.ATRMultiplierTP1 = 2.5
	}
	if cfg.SignalConfig.ATRMultiplierTP2 == 0 {
		cfg.SignalConfig.ATRMultiplierTP2 = 4.0
	}
	if cfg.SignalConfig.ATRMultiplierTP3 == 0 {
		cfg.SignalConfig.ATRMultiplierTP3 = 6.0
	}
	if cfg.SignalConfig.AveragingDistance == 0 {
		cfg.SignalConfig.AveragingDistance = 0.02
	}

	if cfg.MLConfig.ModelPath == "" {
		cfg.MLConfig.ModelPath = "model_state.json"
	}

	if cfg.TrackerConfig.CheckIntervalSeconds == 0 {
		cfg.TrackerConfig.CheckIntervalSeconds = 60
	}
	if cfg.TrackerConfig.EntryWeightA == 0 {
		cfg.TrackerConfig.EntryWeightA = 0.7
	}
	if cfg.TrackerConfig.EntryWeightB == 0 {
		cfg.TrackerConfig.EntryWeightB = 0.3
	}

	if cfg.LoggingConfig.Level == "" {
		cfg.LoggingConfig.Level = "info"
	}
	if cfg.LoggingConfig.MaxSizeMB == 0 {
		cfg.LoggingConfig.MaxSizeMB = 50
	}
	if cfg.LoggingConfig.MaxBackups == 0 {
		cfg.LoggingConfig.MaxBackups = 5
	}
	if cfg.LoggingConfig.MaxAgeDays == 0 {
		cfg.LoggingConfig.MaxAgeDays = 14
	}

	if cfg.ServerConfig.Port == 0 {
		cfg.ServerConfig.Port = 8080
	}
	if cfg.ServerConfig.Host == "" {
		cfg.ServerConfig.Host = "0.0.0.0"
	}

	if cfg.AuthConfig.TokenDurationHours == 0 {
		cfg.AuthConfig.TokenDurationHours = 24
	}

	if cfg.VaultConfig.Address == "" {
		cfg.VaultConfig.Address = "http://localhost:8200"
	}
	if cfg.VaultConfig.MountPath == "" {
		cfg.VaultConfig.MountPath = "secret"
	}
	if cfg.VaultConfig.SecretPath == "" {
		cfg.VaultConfig.SecretPath = "signal-bot"
	}
}

// applyEnvOverrides applies environment variable overrides to the config.
// Environment values take precedence over the file.
func applyEnvOverrides(cfg *Config) {
	cfg.BinanceConfig.BaseURL = getEnvOrDefault("BINANCE_BASE_URL", cfg.BinanceConfig.BaseURL)

	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", cfg.DatabaseConfig.Database)
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", cfg.DatabaseConfig.SSLMode)

	cfg.RedisConfig.Enabled = getEnvBoolOrDefault("REDIS_ENABLED", cfg.RedisConfig.Enabled)
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)

	cfg.ScannerConfig.Enabled = getEnvBoolOrDefault("SCANNER_ENABLED", cfg.ScannerConfig.Enabled)
	cfg.ScannerConfig.ScanIntervalMinutes = getEnvIntOrDefault("SCAN_INTERVAL_MINUTES", cfg.ScannerConfig.ScanIntervalMinutes)
	cfg.ScannerConfig.KlineInterval = getEnvOrDefault("KLINE_INTERVAL", cfg.ScannerConfig.KlineInterval)
	cfg.ScannerConfig.UniverseSize = getEnvIntOrDefault("UNIVERSE_SIZE", cfg.ScannerConfig.UniverseSize)
	cfg.ScannerConfig.MaxSignalsPerRun = getEnvIntOrDefault("MAX_SIGNALS_PER_RUN", cfg.ScannerConfig.MaxSignalsPerRun)

	cfg.SignalConfig.MinConfidence = getEnvFloatOrDefault("MIN_CONFIDENCE", cfg.SignalConfig.MinConfidence)
	cfg.SignalConfig.MinTrendStrength = getEnvFloatOrDefault("MIN_TREND_STRENGTH", cfg.SignalConfig.MinTrendStrength)

	cfg.MLConfig.ModelPath = getEnvOrDefault("ML_MODEL_PATH", cfg.MLConfig.ModelPath)

	cfg.TrackerConfig.CheckIntervalSeconds = getEnvIntOrDefault("TRACKER_CHECK_INTERVAL", cfg.TrackerConfig.CheckIntervalSeconds)

	cfg.NotificationConfig.Enabled = getEnvBoolOrDefault("NOTIFICATIONS_ENABLED", cfg.NotificationConfig.Enabled)
	cfg.NotificationConfig.Telegram.Enabled = getEnvBoolOrDefault("TELEGRAM_ENABLED", cfg.NotificationConfig.Telegram.Enabled)
	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.NotificationConfig.Telegram.ChatID)
	cfg.NotificationConfig.Telegram.CommandsEnabled = getEnvBoolOrDefault("TELEGRAM_COMMANDS_ENABLED", cfg.NotificationConfig.Telegram.CommandsEnabled)
	cfg.NotificationConfig.Discord.Enabled = getEnvBoolOrDefault("DISCORD_ENABLED", cfg.NotificationConfig.Discord.Enabled)
	cfg.NotificationConfig.Discord.WebhookURL = getEnvOrDefault("DISCORD_WEBHOOK_URL", cfg.NotificationConfig.Discord.WebhookURL)

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.File = getEnvOrDefault("LOG_FILE", cfg.LoggingConfig.File)
	cfg.LoggingConfig.Pretty = getEnvBoolOrDefault("LOG_PRETTY", cfg.LoggingConfig.Pretty)

	cfg.ServerConfig.Enabled = getEnvBoolOrDefault("WEB_ENABLED", cfg.ServerConfig.Enabled)
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.ProductionMode = getEnvBoolOrDefault("WEB_PRODUCTION_MODE", cfg.ServerConfig.ProductionMode)

	cfg.AuthConfig.Enabled = getEnvBoolOrDefault("AUTH_ENABLED", cfg.AuthConfig.Enabled)
	cfg.AuthConfig.Username = getEnvOrDefault("AUTH_USERNAME", cfg.AuthConfig.Username)
	cfg.AuthConfig.PasswordHash = getEnvOrDefault("AUTH_PASSWORD_HASH", cfg.AuthConfig.PasswordHash)
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)

	cfg.VaultConfig.Enabled = getEnvBoolOrDefault("VAULT_ENABLED", cfg.VaultConfig.Enabled)
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", cfg.VaultConfig.Address)
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", cfg.VaultConfig.MountPath)
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", cfg.VaultConfig.SecretPath)
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
