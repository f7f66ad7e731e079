package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.BinanceConfig.BaseURL != "https://fapi.binance.com" {
		t.Errorf("BaseURL = %q", cfg.BinanceConfig.BaseURL)
	}
	if cfg.DatabaseConfig.Port != 5432 || cfg.DatabaseConfig.Host != "localhost" {
		t.Errorf("database defaults = %+v", cfg.DatabaseConfig)
	}
	if cfg.ScannerConfig.ScanIntervalMinutes != 240 || cfg.ScannerConfig.KlineInterval != "4h" {
		t.Errorf("scanner defaults = %+v", cfg.ScannerConfig)
	}
	if cfg.SignalConfig.MinConfidence != 0.65 || cfg.SignalConfig.ATRMultiplierTP3 != 6.0 {
		t.Errorf("signal defaults = %+v", cfg.SignalConfig)
	}
	if cfg.TrackerConfig.EntryWeightA != 0.7 || cfg.TrackerConfig.EntryWeightB != 0.3 {
		t.Errorf("tracker defaults = %+v", cfg.TrackerConfig)
	}
	if cfg.ServerConfig.Port != 8080 {
		t.Errorf("server port = %d", cfg.ServerConfig.Port)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"binance": {"base_url": "http://localhost:9000"},
		"scanner": {"universe_size": 50, "max_signals_per_run": 3},
		"signal": {"min_confidence": 0.8}
	}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BinanceConfig.BaseURL != "http://localhost:9000" {
		t.Errorf("BaseURL = %q", cfg.BinanceConfig.BaseURL)
	}
	if cfg.ScannerConfig.UniverseSize != 50 || cfg.ScannerConfig.MaxSignalsPerRun != 3 {
		t.Errorf("scanner = %+v", cfg.ScannerConfig)
	}
	if cfg.SignalConfig.MinConfidence != 0.8 {
		t.Errorf("MinConfidence = %v", cfg.SignalConfig.MinConfidence)
	}
	// Untouched fields still pick up defaults.
	if cfg.ScannerConfig.WorkerCount != 4 {
		t.Errorf("WorkerCount = %d, want the default", cfg.ScannerConfig.WorkerCount)
	}
}

func TestEnvOverridesBeatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"database": {"host": "filehost"}}`), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("DB_HOST", "envhost")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("MIN_CONFIDENCE", "0.75")
	t.Setenv("SCANNER_ENABLED", "true")
	t.Setenv("TELEGRAM_CHAT_ID", "12345")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseConfig.Host != "envhost" || cfg.DatabaseConfig.Port != 5433 {
		t.Errorf("database = %+v", cfg.DatabaseConfig)
	}
	if cfg.SignalConfig.MinConfidence != 0.75 {
		t.Errorf("MinConfidence = %v", cfg.SignalConfig.MinConfidence)
	}
	if !cfg.ScannerConfig.Enabled {
		t.Error("SCANNER_ENABLED not applied")
	}
	if cfg.NotificationConfig.Telegram.ChatID != "12345" {
		t.Errorf("ChatID = %q", cfg.NotificationConfig.Telegram.ChatID)
	}
}

func TestLoadIgnoresMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/config.json")
	if err != nil {
		t.Fatalf("Load must fall back to defaults, got %v", err)
	}
	if cfg.DatabaseConfig.Host != "localhost" {
		t.Errorf("Host = %q", cfg.DatabaseConfig.Host)
	}
}
