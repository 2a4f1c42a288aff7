package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Search      SearchConfig              `json:"search"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
	BotName       string `json:"bot_name"`
	// GateBackend picks the reply gate implementation: "memory" (default)
	// or "redis" for multi-process deployments.
	GateBackend string `json:"gate_backend"`
	// SweepInterval is the expired-session sweep period in minutes.
	SweepInterval int `json:"sweep_interval"`
	// StopMissingFatal makes stopping an absent session a client error
	// instead of a no-op.
	StopMissingFatal bool `json:"stop_missing_fatal"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type SearchConfig struct {
	TavilyAPIKey   string `json:"tavily_api_key"`
	GoogleAPIKey   string `json:"google_api_key"`
	GoogleEngineID string `json:"google_engine_id"`
}

// Load reads configuration from the provided path (defaults to config.json).
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if len(cfg.Databases) == 0 {
		return nil, fmt.Errorf("at least one database must be configured")
	}
	if cfg.BasicConfig.BotName == "" {
		cfg.BasicConfig.BotName = "YodaBot"
	}

	// Relative sqlite paths resolve against the config file's directory.
	for name, dbCfg := range cfg.Databases {
		if dbCfg.DSN == "" || filepath.IsAbs(dbCfg.DSN) || strings.HasPrefix(dbCfg.DSN, ":") {
			continue
		}
		dbCfg.DSN = filepath.Join(filepath.Dir(absPath), dbCfg.DSN)
		cfg.Databases[name] = dbCfg
	}

	return &cfg, nil
}
