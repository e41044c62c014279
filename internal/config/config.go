package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Config is the server configuration. Values come from defaults, then an
// optional YAML file, then the environment.
type Config struct {
	Port              string        `yaml:"port"`
	ComputerDelay     time.Duration `yaml:"-"`
	ComputerDelayMS   int           `yaml:"computer_delay_ms"`
	DefaultMode       string        `yaml:"default_mode"`
	DefaultDifficulty string        `yaml:"default_difficulty"`
	FirstPlayer       string        `yaml:"first_player"`
	ComputerPlayer    string        `yaml:"computer_player"`
	SessionTTL        time.Duration `yaml:"-"`
	SessionTTLMinutes int           `yaml:"session_ttl_minutes"`
	SweepInterval     time.Duration `yaml:"-"`
	Heartbeat         time.Duration `yaml:"-"`
	HeartbeatSeconds  int           `yaml:"heartbeat_seconds"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
	Development       bool          `yaml:"development"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:              "8080",
		ComputerDelayMS:   500,
		DefaultMode:       "pvc",
		DefaultDifficulty: "hard",
		FirstPlayer:       "X",
		ComputerPlayer:    "O",
		SessionTTLMinutes: 60,
		HeartbeatSeconds:  15,
	}
}

// Load builds the configuration. path may be empty to skip the YAML file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Port = GetEnv("PORT", cfg.Port)
	cfg.ComputerDelayMS = GetEnvAsInt("COMPUTER_DELAY_MS", cfg.ComputerDelayMS)
	cfg.DefaultMode = GetEnv("DEFAULT_MODE", cfg.DefaultMode)
	cfg.DefaultDifficulty = GetEnv("DEFAULT_DIFFICULTY", cfg.DefaultDifficulty)
	cfg.FirstPlayer = GetEnv("FIRST_PLAYER", cfg.FirstPlayer)
	cfg.ComputerPlayer = GetEnv("COMPUTER_PLAYER", cfg.ComputerPlayer)
	cfg.SessionTTLMinutes = GetEnvAsInt("SESSION_TTL_MINUTES", cfg.SessionTTLMinutes)
	cfg.HeartbeatSeconds = GetEnvAsInt("HEARTBEAT_SECONDS", cfg.HeartbeatSeconds)
	cfg.Development = GetEnvAsBool("LOG_DEVELOPMENT", cfg.Development)
	if origins := GetEnv("ALLOWED_ORIGINS", ""); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	}

	cfg.ComputerDelay = time.Duration(cfg.ComputerDelayMS) * time.Millisecond
	cfg.SessionTTL = time.Duration(cfg.SessionTTLMinutes) * time.Minute
	cfg.SweepInterval = cfg.SessionTTL / 4
	cfg.Heartbeat = time.Duration(cfg.HeartbeatSeconds) * time.Second
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges. Mode, difficulty and player names are checked by
// the game service when they are parsed.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must be set")
	}
	if c.ComputerDelayMS < 0 {
		return fmt.Errorf("computer_delay_ms must not be negative, got %d", c.ComputerDelayMS)
	}
	if c.SessionTTLMinutes <= 0 {
		return fmt.Errorf("session_ttl_minutes must be positive, got %d", c.SessionTTLMinutes)
	}
	if c.HeartbeatSeconds <= 0 {
		return fmt.Errorf("heartbeat_seconds must be positive, got %d", c.HeartbeatSeconds)
	}
	return nil
}

// NewLogger returns a development or production zap logger.
func (c *Config) NewLogger() (*zap.Logger, error) {
	if c.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
