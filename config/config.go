// Package config loads and validates the trader configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quantumchildren/propsim/challenge"
	"github.com/quantumchildren/propsim/market"
)

// Config represents the complete trader configuration
type Config struct {
	Trader    TraderConfig     `json:"trader" yaml:"trader"`
	Challenge challenge.Config `json:"challenge" yaml:"challenge"`
	Telemetry TelemetryConfig  `json:"telemetry" yaml:"telemetry"`
}

// TraderConfig contains trading loop parameters
type TraderConfig struct {
	Symbols             []string `json:"symbols" yaml:"symbols"`
	Timeframe           string   `json:"timeframe" yaml:"timeframe"`
	LotSize             float64  `json:"lot_size" yaml:"lot_size"`
	ConfidenceThreshold float64  `json:"confidence_threshold" yaml:"confidence_threshold"`
	EntropyThreshold    float64  `json:"entropy_threshold" yaml:"entropy_threshold"`
	MaxPositions        int      `json:"max_positions" yaml:"max_positions"`
	CheckInterval       string   `json:"check_interval" yaml:"check_interval"`
	EnableTrading       bool     `json:"enable_trading" yaml:"enable_trading"`
	Seed                int64    `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// ParseCheckInterval converts the check_interval string to a duration.
func (t TraderConfig) ParseCheckInterval() (time.Duration, error) {
	if t.CheckInterval == "" {
		return time.Minute, nil
	}
	return time.ParseDuration(t.CheckInterval)
}

// TelemetryConfig contains the reporting endpoint parameters
type TelemetryConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	ServerURL string `json:"server_url" yaml:"server_url"`
	DataDir   string `json:"data_dir" yaml:"data_dir"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on extension)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Trader.Symbols) == 0 {
		return fmt.Errorf("trader.symbols is required")
	}
	for _, s := range c.Trader.Symbols {
		if _, ok := market.Instruments[s]; !ok {
			return fmt.Errorf("unknown symbol: %s", s)
		}
	}
	if c.Trader.LotSize <= 0 {
		return fmt.Errorf("trader.lot_size must be positive")
	}
	if c.Trader.ConfidenceThreshold <= 0 || c.Trader.ConfidenceThreshold > 1 {
		return fmt.Errorf("trader.confidence_threshold must be between 0 and 1")
	}
	if c.Trader.EntropyThreshold <= 0 {
		return fmt.Errorf("trader.entropy_threshold must be positive")
	}
	if c.Trader.MaxPositions <= 0 {
		return fmt.Errorf("trader.max_positions must be positive")
	}
	if _, err := c.Trader.ParseCheckInterval(); err != nil {
		return fmt.Errorf("trader.check_interval: %w", err)
	}
	if err := c.Challenge.Validate(); err != nil {
		return fmt.Errorf("challenge: %w", err)
	}
	if c.Telemetry.Enabled && c.Telemetry.ServerURL == "" {
		return fmt.Errorf("telemetry.server_url required when telemetry is enabled")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Trader: TraderConfig{
			Symbols:             []string{"BTCUSD", "XAUUSD"},
			Timeframe:           "M5",
			LotSize:             0.01,
			ConfidenceThreshold: 0.55,
			EntropyThreshold:    4.5,
			MaxPositions:        3,
			CheckInterval:       "60s",
			EnableTrading:       false,
		},
		Challenge: challenge.Presets["FTMO_100K"],
		Telemetry: TelemetryConfig{
			Enabled:   false,
			ServerURL: "http://localhost:8088",
			DataDir:   "./telemetry_data",
		},
	}
}
