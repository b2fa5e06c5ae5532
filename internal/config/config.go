// Package config loads the YAML configuration shared by the CLI and the
// HTTP server.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/contactkeval/option-amm/internal/amm"
	"github.com/contactkeval/option-amm/internal/data"
	"github.com/contactkeval/option-amm/internal/logger"
	"github.com/contactkeval/option-amm/internal/pricing"
)

// Environment overrides.
const (
	EnvMassiveAPIKey = "MASSIVE_API_KEY"
	EnvPolygonAPIKey = "POLYGON_API_KEY"
	EnvLogLevel      = "OPTION_AMM_LOG_LEVEL"
	EnvListen        = "OPTION_AMM_LISTEN"
)

// Config struct
type Config struct {
	Logging  logger.Options `yaml:"logging"`
	Pricing  Pricing        `yaml:"pricing"`
	Pool     Pool           `yaml:"pool"`
	AMM      amm.Config     `yaml:"amm"`
	Data     data.Options   `yaml:"data"`
	Server   Server         `yaml:"server"`
	Strategy Strategy       `yaml:"strategy"`
}

// Pricing holds contract defaults applied when a request leaves them out.
type Pricing struct {
	RiskFreeRate      float64 `yaml:"risk_free_rate"`     // decimal
	ImpliedVolatility float64 `yaml:"implied_volatility"` // percent
}

// Pool is the snapshot assumed for a contract with no pool data.
type Pool struct {
	Liquidity float64 `yaml:"liquidity"`
	Volume    float64 `yaml:"volume"`
}

type Server struct {
	Listen string `yaml:"listen"`
}

// Strategy holds the payoff analyzer's sampling defaults.
type Strategy struct {
	StrikeInterval float64 `yaml:"strike_interval"`
	RangeLow       float64 `yaml:"range_low"`  // fraction of spot
	RangeHigh      float64 `yaml:"range_high"` // fraction of spot
	Steps          int     `yaml:"steps"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Logging: logger.Options{Level: "info", Format: "console", MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 28},
		Pricing: Pricing{RiskFreeRate: pricing.DefaultRiskFreeRate, ImpliedVolatility: 45},
		Pool:    Pool{Liquidity: 1_000_000, Volume: 50_000},
		AMM:     amm.DefaultConfig(),
		Data: data.Options{
			Providers:         []string{data.KindSynthetic},
			RequestsPerSecond: 5.0 / 60,
		},
		Server:   Server{Listen: ":8080"},
		Strategy: Strategy{StrikeInterval: 0, RangeLow: 0.8, RangeHigh: 1.2, Steps: 50},
	}
}

// Load reads path over Default, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("invalid config: %w", err)
		}
	}

	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if c.Data.APIKey == "" {
		c.Data.APIKey = getenv(EnvMassiveAPIKey)
	}
	if c.Data.APIKey == "" {
		c.Data.APIKey = getenv(EnvPolygonAPIKey)
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := getenv(EnvListen); v != "" {
		c.Server.Listen = v
	}
}

// Validate reports the first setting the engines cannot run with.
func (c Config) Validate() error {
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.AMM.Validate(); err != nil {
		return err
	}
	if c.Pricing.ImpliedVolatility < 0 {
		return fmt.Errorf("pricing: implied_volatility must not be negative")
	}
	if !(c.Pool.Liquidity > 0) {
		return fmt.Errorf("pool: liquidity must be positive")
	}
	if c.Pool.Volume < 0 {
		return fmt.Errorf("pool: volume must not be negative")
	}
	for _, k := range c.Data.Providers {
		switch strings.ToLower(strings.TrimSpace(k)) {
		case data.KindMassive, data.KindMassiveREST, data.KindCSV, data.KindSynthetic:
		default:
			return fmt.Errorf("data: unknown provider kind %q", k)
		}
	}
	if c.Strategy.Steps < 1 || !(c.Strategy.RangeLow > 0) || c.Strategy.RangeHigh <= c.Strategy.RangeLow {
		return fmt.Errorf("strategy: invalid sampling range [%v, %v] x %d", c.Strategy.RangeLow, c.Strategy.RangeHigh, c.Strategy.Steps)
	}
	return nil
}
