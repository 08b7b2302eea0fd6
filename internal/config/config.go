// Package config handles application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines the structure for all application configuration.
type Config struct {
	LogLevel   string           `yaml:"log_level"`
	Engine     EngineConfig     `yaml:"engine"`
	Trailing   TrailingConfig   `yaml:"trailing"`
	Averaging  AveragingConfig  `yaml:"averaging"`
	Hedge      HedgeConfig      `yaml:"hedge"`
	ExtraClose ExtraCloseConfig `yaml:"extra_close"`
	PriceFeed  PriceFeedConfig  `yaml:"price_feed"`
	Paper      PaperConfig      `yaml:"paper"`
	Database   DatabaseConfig   `yaml:"database"`
	DBWriter   DBWriterConfig   `yaml:"db_writer"`
	HTTP       HTTPConfig       `yaml:"http"`
}

// EngineConfig controls the polling scheduler and the submission guard.
type EngineConfig struct {
	IntervalMs      int `yaml:"interval_ms"`
	Workers         int `yaml:"workers"`
	CooldownSeconds int `yaml:"cooldown_seconds"`
}

// Interval returns the tick period.
func (c EngineConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// Cooldown returns the minimum resubmission interval per session and direction.
func (c EngineConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// TrailingConfig holds the trailing-stop thresholds, in percent.
type TrailingConfig struct {
	ActivationPct float64        `yaml:"activation_pct"`
	FeeBufferPct  float64        `yaml:"fee_buffer_pct"`
	Tiers         []TrailingTier `yaml:"tiers"`
}

// TrailingTier applies Ratio while the peak PnL is at or below MaxHighPct.
// A zero MaxHighPct on the last tier means unbounded.
type TrailingTier struct {
	MaxHighPct float64 `yaml:"max_high_pct"`
	Ratio      float64 `yaml:"ratio"`
}

// AveragingConfig holds the cost-averaging trigger.
type AveragingConfig struct {
	Enabled    FlexBool `yaml:"enabled"`
	TriggerPct float64  `yaml:"trigger_pct"`
}

// HedgeConfig holds the hedge and lock-in thresholds, in percent.
type HedgeConfig struct {
	SinglePositionThresholdPct float64 `yaml:"single_position_threshold_pct"`
	ProfitableActivationPct    float64 `yaml:"profitable_activation_pct"`
}

// ExtraCloseConfig holds the secondary safety-net thresholds.
type ExtraCloseConfig struct {
	Enabled               FlexBool `yaml:"enabled"`
	BestLossPct           float64  `yaml:"best_loss_pct"`
	WorstLossPct          float64  `yaml:"worst_loss_pct"`
	DeteriorationDeltaPct float64  `yaml:"deterioration_delta_pct"`
	MaxLifetimeSeconds    int      `yaml:"max_lifetime_seconds"`
}

// MaxLifetime returns how long a baseline may live without triggering.
func (c ExtraCloseConfig) MaxLifetime() time.Duration {
	return time.Duration(c.MaxLifetimeSeconds) * time.Second
}

// PriceFeedConfig configures the websocket trade stream.
type PriceFeedConfig struct {
	URL           string   `yaml:"url"`
	Symbols       []string `yaml:"symbols"`
	MaxAgeSeconds int      `yaml:"max_age_seconds"`
}

// PaperConfig configures the simulated execution gateway.
type PaperConfig struct {
	FeeRate float64 `yaml:"fee_rate"`
	Count   float64 `yaml:"count"`
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// Enabled reports whether a database is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.Host != "" && c.Name != ""
}

// URL builds a pgx connection string.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// DBWriterConfig holds the batching settings of the decision journal.
type DBWriterConfig struct {
	BatchSize            int `yaml:"batch_size"`
	WriteIntervalSeconds int `yaml:"write_interval_seconds"`
}

// HTTPConfig holds the admin server settings.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a configuration populated with the default strategy parameters.
// The thresholds are tunable defaults, not validated trading advice.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Engine: EngineConfig{
			IntervalMs:      1000,
			Workers:         8,
			CooldownSeconds: 10,
		},
		Trailing: TrailingConfig{
			ActivationPct: 0.20,
			FeeBufferPct:  0.036,
			Tiers: []TrailingTier{
				{MaxHighPct: 0.30, Ratio: 0.60},
				{MaxHighPct: 0.50, Ratio: 0.80},
				{Ratio: 0.90},
			},
		},
		Averaging: AveragingConfig{
			Enabled:    true,
			TriggerPct: -3.0,
		},
		Hedge: HedgeConfig{
			SinglePositionThresholdPct: -0.50,
			ProfitableActivationPct:    0.50,
		},
		ExtraClose: ExtraCloseConfig{
			Enabled:               true,
			BestLossPct:           -0.20,
			WorstLossPct:          -0.50,
			DeteriorationDeltaPct: -0.10,
			MaxLifetimeSeconds:    300,
		},
		PriceFeed: PriceFeedConfig{
			MaxAgeSeconds: 5,
		},
		Paper: PaperConfig{
			FeeRate: 0.0004,
			Count:   0.001,
		},
		Database: DatabaseConfig{
			Port:    5432,
			SSLMode: "disable",
		},
		DBWriter: DBWriterConfig{
			BatchSize:            100,
			WriteIntervalSeconds: 1,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
	}
}

// LoadConfig loads configuration from the specified YAML file path
// and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	cfg := Default()

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DB_PORT"); dbPort != "" {
		port, err := strconv.Atoi(dbPort)
		if err != nil {
			return fmt.Errorf("invalid DB_PORT %q: %w", dbPort, err)
		}
		cfg.Database.Port = port
	}
	if dbUser := os.Getenv("DB_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPassword := os.Getenv("DB_PASSWORD"); dbPassword != "" {
		cfg.Database.Password = dbPassword
	}
	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		cfg.Database.Name = dbName
	}
	if feedURL := os.Getenv("PRICE_FEED_URL"); feedURL != "" {
		cfg.PriceFeed.URL = feedURL
	}
	return nil
}

// Validate checks the values the engine cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.Engine.IntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("engine.interval_ms must be positive, got %d", c.Engine.IntervalMs))
	}
	if c.Engine.Workers <= 0 {
		errs = append(errs, fmt.Errorf("engine.workers must be positive, got %d", c.Engine.Workers))
	}
	if c.Engine.CooldownSeconds < 0 {
		errs = append(errs, fmt.Errorf("engine.cooldown_seconds must not be negative, got %d", c.Engine.CooldownSeconds))
	}
	if c.Trailing.ActivationPct <= 0 {
		errs = append(errs, fmt.Errorf("trailing.activation_pct must be positive, got %v", c.Trailing.ActivationPct))
	}
	if c.Trailing.FeeBufferPct < 0 {
		errs = append(errs, fmt.Errorf("trailing.fee_buffer_pct must not be negative, got %v", c.Trailing.FeeBufferPct))
	}
	if len(c.Trailing.Tiers) == 0 {
		errs = append(errs, errors.New("trailing.tiers must contain at least one tier"))
	}
	prev := 0.0
	for i, tier := range c.Trailing.Tiers {
		if tier.Ratio <= 0 || tier.Ratio > 1 {
			errs = append(errs, fmt.Errorf("trailing.tiers[%d].ratio must be in (0, 1], got %v", i, tier.Ratio))
		}
		last := i == len(c.Trailing.Tiers)-1
		if !last && tier.MaxHighPct <= prev {
			errs = append(errs, fmt.Errorf("trailing.tiers[%d].max_high_pct must increase, got %v", i, tier.MaxHighPct))
		}
		prev = tier.MaxHighPct
	}
	if c.Averaging.TriggerPct >= 0 {
		errs = append(errs, fmt.Errorf("averaging.trigger_pct must be negative, got %v", c.Averaging.TriggerPct))
	}
	if c.Hedge.SinglePositionThresholdPct >= 0 {
		errs = append(errs, fmt.Errorf("hedge.single_position_threshold_pct must be negative, got %v", c.Hedge.SinglePositionThresholdPct))
	}
	if c.Hedge.ProfitableActivationPct <= 0 {
		errs = append(errs, fmt.Errorf("hedge.profitable_activation_pct must be positive, got %v", c.Hedge.ProfitableActivationPct))
	}
	if c.ExtraClose.DeteriorationDeltaPct >= 0 {
		errs = append(errs, fmt.Errorf("extra_close.deterioration_delta_pct must be negative, got %v", c.ExtraClose.DeteriorationDeltaPct))
	}
	if c.ExtraClose.MaxLifetimeSeconds <= 0 {
		errs = append(errs, fmt.Errorf("extra_close.max_lifetime_seconds must be positive, got %d", c.ExtraClose.MaxLifetimeSeconds))
	}
	if c.Paper.FeeRate < 0 {
		errs = append(errs, fmt.Errorf("paper.fee_rate must not be negative, got %v", c.Paper.FeeRate))
	}
	return errors.Join(errs...)
}
