// Package config loads the quantbot YAML configuration, applies defaults and
// environment overrides, and validates the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file used when QUANTBOT_CONFIG is unset.
const DefaultPath = "config/quantbot.yaml"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for quantbot.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Server   Server         `yaml:"server"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Logging  Logging        `yaml:"logging"`
	Strategy StrategyConfig `yaml:"strategy"`
	Trading  TradingConfig  `yaml:"trading"`
	Ranking  RankingConfig  `yaml:"ranking"`
	Backtest BacktestConfig `yaml:"backtest"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds the status API listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Alpaca holds credentials and endpoints for the Alpaca APIs.
type Alpaca struct {
	APIKey          string `yaml:"api_key"`
	APISecret       string `yaml:"api_secret"`
	BaseURL         string `yaml:"base_url"`
	DataURL         string `yaml:"data_url"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	MaxRetries      int    `yaml:"max_retries"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StrategyConfig selects the strategy and its windows.
type StrategyConfig struct {
	Name           string `yaml:"name"`
	MomentumPeriod int    `yaml:"momentum_period"`
	ShortWindow    int    `yaml:"short_window"`
	LongWindow     int    `yaml:"long_window"`
}

// TradingConfig defines the live decision loop.
type TradingConfig struct {
	SellMode         string        `yaml:"sell_mode"`
	Budget           float64       `yaml:"budget"`
	TargetProfit     float64       `yaml:"target_profit"`
	StopLoss         float64       `yaml:"stop_loss"`
	PricePrecision   int32         `yaml:"price_precision"`
	LimitExitOnPrice bool          `yaml:"limit_exit_on_price"`
	Timeframe        string        `yaml:"timeframe"`
	BarLimit         int           `yaml:"bar_limit"`
	Workers          int           `yaml:"workers"`
	Interval         time.Duration `yaml:"interval"`
	CacheBars        bool          `yaml:"cache_bars"`
}

// RankingConfig controls universe selection.
type RankingConfig struct {
	QuoteSuffix string `yaml:"quote_suffix"`
	Top         int    `yaml:"top"`
	Workers     int    `yaml:"workers"`
}

// BacktestConfig controls the backtest tool.
type BacktestConfig struct {
	Timeframe string  `yaml:"timeframe"`
	BarLimit  int     `yaml:"bar_limit"`
	Screen    string  `yaml:"screen"`
	Threshold float64 `yaml:"threshold"`
	Limit     int     `yaml:"limit"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Path returns the configuration file path: $QUANTBOT_CONFIG or DefaultPath.
func Path() string {
	if v := os.Getenv("QUANTBOT_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads the YAML configuration file at the given path, loads a .env
// file from the working directory if present, applies environment variable
// overrides and defaults, and validates the result. A missing file at
// DefaultPath is not an error; defaults are used instead.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
	default:
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("QUANTBOT_STRATEGY"); v != "" {
		cfg.Strategy.Name = v
	}
	if v := os.Getenv("QUANTBOT_SELL_MODE"); v != "" {
		cfg.Trading.SellMode = v
	}
	if v := os.Getenv("QUANTBOT_BUDGET"); v != "" {
		b, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("QUANTBOT_BUDGET: %w", err)
		}
		cfg.Trading.Budget = b
	}

	// Standard Alpaca env vars (canonical names used by the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	setDefault(&c.Storage.DataDir, "data")
	setDefault(&c.Storage.SQLitePath, "data/quantbot.db")

	setDefault(&c.Server.Host, "127.0.0.1")
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}

	if c.Alpaca.RateLimitPerMin == 0 {
		c.Alpaca.RateLimitPerMin = 200
	}
	if c.Alpaca.MaxRetries == 0 {
		c.Alpaca.MaxRetries = 3
	}

	setDefault(&c.Logging.Level, "info")
	setDefault(&c.Logging.Format, "json")

	setDefault(&c.Strategy.Name, "momentum")
	if c.Strategy.MomentumPeriod == 0 {
		c.Strategy.MomentumPeriod = 14
	}
	if c.Strategy.ShortWindow == 0 {
		c.Strategy.ShortWindow = 10
	}
	if c.Strategy.LongWindow == 0 {
		c.Strategy.LongWindow = 30
	}

	setDefault(&c.Trading.SellMode, "realtime")
	if c.Trading.Budget == 0 {
		c.Trading.Budget = 1000
	}
	if c.Trading.TargetProfit == 0 {
		c.Trading.TargetProfit = 0.05
	}
	if c.Trading.StopLoss == 0 {
		c.Trading.StopLoss = 0.02
	}
	if c.Trading.PricePrecision == 0 {
		c.Trading.PricePrecision = 12
	}
	setDefault(&c.Trading.Timeframe, "1Min")
	if c.Trading.BarLimit == 0 {
		c.Trading.BarLimit = 100
	}
	if c.Trading.Workers == 0 {
		c.Trading.Workers = 1
	}

	setDefault(&c.Ranking.QuoteSuffix, "/USD")
	if c.Ranking.Top == 0 {
		c.Ranking.Top = 5
	}
	if c.Ranking.Workers == 0 {
		c.Ranking.Workers = 4
	}

	setDefault(&c.Backtest.Timeframe, "1Hour")
	if c.Backtest.BarLimit == 0 {
		c.Backtest.BarLimit = 1000
	}
	setDefault(&c.Backtest.Screen, "gainers")
	if c.Backtest.Threshold == 0 {
		c.Backtest.Threshold = 5
	}
	if c.Backtest.Limit == 0 {
		c.Backtest.Limit = 10
	}
}

func setDefault(field *string, v string) {
	if *field == "" {
		*field = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Strategy.Name) {
	case "momentum", "crossover":
	default:
		return fmt.Errorf("strategy.name: unknown strategy %q", c.Strategy.Name)
	}
	if c.Strategy.MomentumPeriod < 1 {
		return fmt.Errorf("strategy.momentum_period must be positive, got %d", c.Strategy.MomentumPeriod)
	}
	if c.Strategy.ShortWindow < 1 || c.Strategy.ShortWindow >= c.Strategy.LongWindow {
		return fmt.Errorf("strategy windows must satisfy 0 < short < long, got %d/%d",
			c.Strategy.ShortWindow, c.Strategy.LongWindow)
	}

	switch strings.ToLower(c.Trading.SellMode) {
	case "realtime", "limit":
	default:
		return fmt.Errorf("trading.sell_mode: unknown mode %q", c.Trading.SellMode)
	}
	if c.Trading.Budget <= 0 {
		return fmt.Errorf("trading.budget must be positive, got %v", c.Trading.Budget)
	}
	if c.Trading.TargetProfit <= 0 || c.Trading.StopLoss <= 0 || c.Trading.StopLoss >= 1 {
		return fmt.Errorf("trading exit fractions out of range: target %v stop %v",
			c.Trading.TargetProfit, c.Trading.StopLoss)
	}
	if c.Trading.Interval < 0 {
		return fmt.Errorf("trading.interval must not be negative")
	}

	if c.Ranking.Top < 1 {
		return fmt.Errorf("ranking.top must be positive, got %d", c.Ranking.Top)
	}

	switch strings.ToLower(c.Backtest.Screen) {
	case "gainers", "volatile":
	default:
		return fmt.Errorf("backtest.screen: unknown screen %q", c.Backtest.Screen)
	}
	return nil
}
