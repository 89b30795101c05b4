// Package config loads backtest settings from defaults, an optional YAML file,
// an optional .env file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dorjee9/algotrade-simple/internal/backtest"
	"github.com/dorjee9/algotrade-simple/internal/model"
)

// Data sources understood by the drivers.
const (
	SourceYahoo  = "yahoo"
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	// Run
	Symbol      string  `yaml:"symbol"`
	Start       string  `yaml:"start"` // YYYY-MM-DD, inclusive
	End         string  `yaml:"end"`   // YYYY-MM-DD, exclusive
	FastWindow  int     `yaml:"fast_window"`
	SlowWindow  int     `yaml:"slow_window"`
	InitialCash float64 `yaml:"initial_cash"`
	FeePerTrade float64 `yaml:"fee_per_trade"`
	SlippagePct float64 `yaml:"slippage_pct"`

	// Data
	DataSource string `yaml:"data_source"` // yahoo | csv | sqlite
	CSVPath    string `yaml:"csv_path"`
	YahooURL   string `yaml:"yahoo_url"`

	// Infrastructure
	SQLitePath    string        `yaml:"sqlite_path"`
	RedisAddr     string        `yaml:"redis_addr"` // empty disables the bar cache
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`
	MetricsAddr   string        `yaml:"metrics_addr"`
	APIAddr       string        `yaml:"api_addr"`
	WebhookURL    string        `yaml:"webhook_url"`

	// Output
	LogLevel  string `yaml:"log_level"`
	ChartPath string `yaml:"chart_path"`
	JSONPath  string `yaml:"json_path"`
	CSVOut    string `yaml:"csv_out"`
}

// Default returns the built-in configuration: AAPL 2022-2024, SMA 20/50, 100k.
func Default() *Config {
	p := backtest.DefaultParams()
	return &Config{
		Symbol:      "AAPL",
		Start:       "2022-01-01",
		End:         "2024-12-31",
		FastWindow:  p.FastWindow,
		SlowWindow:  p.SlowWindow,
		InitialCash: p.InitialCash,
		FeePerTrade: p.FeePerTrade,
		SlippagePct: p.SlippagePct,

		DataSource: SourceYahoo,
		YahooURL:   "https://query1.finance.yahoo.com",

		SQLitePath:  "data/bars.db",
		RedisTTL:    6 * time.Hour,
		MetricsAddr: ":9090",
		APIAddr:     ":8080",
		LogLevel:    "info",
	}
}

// Load builds a Config. A missing .env is ignored; a missing YAML file at an
// explicit path is an error. path may be empty, in which case CONFIG_PATH is used.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // best-effort

	cfg := Default()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(c); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Symbol = getEnv("BT_SYMBOL", c.Symbol)
	c.Start = getEnv("BT_START", c.Start)
	c.End = getEnv("BT_END", c.End)
	c.DataSource = getEnv("DATA_SOURCE", c.DataSource)
	c.CSVPath = getEnv("CSV_PATH", c.CSVPath)
	c.YahooURL = getEnv("YAHOO_URL", c.YahooURL)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.MetricsAddr = getEnv("METRICS_ADDR", c.MetricsAddr)
	c.APIAddr = getEnv("API_ADDR", c.APIAddr)
	c.WebhookURL = getEnv("WEBHOOK_URL", c.WebhookURL)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.ChartPath = getEnv("CHART_PATH", c.ChartPath)

	var errs []error
	errs = append(errs,
		envInt("BT_FAST", &c.FastWindow),
		envInt("BT_SLOW", &c.SlowWindow),
		envFloat("BT_CASH", &c.InitialCash),
		envFloat("BT_FEE", &c.FeePerTrade),
		envFloat("BT_SLIPPAGE", &c.SlippagePct),
		envInt("REDIS_DB", &c.RedisDB),
		envDuration("REDIS_TTL", &c.RedisTTL),
	)
	return errors.Join(errs...)
}

// Params returns the backtest parameters of c.
func (c *Config) Params() backtest.Params {
	return backtest.Params{
		FastWindow:  c.FastWindow,
		SlowWindow:  c.SlowWindow,
		InitialCash: c.InitialCash,
		FeePerTrade: c.FeePerTrade,
		SlippagePct: c.SlippagePct,
	}
}

// Range parses Start and End.
func (c *Config) Range() (from, to time.Time, err error) {
	return ParseRange(c.Start, c.End)
}

// Validate checks the run settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Symbol) == "" {
		return errors.New("config: symbol is required")
	}
	if _, _, err := c.Range(); err != nil {
		return err
	}
	switch c.DataSource {
	case SourceYahoo, SourceSQLite:
	case SourceCSV:
		if c.CSVPath == "" {
			return errors.New("config: csv_path is required for data_source=csv")
		}
	default:
		return fmt.Errorf("config: unknown data_source %q", c.DataSource)
	}
	return c.Params().Validate()
}

// ParseRange parses a YYYY-MM-DD date pair. to must be after from.
func ParseRange(start, end string) (from, to time.Time, err error) {
	from, err = time.Parse(model.DateLayout, start)
	if err != nil {
		return from, to, fmt.Errorf("config: start date %q: %w", start, err)
	}
	to, err = time.Parse(model.DateLayout, end)
	if err != nil {
		return from, to, fmt.Errorf("config: end date %q: %w", end, err)
	}
	if !to.After(from) {
		return from, to, fmt.Errorf("config: end %s is not after start %s", end, start)
	}
	return from, to, nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = f
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = d
	return nil
}
