// Package config loads pricebook settings from defaults, a YAML file, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no explicit configuration file is given and it exists.
const DefaultFile = "pricebook.yaml"

// App captures process-wide runtime settings.
type App struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
}

// Data locates the persisted tables. Relative file names are resolved against Dir.
type Data struct {
	Dir        string `yaml:"dir"`
	SymbolMap  string `yaml:"symbol_map"`
	History    string `yaml:"history"`
	Missing    string `yaml:"missing"`
	NAVHistory string `yaml:"nav_history"`
}

// Yahoo configures the equity quote adapter.
type Yahoo struct {
	QuoteURL          string        `yaml:"quote_url"`
	ChartURL          string        `yaml:"chart_url"`
	ChunkSize         int           `yaml:"chunk_size"`
	Concurrency       int           `yaml:"concurrency"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	Suffix            string        `yaml:"suffix"`
	Location          string        `yaml:"location"`
}

// AMFI configures the mutual fund NAV adapter.
type AMFI struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Metrics configures the optional Pushgateway export.
type Metrics struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// Events configures the optional run notifications.
type Events struct {
	NATSURL         string `yaml:"nats_url"`
	Subject         string `yaml:"subject"`
	SlackWebhookURL string `yaml:"slack_webhook_url"`
}

// Postgres configures the optional price history mirror.
type Postgres struct {
	URL   string `yaml:"url"`
	Table string `yaml:"table"`
}

// Config collects every configuration leaf.
type Config struct {
	App      App      `yaml:"app"`
	Data     Data     `yaml:"data"`
	Yahoo    Yahoo    `yaml:"yahoo"`
	AMFI     AMFI     `yaml:"amfi"`
	Metrics  Metrics  `yaml:"metrics"`
	Events   Events   `yaml:"events"`
	Postgres Postgres `yaml:"postgres"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		App: App{Env: "dev", LogLevel: "info"},
		Data: Data{
			Dir:        "data",
			SymbolMap:  "master_equity_map.csv",
			History:    "price_history.csv",
			Missing:    "missing_prices.csv",
			NAVHistory: "mf_nav_history.csv",
		},
		Yahoo: Yahoo{
			QuoteURL:          "https://query2.finance.yahoo.com",
			ChartURL:          "https://query1.finance.yahoo.com/v8/finance/chart",
			ChunkSize:         50,
			Concurrency:       4,
			Timeout:           15 * time.Second,
			RequestsPerSecond: 5,
			Burst:             5,
			Suffix:            ".NS",
			Location:          "Asia/Kolkata",
		},
		AMFI: AMFI{
			URL:     "https://www.amfiindia.com/spages/NAVAll.txt",
			Timeout: 30 * time.Second,
		},
		Metrics: Metrics{Job: "pricebook"},
		Events:  Events{Subject: "evt.pricebook.run.completed.v1"},
		Postgres: Postgres{
			Table: "price_history",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (or DefaultFile when
// path is empty and the file exists), then .env and environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.decodeFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// a missing .env is the normal case
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(c); err != nil {
		return fmt.Errorf("decode yaml %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.App.Env = GetEnv("ENV", c.App.Env)
	c.App.LogLevel = GetEnv("LOG_LEVEL", c.App.LogLevel)

	c.Data.Dir = GetEnv("PRICEBOOK_DATA_DIR", c.Data.Dir)
	c.Data.SymbolMap = GetEnv("PRICEBOOK_SYMBOL_MAP", c.Data.SymbolMap)
	c.Data.History = GetEnv("PRICEBOOK_HISTORY", c.Data.History)
	c.Data.Missing = GetEnv("PRICEBOOK_MISSING", c.Data.Missing)
	c.Data.NAVHistory = GetEnv("PRICEBOOK_NAV_HISTORY", c.Data.NAVHistory)

	c.Yahoo.QuoteURL = GetEnv("PRICEBOOK_YAHOO_QUOTE_URL", c.Yahoo.QuoteURL)
	c.Yahoo.ChartURL = GetEnv("PRICEBOOK_YAHOO_CHART_URL", c.Yahoo.ChartURL)
	c.Yahoo.ChunkSize = GetEnvInt("PRICEBOOK_YAHOO_CHUNK_SIZE", c.Yahoo.ChunkSize)
	c.Yahoo.Concurrency = GetEnvInt("PRICEBOOK_YAHOO_CONCURRENCY", c.Yahoo.Concurrency)
	c.Yahoo.Timeout = GetEnvDuration("PRICEBOOK_YAHOO_TIMEOUT", c.Yahoo.Timeout)
	c.Yahoo.RequestsPerSecond = GetEnvFloat("PRICEBOOK_YAHOO_RPS", c.Yahoo.RequestsPerSecond)
	c.Yahoo.Burst = GetEnvInt("PRICEBOOK_YAHOO_BURST", c.Yahoo.Burst)
	c.Yahoo.Suffix = GetEnv("PRICEBOOK_SYMBOL_SUFFIX", c.Yahoo.Suffix)
	c.Yahoo.Location = GetEnv("PRICEBOOK_MARKET_TZ", c.Yahoo.Location)

	c.AMFI.URL = GetEnv("PRICEBOOK_AMFI_URL", c.AMFI.URL)
	c.AMFI.Timeout = GetEnvDuration("PRICEBOOK_AMFI_TIMEOUT", c.AMFI.Timeout)

	c.Metrics.PushgatewayURL = GetEnv("PUSHGATEWAY_URL", c.Metrics.PushgatewayURL)
	c.Metrics.Job = GetEnv("PUSHGATEWAY_JOB", c.Metrics.Job)

	c.Events.NATSURL = GetEnv("NATS_URL", c.Events.NATSURL)
	c.Events.Subject = GetEnv("NATS_SUBJECT", c.Events.Subject)
	c.Events.SlackWebhookURL = GetEnv("SLACK_WEBHOOK_URL", c.Events.SlackWebhookURL)

	c.Postgres.URL = GetEnv("DATABASE_URL", c.Postgres.URL)
	c.Postgres.Table = GetEnv("PRICEBOOK_PG_TABLE", c.Postgres.Table)
}

// Validate reports settings that would make a run misbehave.
func (c *Config) Validate() error {
	var errs []error
	if c.Yahoo.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("yahoo.chunk_size must be positive, got %d", c.Yahoo.ChunkSize))
	}
	if c.Yahoo.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("yahoo.concurrency must be positive, got %d", c.Yahoo.Concurrency))
	}
	if _, err := time.LoadLocation(c.Yahoo.Location); err != nil {
		errs = append(errs, fmt.Errorf("yahoo.location: %w", err))
	}
	if c.Data.Dir == "" {
		errs = append(errs, errors.New("data.dir is required"))
	}
	return errors.Join(errs...)
}

// Path resolves a data file name against the data directory.
func (c *Config) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Data.Dir, name)
}

// MarketLocation returns the time zone used to turn quote timestamps into days.
func (c *Config) MarketLocation() *time.Location {
	loc, err := time.LoadLocation(c.Yahoo.Location)
	if err != nil {
		return time.UTC
	}
	return loc
}
