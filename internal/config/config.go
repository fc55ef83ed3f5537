package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"PatternSentinel/internal/collector"
	"PatternSentinel/internal/model"
	"PatternSentinel/internal/output"
	"PatternSentinel/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Provider     string `yaml:"provider"` // eastmoney, yahoo, rest, mock
		BaseURL      string `yaml:"base_url"`
		APIKey       string `yaml:"api_key"`
		Period       string `yaml:"period"`
		LookbackDays int    `yaml:"lookback_days"`
	} `yaml:"data_source"`
	Universe struct {
		File string `yaml:"file"`
	} `yaml:"universe"`
	Output struct {
		Dir          string `yaml:"dir"`
		Append       bool   `yaml:"append"`
		ExportFormat string `yaml:"export_format"`
		ExportDir    string `yaml:"export_dir"`
	} `yaml:"output"`
	Runner struct {
		Concurrency int           `yaml:"concurrency"`
		Delay       time.Duration `yaml:"delay"`
	} `yaml:"runner"`
	Exclusion strategy.Exclusion `yaml:"exclusion"`
	Detectors Detectors          `yaml:"detectors"`
	Schedule  struct {
		ScanCron string `yaml:"scan_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	State struct {
		File string `yaml:"file"`
	} `yaml:"state"`
	Cache struct {
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		RedisDB       int           `yaml:"redis_db"`
		TTL           time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Telegram struct {
		BotToken       string `yaml:"bot_token"`
		ChatID         string `yaml:"chat_id"`
		MaxPerCategory int    `yaml:"max_per_category"`
	} `yaml:"telegram"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Dir    string `yaml:"dir"` // per-symbol log files; empty logs to console only
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Detectors selects the categories to run and their thresholds.
type Detectors struct {
	// Enabled lists category codes or labels; empty keeps the defaults.
	Enabled         []string `yaml:"enabled"`
	strategy.Params `yaml:",inline"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	// Nested detector and exclusion settings start from the production
	// values so a file only needs to name what it changes.
	cfg.Detectors.Params = strategy.DefaultParams()
	cfg.Exclusion = strategy.DefaultExclusion()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("UNIVERSE_FILE"); v != "" {
		cfg.Universe.File = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("SCAN_CRON"); v != "" {
		cfg.Schedule.ScanCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("RUNNER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Runner.Concurrency = n
		}
	}

	// Defaults
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "eastmoney"
	}
	if cfg.DataSource.Period == "" {
		cfg.DataSource.Period = string(collector.PeriodDaily)
	}
	if cfg.DataSource.LookbackDays == 0 {
		cfg.DataSource.LookbackDays = 250
	}
	if cfg.Universe.File == "" {
		cfg.Universe.File = "data/stocks.json"
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "data/output"
	}
	if cfg.Output.ExportDir == "" {
		cfg.Output.ExportDir = "data/export"
	}
	if cfg.Runner.Concurrency == 0 {
		cfg.Runner.Concurrency = 4
	}
	if cfg.Runner.Delay == 0 {
		cfg.Runner.Delay = 300 * time.Millisecond
	}
	if cfg.Schedule.ScanCron == "" {
		cfg.Schedule.ScanCron = "0 30 15 * * 1-5"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/pattern_sentinel.db"
	}
	if cfg.State.File == "" {
		cfg.State.File = "data/scan_state.json"
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 4 * time.Hour
	}
	if cfg.Telegram.MaxPerCategory == 0 {
		cfg.Telegram.MaxPerCategory = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	return cfg, nil
}

// Validate checks that all settings are usable.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "eastmoney", "yahoo", "mock":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not one of eastmoney, yahoo, rest, mock", c.DataSource.Provider)
	}
	if _, err := c.Period(); err != nil {
		return fmt.Errorf("data_source.period: %w", err)
	}
	if c.DataSource.LookbackDays < 0 {
		return fmt.Errorf("data_source.lookback_days must not be negative")
	}
	if c.Output.ExportFormat != "" {
		if _, err := output.NewExporter(c.Output.ExportFormat); err != nil {
			return fmt.Errorf("output.export_format: %w", err)
		}
	}
	if c.Runner.Concurrency < 1 {
		return fmt.Errorf("runner.concurrency must be at least 1")
	}
	if c.Runner.Delay < 0 {
		return fmt.Errorf("runner.delay must not be negative")
	}
	if c.Exclusion.MinBars < 0 {
		return fmt.Errorf("exclusion.min_bars must not be negative")
	}
	if _, err := c.EnabledCategories(); err != nil {
		return fmt.Errorf("detectors.enabled: %w", err)
	}
	if err := c.Detectors.Params.Validate(); err != nil {
		return err
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Schedule.ScanCron); err != nil {
		return fmt.Errorf("schedule.scan_cron: %w", err)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// Period returns the parsed bar period.
func (c *Config) Period() (collector.Period, error) {
	return collector.ParsePeriod(c.DataSource.Period)
}

// EnabledCategories parses detectors.enabled. Nil means the defaults.
func (c *Config) EnabledCategories() ([]model.Category, error) {
	var out []model.Category
	for _, name := range c.Detectors.Enabled {
		cat, err := model.ParseCategory(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		if cat == model.NoMatch {
			return nil, fmt.Errorf("%s cannot be enabled", model.NoMatch)
		}
		out = append(out, cat)
	}
	return out, nil
}

// TelegramEnabled reports whether reports and commands go to Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
