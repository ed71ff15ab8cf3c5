package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the runtime settings loaded from the environment and .env files.
// Feed URL and destination accounts live in the document at ConfigFile.
type Config struct {
	AppName       string `mapstructure:"app_name"`
	LogLevel      string `mapstructure:"log_level"`
	ConfigFile    string `mapstructure:"config_file"`
	LedgerType    string `mapstructure:"ledger_type"`
	LedgerPath    string `mapstructure:"ledger_path"`
	FeedLimit     int    `mapstructure:"feed_limit"`
	SummaryMaxLen int    `mapstructure:"summary_max_len"`

	PollIntervalSeconds int64         `mapstructure:"poll_interval"`
	HTTPTimeoutSeconds  int64         `mapstructure:"http_timeout"`
	ImageTimeoutSeconds int64         `mapstructure:"image_timeout"`
	PollInterval        time.Duration `mapstructure:"-"`
	HTTPTimeout         time.Duration `mapstructure:"-"`
	ImageTimeout        time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and the optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()

	v.SetDefault("app_name", "rss2social")
	v.SetDefault("log_level", "info")
	v.SetDefault("config_file", "./config.json")
	v.SetDefault("ledger_type", "json")
	v.SetDefault("ledger_path", "./posted_urls.json")
	v.SetDefault("feed_limit", 5)
	v.SetDefault("summary_max_len", 50)
	v.SetDefault("poll_interval", 0) // seconds; 0 runs a single pass
	v.SetDefault("http_timeout", 15)
	v.SetDefault("image_timeout", 10)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.ConfigFile = strings.TrimSpace(c.ConfigFile)
	if c.ConfigFile == "" {
		return fmt.Errorf("config_file must not be empty")
	}
	c.LedgerType = strings.ToLower(strings.TrimSpace(c.LedgerType))
	c.LedgerPath = strings.TrimSpace(c.LedgerPath)

	if c.FeedLimit <= 0 {
		return fmt.Errorf("invalid feed_limit (must be positive)")
	}
	if c.SummaryMaxLen <= 0 {
		return fmt.Errorf("invalid summary_max_len (must be positive)")
	}
	if c.PollIntervalSeconds < 0 {
		return fmt.Errorf("invalid poll_interval (must be zero or positive seconds)")
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid http_timeout (must be positive seconds)")
	}
	if c.ImageTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid image_timeout (must be positive seconds)")
	}

	c.PollInterval = time.Duration(c.PollIntervalSeconds) * time.Second
	c.HTTPTimeout = time.Duration(c.HTTPTimeoutSeconds) * time.Second
	c.ImageTimeout = time.Duration(c.ImageTimeoutSeconds) * time.Second
	return nil
}
