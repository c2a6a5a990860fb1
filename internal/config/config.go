package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	DataDir  string         `yaml:"data_dir"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Sources  SourcesConfig  `yaml:"sources"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Server   ServerConfig   `yaml:"server"`
	Filter   FilterConfig   `yaml:"filter"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig configures snapshot storage. Driver is "sqlite" or
// "postgres"; Path is a file path for sqlite and a DSN for postgres.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// ScheduleConfig configures capture intervals.
type ScheduleConfig struct {
	CollectInterval string `yaml:"collect_interval"`
}

// ParseCollectInterval returns the collect interval as time.Duration.
func (s ScheduleConfig) ParseCollectInterval() time.Duration {
	d, err := time.ParseDuration(s.CollectInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// SourcesConfig holds configuration for all collectors.
type SourcesConfig struct {
	YouTube YouTubeConfig `yaml:"youtube"`
	Feeds   FeedsConfig   `yaml:"feeds"`
}

// YouTubeConfig for the trending chart collector.
type YouTubeConfig struct {
	Enabled           bool     `yaml:"enabled"`
	APIKey            string   `yaml:"api_key"`
	BaseURL           string   `yaml:"base_url"`
	Region            string   `yaml:"region"`
	Categories        []string `yaml:"categories"`
	PerCategory       int      `yaml:"per_category"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
}

// FeedsConfig for the channel feed collector.
type FeedsConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Channels []ChannelFeed `yaml:"channels"`
}

// ChannelFeed is one channel feed and the category its items belong to.
type ChannelFeed struct {
	URL          string `yaml:"url"`
	CategoryID   string `yaml:"category_id"`
	CategoryName string `yaml:"category_name"`
}

// MetricsConfig holds the metric parameters.
type MetricsConfig struct {
	FreshHours      float64 `yaml:"fresh_hours"`
	MinVideosPerTag int     `yaml:"min_videos_per_tag"`
}

// AlertsConfig configures alert destinations.
type AlertsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// FilterConfig extends the built-in tag stop lists.
type FilterConfig struct {
	ExtraStopTags       []string `yaml:"extra_stop_tags"`
	ExtraStopSubstrings []string `yaml:"extra_stop_substrings"`
}

// LogConfig configures logging. An empty File logs to stderr.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "sqlite", Path: "./ytradar.db"},
		DataDir:  "./data",
		Schedule: ScheduleConfig{CollectInterval: "1h"},
		Sources: SourcesConfig{
			YouTube: YouTubeConfig{
				Enabled:           false,
				BaseURL:           "https://www.googleapis.com/youtube/v3",
				Region:            "US",
				Categories:        []string{"1", "10", "17", "20", "22", "24", "25", "28"},
				PerCategory:       150,
				RequestsPerSecond: 5,
			},
		},
		Metrics: MetricsConfig{FreshHours: 72, MinVideosPerTag: 2},
		Alerts:  AlertsConfig{},
		Server:  ServerConfig{Port: 8080},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted silently.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Metrics.FreshHours <= 0 {
		return fmt.Errorf("metrics.fresh_hours must be positive, got %v", c.Metrics.FreshHours)
	}
	if c.Metrics.MinVideosPerTag < 1 {
		return fmt.Errorf("metrics.min_videos_per_tag must be at least 1, got %d", c.Metrics.MinVideosPerTag)
	}
	return nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("YTRADAR_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("YTRADAR_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("YTRADAR_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("YTRADAR_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		cfg.Sources.YouTube.APIKey = v
		cfg.Sources.YouTube.Enabled = true
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
}
