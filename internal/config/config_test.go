package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Metrics.FreshHours != 72 || cfg.Metrics.MinVideosPerTag != 2 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if got := cfg.Schedule.ParseCollectInterval(); got != time.Hour {
		t.Errorf("collect interval = %v, want 1h", got)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ytradar.yaml")
	data := `
database:
  path: /tmp/x.db
metrics:
  fresh_hours: 24
filter:
  extra_stop_tags: [promo]
sources:
  feeds:
    enabled: true
    channels:
      - url: https://example.com/feed
        category_id: "10"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("YTRADAR_LOG_LEVEL", "debug")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.example.com/x")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/tmp/x.db" || cfg.Metrics.FreshHours != 24 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Metrics.MinVideosPerTag != 2 {
		t.Errorf("unset values must keep defaults, got %d", cfg.Metrics.MinVideosPerTag)
	}
	if len(cfg.Filter.ExtraStopTags) != 1 || len(cfg.Sources.Feeds.Channels) != 1 {
		t.Errorf("lists not parsed: %+v", cfg)
	}
	if cfg.Log.Level != "debug" || !cfg.Alerts.Slack.Enabled {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"fresh hours", func(c *Config) { c.Metrics.FreshHours = 0 }},
		{"min videos", func(c *Config) { c.Metrics.MinVideosPerTag = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
