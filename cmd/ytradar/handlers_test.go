package main

import (
	"testing"

	"github.com/elonfeng/ytradar/internal/config"
	"github.com/elonfeng/ytradar/internal/logging"
	"github.com/elonfeng/ytradar/pkg/snapshot"
)

func TestBuildParamsOverrides(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.FreshHours = 48
	cfg.Metrics.MinVideosPerTag = 3

	tests := []struct {
		name      string
		opts      queryOpts
		wantFresh float64
		wantMin   int
	}{
		{"config", queryOpts{}, 48, 3},
		{"fresh flag", queryOpts{freshHours: 24}, 24, 3},
		{"both flags", queryOpts{freshHours: 12, minVideosPerTag: 5}, 12, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := buildParams(cfg, tt.opts)
			if p.FreshHours != tt.wantFresh || p.MinVideosPerTag != tt.wantMin {
				t.Errorf("params = %+v, want fresh %v min %d", p, tt.wantFresh, tt.wantMin)
			}
		})
	}
}

func TestGrowthOptsFilter(t *testing.T) {
	g := growthOpts{categories: []string{"10"}, shorts: "long", minDelta: 100}
	f := g.filter()
	if len(f.CategoryIDs) != 1 || f.CategoryIDs[0] != "10" {
		t.Errorf("CategoryIDs = %v", f.CategoryIDs)
	}
	if f.Shorts != snapshot.ShortsLong {
		t.Errorf("Shorts = %q, want long", f.Shorts)
	}
	if f.MinViewsDelta != 100 {
		t.Errorf("MinViewsDelta = %d", f.MinViewsDelta)
	}
	if got := (growthOpts{shorts: "bogus"}).filter().Shorts; got != snapshot.ShortsAll {
		t.Errorf("unknown shorts value = %q, want all", got)
	}
}

func TestBuildSources(t *testing.T) {
	cfg := config.Default()
	cfg.Sources.YouTube.Enabled = false
	cfg.Sources.Feeds.Enabled = false
	if got := buildSources(cfg, logging.Discard()); len(got) != 0 {
		t.Fatalf("sources = %d, want 0", len(got))
	}

	cfg.Sources.YouTube.Enabled = true
	cfg.Sources.Feeds.Enabled = true
	cfg.Sources.Feeds.Channels = []config.ChannelFeed{{URL: "http://example.com/feed", CategoryID: "10", CategoryName: "Music"}}
	got := buildSources(cfg, logging.Discard())
	if len(got) != 2 {
		t.Fatalf("sources = %d, want 2", len(got))
	}
	if got[0].Name() != "youtube" || got[1].Name() != "feed" {
		t.Errorf("names = %s, %s", got[0].Name(), got[1].Name())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo world", 5); got != "héllo..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
}
