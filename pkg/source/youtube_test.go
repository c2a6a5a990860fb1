package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/elonfeng/ytradar/pkg/topic"
)

var captureAt = time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC)

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"PT45S", 45},
		{"PT1M2S", 62},
		{"PT1H", 3600},
		{"P1DT2H", 93600},
		{"P0D", 0},
		{"", 0},
		{"1:02", 0},
	}
	for _, tt := range tests {
		if got := ParseISODuration(tt.in); got != tt.want {
			t.Errorf("ParseISODuration(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestYouTubeCollect(t *testing.T) {
	var pages int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "k" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch r.URL.Path {
		case "/videoCategories":
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{{"id": "10", "snippet": map[string]any{"title": "Music"}}},
			})
		case "/videos":
			if r.URL.Query().Get("chart") != "mostPopular" || r.URL.Query().Get("videoCategoryId") != "10" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			pages++
			if r.URL.Query().Get("pageToken") == "" {
				json.NewEncoder(w).Encode(map[string]any{
					"nextPageToken": "p2",
					"items": []map[string]any{{
						"id": "v1",
						"snippet": map[string]any{
							"title":        "New song #Rock",
							"description":  "tour #guitar",
							"channelTitle": "Band",
							"publishedAt":  "2025-11-20T00:00:00Z",
							"tags":         []string{"rock", "Covers"},
						},
						"contentDetails": map[string]any{"duration": "PT3M30S"},
						"statistics":     map[string]any{"viewCount": "200000"},
					}},
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{{
					"id":             "v2",
					"snippet":        map[string]any{"title": "clip", "publishedAt": "2025-11-19T10:00:00Z"},
					"contentDetails": map[string]any{"duration": "PT40S"},
					"statistics":     map[string]any{"viewCount": "4800"},
				}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	yt := NewYouTube(YouTubeOptions{
		APIKey:      "k",
		BaseURL:     srv.URL,
		Categories:  []string{"10"},
		PerCategory: 10,
	}, discardLogger())

	records, err := yt.Collect(context.Background(), captureAt)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if pages != 2 {
		t.Errorf("fetched %d pages, want 2", pages)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	v1 := records[0]
	if v1.ItemID != "v1" || v1.CategoryName != "Music" || v1.Views != 200000 || v1.DurationSec != 210 {
		t.Errorf("v1 = %+v", v1)
	}
	if v1.ViewsPerHour != 20000 || v1.IsShort {
		t.Errorf("v1 velocity/short = %v %v", v1.ViewsPerHour, v1.IsShort)
	}
	merged := topic.Merge(v1.TagFields...)
	for _, want := range []string{"rock", "covers", "guitar"} {
		if !merged.Contains(want) {
			t.Errorf("topics %v missing %q", merged, want)
		}
	}

	v2 := records[1]
	if !v2.IsShort || v2.ViewsPerHour != 200 || !v2.SnapshotTS.Equal(captureAt) {
		t.Errorf("v2 = %+v", v2)
	}
}

func TestYouTubeRequiresKey(t *testing.T) {
	yt := NewYouTube(YouTubeOptions{Categories: []string{"10"}}, discardLogger())
	if _, err := yt.Collect(context.Background(), captureAt); err == nil {
		t.Error("expected error without API key")
	}
}
