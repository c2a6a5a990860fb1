package snapshot

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/elonfeng/ytradar/pkg/topic"
)

func TestWriteDirRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2025, 11, 20, 10, 30, 0, 0, time.UTC)

	records := []ItemRecord{
		{
			ItemID: "v1", SnapshotTS: ts, CategoryID: "10", CategoryName: "Music",
			Title: "Song, live", Views: 1200, ViewsPerHour: 120,
			PublishedAt: ts.Add(-10 * time.Hour), DurationSec: 30, IsShort: true,
			TagFields: []topic.RawTagField{
				topic.ListField(topic.FieldTagsAPI, []string{"rock", "guitar"}),
				topic.TextField(topic.FieldHashtags, `["#rock"]`),
			},
		},
		{
			ItemID: "v2", SnapshotTS: ts, CategoryID: "20", Views: 5,
			ViewsPerHour: math.NaN(),
		},
	}

	paths, err := WriteDir(dir, records)
	if err != nil {
		t.Fatalf("WriteDir: %v", err)
	}
	if len(paths) != 2 || filepath.Base(paths[0]) != "ytcat_10_20251120_103000.csv" {
		t.Fatalf("paths = %v", paths)
	}

	got, err := LoadDir(dir, nil)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d records, want 2", len(got))
	}

	table := NewTable(got)
	music := table.InCategory(ts, "10")
	if len(music) != 1 {
		t.Fatalf("music records = %d", len(music))
	}
	v1 := music[0]
	if v1.Title != "Song, live" || v1.Views != 1200 || v1.ViewsPerHour != 120 || !v1.IsShort {
		t.Errorf("v1 = %+v", v1)
	}
	if !v1.PublishedAt.Equal(ts.Add(-10 * time.Hour)) {
		t.Errorf("published = %v", v1.PublishedAt)
	}
	if !v1.Topics.Contains("rock") || !v1.Topics.Contains("guitar") {
		t.Errorf("topics = %v", v1.Topics)
	}

	v2 := table.InCategory(ts, "20")[0]
	if !math.IsNaN(v2.ViewsPerHour) || !v2.PublishedAt.IsZero() {
		t.Errorf("missing values not preserved: %+v", v2)
	}
}
