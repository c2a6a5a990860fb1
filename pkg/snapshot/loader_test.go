package snapshot

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

const sampleCSV = `video_id,title,channel_title,category_id,category_name,views,views_per_hour,published_at,duration_sec,from_shorts,tags_api_raw,hashtags_extracted
v1,First,Chan,10,Music,200000,10000,2025-11-20T00:00:00Z,240,0,"[""rock"", ""Covers""]","[""#rock""]"
v2,Second,Chan,,Music,oops,n/a,not a date,30,1,plain tag,
`

func TestReadCSVKeepsRowsAroundMalformedOnes(t *testing.T) {
	const input = "video_id,views,tags_api_raw\n" +
		"a,100,rock\n" +
		"b\"x,20\"0,jazz\n" +
		"c\n" +
		"d,400,metal,extra,cells\n" +
		"e,500,\"[\"\"pop\"\"\n"

	records, err := ReadCSV(strings.NewReader(input), "10", time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}

	want := []struct {
		id    string
		views int64
	}{
		{"a", 100},
		{"b\"x", 0},
		{"c", 0},
		{"d", 400},
		{"e", 500},
	}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d: %+v", len(records), len(want), records)
	}
	for i, w := range want {
		if records[i].ItemID != w.id || records[i].Views != w.views {
			t.Errorf("record %d = %q/%d, want %q/%d", i, records[i].ItemID, records[i].Views, w.id, w.views)
		}
	}
}

type failingReader struct {
	data string
}

func (f *failingReader) Read(p []byte) (int, error) {
	if f.data == "" {
		return 0, errors.New("disk gone")
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func TestReadCSVReaderFailure(t *testing.T) {
	_, err := ReadCSV(&failingReader{data: "video_id,views\na,1\n"}, "10", time.Time{})
	if err == nil || !strings.Contains(err.Error(), "disk gone") {
		t.Fatalf("err = %v, want reader failure", err)
	}
	if errors.Is(err, io.EOF) {
		t.Fatalf("reader failure reported as EOF")
	}
}

func TestParseFileName(t *testing.T) {
	cat, ts, ok := ParseFileName("ytcat_10_20251120_103000.csv")
	if !ok || cat != "10" || !ts.Equal(time.Date(2025, 11, 20, 10, 30, 0, 0, time.UTC)) {
		t.Errorf("ParseFileName = %q %v %v", cat, ts, ok)
	}
	if FileName(cat, ts) != "ytcat_10_20251120_103000.csv" {
		t.Errorf("FileName = %s", FileName(cat, ts))
	}

	for _, bad := range []string{"ytcat_10_20251120.csv", "notes.csv", "ytcat_x_20251120_103000.csv"} {
		if _, _, ok := ParseFileName(bad); ok {
			t.Errorf("ParseFileName(%q) should fail", bad)
		}
	}
}

func TestReadCSVSubstitutesBadCells(t *testing.T) {
	ts := time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC)
	records, err := ReadCSV(strings.NewReader(sampleCSV), "15", ts)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	good := records[0]
	if good.Views != 200000 || good.ViewsPerHour != 10000 || good.CategoryID != "10" {
		t.Errorf("good row = %+v", good)
	}
	if AgeHours(&good) != 10 {
		t.Errorf("age = %v, want 10", AgeHours(&good))
	}
	if len(good.TagFields) != 2 {
		t.Errorf("tag fields = %d, want 2", len(good.TagFields))
	}

	bad := records[1]
	if bad.Views != 0 {
		t.Errorf("bad views = %d, want 0", bad.Views)
	}
	if !math.IsNaN(bad.ViewsPerHour) {
		t.Errorf("bad views_per_hour = %v, want NaN", bad.ViewsPerHour)
	}
	if !bad.PublishedAt.IsZero() {
		t.Errorf("bad published_at = %v, want zero", bad.PublishedAt)
	}
	if bad.CategoryID != "15" {
		t.Errorf("category fallback = %q, want 15", bad.CategoryID)
	}
	if !bad.IsShort || bad.DurationSec != 30 {
		t.Errorf("shorts flag/duration = %v/%d", bad.IsShort, bad.DurationSec)
	}

	table := NewTable(records)
	if got := table.Records()[1].Topics; len(got) != 1 || got[0] != "plain tag" {
		t.Errorf("fallback tag = %q", got)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("ytcat_10_20251120_100000.csv", sampleCSV)
	write("ytcat_10_20251119_100000.csv", "video_id,views\nv1,100\n")
	write("readme.csv", "video_id\nx\n")
	write("notes.txt", "ignored")

	records, err := LoadDir(dir, log.New(os.Stderr))
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	table := NewTable(records)
	if n := len(table.Timestamps()); n != 2 {
		t.Errorf("snapshots = %d, want 2", n)
	}

	if _, err := LoadDir(filepath.Join(dir, "missing"), nil); err == nil {
		t.Error("missing directory should fail")
	}
}

func TestParseTime(t *testing.T) {
	want := time.Date(2025, 11, 20, 7, 0, 0, 0, time.UTC)
	for _, in := range []string{"2025-11-20T07:00:00Z", "2025-11-20T10:00:00+03:00", "2025-11-20 07:00:00"} {
		if got := ParseTime(in); !got.Equal(want) {
			t.Errorf("ParseTime(%q) = %v", in, got)
		}
	}
	if !ParseTime("yesterday").IsZero() {
		t.Error("unparsable time should be zero")
	}
}
