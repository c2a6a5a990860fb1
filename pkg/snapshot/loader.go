package snapshot

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/elonfeng/ytradar/pkg/topic"
)

var fileNameRE = regexp.MustCompile(`^ytcat_(?P<cat>\d+)_(?P<date>\d{8})_(?P<time>\d{6})\.csv$`)

// ParseFileName extracts the category id and capture time from a snapshot
// file name of the form ytcat_{cat}_{YYYYMMDD}_{HHMMSS}.csv.
func ParseFileName(name string) (categoryID string, ts time.Time, ok bool) {
	m := fileNameRE.FindStringSubmatch(name)
	if m == nil {
		return "", time.Time{}, false
	}
	ts, err := time.Parse("20060102150405", m[2]+m[3])
	if err != nil {
		return "", time.Time{}, false
	}
	return m[1], ts, true
}

// FileName is the inverse of ParseFileName.
func FileName(categoryID string, ts time.Time) string {
	return fmt.Sprintf("ytcat_%s_%s.csv", categoryID, ts.UTC().Format("20060102_150405"))
}

// LoadDir reads every snapshot file in dir. Files that cannot be read are
// logged and skipped; a missing directory is an error.
func LoadDir(dir string, logger *log.Logger) ([]ItemRecord, error) {
	if logger == nil {
		logger = log.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read snapshot dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var all []ItemRecord
	for _, name := range names {
		catID, ts, ok := ParseFileName(name)
		if !ok {
			logger.Debug("skipping file", "file", name)
			continue
		}

		records, err := LoadFile(filepath.Join(dir, name), catID, ts)
		if err != nil {
			logger.Warn("cannot read snapshot file", "file", name, "err", err)
			continue
		}
		logger.Debug("loaded snapshot file", "file", name, "records", len(records))
		all = append(all, records...)
	}
	return all, nil
}

// LoadFile reads one snapshot CSV file.
func LoadFile(path, categoryID string, ts time.Time) ([]ItemRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := ReadCSV(f, categoryID, ts)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

// ReadCSV decodes snapshot rows. Quoting is lazy and the field count may vary
// per row, so the parser accepts every row; malformed cells are replaced with
// neutral values. Only a failure of r itself aborts the file.
func ReadCSV(r io.Reader, categoryID string, ts time.Time) ([]ItemRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	var records []ItemRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		get := func(name string) string {
			if i, ok := cols[name]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		rec := ItemRecord{
			ItemID:       get("video_id"),
			SnapshotTS:   ts,
			CategoryID:   get("category_id"),
			CategoryName: get("category_name"),
			Title:        get("title"),
			ChannelTitle: get("channel_title"),
			Views:        parseViews(get("views")),
			PublishedAt:  ParseTime(get("published_at")),
			ViewsPerHour: parseFloat(get("views_per_hour")),
			DurationSec:  int(parseViews(get("duration_sec"))),
			IsShort:      parseBool(get("from_shorts")),
		}
		if rec.CategoryID == "" {
			rec.CategoryID = categoryID
		}
		rec.CategoryID = normalizeID(rec.CategoryID)

		for _, name := range topic.FieldNames {
			if _, ok := cols[name]; ok {
				rec.TagFields = append(rec.TagFields, topic.TextField(name, get(name)))
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses a publish time in any of the capture formats and returns
// it in UTC. Unparsable input yields the zero time.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func parseViews(s string) int64 {
	f := parseFloat(s)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}

func parseFloat(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "1.0", "true", "yes":
		return true
	}
	return false
}

// normalizeID turns float-formatted ids such as "10.0" into "10".
func normalizeID(id string) string {
	if strings.HasSuffix(id, ".0") {
		if _, err := strconv.Atoi(strings.TrimSuffix(id, ".0")); err == nil {
			return strings.TrimSuffix(id, ".0")
		}
	}
	return id
}
