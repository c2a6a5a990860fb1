package snapshot

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/elonfeng/ytradar/pkg/topic"
)

var baseColumns = []string{
	"video_id", "title", "channel_title", "category_id", "category_name",
	"views", "views_per_hour", "published_at", "duration_sec", "from_shorts",
}

// WriteDir writes records as one snapshot file per capture time and category
// and returns the written paths.
func WriteDir(dir string, records []ItemRecord) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create snapshot dir %s: %w", dir, err)
	}

	type key struct {
		ts  int64
		cat string
	}
	groups := make(map[key][]ItemRecord)
	var order []key
	for _, rec := range records {
		k := key{rec.SnapshotTS.UnixNano(), rec.CategoryID}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], rec)
	}

	var paths []string
	for _, k := range order {
		path := filepath.Join(dir, FileName(k.cat, time.Unix(0, k.ts)))
		if err := writeFile(path, groups[k]); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, records []ItemRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WriteCSV encodes records in the capture format read by ReadCSV.
func WriteCSV(w io.Writer, records []ItemRecord) error {
	cw := csv.NewWriter(w)
	header := append(append([]string{}, baseColumns...), topic.FieldNames...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range records {
		rec := &records[i]
		vph := ""
		if !math.IsNaN(rec.ViewsPerHour) {
			vph = strconv.FormatFloat(rec.ViewsPerHour, 'f', -1, 64)
		}
		published := ""
		if !rec.PublishedAt.IsZero() {
			published = rec.PublishedAt.UTC().Format(time.RFC3339)
		}
		short := "0"
		if rec.IsShort {
			short = "1"
		}

		row := []string{
			rec.ItemID, rec.Title, rec.ChannelTitle, rec.CategoryID, rec.CategoryName,
			strconv.FormatInt(rec.Views, 10), vph, published,
			strconv.Itoa(rec.DurationSec), short,
		}
		for _, name := range topic.FieldNames {
			row = append(row, fieldText(rec.TagFields, name))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// fieldText renders the named tag field as a CSV cell. List fields become
// JSON arrays.
func fieldText(fields []topic.RawTagField, name string) string {
	for _, f := range fields {
		if f.Name != name {
			continue
		}
		if f.Kind == topic.FieldText {
			return f.Text
		}
		values := f.Values
		if values == nil {
			values = []string{}
		}
		data, _ := json.Marshal(values)
		return string(data)
	}
	return ""
}
