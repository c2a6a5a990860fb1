package snapshot

import (
	"math"
	"time"

	"github.com/elonfeng/ytradar/pkg/topic"
)

// DefaultFreshHours is the default age limit for a fresh item.
const DefaultFreshHours = 72.0

// ItemRecord is one item observed in one snapshot.
type ItemRecord struct {
	ItemID       string              `json:"item_id"`
	SnapshotTS   time.Time           `json:"snapshot_ts"`
	CategoryID   string              `json:"category_id"`
	CategoryName string              `json:"category_name"`
	Title        string              `json:"title"`
	ChannelTitle string              `json:"channel_title"`
	Views        int64               `json:"views"`
	PublishedAt  time.Time           `json:"published_at"` // zero when missing or unparsable
	ViewsPerHour float64             `json:"-"`            // NaN when absent
	DurationSec  int                 `json:"duration_sec"`
	IsShort      bool                `json:"is_short"`
	TagFields    []topic.RawTagField `json:"tag_fields,omitempty"`
	Topics       topic.Set           `json:"topics"`
}

// CategoryLabel is the display name, falling back to the id.
func (r *ItemRecord) CategoryLabel() string {
	if r.CategoryName != "" {
		return r.CategoryName
	}
	return r.CategoryID
}

// Velocity returns views per hour, 0 when the value is absent or invalid.
func (r *ItemRecord) Velocity() float64 {
	if math.IsNaN(r.ViewsPerHour) || math.IsInf(r.ViewsPerHour, 0) {
		return 0
	}
	return r.ViewsPerHour
}

// AgeHours is the item's age at capture time, NaN without a publish time.
func AgeHours(r *ItemRecord) float64 {
	if r.PublishedAt.IsZero() || r.SnapshotTS.IsZero() {
		return math.NaN()
	}
	return r.SnapshotTS.Sub(r.PublishedAt).Hours()
}

// IsFresh reports whether the item is at most freshHours old.
func IsFresh(r *ItemRecord, freshHours float64) bool {
	age := AgeHours(r)
	if math.IsNaN(age) {
		return false
	}
	return age <= freshHours
}

// ShortsFilter selects items by their short-form flag.
type ShortsFilter string

const (
	ShortsAll  ShortsFilter = "all"
	ShortsOnly ShortsFilter = "shorts"
	ShortsLong ShortsFilter = "long"
)

// ParseShortsFilter maps user input to a filter, defaulting to ShortsAll.
func ParseShortsFilter(s string) ShortsFilter {
	switch ShortsFilter(s) {
	case ShortsOnly, ShortsLong:
		return ShortsFilter(s)
	}
	return ShortsAll
}

// Match reports whether an item with the given flag passes the filter.
func (f ShortsFilter) Match(isShort bool) bool {
	switch f {
	case ShortsOnly:
		return isShort
	case ShortsLong:
		return !isShort
	}
	return true
}

// FilterShorts returns the records passing f.
func FilterShorts(records []ItemRecord, f ShortsFilter) []ItemRecord {
	if f == ShortsAll || f == "" {
		return records
	}
	var out []ItemRecord
	for i := range records {
		if f.Match(records[i].IsShort) {
			out = append(out, records[i])
		}
	}
	return out
}
