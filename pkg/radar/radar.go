// Package radar answers metric queries against an immutable snapshot table.
package radar

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/elonfeng/ytradar/pkg/metrics"
	"github.com/elonfeng/ytradar/pkg/snapshot"
)

var (
	// ErrNoSnapshots is returned when the table holds no snapshot at all.
	ErrNoSnapshots = errors.New("no snapshots loaded")
	// ErrSnapshotOrder is returned when the later snapshot is not after the earlier one.
	ErrSnapshotOrder = errors.New("later snapshot must be after the earlier one")
)

// Params are the query parameters shared by every metric.
type Params struct {
	FreshHours      float64 `json:"fresh_hours"`
	MinVideosPerTag int     `json:"min_videos_per_tag"`
}

// DefaultParams returns the default query parameters.
func DefaultParams() Params {
	return Params{FreshHours: snapshot.DefaultFreshHours, MinVideosPerTag: 2}
}

// withDefaults replaces non-positive parameters with defaults.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.FreshHours <= 0 {
		p.FreshHours = d.FreshHours
	}
	if p.MinVideosPerTag <= 0 {
		p.MinVideosPerTag = d.MinVideosPerTag
	}
	return p
}

// Radar runs queries over one table. It holds no mutable state and is safe
// for concurrent use.
type Radar struct {
	table  *snapshot.Table
	params Params
}

// New creates a Radar over table.
func New(table *snapshot.Table, params Params) *Radar {
	return &Radar{table: table, params: params.withDefaults()}
}

// Table returns the underlying table.
func (r *Radar) Table() *snapshot.Table { return r.table }

// Params returns the effective parameters.
func (r *Radar) Params() Params { return r.params }

// WithParams returns a Radar sharing the table with different parameters.
func (r *Radar) WithParams(p Params) *Radar {
	return New(r.table, p)
}

// Snapshots summarizes every loaded snapshot.
func (r *Radar) Snapshots() []snapshot.Summary {
	return r.table.Summary()
}

// Resolve fills zero timestamps with the latest snapshot.
func (r *Radar) Resolve(ts time.Time) (time.Time, error) {
	if !ts.IsZero() {
		return ts, nil
	}
	latest, ok := r.table.Latest()
	if !ok {
		return time.Time{}, ErrNoSnapshots
	}
	return latest, nil
}

// ResolvePair fills zero timestamps with the previous and latest snapshots
// and checks their order.
func (r *Radar) ResolvePair(ts1, ts2 time.Time) (time.Time, time.Time, error) {
	if ts1.IsZero() {
		prev, ok := r.table.Previous()
		if !ok {
			return time.Time{}, time.Time{}, ErrNoSnapshots
		}
		ts1 = prev
	}
	if ts2.IsZero() {
		latest, ok := r.table.Latest()
		if !ok {
			return time.Time{}, time.Time{}, ErrNoSnapshots
		}
		ts2 = latest
	}
	if !ts2.After(ts1) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s -> %s", ErrSnapshotOrder,
			ts1.Format(time.RFC3339), ts2.Format(time.RFC3339))
	}
	return ts1, ts2, nil
}

// Categories returns category metrics for the snapshot at ts.
func (r *Radar) Categories(ts time.Time) []metrics.CategoryMetrics {
	return metrics.Categories(r.table.At(ts), r.params.FreshHours)
}

// Topics returns classified topic metrics for one category at ts.
func (r *Radar) Topics(ts time.Time, categoryID string) []metrics.TopicMetrics {
	return metrics.Topics(r.table.InCategory(ts, categoryID), r.params.FreshHours, r.params.MinVideosPerTag)
}

// Thresholds returns the classifier cut-offs of one category at ts.
func (r *Radar) Thresholds(ts time.Time, categoryID string) (metrics.Thresholds, bool) {
	topics := r.Topics(ts, categoryID)
	if len(topics) == 0 {
		return metrics.Thresholds{}, false
	}
	return metrics.ComputeThresholds(topics), true
}

// Videos returns the fastest items of one category at ts.
func (r *Radar) Videos(ts time.Time, categoryID string, shorts snapshot.ShortsFilter, limit int) []metrics.VideoMetrics {
	return metrics.Videos(r.table.InCategory(ts, categoryID), r.params.FreshHours, shorts, limit)
}

// Growth compares items between ts1 and ts2.
func (r *Radar) Growth(ts1, ts2 time.Time, filter metrics.GrowthFilter) []metrics.GrowthRecord {
	items := r.table.At(ts1)
	if !ts1.Equal(ts2) {
		items = append(items, r.table.At(ts2)...)
	}
	return filter.Apply(metrics.Growth(items, ts1, ts2))
}

// CategoryDiff compares category metrics between ts1 and ts2.
func (r *Radar) CategoryDiff(ts1, ts2 time.Time) []metrics.CategoryDelta {
	return metrics.CategoryDiff(r.Categories(ts1), r.Categories(ts2))
}

// TopicDiff compares topic metrics of one category between ts1 and ts2.
func (r *Radar) TopicDiff(ts1, ts2 time.Time, categoryID string) []metrics.TopicDelta {
	return metrics.TopicDiff(r.Topics(ts1, categoryID), r.Topics(ts2, categoryID))
}

// TopicGrowth attributes the view growth between ts1 and ts2 to topics.
func (r *Radar) TopicGrowth(ts1, ts2 time.Time, filter metrics.GrowthFilter) []metrics.TopicGrowth {
	return metrics.AttributeGrowth(r.Growth(ts1, ts2, filter))
}

// CategoryTopic is a topic labelled within a category.
type CategoryTopic struct {
	CategoryID   string               `json:"category_id"`
	CategoryName string               `json:"category_name"`
	Topic        metrics.TopicMetrics `json:"topic"`
}

// TopicsWithStatus returns every category's topics carrying status at ts.
func (r *Radar) TopicsWithStatus(ts time.Time, status metrics.Status) []CategoryTopic {
	var out []CategoryTopic
	for _, cat := range r.table.Categories(ts) {
		for _, t := range r.Topics(ts, cat.ID) {
			if t.Status == status {
				out = append(out, CategoryTopic{CategoryID: cat.ID, CategoryName: cat.Label, Topic: t})
			}
		}
	}
	return out
}

// TrendingTopics returns every category's Trending topics at ts.
func (r *Radar) TrendingTopics(ts time.Time) []CategoryTopic {
	return r.TopicsWithStatus(ts, metrics.StatusTrending)
}

// NewlyTrending returns topics Trending at ts2 that were not Trending in the
// same category at ts1.
func (r *Radar) NewlyTrending(ts1, ts2 time.Time) []CategoryTopic {
	before := make(map[string]bool)
	if !ts1.Equal(ts2) {
		for _, ct := range r.TrendingTopics(ts1) {
			before[ct.CategoryID+"\x00"+ct.Topic.Tag] = true
		}
	}

	var out []CategoryTopic
	for _, ct := range r.TrendingTopics(ts2) {
		if !before[ct.CategoryID+"\x00"+ct.Topic.Tag] {
			out = append(out, ct)
		}
	}
	return out
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"20060102_150405",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses a snapshot timestamp given as RFC 3339, as the
// YYYYMMDD_HHMMSS form used in snapshot file names or as unix seconds.
// An empty string yields the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid snapshot timestamp %q", s)
}
