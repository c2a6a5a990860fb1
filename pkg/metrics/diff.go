package metrics

import (
	"sort"
	"time"

	"github.com/elonfeng/ytradar/pkg/snapshot"
	"github.com/elonfeng/ytradar/pkg/topic"
)

// minHoursBetween replaces a non-positive snapshot gap.
const minHoursBetween = 1e-6

// Observation is an item's state in one of two compared snapshots.
type Observation struct {
	Title        string    `json:"title"`
	ChannelTitle string    `json:"channel_title"`
	CategoryID   string    `json:"category_id"`
	CategoryName string    `json:"category_name"`
	Views        int64     `json:"views"`
	ViewsPerHour float64   `json:"views_per_hour"`
	IsShort      bool      `json:"is_short"`
	DurationSec  int       `json:"duration_sec"`
	Topics       topic.Set `json:"topics"`
	PublishedAt  time.Time `json:"published_at"`
}

func observe(rec *snapshot.ItemRecord) Observation {
	return Observation{
		Title:        rec.Title,
		ChannelTitle: rec.ChannelTitle,
		CategoryID:   rec.CategoryID,
		CategoryName: rec.CategoryName,
		Views:        rec.Views,
		ViewsPerHour: rec.Velocity(),
		IsShort:      rec.IsShort,
		DurationSec:  rec.DurationSec,
		Topics:       rec.Topics,
		PublishedAt:  rec.PublishedAt,
	}
}

// GrowthRecord compares one item present in both snapshots.
type GrowthRecord struct {
	ItemID              string      `json:"item_id"`
	T1                  Observation `json:"t1"`
	T2                  Observation `json:"t2"`
	HoursBetweenSnaps   float64     `json:"hours_between_snaps"`
	ViewsDelta          int64       `json:"views_delta"`
	ViewsPerHourBetween float64     `json:"views_per_hour_between"`
}

// HoursBetween returns the signed gap between two snapshots in hours,
// replaced by a tiny positive value when it is not positive.
func HoursBetween(ts1, ts2 time.Time) float64 {
	h := ts2.Sub(ts1).Hours()
	if h <= 0 {
		return minHoursBetween
	}
	return h
}

// Growth joins the records captured at ts1 and ts2 on item id, one row per
// item. An item listed in several categories keeps its first record at ts1
// and, at ts2, the record in the same category when there is one. The result
// is sorted by descending views per hour between the snapshots. Timestamps
// are used as given; ordering is the caller's concern.
func Growth(items []snapshot.ItemRecord, ts1, ts2 time.Time) []GrowthRecord {
	first := make(map[string]bool)
	later := make(map[string][]int)
	var earlier []int
	for i := range items {
		if items[i].SnapshotTS.Equal(ts1) && !first[items[i].ItemID] {
			first[items[i].ItemID] = true
			earlier = append(earlier, i)
		}
		if items[i].SnapshotTS.Equal(ts2) {
			later[items[i].ItemID] = append(later[items[i].ItemID], i)
		}
	}
	if len(earlier) == 0 || len(later) == 0 {
		return nil
	}

	hours := HoursBetween(ts1, ts2)
	var rows []GrowthRecord
	for _, i := range earlier {
		a := &items[i]
		candidates := later[a.ItemID]
		if len(candidates) == 0 {
			continue
		}
		b := &items[candidates[0]]
		for _, j := range candidates {
			if items[j].CategoryID == a.CategoryID {
				b = &items[j]
				break
			}
		}
		delta := b.Views - a.Views
		rows = append(rows, GrowthRecord{
			ItemID:              a.ItemID,
			T1:                  observe(a),
			T2:                  observe(b),
			HoursBetweenSnaps:   hours,
			ViewsDelta:          delta,
			ViewsPerHourBetween: float64(delta) / hours,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ViewsPerHourBetween != rows[j].ViewsPerHourBetween {
			return rows[i].ViewsPerHourBetween > rows[j].ViewsPerHourBetween
		}
		return rows[i].ItemID < rows[j].ItemID
	})
	return rows
}

// GrowthFilter narrows a growth table using the later snapshot's attributes.
type GrowthFilter struct {
	CategoryIDs   []string
	Shorts        snapshot.ShortsFilter
	MinViewsDelta int64
}

// Apply returns the rows passing the filter, preserving order.
func (f GrowthFilter) Apply(rows []GrowthRecord) []GrowthRecord {
	var cats map[string]bool
	if len(f.CategoryIDs) > 0 {
		cats = make(map[string]bool, len(f.CategoryIDs))
		for _, id := range f.CategoryIDs {
			cats[id] = true
		}
	}

	var out []GrowthRecord
	for _, r := range rows {
		if cats != nil && !cats[r.T2.CategoryID] {
			continue
		}
		if !f.Shorts.Match(r.T2.IsShort) {
			continue
		}
		if r.ViewsDelta < f.MinViewsDelta {
			continue
		}
		out = append(out, r)
	}
	return out
}

// GrowthStats summarizes the views delta of a growth table.
type GrowthStats struct {
	Videos           int     `json:"videos"`
	MeanViewsDelta   float64 `json:"mean_views_delta"`
	MedianViewsDelta float64 `json:"median_views_delta"`
}

// SummarizeGrowth computes count, mean and median views delta.
func SummarizeGrowth(rows []GrowthRecord) GrowthStats {
	if len(rows) == 0 {
		return GrowthStats{}
	}
	deltas := make([]float64, len(rows))
	var sum float64
	for i, r := range rows {
		deltas[i] = float64(r.ViewsDelta)
		sum += deltas[i]
	}
	sort.Float64s(deltas)
	return GrowthStats{
		Videos:           len(rows),
		MeanViewsDelta:   sum / float64(len(rows)),
		MedianViewsDelta: quantile(deltas, 0.5),
	}
}

// CategoryDelta compares one category across two snapshots.
type CategoryDelta struct {
	CategoryID         string  `json:"category_id"`
	CategoryName       string  `json:"category_name"`
	VideosCntT1        int     `json:"videos_cnt_t1"`
	VideosCntT2        int     `json:"videos_cnt_t2"`
	VolumeT1           int64   `json:"volume_t1"`
	VolumeT2           int64   `json:"volume_t2"`
	VolumeDelta        int64   `json:"volume_delta"`
	VelocityTotalT1    float64 `json:"velocity_total_t1"`
	VelocityTotalT2    float64 `json:"velocity_total_t2"`
	VelocityTotalDelta float64 `json:"velocity_total_delta"`
	FreshVelocityT1    float64 `json:"fresh_velocity_t1"`
	FreshVelocityT2    float64 `json:"fresh_velocity_t2"`
	FreshVelocityDelta float64 `json:"fresh_velocity_delta"`
	FreshnessT1        float64 `json:"freshness_t1"`
	FreshnessT2        float64 `json:"freshness_t2"`
	FreshnessDelta     float64 `json:"freshness_delta"`
}

// CategoryDiff outer-joins two category tables on category id. A category
// missing on one side counts as all zeros there.
func CategoryDiff(t1, t2 []CategoryMetrics) []CategoryDelta {
	later := make(map[string]int, len(t2))
	for i, c := range t2 {
		later[c.CategoryID] = i
	}

	out := make([]CategoryDelta, 0, len(t1)+len(t2))
	matched := make(map[string]bool, len(t1))
	for _, a := range t1 {
		var b CategoryMetrics
		if j, ok := later[a.CategoryID]; ok {
			b = t2[j]
			matched[a.CategoryID] = true
		}
		out = append(out, categoryDelta(a.CategoryID, a.CategoryName, a, b))
	}
	for _, b := range t2 {
		if matched[b.CategoryID] {
			continue
		}
		out = append(out, categoryDelta(b.CategoryID, b.CategoryName, CategoryMetrics{}, b))
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func categoryDelta(id, name string, a, b CategoryMetrics) CategoryDelta {
	if name == "" {
		name = b.CategoryName
	}
	return CategoryDelta{
		CategoryID:         id,
		CategoryName:       name,
		VideosCntT1:        a.VideosCnt,
		VideosCntT2:        b.VideosCnt,
		VolumeT1:           a.Volume,
		VolumeT2:           b.Volume,
		VolumeDelta:        b.Volume - a.Volume,
		VelocityTotalT1:    a.VelocityTotal,
		VelocityTotalT2:    b.VelocityTotal,
		VelocityTotalDelta: b.VelocityTotal - a.VelocityTotal,
		FreshVelocityT1:    a.FreshVelocity,
		FreshVelocityT2:    b.FreshVelocity,
		FreshVelocityDelta: b.FreshVelocity - a.FreshVelocity,
		FreshnessT1:        a.Freshness,
		FreshnessT2:        b.Freshness,
		FreshnessDelta:     b.Freshness - a.Freshness,
	}
}

// TopicDelta compares one topic present in both snapshots.
type TopicDelta struct {
	Tag            string  `json:"tag"`
	VideosCntT1    int     `json:"videos_cnt_t1"`
	VideosCntT2    int     `json:"videos_cnt_t2"`
	VolumeT1       int64   `json:"volume_t1"`
	VolumeT2       int64   `json:"volume_t2"`
	VolumeDelta    int64   `json:"volume_delta"`
	VelocityT1     float64 `json:"velocity_t1"`
	VelocityT2     float64 `json:"velocity_t2"`
	VelocityDelta  float64 `json:"velocity_delta"`
	FreshnessT1    float64 `json:"freshness_t1"`
	FreshnessT2    float64 `json:"freshness_t2"`
	FreshnessDelta float64 `json:"freshness_delta"`
	StatusT1       Status  `json:"status_t1"`
	StatusT2       Status  `json:"status_t2"`
}

// TopicDiff inner-joins two topic tables on tag. Topics missing from either
// side are left out.
func TopicDiff(t1, t2 []TopicMetrics) []TopicDelta {
	later := make(map[string]int, len(t2))
	for i, t := range t2 {
		later[t.Tag] = i
	}

	var out []TopicDelta
	for _, a := range t1 {
		j, ok := later[a.Tag]
		if !ok {
			continue
		}
		b := t2[j]
		out = append(out, TopicDelta{
			Tag:            a.Tag,
			VideosCntT1:    a.VideosCnt,
			VideosCntT2:    b.VideosCnt,
			VolumeT1:       a.Volume,
			VolumeT2:       b.Volume,
			VolumeDelta:    b.Volume - a.Volume,
			VelocityT1:     a.Velocity,
			VelocityT2:     b.Velocity,
			VelocityDelta:  b.Velocity - a.Velocity,
			FreshnessT1:    a.Freshness,
			FreshnessT2:    b.Freshness,
			FreshnessDelta: b.Freshness - a.Freshness,
			StatusT1:       a.Status,
			StatusT2:       b.Status,
		})
	}
	return out
}

// TopicGrowth is the view growth attributed to one topic.
type TopicGrowth struct {
	Tag        string `json:"tag"`
	ViewsDelta int64  `json:"views_delta"`
}

// AttributeGrowth sums views delta per topic carried by each item in the
// later snapshot, largest first.
func AttributeGrowth(rows []GrowthRecord) []TopicGrowth {
	sums := make(map[string]int64)
	for _, r := range rows {
		for _, tag := range r.T2.Topics {
			sums[tag] += r.ViewsDelta
		}
	}
	if len(sums) == 0 {
		return nil
	}

	out := make([]TopicGrowth, 0, len(sums))
	for tag, d := range sums {
		out = append(out, TopicGrowth{Tag: tag, ViewsDelta: d})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ViewsDelta != out[j].ViewsDelta {
			return out[i].ViewsDelta > out[j].ViewsDelta
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}
