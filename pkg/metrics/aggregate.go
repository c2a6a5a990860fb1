package metrics

import (
	"math"
	"sort"

	"github.com/elonfeng/ytradar/pkg/snapshot"
)

// shareEpsilon floors share denominators so an empty base never divides by zero.
const shareEpsilon = 1e-6

// CategoryMetrics aggregates one category within one snapshot.
type CategoryMetrics struct {
	CategoryID         string  `json:"category_id"`
	CategoryName       string  `json:"category_name"`
	Volume             int64   `json:"volume"`
	VelocityTotal      float64 `json:"velocity_total"`
	FreshVelocity      float64 `json:"fresh_velocity"`
	VideosCnt          int     `json:"videos_cnt"`
	FreshVideos        int     `json:"fresh_videos"`
	Freshness          float64 `json:"freshness"`
	VolumeShare        float64 `json:"volume_share"`
	VelocityShare      float64 `json:"velocity_share"`
	FreshVelocityShare float64 `json:"fresh_velocity_share"`
}

// TopicMetrics aggregates one topic within one category and snapshot.
type TopicMetrics struct {
	Tag           string  `json:"tag"`
	Volume        int64   `json:"volume"`
	VelocityTotal float64 `json:"velocity_total"`
	Velocity      float64 `json:"velocity"`
	VideosCnt     int     `json:"videos_cnt"`
	FreshVideos   int     `json:"fresh_videos"`
	Freshness     float64 `json:"freshness"`
	Status        Status  `json:"status"`
}

// VideoMetrics is the per-item view of a category slice.
type VideoMetrics struct {
	ItemID       string   `json:"item_id"`
	Title        string   `json:"title"`
	ChannelTitle string   `json:"channel_title"`
	Views        int64    `json:"views"`
	ViewsPerHour float64  `json:"views_per_hour"`
	AgeHours     *float64 `json:"age_hours"`
	IsFresh      bool     `json:"is_fresh"`
	IsShort      bool     `json:"is_short"`
	Topics       []string `json:"topics"`
}

// group accumulates the sums shared by category and topic rows.
type group struct {
	volume        int64
	velocityTotal float64
	freshVelocity float64
	items         map[string]bool
	freshItems    map[string]bool
}

func newGroup() *group {
	return &group{items: make(map[string]bool), freshItems: make(map[string]bool)}
}

func (g *group) add(rec *snapshot.ItemRecord, fresh bool) {
	v := rec.Velocity()
	g.volume += rec.Views
	g.velocityTotal += v
	if fresh {
		g.freshVelocity += v
	}
	g.items[rec.ItemID] = true
	if fresh {
		g.freshItems[rec.ItemID] = true
	}
}

func (g *group) freshness() float64 {
	if len(g.items) == 0 {
		return 0
	}
	return float64(len(g.freshItems)) / float64(len(g.items))
}

// Categories computes per-category metrics for the records of one snapshot.
// Rows are keyed by category id; the name is the first non-empty one seen.
func Categories(items []snapshot.ItemRecord, freshHours float64) []CategoryMetrics {
	if len(items) == 0 {
		return nil
	}

	groups := make(map[string]*group)
	names := make(map[string]string)
	var order []string

	for i := range items {
		rec := &items[i]
		g, ok := groups[rec.CategoryID]
		if !ok {
			g = newGroup()
			groups[rec.CategoryID] = g
			order = append(order, rec.CategoryID)
			names[rec.CategoryID] = rec.CategoryLabel()
		} else if names[rec.CategoryID] == rec.CategoryID && rec.CategoryName != "" {
			names[rec.CategoryID] = rec.CategoryName
		}
		g.add(rec, snapshot.IsFresh(rec, freshHours))
	}
	sort.Strings(order)

	rows := make([]CategoryMetrics, 0, len(order))
	var totalVolume, totalVelocity, totalFresh float64
	for _, id := range order {
		g := groups[id]
		rows = append(rows, CategoryMetrics{
			CategoryID:    id,
			CategoryName:  names[id],
			Volume:        g.volume,
			VelocityTotal: g.velocityTotal,
			FreshVelocity: g.freshVelocity,
			VideosCnt:     len(g.items),
			FreshVideos:   len(g.freshItems),
			Freshness:     g.freshness(),
		})
		totalVolume += float64(g.volume)
		totalVelocity += g.velocityTotal
		totalFresh += g.freshVelocity
	}

	totalVolume = floorDenominator(totalVolume)
	totalVelocity = floorDenominator(totalVelocity)
	totalFresh = floorDenominator(totalFresh)
	for i := range rows {
		rows[i].VolumeShare = float64(rows[i].Volume) / totalVolume
		rows[i].VelocityShare = rows[i].VelocityTotal / totalVelocity
		rows[i].FreshVelocityShare = rows[i].FreshVelocity / totalFresh
	}
	return rows
}

func floorDenominator(v float64) float64 {
	if v == 0 || math.IsNaN(v) {
		return shareEpsilon
	}
	return v
}

// Topics computes per-topic metrics for the records of one category slice,
// drops topics carried by fewer than minVideosPerTag items and classifies
// the rest. Records without topics do not contribute.
func Topics(items []snapshot.ItemRecord, freshHours float64, minVideosPerTag int) []TopicMetrics {
	groups := make(map[string]*group)
	for i := range items {
		rec := &items[i]
		if len(rec.Topics) == 0 {
			continue
		}
		fresh := snapshot.IsFresh(rec, freshHours)
		for _, tag := range rec.Topics {
			g, ok := groups[tag]
			if !ok {
				g = newGroup()
				groups[tag] = g
			}
			g.add(rec, fresh)
		}
	}

	rows := make([]TopicMetrics, 0, len(groups))
	for tag, g := range groups {
		if len(g.items) < minVideosPerTag {
			continue
		}
		rows = append(rows, TopicMetrics{
			Tag:           tag,
			Volume:        g.volume,
			VelocityTotal: g.velocityTotal,
			Velocity:      g.freshVelocity,
			VideosCnt:     len(g.items),
			FreshVideos:   len(g.freshItems),
			Freshness:     g.freshness(),
		})
	}
	if len(rows) == 0 {
		return nil
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Tag < rows[j].Tag })
	return Classify(rows)
}

// Videos lists the items of a category slice by descending views per hour.
// A limit of zero or less keeps every item.
func Videos(items []snapshot.ItemRecord, freshHours float64, shorts snapshot.ShortsFilter, limit int) []VideoMetrics {
	items = snapshot.FilterShorts(items, shorts)

	rows := make([]VideoMetrics, 0, len(items))
	for i := range items {
		rec := &items[i]
		row := VideoMetrics{
			ItemID:       rec.ItemID,
			Title:        rec.Title,
			ChannelTitle: rec.ChannelTitle,
			Views:        rec.Views,
			ViewsPerHour: rec.Velocity(),
			IsFresh:      snapshot.IsFresh(rec, freshHours),
			IsShort:      rec.IsShort,
			Topics:       rec.Topics,
		}
		if age := snapshot.AgeHours(rec); !math.IsNaN(age) {
			row.AgeHours = &age
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].ViewsPerHour > rows[j].ViewsPerHour
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}
