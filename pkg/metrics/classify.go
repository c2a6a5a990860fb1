package metrics

import (
	"math"
	"sort"
)

// Status is the lifecycle label of a topic relative to its table.
type Status string

const (
	StatusTrending  Status = "Trending"
	StatusEmerging  Status = "Emerging"
	StatusDeclining Status = "Declining"
	StatusMature    Status = "Mature"
	StatusFrozen    Status = "Frozen"
	StatusOther     Status = "Other"
)

// Statuses lists every status in rule priority order.
func Statuses() []Status {
	return []Status{StatusTrending, StatusEmerging, StatusDeclining, StatusMature, StatusFrozen, StatusOther}
}

// Thresholds are the percentile cut-offs of one topic table.
type Thresholds struct {
	P75Velocity    float64 `json:"p75_velocity"`
	P90Velocity    float64 `json:"p90_velocity"`
	P75Volume      float64 `json:"p75_volume"`
	MedianVolume   float64 `json:"median_volume"`
	MedianVelocity float64 `json:"median_velocity"`
}

// MatureBand returns the velocity range counted as mature.
func (t Thresholds) MatureBand() (lo, hi float64) {
	return 0.8 * t.P75Velocity, 1.2 * t.P75Velocity
}

// ComputeThresholds derives the cut-offs from the velocity and volume
// columns of topics. They only describe this slice.
func ComputeThresholds(topics []TopicMetrics) Thresholds {
	velocity := make([]float64, len(topics))
	volume := make([]float64, len(topics))
	for i, t := range topics {
		velocity[i] = t.Velocity
		volume[i] = float64(t.Volume)
	}
	sort.Float64s(velocity)
	sort.Float64s(volume)

	return Thresholds{
		P75Velocity:    quantile(velocity, 0.75),
		P90Velocity:    quantile(velocity, 0.90),
		P75Volume:      quantile(volume, 0.75),
		MedianVolume:   quantile(volume, 0.5),
		MedianVelocity: quantile(velocity, 0.5),
	}
}

// quantile interpolates linearly between the closest ranks of sorted,
// placing q at position (n-1)*q.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	pos := float64(n-1) * q
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

type rule struct {
	status Status
	match  func(t *TopicMetrics, th Thresholds) bool
}

// rules are evaluated top to bottom; the first match wins.
var rules = []rule{
	{StatusTrending, func(t *TopicMetrics, th Thresholds) bool {
		return t.Velocity >= th.P90Velocity && t.Freshness > 0.5
	}},
	{StatusEmerging, func(t *TopicMetrics, th Thresholds) bool {
		return t.Velocity >= th.P75Velocity && float64(t.Volume) < th.MedianVolume && t.Freshness > 0.5
	}},
	{StatusDeclining, func(t *TopicMetrics, th Thresholds) bool {
		return float64(t.Volume) >= th.P75Volume && t.Velocity < th.MedianVelocity && t.Freshness < 0.3
	}},
	{StatusMature, func(t *TopicMetrics, th Thresholds) bool {
		lo, hi := th.MatureBand()
		return float64(t.Volume) >= th.P75Volume && t.Velocity >= lo && t.Velocity <= hi
	}},
	{StatusFrozen, func(t *TopicMetrics, th Thresholds) bool {
		return float64(t.Volume) < th.MedianVolume && t.Velocity < th.MedianVelocity
	}},
}

// StatusOf labels one topic against precomputed thresholds.
func StatusOf(t *TopicMetrics, th Thresholds) Status {
	for _, r := range rules {
		if r.match(t, th) {
			return r.status
		}
	}
	return StatusOther
}

// Classify returns a copy of topics with Status set. Thresholds are computed
// over exactly this input.
func Classify(topics []TopicMetrics) []TopicMetrics {
	if len(topics) == 0 {
		return nil
	}
	th := ComputeThresholds(topics)

	out := make([]TopicMetrics, len(topics))
	copy(out, topics)
	for i := range out {
		out[i].Status = StatusOf(&out[i], th)
	}
	return out
}

// CountByStatus tallies a classified table.
func CountByStatus(topics []TopicMetrics) map[Status]int {
	counts := make(map[Status]int)
	for _, t := range topics {
		counts[t.Status]++
	}
	return counts
}
