package metrics

import (
	"math"
	"testing"
)

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	tests := []struct {
		q    float64
		want float64
	}{
		{0, 1},
		{0.5, 2.5},
		{0.75, 3.25},
		{0.9, 3.7},
		{1, 4},
	}
	for _, tt := range tests {
		if got := quantile(sorted, tt.q); !almostEqual(got, tt.want) {
			t.Errorf("quantile(%v) = %v, want %v", tt.q, got, tt.want)
		}
	}
	if got := quantile([]float64{7}, 0.9); got != 7 {
		t.Errorf("single value quantile = %v", got)
	}
	if !math.IsNaN(quantile(nil, 0.5)) {
		t.Error("empty quantile should be NaN")
	}
}

func TestClassifyTable(t *testing.T) {
	input := []TopicMetrics{
		{Tag: "t1", Velocity: 1, Volume: 10, Freshness: 0.5},
		{Tag: "t2", Velocity: 2, Volume: 1000, Freshness: 0.1},
		{Tag: "t3", Velocity: 3, Volume: 20, Freshness: 0.5},
		{Tag: "t4", Velocity: 4, Volume: 900, Freshness: 0.5},
		{Tag: "t5", Velocity: 5, Volume: 30, Freshness: 0.5},
		{Tag: "t6", Velocity: 6, Volume: 40, Freshness: 0.2},
		{Tag: "t7", Velocity: 7, Volume: 950, Freshness: 0.4},
		{Tag: "t8", Velocity: 8, Volume: 50, Freshness: 0.9},
		{Tag: "t9", Velocity: 9, Volume: 60, Freshness: 0.4},
		{Tag: "t10", Velocity: 10, Volume: 5000, Freshness: 0.9},
	}
	want := map[string]Status{
		"t1":  StatusFrozen,
		"t2":  StatusDeclining,
		"t3":  StatusFrozen,
		"t4":  StatusOther,
		"t5":  StatusFrozen,
		"t6":  StatusOther,
		"t7":  StatusMature,
		"t8":  StatusEmerging,
		"t9":  StatusOther,
		"t10": StatusTrending,
	}

	th := ComputeThresholds(input)
	if !almostEqual(th.P90Velocity, 9.1) || !almostEqual(th.P75Velocity, 7.75) ||
		!almostEqual(th.MedianVelocity, 5.5) || !almostEqual(th.MedianVolume, 55) ||
		!almostEqual(th.P75Volume, 937.5) {
		t.Fatalf("thresholds = %+v", th)
	}

	out := Classify(input)
	for _, topic := range out {
		if topic.Status != want[topic.Tag] {
			t.Errorf("%s: status = %s, want %s", topic.Tag, topic.Status, want[topic.Tag])
		}
	}
	for _, topic := range input {
		if topic.Status != "" {
			t.Fatal("Classify must not modify its input")
		}
	}

	counts := CountByStatus(out)
	if counts[StatusFrozen] != 3 || counts[StatusOther] != 3 || counts[StatusTrending] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestTrendingIgnoresVolume(t *testing.T) {
	for _, volume := range []int64{0, 10, 1_000_000} {
		input := []TopicMetrics{
			{Tag: "a", Velocity: 1, Volume: 500},
			{Tag: "b", Velocity: 2, Volume: 500},
			{Tag: "c", Velocity: 3, Volume: 500},
			{Tag: "hot", Velocity: 100, Volume: volume, Freshness: 0.6},
		}
		out := Classify(input)
		if out[3].Status != StatusTrending {
			t.Errorf("volume %d: status = %s, want Trending", volume, out[3].Status)
		}
	}
}

func TestRulePriority(t *testing.T) {
	th := Thresholds{P75Velocity: 10, P90Velocity: 20, P75Volume: 100, MedianVolume: 50, MedianVelocity: 5}

	tests := []struct {
		name  string
		topic TopicMetrics
		want  Status
	}{
		{"trending beats emerging", TopicMetrics{Velocity: 25, Volume: 1, Freshness: 0.9}, StatusTrending},
		{"emerging", TopicMetrics{Velocity: 12, Volume: 1, Freshness: 0.9}, StatusEmerging},
		{"freshness boundary is exclusive", TopicMetrics{Velocity: 25, Volume: 1, Freshness: 0.5}, StatusOther},
		{"declining", TopicMetrics{Velocity: 3, Volume: 200, Freshness: 0.1}, StatusDeclining},
		{"mature low edge", TopicMetrics{Velocity: 8, Volume: 200, Freshness: 0.5}, StatusMature},
		{"mature high edge", TopicMetrics{Velocity: 12, Volume: 200, Freshness: 0.5}, StatusMature},
		{"above mature band", TopicMetrics{Velocity: 13, Volume: 200, Freshness: 0.5}, StatusOther},
		{"frozen", TopicMetrics{Velocity: 1, Volume: 10, Freshness: 0.1}, StatusFrozen},
		{"other", TopicMetrics{Velocity: 6, Volume: 60, Freshness: 0.4}, StatusOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(&tt.topic, th); got != tt.want {
				t.Errorf("StatusOf = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyDegenerate(t *testing.T) {
	if out := Classify(nil); out != nil {
		t.Errorf("Classify(nil) = %+v", out)
	}
	out := Classify([]TopicMetrics{{Tag: "only", Velocity: 10, Volume: 10, Freshness: 0.9}})
	if out[0].Status != StatusTrending {
		t.Errorf("single fresh topic = %s, want Trending", out[0].Status)
	}
}

func TestStatusesOrder(t *testing.T) {
	got := Statuses()
	if len(got) != 6 || got[0] != StatusTrending || got[5] != StatusOther {
		t.Errorf("Statuses = %v", got)
	}
}
