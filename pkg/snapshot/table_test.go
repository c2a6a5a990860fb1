package snapshot

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/elonfeng/ytradar/pkg/topic"
)

var (
	ts1 = time.Date(2025, 11, 19, 10, 0, 0, 0, time.UTC)
	ts2 = time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC)
)

func TestAgeAndFreshness(t *testing.T) {
	rec := ItemRecord{SnapshotTS: ts2, PublishedAt: ts2.Add(-20 * time.Hour)}
	if got := AgeHours(&rec); got != 20 {
		t.Errorf("AgeHours = %v, want 20", got)
	}
	if !IsFresh(&rec, 72) {
		t.Error("20h item should be fresh at 72h")
	}
	if IsFresh(&rec, 10) {
		t.Error("20h item should not be fresh at 10h")
	}
	if !IsFresh(&rec, 20) {
		t.Error("freshness boundary is inclusive")
	}

	missing := ItemRecord{SnapshotTS: ts2}
	if !math.IsNaN(AgeHours(&missing)) {
		t.Error("missing publish time should give NaN age")
	}
	if IsFresh(&missing, 1e9) {
		t.Error("NaN age is never fresh")
	}
}

func TestVelocitySubstitution(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1)} {
		rec := ItemRecord{ViewsPerHour: v}
		if rec.Velocity() != 0 {
			t.Errorf("Velocity(%v) = %v, want 0", v, rec.Velocity())
		}
	}
	rec := ItemRecord{ViewsPerHour: 12.5}
	if rec.Velocity() != 12.5 {
		t.Errorf("Velocity = %v", rec.Velocity())
	}
}

func TestShortsFilter(t *testing.T) {
	records := []ItemRecord{{ItemID: "a", IsShort: true}, {ItemID: "b"}, {ItemID: "c", IsShort: true}}

	if got := FilterShorts(records, ShortsAll); len(got) != 3 {
		t.Errorf("all: got %d records", len(got))
	}
	if got := FilterShorts(records, ShortsOnly); len(got) != 2 || got[0].ItemID != "a" {
		t.Errorf("shorts: got %+v", got)
	}
	if got := FilterShorts(records, ShortsLong); len(got) != 1 || got[0].ItemID != "b" {
		t.Errorf("long: got %+v", got)
	}
	if ParseShortsFilter("bogus") != ShortsAll || ParseShortsFilter("long") != ShortsLong {
		t.Error("ParseShortsFilter mismatch")
	}
}

func TestTableIndexes(t *testing.T) {
	records := []ItemRecord{
		{ItemID: "a", SnapshotTS: ts2, CategoryID: "10", CategoryName: "Music",
			TagFields: []topic.RawTagField{topic.TextField(topic.FieldTagsAPI, `["Rock", "#rock"]`)}},
		{ItemID: "b", SnapshotTS: ts1, CategoryID: "20", CategoryName: ""},
		{ItemID: "c", SnapshotTS: ts1, CategoryID: "20", CategoryName: "Gaming"},
		{ItemID: "d", SnapshotTS: ts1, CategoryID: "10", CategoryName: "Music"},
	}
	table := NewTable(records)

	if records[0].Topics != nil {
		t.Error("NewTable must not modify the caller's records")
	}
	if got := table.At(ts2)[0].Topics; !reflect.DeepEqual(got, topic.Set{"rock"}) {
		t.Errorf("topics = %q", got)
	}

	if got := table.Timestamps(); !reflect.DeepEqual(got, []time.Time{ts1, ts2}) {
		t.Errorf("Timestamps = %v", got)
	}
	if latest, _ := table.Latest(); !latest.Equal(ts2) {
		t.Errorf("Latest = %v", latest)
	}
	if prev, _ := table.Previous(); !prev.Equal(ts1) {
		t.Errorf("Previous = %v", prev)
	}

	cats := table.Categories(ts1)
	want := []Category{{ID: "20", Label: "Gaming"}, {ID: "10", Label: "Music"}}
	if !reflect.DeepEqual(cats, want) {
		t.Errorf("Categories = %+v, want %+v", cats, want)
	}

	if got := table.InCategory(ts1, "20"); len(got) != 2 {
		t.Errorf("InCategory = %d records", len(got))
	}
	if got := table.At(time.Unix(0, 0)); len(got) != 0 {
		t.Errorf("At(unknown) = %d records", len(got))
	}

	sum := table.Summary()
	if len(sum) != 2 || sum[0].Videos != 3 || sum[0].Categories != 2 || sum[1].Videos != 1 {
		t.Errorf("Summary = %+v", sum)
	}
}

func TestTableSingleAndEmpty(t *testing.T) {
	empty := NewTable(nil)
	if _, ok := empty.Latest(); ok {
		t.Error("empty table has no latest snapshot")
	}
	if _, ok := empty.Previous(); ok {
		t.Error("empty table has no previous snapshot")
	}

	single := NewTable([]ItemRecord{{ItemID: "a", SnapshotTS: ts1}})
	prev, _ := single.Previous()
	latest, _ := single.Latest()
	if !prev.Equal(latest) {
		t.Errorf("single snapshot: previous %v != latest %v", prev, latest)
	}
}
