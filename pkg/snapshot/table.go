package snapshot

import (
	"sort"
	"time"

	"github.com/elonfeng/ytradar/pkg/topic"
)

// Category is a category id with its display label.
type Category struct {
	ID    string `json:"category_id"`
	Label string `json:"category_name"`
}

// Summary describes one snapshot.
type Summary struct {
	SnapshotTS time.Time `json:"snapshot_ts"`
	Videos     int       `json:"videos"`
	Categories int       `json:"categories"`
}

// Table is an immutable set of item records across snapshots. Topic sets are
// computed once when the table is built and shared read-only by all queries.
type Table struct {
	records    []ItemRecord
	byTS       map[int64][]int
	timestamps []time.Time
}

// NewTable builds a table with the default tag normalizer.
func NewTable(records []ItemRecord) *Table {
	return NewTableWith(records, topic.NewNormalizer(nil, nil))
}

// NewTableWith builds a table, merging each record's tag fields with n.
func NewTableWith(records []ItemRecord, n *topic.Normalizer) *Table {
	t := &Table{
		records: make([]ItemRecord, len(records)),
		byTS:    make(map[int64][]int),
	}
	copy(t.records, records)

	for i := range t.records {
		rec := &t.records[i]
		rec.Topics = n.Merge(rec.TagFields...)

		key := rec.SnapshotTS.UnixNano()
		if _, ok := t.byTS[key]; !ok {
			t.timestamps = append(t.timestamps, rec.SnapshotTS)
		}
		t.byTS[key] = append(t.byTS[key], i)
	}

	sort.Slice(t.timestamps, func(i, j int) bool {
		return t.timestamps[i].Before(t.timestamps[j])
	})
	return t
}

// Len returns the number of records.
func (t *Table) Len() int { return len(t.records) }

// Records returns every record. Callers must not modify them.
func (t *Table) Records() []ItemRecord { return t.records }

// Timestamps returns the distinct snapshot times in ascending order.
func (t *Table) Timestamps() []time.Time {
	out := make([]time.Time, len(t.timestamps))
	copy(out, t.timestamps)
	return out
}

// Latest returns the newest snapshot time.
func (t *Table) Latest() (time.Time, bool) {
	if len(t.timestamps) == 0 {
		return time.Time{}, false
	}
	return t.timestamps[len(t.timestamps)-1], true
}

// Previous returns the snapshot before the newest one, or the newest one
// when the table holds a single snapshot.
func (t *Table) Previous() (time.Time, bool) {
	switch len(t.timestamps) {
	case 0:
		return time.Time{}, false
	case 1:
		return t.timestamps[0], true
	}
	return t.timestamps[len(t.timestamps)-2], true
}

// At returns the records captured at ts.
func (t *Table) At(ts time.Time) []ItemRecord {
	idx := t.byTS[ts.UnixNano()]
	out := make([]ItemRecord, len(idx))
	for i, j := range idx {
		out[i] = t.records[j]
	}
	return out
}

// InCategory returns the records captured at ts in category id.
func (t *Table) InCategory(ts time.Time, id string) []ItemRecord {
	var out []ItemRecord
	for _, j := range t.byTS[ts.UnixNano()] {
		if t.records[j].CategoryID == id {
			out = append(out, t.records[j])
		}
	}
	return out
}

// Categories lists the categories present at ts, sorted by label. The label
// of a category is the first non-empty name seen for its id.
func (t *Table) Categories(ts time.Time) []Category {
	labels := make(map[string]string)
	var order []string
	for _, j := range t.byTS[ts.UnixNano()] {
		rec := &t.records[j]
		label, ok := labels[rec.CategoryID]
		if !ok {
			order = append(order, rec.CategoryID)
		}
		if !ok || (label == rec.CategoryID && rec.CategoryName != "") {
			labels[rec.CategoryID] = rec.CategoryLabel()
		}
	}

	out := make([]Category, 0, len(order))
	for _, id := range order {
		out = append(out, Category{ID: id, Label: labels[id]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Summary returns per-snapshot item and category counts in time order.
func (t *Table) Summary() []Summary {
	out := make([]Summary, 0, len(t.timestamps))
	for _, ts := range t.timestamps {
		items := make(map[string]bool)
		cats := make(map[string]bool)
		for _, j := range t.byTS[ts.UnixNano()] {
			items[t.records[j].ItemID] = true
			cats[t.records[j].CategoryID] = true
		}
		out = append(out, Summary{SnapshotTS: ts, Videos: len(items), Categories: len(cats)})
	}
	return out
}
