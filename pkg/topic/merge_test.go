package topic

import (
	"reflect"
	"testing"
)

func TestParseField(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"blank", "   ", nil},
		{"json list", `["Rock", " Pop ", ""]`, []string{"rock", "pop"}},
		{"json list with numbers", `["rock", 2024]`, []string{"rock", "2024"}},
		{"json scalar", `"Jazz"`, []string{"jazz"}},
		{"json number scalar", `42`, []string{"42"}},
		{"broken json", `["rock", "pop"`, []string{`["rock", "pop"`}},
		{"free text", "  Lo-Fi ", []string{"lo-fi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseField(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseField(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestMergeCollapsesVariants(t *testing.T) {
	want := Set{"rock"}

	got := Merge(ListField(FieldTagsAPI, []string{"rock", "#Rock", " ROCK "}))
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge(list) = %q, want %q", got, want)
	}

	got = Merge(
		TextField(FieldTagsAPI, `["rock"]`),
		TextField(FieldHashtags, `["#Rock"]`),
		TextField(FieldTagsCommon, " ROCK "),
	)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge(text fields) = %q, want %q", got, want)
	}
}

func TestMergeDropsNoise(t *testing.T) {
	got := Merge(
		TextField(FieldTagsAPI, `["Covers", "official", "2024", "x"]`),
		TextField(FieldHashtags, `["#shorts", "#acoustic"]`),
		TextField(FieldTagsOnlyTag, ""),
	)
	want := Set{"acoustic", "covers"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge = %q, want %q", got, want)
	}
}

func TestMergeNoFields(t *testing.T) {
	if got := Merge(); len(got) != 0 {
		t.Errorf("Merge() = %q, want empty", got)
	}
}

func TestSetContains(t *testing.T) {
	s := NewSet("pop", "rock", "jazz", "rock", "")
	if !reflect.DeepEqual(s, Set{"jazz", "pop", "rock"}) {
		t.Fatalf("NewSet = %q", s)
	}
	if !s.Contains("pop") || s.Contains("metal") {
		t.Errorf("Contains mismatch on %q", s)
	}
}
