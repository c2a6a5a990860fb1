package topic

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"plain", "rock", "rock", true},
		{"hashtag and case", "#Rock", "rock", true},
		{"surrounding space", "  ROCK  ", "rock", true},
		{"repeated markers", "#@!*rock*_.-", "rock", true},
		{"bullet marker", "•music•", "music", true},
		{"two chars kept", "ai", "ai", true},
		{"two chars upper", "AI", "ai", true},
		{"single char", "#a", "", false},
		{"empty", "", "", false},
		{"only markers", "#@!", "", false},
		{"numeric", "2024", "", false},
		{"numeric with markers", "#2024!", "", false},
		{"mixed digits kept", "2024cup", "2024cup", true},
		{"low alnum ratio", "a%%%%", "", false},
		{"stop tag", "#Subscribe!", "", false},
		{"stop tag shorts", "SHORTS", "", false},
		{"localized stop tag", "#Шортс", "", false},
		{"forbidden substring", "bandofficial", "", false},
		{"forbidden localized substring", "мойканал", "", false},
		{"cyrillic kept", "#Музыка", "музыка", true},
		{"inner space kept", "lo fi", "lo fi", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Normalize(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"#Rock", " Lo-Fi Beats ", "__музыка__", "k-pop", "#AI", "Tag.", "2024cup", "# rock\t", "#\t xy", "!\u00a0lofi ."}
	for _, in := range inputs {
		once, ok := Normalize(in)
		if !ok {
			t.Fatalf("Normalize(%q) rejected", in)
		}
		twice, ok := Normalize(once)
		if !ok || twice != once {
			t.Errorf("Normalize(Normalize(%q)) = (%q, %v), want %q", in, twice, ok, once)
		}
	}
}

func TestNormalizeTrimsWhitespaceInsideMarkers(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"#\tx", "", false},
		{"# rock\t", "rock", true},
		{"@ \n jazz \t#", "jazz", true},
	}
	for _, tt := range tests {
		got, ok := Normalize(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Normalize(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNormalizerExtras(t *testing.T) {
	n := NewNormalizer([]string{" Gaming "}, []string{"SPONSOR"})

	if _, ok := n.Normalize("#gaming"); ok {
		t.Error("extra stop tag should be rejected")
	}
	if _, ok := n.Normalize("sponsored"); ok {
		t.Error("extra stop substring should be rejected")
	}
	if _, ok := n.Normalize("#subscribe"); ok {
		t.Error("default stop tags must still apply")
	}
	if got, ok := n.Normalize("speedrun"); !ok || got != "speedrun" {
		t.Errorf("Normalize(speedrun) = (%q, %v)", got, ok)
	}
	if _, ok := Normalize("gaming"); !ok {
		t.Error("extras must not leak into the default normalizer")
	}
}
