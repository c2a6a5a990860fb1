package topic

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// edgeChars are stripped from both ends of a raw tag.
const edgeChars = "#@!*_•.- "

// DefaultStopTags are generic platform and engagement terms that never name a topic.
var DefaultStopTags = []string{
	"short", "shorts", "youtubeshorts",
	"viral", "trend", "trending",
	"fyp", "foryou", "reels",
	"subscribe", "subscribenow", "sub",
	"like", "likes", "likethis",
	"follow", "followme",
	"new", "news", "newvideo", "video", "videos",
	"live", "stream",
	"channel", "official", "tv",

	"шорт", "шортс", "шортсы",
	"тренд", "тренды", "втренде",
	"подписка", "подпишись", "подписаться",
	"лайк", "лайки", "ставьлайк",
	"рекомендации", "рекомендацииютуба",
	"новое", "новинка", "новинкавидео", "видео",
	"стрим", "прямойэфир",
	"канал", "официальный",
}

// DefaultStopSubstrings reject a tag wherever they appear in it.
var DefaultStopSubstrings = []string{
	"official", "офишл", "офишлканал",
	"channel", "канал",
}

// Normalizer turns raw tags into topic keys.
type Normalizer struct {
	stop    map[string]bool
	substrs []string
}

// NewNormalizer creates a normalizer with the default lists plus extras.
func NewNormalizer(extraStopTags, extraStopSubstrings []string) *Normalizer {
	stop := make(map[string]bool, len(DefaultStopTags)+len(extraStopTags))
	for _, t := range DefaultStopTags {
		stop[t] = true
	}
	for _, t := range extraStopTags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			stop[t] = true
		}
	}

	substrs := make([]string, 0, len(DefaultStopSubstrings)+len(extraStopSubstrings))
	substrs = append(substrs, DefaultStopSubstrings...)
	for _, s := range extraStopSubstrings {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			substrs = append(substrs, s)
		}
	}

	return &Normalizer{stop: stop, substrs: substrs}
}

var defaultNormalizer = NewNormalizer(nil, nil)

// Normalize cleans raw with the default stop lists.
func Normalize(raw string) (string, bool) {
	return defaultNormalizer.Normalize(raw)
}

// Normalize returns the canonical topic key for raw, or false when raw is noise.
func (n *Normalizer) Normalize(raw string) (string, bool) {
	tag := strings.TrimFunc(strings.ToLower(raw), func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(edgeChars, r)
	})
	if tag == "" {
		return "", false
	}

	length := utf8.RuneCountInString(tag)
	if length < 2 {
		return "", false
	}

	digits, alnum := 0, 0
	for _, r := range tag {
		if unicode.IsDigit(r) {
			digits++
		}
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			alnum++
		}
	}
	if digits == length {
		return "", false
	}
	if alnum == 0 || float64(alnum)/float64(length) < 0.4 {
		return "", false
	}

	if n.stop[tag] {
		return "", false
	}
	for _, sub := range n.substrs {
		if strings.Contains(tag, sub) {
			return "", false
		}
	}

	return tag, true
}
