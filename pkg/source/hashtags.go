package source

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/elonfeng/ytradar/pkg/topic"
)

// ShortMaxSeconds is the longest duration still counted as short-form.
const ShortMaxSeconds = 60

var hashtagRE = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

// ExtractHashtags returns the distinct hashtags of texts in order of first
// appearance, lower-cased and with the leading '#'.
func ExtractHashtags(texts ...string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, text := range texts {
		for _, tag := range hashtagRE.FindAllString(text, -1) {
			tag = strings.ToLower(tag)
			if !seen[tag] {
				seen[tag] = true
				out = append(out, tag)
			}
		}
	}
	return out
}

// TagFields builds the raw tag fields of an item from its declared tags and
// extracted hashtags, including their overlap and differences.
func TagFields(apiTags, hashtags []string) []topic.RawTagField {
	api := tagKeys(apiTags)
	hash := tagKeys(hashtags)

	var common, onlyAPI, onlyHash []string
	for k := range api {
		if hash[k] {
			common = append(common, k)
		} else {
			onlyAPI = append(onlyAPI, k)
		}
	}
	for k := range hash {
		if !api[k] {
			onlyHash = append(onlyHash, k)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyAPI)
	sort.Strings(onlyHash)

	return []topic.RawTagField{
		topic.ListField(topic.FieldTagsAPI, apiTags),
		topic.ListField(topic.FieldHashtags, hashtags),
		topic.ListField(topic.FieldTagsCommon, common),
		topic.ListField(topic.FieldTagsOnlyAPI, onlyAPI),
		topic.ListField(topic.FieldTagsOnlyTag, onlyHash),
	}
}

func tagKeys(tags []string) map[string]bool {
	keys := make(map[string]bool, len(tags))
	for _, t := range tags {
		if k := strings.ToLower(strings.TrimLeft(strings.TrimSpace(t), "#")); k != "" {
			keys[k] = true
		}
	}
	return keys
}

// IsShortForm reports whether an item looks like a short: a known duration
// of at most ShortMaxSeconds or a #shorts hashtag.
func IsShortForm(durationSec int, hashtags []string) bool {
	if durationSec > 0 && durationSec <= ShortMaxSeconds {
		return true
	}
	for _, h := range hashtags {
		if h == "#shorts" || h == "#short" {
			return true
		}
	}
	return false
}

// ViewsPerHour is the lifetime average velocity at capture time at. Items
// published less than an hour ago count as one hour old. An unknown publish
// time yields NaN.
func ViewsPerHour(views int64, published, at time.Time) float64 {
	if published.IsZero() {
		return math.NaN()
	}
	hours := at.Sub(published).Hours()
	if hours < 1 {
		hours = 1
	}
	return float64(views) / hours
}
