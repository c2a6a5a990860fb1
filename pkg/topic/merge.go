package topic

import (
	"encoding/json"
	"sort"
	"strings"
)

// FieldKind tells how a raw tag field is encoded.
type FieldKind int

const (
	// FieldText is an opaque string, possibly a JSON list encoding.
	FieldText FieldKind = iota
	// FieldList is an already-split list of raw tags.
	FieldList
)

// Tag field names used by the snapshot capture format.
const (
	FieldTagsAPI     = "tags_api_raw"
	FieldHashtags    = "hashtags_extracted"
	FieldTagsCommon  = "tags_common"
	FieldTagsOnlyAPI = "tags_only_api"
	FieldTagsOnlyTag = "tags_only_hash"
)

// FieldNames lists the tag columns in capture order.
var FieldNames = []string{
	FieldTagsAPI,
	FieldHashtags,
	FieldTagsCommon,
	FieldTagsOnlyAPI,
	FieldTagsOnlyTag,
}

// RawTagField is one source of raw tags for an item.
type RawTagField struct {
	Name   string    `json:"name"`
	Kind   FieldKind `json:"kind"`
	Text   string    `json:"text,omitempty"`
	Values []string  `json:"values,omitempty"`
}

// TextField wraps a raw string column.
func TextField(name, text string) RawTagField {
	return RawTagField{Name: name, Kind: FieldText, Text: text}
}

// ListField wraps an already-split list of tags.
func ListField(name string, values []string) RawTagField {
	return RawTagField{Name: name, Kind: FieldList, Values: values}
}

// Candidates returns the raw tag strings carried by the field.
func (f RawTagField) Candidates() []string {
	if f.Kind == FieldList {
		out := make([]string, 0, len(f.Values))
		for _, v := range f.Values {
			if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
				out = append(out, v)
			}
		}
		return out
	}
	return ParseField(f.Text)
}

// ParseField decodes a tag column. A JSON array yields its elements, a JSON
// scalar yields one candidate and anything else is kept as a single tag.
func ParseField(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var val any
	if err := json.Unmarshal([]byte(raw), &val); err != nil {
		return []string{strings.ToLower(raw)}
	}

	list, ok := val.([]any)
	if !ok {
		s := strings.ToLower(strings.TrimSpace(jsonText(val)))
		if s == "" {
			return nil
		}
		return []string{s}
	}

	out := make([]string, 0, len(list))
	for _, v := range list {
		if s := strings.ToLower(strings.TrimSpace(jsonText(v))); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func jsonText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Set is a sorted, duplicate-free list of topic keys.
type Set []string

// Contains reports whether key is in the set.
func (s Set) Contains(key string) bool {
	i := sort.SearchStrings(s, key)
	return i < len(s) && s[i] == key
}

// NewSet builds a Set from arbitrary keys.
func NewSet(keys ...string) Set {
	seen := make(map[string]bool, len(keys))
	out := make(Set, 0, len(keys))
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Merge builds the item's topic set with the default normalizer.
func Merge(fields ...RawTagField) Set {
	return defaultNormalizer.Merge(fields...)
}

// Merge normalizes every candidate of every field into one topic set.
func (n *Normalizer) Merge(fields ...RawTagField) Set {
	var keys []string
	for _, f := range fields {
		for _, c := range f.Candidates() {
			if key, ok := n.Normalize(c); ok {
				keys = append(keys, key)
			}
		}
	}
	return NewSet(keys...)
}
