package analysis

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Normalize maps any decoded payload onto a canonical Report. It never fails:
// missing, mistyped and out-of-range values become defaults or are clamped.
//
// raw may be a decoded JSON object (map[string]any), JSON text ([]byte,
// json.RawMessage or string), or a Report.
func Normalize(raw any) Report {
	switch v := raw.(type) {
	case Report:
		return v.Canonical()
	case *Report:
		if v == nil {
			return Zero()
		}
		return v.Canonical()
	}

	m := asObject(raw)
	technique := asObject(lookup(m, "technique"))

	r := Report{
		ID:           text(lookup(m, "id")),
		VideoID:      text(lookup(m, "video_id")),
		AnalyzedAt:   text(lookup(m, "analyzed_at")),
		Speed:        number(lookup(m, "speed")),
		Rank:         number(lookup(m, "rank")),
		RankPosition: firstNumber(m, "rank_position", "rankPosition"),
		Level:        text(lookup(m, "level")),
		Score:        number(lookup(m, "score")),
		Technique: Technique{
			Power:        firstOf(technique, m, "power", "technique_power"),
			Angle:        firstOf(technique, m, "angle", "technique_angle"),
			Coordination: firstOf(technique, m, "coordination", "technique_coordination"),
		},
		Suggestions: suggestions(lookup(m, "suggestions")),
	}
	return r.Canonical()
}

func suggestions(v any) []Suggestion {
	out := []Suggestion{}
	var items []any
	switch list := v.(type) {
	case []any:
		items = list
	case []map[string]any:
		for _, item := range list {
			items = append(items, item)
		}
	default:
		return out
	}
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Suggestion{
			Title:       text(lookup(obj, "title")),
			Description: text(lookup(obj, "desc", "description")),
			Icon:        text(lookup(obj, "icon")),
			Highlight:   text(lookup(obj, "highlight")),
		})
	}
	return out
}

// firstOf reads key from the nested technique object, falling back to the
// flat key on the outer object.
func firstOf(nested, outer map[string]any, key, flat string) float64 {
	if v := number(lookup(nested, key)); v != 0 {
		return v
	}
	return number(lookup(outer, flat))
}

// firstNumber returns the first non-zero number among the values matching
// names, exact keys first.
func firstNumber(m map[string]any, names ...string) float64 {
	for _, v := range candidates(m, names...) {
		if n := number(v); n != 0 {
			return n
		}
	}
	return 0
}

// lookup returns the first non-nil value whose key matches one of names.
// Exact keys win; otherwise keys match ignoring case, '_' and '-'.
func lookup(m map[string]any, names ...string) any {
	c := candidates(m, names...)
	if len(c) == 0 {
		return nil
	}
	return c[0]
}

func candidates(m map[string]any, names ...string) []any {
	if len(m) == 0 {
		return nil
	}
	var out []any
	seen := make(map[string]bool)
	for _, name := range names {
		if v, ok := m[name]; ok && v != nil && !seen[name] {
			seen[name] = true
			out = append(out, v)
		}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, name := range names {
		want := foldKey(name)
		for _, k := range keys {
			if seen[k] || m[k] == nil || foldKey(k) != want {
				continue
			}
			seen[k] = true
			out = append(out, m[k])
		}
	}
	return out
}

var keySeparators = strings.NewReplacer("_", "", "-", "")

func foldKey(k string) string {
	return keySeparators.Replace(strings.ToLower(k))
}

func asObject(v any) map[string]any {
	switch obj := v.(type) {
	case map[string]any:
		return obj
	case json.RawMessage:
		return decodeObject(obj)
	case []byte:
		return decodeObject(obj)
	case string:
		return decodeObject([]byte(obj))
	default:
		return nil
	}
}

func decodeObject(b []byte) map[string]any {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil
	}
	return m
}

// number coerces v to a finite float. Anything that is not a number or a
// numeric string is 0.
func number(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// text renders scalars as strings. Objects and arrays count as absent.
func text(v any) string {
	switch s := v.(type) {
	case string:
		return trimSpace(s)
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

func trimSpace(s string) string {
	return strings.TrimSpace(s)
}
