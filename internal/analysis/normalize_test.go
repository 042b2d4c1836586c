package analysis

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("decode %s: %v", s, err)
	}
	return v
}

func TestNormalize(t *testing.T) {
	convey.Convey("Given an in-range payload from the degraded attempt", t, func() {
		raw := map[string]any{
			"speed":       350,
			"technique":   map[string]any{"power": 80, "angle": 70, "coordination": 75},
			"score":       8.5,
			"suggestions": []any{},
		}

		convey.Convey("Then every field is kept as is", func() {
			r := Normalize(raw)
			convey.So(r.Speed, convey.ShouldEqual, 350.0)
			convey.So(r.Technique, convey.ShouldResemble, Technique{Power: 80, Angle: 70, Coordination: 75})
			convey.So(r.Score, convey.ShouldEqual, 8.5)
			convey.So(r.Suggestions, convey.ShouldNotBeNil)
			convey.So(r.Suggestions, convey.ShouldBeEmpty)
			convey.So(r.Level, convey.ShouldEqual, PlaceholderLevel)
			convey.So(r.Rank, convey.ShouldEqual, 0.0)
			convey.So(r.RankPosition, convey.ShouldEqual, 0.0)
		})
	})

	convey.Convey("Given a malformed, out-of-range payload", t, func() {
		raw := decode(t, `{"speed":"120","technique":{"power":150,"angle":-5}}`)

		convey.Convey("Then values are coerced, clamped and defaulted", func() {
			r := Normalize(raw)
			convey.So(r.Speed, convey.ShouldEqual, 120.0)
			convey.So(r.Technique.Power, convey.ShouldEqual, 100.0)
			convey.So(r.Technique.Angle, convey.ShouldEqual, 0.0)
			convey.So(r.Technique.Coordination, convey.ShouldEqual, 0.0)
			convey.So(r.Score, convey.ShouldEqual, 0.0)
			convey.So(r.Suggestions, convey.ShouldNotBeNil)
			convey.So(r.Suggestions, convey.ShouldBeEmpty)
		})
	})

	convey.Convey("Given mistyped numeric fields", t, func() {
		raw := map[string]any{
			"speed": true,
			"rank":  []any{1, 2},
			"score": map[string]any{"v": 1},
			"level": 3,
		}

		convey.Convey("Then they become zero and scalars are formatted as text", func() {
			r := Normalize(raw)
			convey.So(r.Speed, convey.ShouldEqual, 0.0)
			convey.So(r.Rank, convey.ShouldEqual, 0.0)
			convey.So(r.Score, convey.ShouldEqual, 0.0)
			convey.So(r.Level, convey.ShouldEqual, "3")
		})
	})

	convey.Convey("Given ranges on every bounded field", t, func() {
		raw := map[string]any{
			"speed":         -40,
			"rank":          140,
			"rank_position": -2,
			"score":         11.2,
		}

		convey.Convey("Then each is clamped", func() {
			r := Normalize(raw)
			convey.So(r.Speed, convey.ShouldEqual, 0.0)
			convey.So(r.Rank, convey.ShouldEqual, 100.0)
			convey.So(r.RankPosition, convey.ShouldEqual, 0.0)
			convey.So(r.Score, convey.ShouldEqual, 10.0)
		})
	})

	convey.Convey("Given alternate key spellings", t, func() {
		convey.Convey("rankPosition is read from either spelling", func() {
			convey.So(Normalize(map[string]any{"rankPosition": 5}).RankPosition, convey.ShouldEqual, 5.0)
			convey.So(Normalize(map[string]any{"rank_position": 7}).RankPosition, convey.ShouldEqual, 7.0)
			convey.So(Normalize(map[string]any{"RankPosition": "9"}).RankPosition, convey.ShouldEqual, 9.0)
		})

		convey.Convey("a zero snake_case value falls through to camelCase", func() {
			r := Normalize(map[string]any{"rank_position": 0, "rankPosition": 4})
			convey.So(r.RankPosition, convey.ShouldEqual, 4.0)
		})

		convey.Convey("flat technique keys back up the nested object", func() {
			r := Normalize(map[string]any{
				"technique":              map[string]any{"power": 60},
				"technique_angle":        55,
				"technique_coordination": "72",
			})
			convey.So(r.Technique, convey.ShouldResemble, Technique{Power: 60, Angle: 55, Coordination: 72})
		})

		convey.Convey("keys match regardless of case", func() {
			r := Normalize(map[string]any{"Speed": 210, "SCORE": 7})
			convey.So(r.Speed, convey.ShouldEqual, 210.0)
			convey.So(r.Score, convey.ShouldEqual, 7.0)
		})
	})

	convey.Convey("Given suggestions with gaps", t, func() {
		raw := decode(t, `{"suggestions":[
			{"title":"Wrist snap","desc":"Snap later","icon":"fitness_center","highlight":"0.2s"},
			"not an object",
			{"description":"Use the hips"},
			null,
			{}
		]}`)

		convey.Convey("Then non-objects are skipped, order is kept and text is defaulted", func() {
			r := Normalize(raw)
			convey.So(len(r.Suggestions), convey.ShouldEqual, 3)
			convey.So(r.Suggestions[0], convey.ShouldResemble, Suggestion{Title: "Wrist snap", Description: "Snap later", Icon: "fitness_center", Highlight: "0.2s"})
			convey.So(r.Suggestions[1], convey.ShouldResemble, Suggestion{Title: PlaceholderTitle, Description: "Use the hips", Icon: PlaceholderIcon})
			convey.So(r.Suggestions[2], convey.ShouldResemble, Suggestion{Title: PlaceholderTitle, Description: PlaceholderDescription, Icon: PlaceholderIcon})
		})
	})

	convey.Convey("Given a suggestions value that is not a list", t, func() {
		r := Normalize(map[string]any{"suggestions": "none"})
		convey.So(r.Suggestions, convey.ShouldNotBeNil)
		convey.So(r.Suggestions, convey.ShouldBeEmpty)
	})

	convey.Convey("Given JSON text and upstream metadata", t, func() {
		r := Normalize(`{"id":"a1","video_id":"v1","analyzed_at":"2025-03-01T10:00:00","speed":301.5,"level":"职业级"}`)
		convey.So(r.ID, convey.ShouldEqual, "a1")
		convey.So(r.VideoID, convey.ShouldEqual, "v1")
		convey.So(r.AnalyzedAt, convey.ShouldEqual, "2025-03-01T10:00:00")
		convey.So(r.Speed, convey.ShouldEqual, 301.5)
		convey.So(r.Level, convey.ShouldEqual, "职业级")
	})
}

func TestNormalize_IsTotal(t *testing.T) {
	inputs := []any{
		nil,
		42,
		"not json",
		"[1,2,3]",
		[]byte(`{"speed":`),
		json.RawMessage(`{"speed":"NaN"}`),
		[]any{map[string]any{"speed": 1}},
		map[string]any{"speed": math.Inf(1), "score": math.NaN()},
		map[string]any{"technique": "strong", "suggestions": map[string]any{"title": "x"}},
		(*Report)(nil),
		Report{Speed: -1, Suggestions: nil},
	}
	for _, in := range inputs {
		r := Normalize(in)
		if r.Suggestions == nil {
			t.Fatalf("Normalize(%#v).Suggestions = nil, want empty", in)
		}
		if r.Level == "" {
			t.Fatalf("Normalize(%#v).Level empty", in)
		}
		assertInRange(t, r)
	}
}

func TestCanonical_IsIdempotent(t *testing.T) {
	payloads := []string{
		`{"speed":"120","technique":{"power":150,"angle":-5}}`,
		`{"speed":350,"rank":88,"rankPosition":12,"level":" 进阶级 ","technique":{"power":80,"angle":70,"coordination":75},"score":8.5,"suggestions":[{"title":" t ","desc":"","icon":"","highlight":" 15° "}]}`,
		`{}`,
	}
	for _, p := range payloads {
		once := Normalize(decode(t, p))
		twice := once.Canonical()
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("Canonical not idempotent:\n once = %+v\ntwice = %+v", once, twice)
		}
		if again := Normalize(once); !reflect.DeepEqual(once, again) {
			t.Fatalf("Normalize(report) changed it:\n once = %+v\nagain = %+v", once, again)
		}
	}
}

func TestZero(t *testing.T) {
	z := Zero()
	if z.Level != PlaceholderLevel || z.Suggestions == nil || len(z.Suggestions) != 0 {
		t.Fatalf("Zero() = %+v", z)
	}
	if !reflect.DeepEqual(z, z.Canonical()) {
		t.Fatalf("Zero() is not canonical")
	}
}

func assertInRange(t *testing.T, r Report) {
	t.Helper()
	check := func(name string, v, lo, hi float64) {
		if math.IsNaN(v) || v < lo || v > hi {
			t.Fatalf("%s = %v, want within [%v, %v]", name, v, lo, hi)
		}
	}
	check("speed", r.Speed, 0, math.MaxFloat64)
	check("rank", r.Rank, 0, 100)
	check("rankPosition", r.RankPosition, 0, math.MaxFloat64)
	check("score", r.Score, 0, 10)
	check("power", r.Technique.Power, 0, 100)
	check("angle", r.Technique.Angle, 0, 100)
	check("coordination", r.Technique.Coordination, 0, 100)
}
