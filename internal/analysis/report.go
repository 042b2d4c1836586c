package analysis

import "math"

// Placeholders used when a payload leaves a text field empty.
const (
	PlaceholderLevel       = "-"
	PlaceholderTitle       = "Suggestion"
	PlaceholderDescription = "No details provided"
	PlaceholderIcon        = "lightbulb"
)

// Technique holds the three technique sub-scores, each in [0,100].
type Technique struct {
	Power        float64 `json:"power"`
	Angle        float64 `json:"angle"`
	Coordination float64 `json:"coordination"`
}

// Suggestion is one coaching hint.
type Suggestion struct {
	Title       string `json:"title"`
	Description string `json:"desc"`
	Icon        string `json:"icon"`
	Highlight   string `json:"highlight"`
}

// Report is the canonical analysis result. Values produced by Normalize or
// Canonical always satisfy the range constraints and Suggestions is never nil.
type Report struct {
	ID         string `json:"id,omitempty"`
	VideoID    string `json:"video_id,omitempty"`
	AnalyzedAt string `json:"analyzed_at,omitempty"`

	Speed        float64      `json:"speed"`
	Rank         float64      `json:"rank"`
	RankPosition float64      `json:"rank_position"`
	Level        string       `json:"level"`
	Technique    Technique    `json:"technique"`
	Score        float64      `json:"score"`
	Suggestions  []Suggestion `json:"suggestions"`
}

// Zero is the report shown before any analysis has completed.
func Zero() Report {
	return Report{Level: PlaceholderLevel, Suggestions: []Suggestion{}}
}

// Canonical returns r with every field forced into range. It is idempotent
// and Normalize(x).Canonical() == Normalize(x).
func (r Report) Canonical() Report {
	out := r
	out.Speed = atLeastZero(r.Speed)
	out.Rank = clamp(r.Rank, 0, 100)
	out.RankPosition = atLeastZero(r.RankPosition)
	out.Score = clamp(r.Score, 0, 10)
	out.Technique = Technique{
		Power:        clamp(r.Technique.Power, 0, 100),
		Angle:        clamp(r.Technique.Angle, 0, 100),
		Coordination: clamp(r.Technique.Coordination, 0, 100),
	}
	out.Level = orDefault(r.Level, PlaceholderLevel)
	out.Suggestions = make([]Suggestion, 0, len(r.Suggestions))
	for _, s := range r.Suggestions {
		out.Suggestions = append(out.Suggestions, s.canonical())
	}
	return out
}

// Clone returns a deep copy.
func (r Report) Clone() Report {
	out := r
	if r.Suggestions != nil {
		out.Suggestions = append([]Suggestion(nil), r.Suggestions...)
	}
	return out
}

func (s Suggestion) canonical() Suggestion {
	return Suggestion{
		Title:       orDefault(s.Title, PlaceholderTitle),
		Description: orDefault(s.Description, PlaceholderDescription),
		Icon:        orDefault(s.Icon, PlaceholderIcon),
		Highlight:   trimSpace(s.Highlight),
	}
}

func clamp(v, lo, hi float64) float64 {
	v = finite(v)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func atLeastZero(v float64) float64 {
	return math.Max(0, finite(v))
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func orDefault(s, fallback string) string {
	if s = trimSpace(s); s == "" {
		return fallback
	}
	return s
}
