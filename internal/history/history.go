// Package history lists past analyses and derives the dashboard figures.
package history

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/five82/smashtrack/internal/gateway"
)

// Item is one row of the history listing.
type Item struct {
	ID           string  `json:"id"`
	VideoID      string  `json:"video_id"`
	Speed        float64 `json:"speed"`
	Score        float64 `json:"score"`
	Level        string  `json:"level"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
	AnalyzedAt   string  `json:"analyzed_at"`
}

// Page is one page of history.
type Page struct {
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Items    []Item `json:"items"`
}

// Query selects a page. Zero values use the backend defaults.
type Query struct {
	Page     int
	PageSize int
	SortBy   string
	Order    string
}

// Sort fields and orders accepted by the backend.
const (
	SortAnalyzedAt = "analyzed_at"
	SortSpeed      = "speed"
	SortScore      = "score"

	OrderAsc  = "asc"
	OrderDesc = "desc"

	maxPageSize = 50
)

// DefaultQuery is the dashboard query: the ten most recent analyses.
func DefaultQuery() Query {
	return Query{Page: 1, PageSize: 10, SortBy: SortAnalyzedAt, Order: OrderDesc}
}

func (q Query) values() (url.Values, error) {
	v := url.Values{}
	if q.Page < 0 || q.PageSize < 0 {
		return nil, gateway.Validation("page and page size must be positive")
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		if q.PageSize > maxPageSize {
			return nil, gateway.Validation("page size must not exceed %d", maxPageSize)
		}
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	switch q.SortBy {
	case "":
	case SortAnalyzedAt, SortSpeed, SortScore:
		v.Set("sort_by", q.SortBy)
	default:
		return nil, gateway.Validation("cannot sort by %q", q.SortBy)
	}
	switch strings.ToLower(q.Order) {
	case "":
	case OrderAsc, OrderDesc:
		v.Set("order", strings.ToLower(q.Order))
	default:
		return nil, gateway.Validation("order must be asc or desc")
	}
	return v, nil
}

// Client reads the history endpoint.
type Client struct {
	api gateway.Doer
}

// NewClient builds a history client over api.
func NewClient(api gateway.Doer) *Client {
	return &Client{api: api}
}

// List fetches one page.
func (c *Client) List(ctx context.Context, q Query) (Page, error) {
	values, err := q.values()
	if err != nil {
		return Page{}, err
	}
	var page Page
	if err := c.api.Do(ctx, gateway.Request{Path: "/history", Query: values}, &page); err != nil {
		return Page{}, fmt.Errorf("list history: %w", err)
	}
	if page.Items == nil {
		page.Items = []Item{}
	}
	return page, nil
}

// Stats are the dashboard figures for a page of history.
type Stats struct {
	Total        int
	MaxSpeed     float64
	AverageScore float64
	Level        string
}

// Summarize computes stats over the items of p. Total comes from the server
// count, the rest from the listed items.
func Summarize(p Page) Stats {
	s := Stats{Total: p.Total, Level: LevelForSpeed(0)}
	if len(p.Items) == 0 {
		return s
	}
	var sum float64
	for _, it := range p.Items {
		s.MaxSpeed = math.Max(s.MaxSpeed, it.Speed)
		sum += it.Score
	}
	s.AverageScore = math.Round(sum/float64(len(p.Items))*10) / 10
	s.Level = LevelForSpeed(s.MaxSpeed)
	return s
}

// LevelForSpeed grades a best smash speed in km/h.
func LevelForSpeed(speed float64) string {
	switch {
	case speed >= 300:
		return "pro"
	case speed >= 250:
		return "elite"
	case speed >= 200:
		return "advanced"
	case speed >= 150:
		return "intermediate"
	default:
		return "beginner"
	}
}
