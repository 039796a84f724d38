// Package ranking orders pins by recency-boosted popularity and filters
// them by free text, category and tags.
package ranking

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"creaza/internal/models"
	"creaza/internal/observability"
)

// Score is likes*2 plus the pin's age in fractional days.
func Score(p models.Pin, now time.Time) float64 {
	ageDays := now.Sub(p.CreatedAt).Hours() / 24
	return float64(p.Likes*2) + ageDays
}

// Source supplies the candidate pins for Trending.
type Source interface {
	TopByLikes(ctx context.Context, limit int) ([]models.Pin, error)
	Newest(ctx context.Context, limit int) ([]models.Pin, error)
}

// Trending scores the 2*limit most liked pins and returns the best limit.
// When that fetch fails it falls back to the newest pins, and when that
// fails too it returns an empty slice.
func Trending(ctx context.Context, src Source, limit int, now time.Time) []models.Pin {
	if limit <= 0 {
		return []models.Pin{}
	}
	candidates, err := src.TopByLikes(ctx, limit*2)
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "trending fetch failed, falling back to newest", "error", err)
		newest, err := src.Newest(ctx, limit)
		if err != nil {
			observability.GlobalLogger.ErrorContext(ctx, "newest fetch failed", "error", err)
			return []models.Pin{}
		}
		return newest
	}

	ranked := slices.Clone(candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return Score(ranked[i], now) > Score(ranked[j], now)
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Criteria narrows a pin list. Empty fields do not filter.
type Criteria struct {
	// Text matches case-insensitively anywhere in title, description,
	// category or any tag.
	Text string
	// Category must equal the pin's category.
	Category models.Category
	// Tags keeps pins carrying at least one of these tags exactly.
	Tags []string
	// Categories keeps pins in any of the selected categories. Applied after Text.
	Categories []models.Category
}

// Matches reports whether p passes every criterion.
func (c Criteria) Matches(p models.Pin) bool {
	if c.Category != "" && p.Category != c.Category {
		return false
	}
	if len(c.Tags) > 0 && !slices.ContainsFunc(p.Tags, func(t string) bool { return slices.Contains(c.Tags, t) }) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(c.Text)); q != "" && !matchesText(p, q) {
		return false
	}
	if len(c.Categories) > 0 && !slices.Contains(c.Categories, p.Category) {
		return false
	}
	return true
}

func matchesText(p models.Pin, q string) bool {
	if strings.Contains(strings.ToLower(p.Title), q) ||
		strings.Contains(strings.ToLower(p.Description), q) ||
		strings.Contains(strings.ToLower(string(p.Category)), q) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// Filter returns the pins matching c, preserving order.
func Filter(pins []models.Pin, c Criteria) []models.Pin {
	out := make([]models.Pin, 0, len(pins))
	for _, p := range pins {
		if c.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// Tags returns the sorted distinct tags across pins.
func Tags(pins []models.Pin) []string {
	seen := map[string]struct{}{}
	for _, p := range pins {
		for _, t := range p.Tags {
			if t = strings.TrimSpace(t); t != "" {
				seen[t] = struct{}{}
			}
		}
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}
