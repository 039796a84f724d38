package ranking

import (
	"context"
	"errors"
	"testing"
	"time"

	"creaza/internal/models"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func pin(id string, likes int, age time.Duration) models.Pin {
	return models.Pin{ID: id, Likes: likes, CreatedAt: now.Add(-age)}
}

type sourceStub struct {
	topFn    func(limit int) ([]models.Pin, error)
	newestFn func(limit int) ([]models.Pin, error)
}

func (s sourceStub) TopByLikes(_ context.Context, limit int) ([]models.Pin, error) {
	return s.topFn(limit)
}

func (s sourceStub) Newest(_ context.Context, limit int) ([]models.Pin, error) {
	return s.newestFn(limit)
}

func TestScore(t *testing.T) {
	assert.Equal(t, 10.0, Score(pin("a", 5, 0), now))
	assert.InDelta(t, 13.0+1.0/24, Score(pin("b", 5, 3*24*time.Hour+time.Hour), now), 1e-9)
	assert.InDelta(t, 23.0/24, Score(pin("c", 0, 23*time.Hour), now), 1e-9)
}

func TestTrending_HoursApartDoNotTie(t *testing.T) {
	src := sourceStub{topFn: func(int) ([]models.Pin, error) {
		return []models.Pin{pin("morning", 4, 2*time.Hour), pin("night", 4, 14*time.Hour)}, nil
	}}

	got := Trending(context.Background(), src, 2, now)
	if assert.Len(t, got, 2) {
		assert.Equal(t, "night", got[0].ID)
		assert.Equal(t, "morning", got[1].ID)
	}
}

func TestTrending_ScoresTopCandidates(t *testing.T) {
	var asked int
	src := sourceStub{topFn: func(limit int) ([]models.Pin, error) {
		asked = limit
		return []models.Pin{
			pin("fresh", 10, 0),            // 20
			pin("old", 8, 10*24*time.Hour), // 26
			pin("mid", 9, 1*24*time.Hour),  // 19
			pin("tail", 1, 2*24*time.Hour), // 4
		}, nil
	}}

	got := Trending(context.Background(), src, 2, now)
	assert.Equal(t, 4, asked)
	if assert.Len(t, got, 2) {
		assert.Equal(t, "old", got[0].ID)
		assert.Equal(t, "fresh", got[1].ID)
	}
}

func TestTrending_FallsBackToNewest(t *testing.T) {
	src := sourceStub{
		topFn:    func(int) ([]models.Pin, error) { return nil, errors.New("index missing") },
		newestFn: func(limit int) ([]models.Pin, error) { return []models.Pin{pin("n1", 0, 0)}, nil },
	}
	got := Trending(context.Background(), src, 3, now)
	assert.Equal(t, []string{"n1"}, ids(got))
}

func TestTrending_EmptyWhenEverythingFails(t *testing.T) {
	fail := func(int) ([]models.Pin, error) { return nil, errors.New("down") }
	got := Trending(context.Background(), sourceStub{topFn: fail, newestFn: fail}, 3, now)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func ids(pins []models.Pin) []string {
	out := make([]string, len(pins))
	for i, p := range pins {
		out[i] = p.ID
	}
	return out
}

func searchFixture() []models.Pin {
	return []models.Pin{
		{ID: "title", Title: "Paisaje nevado", Category: models.CategoryPhotography},
		{ID: "desc", Title: "Montaña", Description: "Un PAISAJE al atardecer", Category: models.CategoryDrawing},
		{ID: "tag", Title: "Sin título", Category: models.CategoryIllustration, Tags: []string{"acuarela", "paisajes"}},
		{ID: "none", Title: "Retrato", Description: "óleo", Category: models.CategoryIllustration, Tags: []string{"retrato"}},
		{ID: "cat", Title: "Logo", Category: models.CategoryConceptArt},
	}
}

func TestFilter_SearchPaisaje(t *testing.T) {
	got := Filter(searchFixture(), Criteria{Text: "paisaje"})
	assert.Equal(t, []string{"title", "desc", "tag"}, ids(got))
}

func TestFilter_Criteria(t *testing.T) {
	tests := []struct {
		name string
		c    Criteria
		want []string
	}{
		{"empty criteria keeps all", Criteria{}, []string{"title", "desc", "tag", "none", "cat"}},
		{"text matches category", Criteria{Text: "concept"}, []string{"cat"}},
		{"category equality", Criteria{Category: models.CategoryIllustration}, []string{"tag", "none"}},
		{"exact tag match", Criteria{Tags: []string{"retrato", "paisaje"}}, []string{"none"}},
		{"selected categories after text", Criteria{Text: "paisaje", Categories: []models.Category{models.CategoryDrawing, models.CategoryIllustration}}, []string{"desc", "tag"}},
		{"no match", Criteria{Text: "escultura"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(searchFixture(), tt.c)))
		})
	}
}

func TestTags(t *testing.T) {
	got := Tags([]models.Pin{
		{Tags: []string{"b", "a"}},
		{Tags: []string{"a", " ", "c"}},
		{},
	})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}
