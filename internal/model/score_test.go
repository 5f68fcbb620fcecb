package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func usable() *Record {
	r := NewRecord("id", "https://example.com/pie")
	r.Title = "Pie"
	r.Ingredients = []string{"flour", "butter"}
	r.Instructions = []string{"mix", "bake"}
	return r
}

func TestScore(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Record)
		want   Status
	}{
		{"empty record", func(r *Record) { *r = *NewRecord(r.ID, r.URL) }, StatusUnusable},
		{"missing title", func(r *Record) { r.Title = NA }, StatusUnusable},
		{"empty title", func(r *Record) { r.Title = "" }, StatusUnusable},
		{"missing ingredients", func(r *Record) { r.Ingredients = nil }, StatusUnusable},
		{"missing instructions", func(r *Record) { r.Instructions = nil }, StatusUnusable},
		{"required only", func(r *Record) {}, StatusEssential},
		{"one optional", func(r *Record) { r.TotalTime = "45" }, StatusPartial},
		{"optional marker does not count", func(r *Record) { r.Image = NA }, StatusEssential},
		{"nutrients count as optional", func(r *Record) { r.Nutrients = map[string]string{"calories": "400"} }, StatusPartial},
		{"all optional", func(r *Record) {
			r.TotalTime = "45"
			r.Yields = "4 servings"
			r.Image = "https://example.com/pie.jpg"
			r.Nutrients = map[string]string{"calories": "400"}
		}, StatusComplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := usable()
			tt.mutate(r)
			assert.Equal(t, tt.want, Score(r))
		})
	}
}

func TestRescoreMatchesScore(t *testing.T) {
	r := usable()
	r.Status = StatusComplete // deliberately stale
	Rescore(r)
	assert.Equal(t, Score(r), r.Status)
	assert.Equal(t, StatusEssential, r.Status)
}

func TestPresent(t *testing.T) {
	assert.False(t, Present(""))
	assert.False(t, Present(NA))
	assert.True(t, Present("90"))
}

func TestSortKeyOrdersCaseInsensitive(t *testing.T) {
	a := &Record{ID: "b", Title: "apple Crumble"}
	b := &Record{ID: "a", Title: "Banana Bread"}
	assert.Less(t, a.SortKey(), b.SortKey())

	// Identical titles fall back to id ordering.
	c := &Record{ID: "1", Title: "Same"}
	d := &Record{ID: "2", Title: "same"}
	assert.Less(t, c.SortKey(), d.SortKey())
}
