package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cookdex/cookdex/internal/model"
)

func fetched(mutate func(*model.Record)) *model.Record {
	r := model.NewRecord("abc123", "https://example.com/pie")
	r.Host = "example.com"
	r.ScraperVersion = "1.2.0"
	r.LastFetched = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if mutate != nil {
		mutate(r)
	}
	return r
}

func essential() *model.Record {
	return fetched(func(r *model.Record) {
		r.Title = "Pie"
		r.Ingredients = []string{"flour", "butter"}
		r.Instructions = []string{"mix", "bake"}
	})
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"default", "only", "new"} {
		m, err := ParseMode(s)
		require.NoError(t, err)
		assert.Equal(t, Mode(s), m)
	}
	_, err := ParseMode("fresh")
	assert.Error(t, err)
}

func TestNeedsFetch(t *testing.T) {
	complete := essential()
	complete.Status = model.StatusComplete
	partial := essential()
	partial.Status = model.StatusPartial

	assert.False(t, NeedsFetch(nil, ModeOnly))
	assert.False(t, NeedsFetch(complete, ModeOnly))
	assert.True(t, NeedsFetch(complete, ModeNew))
	assert.True(t, NeedsFetch(nil, ModeDefault))
	assert.True(t, NeedsFetch(partial, ModeDefault))
	assert.False(t, NeedsFetch(complete, ModeDefault))
}

func TestReconcileOnlyNeverPersists(t *testing.T) {
	dec := Reconcile(nil, nil, false, ModeOnly)
	assert.False(t, dec.Persist)
	assert.Nil(t, dec.Record)

	existing := essential()
	dec = Reconcile(existing, nil, false, ModeOnly)
	assert.False(t, dec.Persist)
	assert.Same(t, existing, dec.Record)
}

func TestReconcileDefaultFirstFetch(t *testing.T) {
	inc := essential()
	dec := Reconcile(nil, inc, false, ModeDefault)
	require.True(t, dec.Persist)
	assert.Equal(t, model.StatusEssential, dec.Record.Status)
	assert.Equal(t, "Pie", dec.Record.Title)
	assert.NotSame(t, inc, dec.Record)
}

func TestReconcileDefaultUpgrades(t *testing.T) {
	existing := essential()
	model.Rescore(existing)

	inc := essential()
	inc.Image = "https://example.com/pie.jpg"
	inc.Title = "A Different Pie" // must not replace the cached concrete title

	dec := Reconcile(existing, inc, false, ModeDefault)
	require.True(t, dec.Persist)
	assert.Equal(t, "Pie", dec.Record.Title)
	assert.Equal(t, "https://example.com/pie.jpg", dec.Record.Image)
	assert.Equal(t, model.StatusPartial, dec.Record.Status)
}

func TestReconcileDefaultNeverRegresses(t *testing.T) {
	existing := essential()
	existing.TotalTime = "45"
	model.Rescore(existing)

	inc := fetched(nil) // everything NA

	// Both orderings of the two merges must preserve the concrete values.
	a := Reconcile(existing, inc, false, ModeDefault)
	require.True(t, a.Persist)
	assert.Equal(t, "Pie", a.Record.Title)
	assert.Equal(t, "45", a.Record.TotalTime)
	assert.Equal(t, []string{"flour", "butter"}, a.Record.Ingredients)
	assert.Equal(t, model.StatusPartial, a.Record.Status)

	b := Reconcile(inc, existing, false, ModeDefault)
	require.True(t, b.Persist)
	assert.Equal(t, "Pie", b.Record.Title)
	assert.Equal(t, "45", b.Record.TotalTime)
	assert.Equal(t, model.StatusPartial, b.Record.Status)
}

func TestReconcileDefaultIdempotent(t *testing.T) {
	existing := essential()
	model.Rescore(existing)
	inc := essential()
	inc.Yields = "8 slices"

	once := Reconcile(existing, inc, false, ModeDefault)
	twice := Reconcile(once.Record, inc, false, ModeDefault)
	assert.Equal(t, once.Record, twice.Record)
}

func TestReconcileDefaultFailure(t *testing.T) {
	// Failure with a cached record leaves it untouched.
	existing := essential()
	model.Rescore(existing)
	dec := Reconcile(existing, fetched(nil), true, ModeDefault)
	assert.False(t, dec.Persist)
	assert.Same(t, existing, dec.Record)

	// Failure on a first-seen identity records an unusable placeholder.
	dec = Reconcile(nil, fetched(nil), true, ModeDefault)
	require.True(t, dec.Persist)
	assert.Equal(t, model.StatusUnusable, dec.Record.Status)
	assert.Equal(t, model.NA, dec.Record.Title)
	assert.Equal(t, "abc123", dec.Record.ID)
	assert.Equal(t, "1.2.0", dec.Record.ScraperVersion)
}

func TestReconcileNewReplacesWholesale(t *testing.T) {
	existing := essential()
	existing.Image = "https://example.com/pie.jpg"
	model.Rescore(existing)

	// Less complete fresh data still replaces the cache under new mode.
	inc := fetched(func(r *model.Record) {
		r.Title = "Pie"
		r.Ingredients = []string{"flour"}
		r.Instructions = []string{"bake"}
	})

	dec := Reconcile(existing, inc, false, ModeNew)
	require.True(t, dec.Persist)
	assert.Equal(t, model.NA, dec.Record.Image)
	assert.Equal(t, []string{"flour"}, dec.Record.Ingredients)
	assert.Equal(t, model.StatusEssential, dec.Record.Status)
}

func TestReconcileNewFailureReplacesWithMarkers(t *testing.T) {
	existing := essential()
	model.Rescore(existing)

	dec := Reconcile(existing, fetched(nil), true, ModeNew)
	require.True(t, dec.Persist)
	assert.Equal(t, model.StatusUnusable, dec.Record.Status)
	assert.Equal(t, model.NA, dec.Record.Title)
	assert.Empty(t, dec.Record.Ingredients)
}

func TestReconcileStatusAlwaysRecomputed(t *testing.T) {
	inc := essential()
	inc.Status = model.StatusComplete // stale value set by a misbehaving caller

	dec := Reconcile(nil, inc, false, ModeDefault)
	require.True(t, dec.Persist)
	assert.Equal(t, model.Score(dec.Record), dec.Record.Status)
	assert.Equal(t, model.StatusEssential, dec.Record.Status)
}

func TestReconcileDoesNotMutateInputs(t *testing.T) {
	existing := essential()
	model.Rescore(existing)
	snapshot := existing.Clone()

	inc := essential()
	inc.Image = "https://example.com/pie.jpg"

	_ = Reconcile(existing, inc, false, ModeDefault)
	assert.Equal(t, snapshot, existing)
}
