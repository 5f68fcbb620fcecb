package fetch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cookdex/cookdex/internal/identity"
	"github.com/cookdex/cookdex/internal/model"
	"github.com/cookdex/cookdex/internal/scrape"
)

// trackingScraper counts concurrent calls and serves canned responses.
type trackingScraper struct {
	mu        sync.Mutex
	inflight  atomic.Int64
	highWater int64
	delay     time.Duration
	fields    map[string]*scrape.Fields
	errs      map[string]error
	calls     atomic.Int64
}

func (s *trackingScraper) Scrape(ctx context.Context, url string) (*scrape.Fields, error) {
	s.calls.Add(1)
	cur := s.inflight.Add(1)
	defer s.inflight.Add(-1)

	s.mu.Lock()
	if cur > s.highWater {
		s.highWater = cur
	}
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if err, ok := s.errs[url]; ok {
		return nil, err
	}
	if f, ok := s.fields[url]; ok {
		return f, nil
	}
	return &scrape.Fields{Title: "Generic", Ingredients: []string{"x"}, Instructions: []string{"y"}}, nil
}

func (s *trackingScraper) Name() string    { return "tracking" }
func (s *trackingScraper) Version() string { return "test-1" }

func ids(t *testing.T, urls ...string) []identity.Identity {
	t.Helper()
	out := make([]identity.Identity, 0, len(urls))
	for _, u := range urls {
		id, err := identity.Derive(u)
		require.NoError(t, err)
		out = append(out, id)
	}
	return out
}

func TestFetchAllRespectsBound(t *testing.T) {
	scraper := &trackingScraper{delay: 20 * time.Millisecond}
	sched := NewScheduler(scraper, 3, time.Second)

	var urls []string
	for _, p := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		urls = append(urls, "https://kitchen.test/"+p)
	}

	var results atomic.Int64
	err := sched.FetchAll(context.Background(), ids(t, urls...), func(r Result) error {
		results.Add(1)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, int64(10), results.Load())
	assert.LessOrEqual(t, scraper.highWater, int64(3))
	assert.Greater(t, scraper.highWater, int64(1)) // it did actually run in parallel
}

func TestFetchAllTimeoutBecomesFailure(t *testing.T) {
	scraper := &trackingScraper{delay: 200 * time.Millisecond}
	sched := NewScheduler(scraper, 2, 20*time.Millisecond)

	var mu sync.Mutex
	var failed, ok int
	err := sched.FetchAll(context.Background(), ids(t,
		"https://kitchen.test/slow",
	), func(r Result) error {
		mu.Lock()
		defer mu.Unlock()
		if r.Failed() {
			failed++
			assert.Nil(t, r.Record)
			assert.Error(t, r.Err)
		} else {
			ok++
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 0, ok)
}

func TestFetchAllOneFailureDoesNotBlockOthers(t *testing.T) {
	scraper := &trackingScraper{
		errs: map[string]error{"https://kitchen.test/broken": eris.New("boom")},
	}
	sched := NewScheduler(scraper, 2, time.Second)

	var mu sync.Mutex
	got := map[string]bool{}
	err := sched.FetchAll(context.Background(), ids(t,
		"https://kitchen.test/broken",
		"https://kitchen.test/fine",
	), func(r Result) error {
		mu.Lock()
		defer mu.Unlock()
		got[r.Identity.URL] = !r.Failed()
		return nil
	})
	require.NoError(t, err)
	assert.False(t, got["https://kitchen.test/broken"])
	assert.True(t, got["https://kitchen.test/fine"])
}

func TestFetchAllHandlerErrorAborts(t *testing.T) {
	scraper := &trackingScraper{}
	sched := NewScheduler(scraper, 1, time.Second)

	storeErr := eris.New("store: disk full")
	err := sched.FetchAll(context.Background(), ids(t,
		"https://kitchen.test/a",
		"https://kitchen.test/b",
	), func(r Result) error {
		return storeErr
	})
	assert.ErrorIs(t, err, storeErr)
}

func TestRecordFromFields(t *testing.T) {
	id := ids(t, "https://kitchen.test/pie")[0]
	rec := recordFromFields(id, &scrape.Fields{
		Host:         "kitchen.test",
		Title:        "Pie",
		Ingredients:  []string{"apples"},
		Instructions: []string{"bake"},
	}, "test-1")

	assert.Equal(t, id.ID, rec.ID)
	assert.Equal(t, id.URL, rec.URL)
	assert.Equal(t, "Pie", rec.Title)
	assert.Equal(t, model.NA, rec.TotalTime) // absent scalar becomes the marker
	assert.Equal(t, model.NA, rec.Image)
	assert.Equal(t, "test-1", rec.ScraperVersion)
	assert.Equal(t, model.StatusEssential, rec.Status)
	assert.False(t, rec.LastFetched.IsZero())
}

func TestFailureRecord(t *testing.T) {
	scraper := &trackingScraper{}
	sched := NewScheduler(scraper, 1, time.Second)
	id := ids(t, "https://kitchen.test/pie")[0]

	rec := sched.FailureRecord(id)
	assert.Equal(t, model.NA, rec.Title)
	assert.Empty(t, rec.Ingredients)
	assert.Equal(t, "test-1", rec.ScraperVersion)
	assert.Equal(t, model.StatusUnusable, rec.Status)
}
