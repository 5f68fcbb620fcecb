// Package fetch runs recipe scrapes through a bounded pool of concurrent
// slots and converts capability output into recipe records.
package fetch

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cookdex/cookdex/internal/identity"
	"github.com/cookdex/cookdex/internal/model"
	"github.com/cookdex/cookdex/internal/scrape"
)

// Result is the outcome of one fetch: a populated record on success, or the
// identity plus the failure on timeout or scraper error. Failures are data,
// not control flow; they never abort a batch.
type Result struct {
	Identity identity.Identity
	Record   *model.Record // nil when Err is set
	Err      error
}

// Failed reports whether this fetch produced no usable record.
func (r Result) Failed() bool { return r.Err != nil }

// Scheduler dispatches fetches with a fixed concurrency bound and a per-fetch
// timeout. A slot is held only for the duration of the scrape call, so one
// slow site delays at most one slot.
type Scheduler struct {
	scraper     scrape.Scraper
	connections int
	timeout     time.Duration
}

// NewScheduler creates a Scheduler around the given scraping capability.
func NewScheduler(scraper scrape.Scraper, connections int, timeout time.Duration) *Scheduler {
	if connections < 1 {
		connections = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Scheduler{scraper: scraper, connections: connections, timeout: timeout}
}

// FetchAll fetches every identity and hands each Result to handle. handle is
// called from worker goroutines; callers synchronize their own state. A
// non-nil error from handle aborts the batch (reserved for store failures,
// which poison every later merge decision).
//
// FetchAll returns only after every submitted identity has produced either a
// success or a failure result.
func (s *Scheduler) FetchAll(ctx context.Context, ids []identity.Identity, handle func(Result) error) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.connections)

	for _, id := range ids {
		g.Go(func() error {
			return handle(s.fetchOne(gCtx, id))
		})
	}

	return g.Wait()
}

func (s *Scheduler) fetchOne(ctx context.Context, id identity.Identity) Result {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	fields, err := s.scraper.Scrape(fetchCtx, id.URL)
	if err != nil {
		zap.L().Warn("fetch: scrape failed",
			zap.String("url", id.URL),
			zap.String("scraper", s.scraper.Name()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return Result{Identity: id, Err: err}
	}

	rec := recordFromFields(id, fields, s.scraper.Version())
	zap.L().Debug("fetch: scraped",
		zap.String("url", id.URL),
		zap.Stringer("status", rec.Status),
		zap.Duration("elapsed", time.Since(start)),
	)
	return Result{Identity: id, Record: rec}
}

// recordFromFields builds a scored record from capability output. Absent
// scalars become the NA marker so that later merges can tell "not extracted"
// apart from "never fetched".
func recordFromFields(id identity.Identity, fields *scrape.Fields, version string) *model.Record {
	rec := model.NewRecord(id.ID, id.URL)
	rec.ScraperVersion = version
	rec.LastFetched = time.Now().UTC()

	if fields.Host != "" {
		rec.Host = fields.Host
	}
	if fields.Title != "" {
		rec.Title = fields.Title
	}
	if fields.TotalTime != "" {
		rec.TotalTime = fields.TotalTime
	}
	if fields.Yields != "" {
		rec.Yields = fields.Yields
	}
	if fields.Image != "" {
		rec.Image = fields.Image
	}
	rec.Ingredients = append([]string(nil), fields.Ingredients...)
	rec.Instructions = append([]string(nil), fields.Instructions...)
	if len(fields.Nutrients) > 0 {
		rec.Nutrients = make(map[string]string, len(fields.Nutrients))
		for k, v := range fields.Nutrients {
			rec.Nutrients[k] = v
		}
	}

	model.Rescore(rec)
	return rec
}

// FailureRecord is the marker-only record the merge engine persists for a
// fetch that produced no data.
func (s *Scheduler) FailureRecord(id identity.Identity) *model.Record {
	rec := model.NewRecord(id.ID, id.URL)
	rec.ScraperVersion = s.scraper.Version()
	rec.LastFetched = time.Now().UTC()
	return rec
}
