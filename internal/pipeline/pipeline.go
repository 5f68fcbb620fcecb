package pipeline

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cookdex/cookdex/internal/fetch"
	"github.com/cookdex/cookdex/internal/identity"
	"github.com/cookdex/cookdex/internal/merge"
	"github.com/cookdex/cookdex/internal/model"
	"github.com/cookdex/cookdex/internal/store"
)

// Pipeline runs a batch of URLs through identity derivation, cache lookup,
// bounded fetching, and field-wise merging, and persists the outcome.
type Pipeline struct {
	store     store.Store
	scheduler *fetch.Scheduler

	// IncludeIncomplete keeps status-0 records in the snapshot instead of
	// filtering them out.
	IncludeIncomplete bool
}

// Result is the outcome of one batch: the run's provenance id, the ordered
// snapshot of records touched by the batch, and the counts report.
type Result struct {
	RunID   string
	Records []model.Record
	Report  model.Report
}

// New creates a Pipeline over a store and a fetch scheduler.
func New(st store.Store, sched *fetch.Scheduler) *Pipeline {
	return &Pipeline{store: st, scheduler: sched}
}

// Run processes raw URLs under the given merge mode. Fetch failures are
// recorded in the report, not returned; only store failures abort the
// batch.
func (p *Pipeline) Run(ctx context.Context, rawURLs []string, mode merge.Mode) (*Result, error) {
	log := zap.L().With(zap.String("mode", string(mode)))
	log.Info("pipeline: starting batch", zap.Int("urls", len(rawURLs)))

	report := model.Report{URLs: len(rawURLs)}

	ids := p.deriveIdentities(rawURLs, &report)

	run, err := p.store.CreateRun(ctx, string(mode), len(rawURLs))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	existing := make(map[string]*model.Record, len(ids))
	for _, id := range ids {
		rec, err := p.store.Get(ctx, id.ID)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: load cached record for %s", id.URL)
		}
		existing[id.ID] = rec
	}

	var toFetch []identity.Identity
	for _, id := range ids {
		if merge.NeedsFetch(existing[id.ID], mode) {
			toFetch = append(toFetch, id)
		} else {
			report.Skipped++
		}
	}

	outcome := make(map[string]*model.Record, len(toFetch))
	if len(toFetch) > 0 {
		var mu sync.Mutex
		handle := func(res fetch.Result) error {
			mu.Lock()
			defer mu.Unlock()

			incoming := res.Record
			if incoming == nil {
				incoming = p.scheduler.FailureRecord(res.Identity)
			}
			decision := merge.Reconcile(existing[res.Identity.ID], incoming, res.Failed(), mode)

			if res.Failed() {
				report.Failed++
			} else {
				report.Fetched++
			}
			if decision.Persist {
				if err := p.store.Upsert(ctx, decision.Record); err != nil {
					return eris.Wrapf(err, "pipeline: persist record for %s", res.Identity.URL)
				}
				report.Merged++
			}
			outcome[res.Identity.ID] = decision.Record
			return nil
		}
		if err := p.scheduler.FetchAll(ctx, toFetch, handle); err != nil {
			return nil, err
		}
	}

	records := p.snapshot(ids, existing, outcome)

	if err := p.store.FinishRun(ctx, run.ID, report); err != nil {
		return nil, eris.Wrap(err, "pipeline: finish run")
	}
	log.Info("pipeline: batch done", zap.String("run_id", run.ID), zap.String("report", report.String()))

	return &Result{RunID: run.ID, Records: records, Report: report}, nil
}

// deriveIdentities canonicalizes the raw URLs, counting invalid entries and
// collapsing duplicates to their first occurrence.
func (p *Pipeline) deriveIdentities(rawURLs []string, report *model.Report) []identity.Identity {
	seen := make(map[string]struct{}, len(rawURLs))
	var ids []identity.Identity
	for _, raw := range rawURLs {
		id, err := identity.Derive(raw)
		if err != nil {
			report.Invalid++
			zap.L().Warn("pipeline: discarding invalid url", zap.String("url", raw))
			continue
		}
		if _, dup := seen[id.ID]; dup {
			report.Duplicates++
			continue
		}
		seen[id.ID] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// snapshot assembles the batch's output records, preferring the fetch
// outcome over the cached record, filtering unusable entries, and sorting
// by title then id.
func (p *Pipeline) snapshot(ids []identity.Identity, existing, outcome map[string]*model.Record) []model.Record {
	var records []model.Record
	for _, id := range ids {
		rec := outcome[id.ID]
		if rec == nil {
			rec = existing[id.ID]
		}
		if rec == nil {
			continue
		}
		if rec.Status < model.StatusEssential && !p.IncludeIncomplete {
			continue
		}
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].SortKey() < records[j].SortKey()
	})
	return records
}
