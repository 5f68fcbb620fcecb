// Package merge reconciles freshly fetched recipe data against previously
// cached records under one of three cache policies.
package merge

import (
	"github.com/rotisserie/eris"

	"github.com/cookdex/cookdex/internal/model"
)

// Mode selects the cache policy for a batch run.
type Mode string

const (
	// ModeDefault fetches identities that are absent or incomplete and merges
	// results field by field, never discarding a concrete cached value.
	ModeDefault Mode = "default"
	// ModeOnly serves from cache exclusively; nothing is fetched and cache
	// misses are omitted from the output.
	ModeOnly Mode = "only"
	// ModeNew refetches everything and replaces cached records wholesale,
	// even when the fresh result is less complete.
	ModeNew Mode = "new"
)

// ParseMode validates a mode string from flags or config.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDefault, ModeOnly, ModeNew:
		return Mode(s), nil
	}
	return "", eris.Errorf("merge: unknown cache mode %q (want default, only or new)", s)
}

// Decision is the outcome of reconciling one fetch result.
type Decision struct {
	Record  *model.Record
	Persist bool
}

// NeedsFetch reports whether the scheduler should be invoked for an identity
// given what the store already holds.
func NeedsFetch(existing *model.Record, mode Mode) bool {
	switch mode {
	case ModeOnly:
		return false
	case ModeNew:
		return true
	default:
		return existing == nil || existing.Status < model.StatusComplete
	}
}

// Reconcile applies the cache policy to one fetch outcome and returns the
// record to persist, if any. existing may be nil (identity unseen so far).
// incoming must carry at least the identity key, URL and scraper version;
// failed marks a fetch that timed out or errored, in which case incoming's
// field values are ignored.
//
// The status of the returned record is always recomputed from its fields.
func Reconcile(existing, incoming *model.Record, failed bool, mode Mode) Decision {
	switch mode {
	case ModeOnly:
		// Cache-read-only: nothing was fetched, nothing changes.
		return Decision{Record: existing, Persist: false}

	case ModeNew:
		if failed {
			return Decision{Record: failureRecord(incoming), Persist: true}
		}
		fresh := incoming.Clone()
		model.Rescore(fresh)
		return Decision{Record: fresh, Persist: true}

	default:
		if failed {
			if existing != nil {
				return Decision{Record: existing, Persist: false}
			}
			return Decision{Record: failureRecord(incoming), Persist: true}
		}
		if existing == nil {
			fresh := incoming.Clone()
			model.Rescore(fresh)
			return Decision{Record: fresh, Persist: true}
		}
		return Decision{Record: fieldwise(existing, incoming), Persist: true}
	}
}

// fieldwise merges incoming into existing: concrete scalar values already on
// record win over anything incoming; markers and empty strings are filled
// from incoming. Sequences keep the first non-empty value seen. The result
// is a new record; neither input is mutated.
func fieldwise(existing, incoming *model.Record) *model.Record {
	merged := existing.Clone()

	merged.Host = keepConcrete(existing.Host, incoming.Host)
	merged.Title = keepConcrete(existing.Title, incoming.Title)
	merged.TotalTime = keepConcrete(existing.TotalTime, incoming.TotalTime)
	merged.Yields = keepConcrete(existing.Yields, incoming.Yields)
	merged.Image = keepConcrete(existing.Image, incoming.Image)

	if len(merged.Ingredients) == 0 {
		merged.Ingredients = append([]string(nil), incoming.Ingredients...)
	}
	if len(merged.Instructions) == 0 {
		merged.Instructions = append([]string(nil), incoming.Instructions...)
	}
	if len(merged.Nutrients) == 0 && len(incoming.Nutrients) > 0 {
		merged.Nutrients = make(map[string]string, len(incoming.Nutrients))
		for k, v := range incoming.Nutrients {
			merged.Nutrients[k] = v
		}
	}

	// Provenance always tracks the capability that touched the record last.
	if model.Present(incoming.ScraperVersion) {
		merged.ScraperVersion = incoming.ScraperVersion
	}
	if !incoming.LastFetched.IsZero() {
		merged.LastFetched = incoming.LastFetched
	}

	model.Rescore(merged)
	return merged
}

// keepConcrete implements the scalar rule: a concrete value on record is
// never downgraded back to the marker.
func keepConcrete(old, fresh string) string {
	if model.Present(old) {
		return old
	}
	if fresh != "" {
		return fresh
	}
	return old
}

// failureRecord records a failed fetch: every scalar is the marker and the
// status is unusable. Identity and provenance survive from incoming.
func failureRecord(incoming *model.Record) *model.Record {
	r := model.NewRecord(incoming.ID, incoming.URL)
	r.ScraperVersion = incoming.ScraperVersion
	r.LastFetched = incoming.LastFetched
	model.Rescore(r)
	return r
}
