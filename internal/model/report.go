package model

import "fmt"

// Report summarizes one batch run: how many identities were fetched, merged,
// skipped and failed. Per-URL failures are recorded here rather than
// propagated as errors.
type Report struct {
	URLs       int `json:"urls"`       // raw input strings in the batch
	Invalid    int `json:"invalid"`    // inputs rejected by identity derivation
	Duplicates int `json:"duplicates"` // inputs collapsing onto an identity already in the batch
	Fetched    int `json:"fetched"`    // fetches that returned a usable result
	Merged     int `json:"merged"`     // fetch results persisted through the merge engine
	Skipped    int `json:"skipped"`    // identities served from cache, or cache-only misses
	Failed     int `json:"failed"`     // fetches that timed out or errored
}

func (r Report) String() string {
	return fmt.Sprintf("urls=%d invalid=%d duplicates=%d fetched=%d merged=%d skipped=%d failed=%d",
		r.URLs, r.Invalid, r.Duplicates, r.Fetched, r.Merged, r.Skipped, r.Failed)
}
