// Package model defines the recipe record and its completeness scoring.
package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// NA marks a scalar field whose value could not be extracted. It is distinct
// from the empty string: an empty string means "never touched", NA means "the
// scraper looked and found nothing".
const NA = "N/A"

// Status is an ordinal completeness score for a record. It is always derived
// from the record's fields via Score and never set independently.
type Status int

const (
	// StatusUnusable means at least one required field is missing.
	StatusUnusable Status = iota
	// StatusEssential means all required fields are present but no optional ones.
	StatusEssential
	// StatusPartial means all required fields plus at least one optional field.
	StatusPartial
	// StatusComplete means all required and all optional fields are present.
	StatusComplete
)

func (s Status) String() string {
	switch s {
	case StatusUnusable:
		return "unusable"
	case StatusEssential:
		return "essential"
	case StatusPartial:
		return "partial"
	case StatusComplete:
		return "complete"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Record is one cached recipe, keyed by the content-addressed ID of its
// canonical URL. Records are only ever mutated through the merge engine.
type Record struct {
	ID             string            `json:"id"`
	URL            string            `json:"url"`
	Host           string            `json:"host"`
	Title          string            `json:"title"`
	TotalTime      string            `json:"total_time"`
	Yields         string            `json:"yields"`
	Image          string            `json:"image"`
	Ingredients    []string          `json:"ingredients"`
	Instructions   []string          `json:"instructions"`
	Nutrients      map[string]string `json:"nutrients"`
	ScraperVersion string            `json:"scraper_version"`
	Status         Status            `json:"status"`
	LastFetched    time.Time         `json:"last_fetched"`
}

// NewRecord returns a record for the given identity with every scalar field
// set to the NA marker and no sequence data. Its status is StatusUnusable.
func NewRecord(id, url string) *Record {
	return &Record{
		ID:        id,
		URL:       url,
		Host:      NA,
		Title:     NA,
		TotalTime: NA,
		Yields:    NA,
		Image:     NA,
	}
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	if r.Ingredients != nil {
		c.Ingredients = append([]string(nil), r.Ingredients...)
	}
	if r.Instructions != nil {
		c.Instructions = append([]string(nil), r.Instructions...)
	}
	if r.Nutrients != nil {
		c.Nutrients = make(map[string]string, len(r.Nutrients))
		for k, v := range r.Nutrients {
			c.Nutrients[k] = v
		}
	}
	return &c
}

// Present reports whether a scalar value carries real data, i.e. it is
// neither empty nor the NA marker.
func Present(v string) bool {
	return v != "" && v != NA
}

// NutrientLines renders the nutrient map as sorted "name: value" lines.
func (r *Record) NutrientLines() []string {
	if len(r.Nutrients) == 0 {
		return nil
	}
	keys := make([]string, 0, len(r.Nutrients))
	for k := range r.Nutrients {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+": "+r.Nutrients[k])
	}
	return lines
}

// SortKey orders records by title (case-insensitive) with the id as a
// deterministic tie-break for downstream rendering.
func (r *Record) SortKey() string {
	return strings.ToLower(r.Title) + "\x00" + r.ID
}
