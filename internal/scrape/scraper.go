// Package scrape provides the recipe scraping capability consumed by the
// fetch scheduler. The cache and merge core depends only on the Scraper
// interface, so site parsing can be swapped or stubbed freely.
package scrape

import "context"

// Fields holds the raw field values extracted from one recipe page. Absent
// fields are zero values; the fetch layer converts those to the NA marker.
type Fields struct {
	Host         string
	Title        string
	TotalTime    string
	Yields       string
	Image        string
	Ingredients  []string
	Instructions []string
	Nutrients    map[string]string
}

// Scraper fetches a single recipe URL and returns its structured fields.
// Implementations may be slow and may fail; both are handled per-URL by the
// scheduler and never abort a batch.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Fields, error)
	Name() string
	// Version tags records with the capability revision that produced them,
	// for provenance and drift detection.
	Version() string
}
