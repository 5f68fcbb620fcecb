// Package render turns a snapshot of recipe records into human-readable
// documents. Plain text and markdown are supported; both expect records
// already filtered and ordered by the pipeline.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/cookdex/cookdex/internal/model"
)

// Format selects the output document type.
type Format string

const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "txt", "text", "":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", eris.Errorf("unknown output format: %q", s)
	}
}

// Text renders records as a plain text document, one recipe per section.
func Text(records []model.Record) string {
	var b strings.Builder
	for _, rec := range records {
		writeTextRecipe(&b, &rec)
	}
	return b.String()
}

func writeTextRecipe(b *strings.Builder, rec *model.Record) {
	b.WriteString(displayTitle(rec))
	b.WriteString("\n\n")
	fmt.Fprintf(b, "%s min | %s\n\n", rec.TotalTime, rec.Yields)
	for _, ing := range rec.Ingredients {
		b.WriteString(ing)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	for _, step := range rec.Instructions {
		b.WriteString(step)
		b.WriteString("\n\n")
	}
	if lines := rec.NutrientLines(); len(lines) > 0 {
		for _, line := range lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("from: " + rec.URL)
	b.WriteString("\n\n\n\n\n")
}

// displayTitle falls back to the URL when the title is only a marker.
func displayTitle(rec *model.Record) string {
	if model.Present(rec.Title) {
		return rec.Title
	}
	return rec.URL
}

// Write renders records in the given format to w.
func Write(w io.Writer, records []model.Record, format Format) error {
	var doc string
	switch format {
	case FormatText:
		doc = Text(records)
	case FormatMarkdown:
		doc = Markdown(records)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(records), "render: encode json")
	default:
		return eris.Errorf("render: unsupported format %q", format)
	}
	if _, err := io.WriteString(w, doc); err != nil {
		return eris.Wrap(err, "render: write document")
	}
	return nil
}
