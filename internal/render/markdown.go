package render

import (
	"fmt"
	"strings"

	"github.com/cookdex/cookdex/internal/model"
)

// tocThreshold is the record count above which the markdown document gets a
// linked title index at the top.
const tocThreshold = 3

var mdEscaper = strings.NewReplacer(
	"`", "\\`", "*", "\\*", "_", "\\_", "{", "\\{", "}", "\\}",
	"[", "\\[", "]", "\\]", "(", "\\(", ")", "\\)", "#", "\\#",
	"+", "\\+", "-", "\\-", ".", "\\.", "!", "\\!", "~", "\\~",
)

// escapeMarkdown backslash-escapes markdown control characters in scraped
// text so it renders literally.
func escapeMarkdown(s string) string {
	return mdEscaper.Replace(s)
}

// Markdown renders records as a markdown document. Each recipe becomes a
// section anchored by its record id so the index can link to it.
func Markdown(records []model.Record) string {
	var b strings.Builder
	if len(records) > tocThreshold {
		writeIndex(&b, records)
	}
	for _, rec := range records {
		writeMarkdownRecipe(&b, &rec)
	}
	return b.String()
}

func writeIndex(b *strings.Builder, records []model.Record) {
	for _, rec := range records {
		fmt.Fprintf(b, "* [%s](#%s)\n", escapeMarkdown(displayTitle(&rec)), rec.ID)
	}
	b.WriteString("\n---\n\n")
}

func writeMarkdownRecipe(b *strings.Builder, rec *model.Record) {
	fmt.Fprintf(b, "<div id=%q></div>\n\n", rec.ID)
	fmt.Fprintf(b, "## %s\n\n", escapeMarkdown(displayTitle(rec)))
	fmt.Fprintf(b, "%s min | %s\n\n", rec.TotalTime, rec.Yields)

	for _, ing := range rec.Ingredients {
		fmt.Fprintf(b, "* %s\n", escapeMarkdown(ing))
	}
	// Comment terminates the list so the following ordered list stands alone.
	b.WriteString("\n<!-- -->\n\n")
	for i, step := range rec.Instructions {
		fmt.Fprintf(b, "%d. %s\n", i+1, escapeMarkdown(step))
	}
	b.WriteString("\n")

	if lines := rec.NutrientLines(); len(lines) > 0 {
		for _, line := range lines {
			fmt.Fprintf(b, "* %s\n", escapeMarkdown(line))
		}
		b.WriteString("\n")
	}

	host := rec.URL
	if model.Present(rec.Host) {
		host = rec.Host
	}
	fmt.Fprintf(b, "_from:_ [%s](%s)\n\n", escapeMarkdown(host), rec.URL)
}
