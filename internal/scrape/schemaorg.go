package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// schemaOrgVersion tags records produced by this extractor. Bump it whenever
// the extraction rules change so that incomplete cached records get refetched
// with the improved parser.
const schemaOrgVersion = "1.0.0"

// ErrNoRecipe is returned when a page carries no schema.org Recipe object.
var ErrNoRecipe = eris.New("scrape: no schema.org recipe found")

// SchemaOrg extracts recipe fields from the JSON-LD blocks most recipe sites
// embed for search engines.
type SchemaOrg struct {
	client *HTTPClient
}

// NewSchemaOrg creates the default scraping capability.
func NewSchemaOrg(client *HTTPClient) *SchemaOrg {
	return &SchemaOrg{client: client}
}

func (s *SchemaOrg) Name() string    { return "schemaorg" }
func (s *SchemaOrg) Version() string { return schemaOrgVersion }

// Scrape fetches the page and extracts the first Recipe object found.
func (s *SchemaOrg) Scrape(ctx context.Context, rawURL string) (*Fields, error) {
	body, err := s.client.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	recipe := findRecipeNode(extractJSONLD(body))
	if recipe == nil {
		return nil, eris.Wrapf(ErrNoRecipe, "url %s", rawURL)
	}

	fields := recipeNodeToFields(recipe)
	if fields.Host == "" {
		if u, parseErr := url.Parse(rawURL); parseErr == nil {
			fields.Host = u.Host
		}
	}

	zap.L().Debug("scrape: extracted recipe",
		zap.String("url", rawURL),
		zap.String("title", fields.Title),
		zap.Int("ingredients", len(fields.Ingredients)),
		zap.Int("instructions", len(fields.Instructions)),
	)
	return fields, nil
}

// extractJSONLD tokenizes the page and returns each parsed
// <script type="application/ld+json"> payload.
func extractJSONLD(body []byte) []any {
	var blocks []any
	z := html.NewTokenizer(bytes.NewReader(body))
	inJSONLD := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return blocks
		case html.StartTagToken:
			tok := z.Token()
			if tok.Data != "script" {
				continue
			}
			inJSONLD = false
			for _, attr := range tok.Attr {
				if attr.Key == "type" && strings.EqualFold(strings.TrimSpace(attr.Val), "application/ld+json") {
					inJSONLD = true
				}
			}
		case html.TextToken:
			if !inJSONLD {
				continue
			}
			inJSONLD = false
			var parsed any
			if err := json.Unmarshal(z.Text(), &parsed); err != nil {
				continue // malformed blocks are common in the wild
			}
			blocks = append(blocks, parsed)
		case html.EndTagToken:
			inJSONLD = false
		}
	}
}

// findRecipeNode walks the JSON-LD forest for the first object whose @type
// is (or includes) Recipe. Sites wrap recipes in arrays and @graph envelopes
// in every combination.
func findRecipeNode(blocks []any) map[string]any {
	var walk func(node any) map[string]any
	walk = func(node any) map[string]any {
		switch v := node.(type) {
		case []any:
			for _, item := range v {
				if found := walk(item); found != nil {
					return found
				}
			}
		case map[string]any:
			if hasType(v, "Recipe") {
				return v
			}
			if graph, ok := v["@graph"]; ok {
				if found := walk(graph); found != nil {
					return found
				}
			}
		}
		return nil
	}
	for _, b := range blocks {
		if found := walk(b); found != nil {
			return found
		}
	}
	return nil
}

func hasType(node map[string]any, want string) bool {
	switch t := node["@type"].(type) {
	case string:
		return strings.EqualFold(t, want)
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, want) {
				return true
			}
		}
	}
	return false
}

func recipeNodeToFields(node map[string]any) *Fields {
	f := &Fields{
		Title:        asString(node["name"]),
		Yields:       asString(node["recipeYield"]),
		Image:        imageURL(node["image"]),
		Ingredients:  stringList(node["recipeIngredient"]),
		Instructions: instructionList(node["recipeInstructions"]),
		Nutrients:    nutrientMap(node["nutrition"]),
		TotalTime:    durationMinutes(asString(node["totalTime"])),
	}
	if len(f.Ingredients) == 0 {
		// Legacy property name used by older markup.
		f.Ingredients = stringList(node["ingredients"])
	}
	if f.TotalTime == "" {
		f.TotalTime = sumDurations(asString(node["prepTime"]), asString(node["cookTime"]))
	}
	return f
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s))
		}
		return fmt.Sprintf("%g", s)
	case []any:
		if len(s) > 0 {
			return asString(s[0])
		}
	}
	return ""
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if s := asString(v); s != "" {
			return []string{s}
		}
		return nil
	}
	var out []string
	for _, item := range items {
		if s := strings.TrimSpace(asString(item)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// instructionList flattens recipeInstructions, which may be a plain string,
// a list of strings, a list of HowToStep objects or HowToSection groups.
func instructionList(v any) []string {
	switch steps := v.(type) {
	case string:
		var out []string
		for _, line := range strings.Split(steps, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
		return out
	case []any:
		var out []string
		for _, step := range steps {
			switch s := step.(type) {
			case string:
				if t := strings.TrimSpace(s); t != "" {
					out = append(out, t)
				}
			case map[string]any:
				if hasType(s, "HowToSection") {
					out = append(out, instructionList(s["itemListElement"])...)
					continue
				}
				if text := asString(s["text"]); text != "" {
					out = append(out, text)
				} else if name := asString(s["name"]); name != "" {
					out = append(out, name)
				}
			}
		}
		return out
	}
	return nil
}

func imageURL(v any) string {
	switch img := v.(type) {
	case string:
		return strings.TrimSpace(img)
	case []any:
		if len(img) > 0 {
			return imageURL(img[0])
		}
	case map[string]any:
		return asString(img["url"])
	}
	return ""
}

func nutrientMap(v any) map[string]string {
	node, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string)
	for k, val := range node {
		if strings.HasPrefix(k, "@") {
			continue
		}
		if s := asString(val); s != "" {
			out[k] = s
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

var iso8601Duration = regexp.MustCompile(`(?i)^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// durationMinutes converts an ISO 8601 duration like PT1H30M to a total
// minute count rendered as a string. Unparseable input yields "".
func durationMinutes(iso string) string {
	if iso == "" {
		return ""
	}
	m := iso8601Duration.FindStringSubmatch(strings.TrimSpace(iso))
	if m == nil {
		return ""
	}
	minutes := atoiOrZero(m[1])*24*60 + atoiOrZero(m[2])*60 + atoiOrZero(m[3])
	if atoiOrZero(m[4]) > 0 {
		minutes++ // round seconds up, nobody times recipes that closely
	}
	if minutes == 0 {
		return ""
	}
	return fmt.Sprintf("%d", minutes)
}

func sumDurations(isos ...string) string {
	total := 0
	for _, iso := range isos {
		total += atoiOrZero(durationMinutes(iso))
	}
	if total == 0 {
		return ""
	}
	return fmt.Sprintf("%d", total)
}

func atoiOrZero(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
