package tip

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Tip wraps one raw WordPress post document. The upstream payload has no
// schema guarantees, so every read goes through a tolerant accessor instead of
// asserting a concrete shape.
type Tip struct {
	raw map[string]any
}

func New(raw map[string]any) Tip {
	return Tip{raw: raw}
}

func (t Tip) Raw() map[string]any {
	return t.raw
}

func (t Tip) ID() int64 {
	return getInt64(t.raw, "id")
}

// PublishedAt prefers the GMT timestamp; site-local date is the fallback for
// installs that omit it.
func (t Tip) PublishedAt() (time.Time, bool) {
	for _, key := range []string{"date_gmt", "date"} {
		if parsed, ok := parseWPDateTime(getString(t.raw, key)); ok {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func (t Tip) Title() string {
	return HTMLToText(getString(renderedMap(t.raw["title"]), "rendered"))
}

// OutcomeCandidates collects the result/status fields editors have used over
// the years, in the priority order ParseOutcome expects.
func (t Tip) OutcomeCandidates() []string {
	out := make([]string, 0, 4)
	for _, key := range []string{"resultado", "result", "status_da_aposta", "green_red", "outcome"} {
		if value := t.metaString(key); value != "" {
			out = append(out, value)
		}
	}
	return out
}

// SportSignal returns the strongest sport hint available: explicit field,
// then taxonomy terms, then the post title.
func (t Tip) SportSignal() string {
	for _, key := range []string{"esporte", "sport", "modalidade"} {
		if value := t.metaString(key); value != "" {
			return value
		}
	}
	for _, term := range t.TermSignals() {
		if _, ok := DetectSport(term); ok {
			return term
		}
	}
	return t.Title()
}

// TermSignals flattens embedded taxonomy terms into slug/name strings.
func (t Tip) TermSignals() []string {
	embedded, ok := t.raw["_embedded"].(map[string]any)
	if !ok {
		return nil
	}
	groups, ok := embedded["wp:term"].([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, 8)
	for _, group := range groups {
		items, ok := group.([]any)
		if !ok {
			continue
		}
		for _, item := range items {
			term, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if slug := getString(term, "slug"); slug != "" {
				out = append(out, slug)
			}
			if name := getString(term, "name"); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

// EmbeddedAuthor returns the first embedded author record, if any.
func (t Tip) EmbeddedAuthor() map[string]any {
	embedded, ok := t.raw["_embedded"].(map[string]any)
	if !ok {
		return nil
	}
	authors, ok := embedded["author"].([]any)
	if !ok || len(authors) == 0 {
		return nil
	}
	author, ok := authors[0].(map[string]any)
	if !ok {
		return nil
	}
	return author
}

func (t Tip) Odds() (float64, bool) {
	return t.metaNumber("odd", "odds", "cotacao")
}

func (t Tip) Stake() (float64, bool) {
	return t.metaNumber("stake", "unidade", "unidades", "valor_apostado")
}

// DirectReturn is the explicit profit field some tips carry; when present it
// overrides outcome-based inference.
func (t Tip) DirectReturn() (float64, bool) {
	return t.metaNumber("retorno", "return", "yield", "lucro")
}

// metaString looks a key up across the containers WordPress plugins have
// stored custom fields in: meta, acf, then the document root.
func (t Tip) metaString(key string) string {
	for _, container := range t.metaContainers() {
		if value := anyToString(container[key]); value != "" {
			return value
		}
	}
	return ""
}

func (t Tip) metaNumber(keys ...string) (float64, bool) {
	for _, container := range t.metaContainers() {
		for _, key := range keys {
			if value, ok := ParseNumber(container[key]); ok {
				return value, true
			}
		}
	}
	return 0, false
}

func (t Tip) metaContainers() []map[string]any {
	out := make([]map[string]any, 0, 3)
	for _, key := range []string{"meta", "acf", "custom_fields"} {
		if container, ok := t.raw[key].(map[string]any); ok {
			out = append(out, container)
		}
	}
	out = append(out, t.raw)
	return out
}

// ParseNumber reads a numeric value out of whatever the upstream stored:
// floats, ints, or strings with a comma decimal separator. Non-finite values
// are treated as absent.
func ParseNumber(raw any) (float64, bool) {
	switch typed := raw.(type) {
	case float64:
		return finite(typed)
	case float32:
		return finite(float64(typed))
	case int:
		return finite(float64(typed))
	case int64:
		return finite(float64(typed))
	case string:
		value := strings.TrimSpace(typed)
		if value == "" {
			return 0, false
		}
		value = strings.ReplaceAll(value, ",", ".")
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, false
		}
		return finite(parsed)
	default:
		return 0, false
	}
}

func finite(value float64) (float64, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// HTMLToText strips markup from rendered WordPress fields, falling back to the
// raw string when the fragment does not parse.
func HTMLToText(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" || !strings.ContainsAny(value, "<&") {
		return value
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(value))
	if err != nil {
		return value
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func parseWPDateTime(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}

	layouts := []string{
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

func getString(src map[string]any, key string) string {
	if src == nil {
		return ""
	}
	return anyToString(src[key])
}

func anyToString(raw any) string {
	value, ok := raw.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func getInt64(src map[string]any, key string) int64 {
	if src == nil {
		return 0
	}
	switch typed := src[key].(type) {
	case float64:
		return int64(typed)
	case float32:
		return int64(typed)
	case int:
		return int64(typed)
	case int64:
		return typed
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func renderedMap(raw any) map[string]any {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	return obj
}
