// Package reduce turns raw page markup into the bounded, annotated text the
// extraction model receives. Scripts, styles and embedded frames are removed
// entirely: they only add noise and are the one place untrusted page content
// could smuggle instructions into the prompt.
package reduce

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ErrContentTooSmall signals that the page carried no extractable substance
// after cleaning. Callers substitute an empty record; this is not a bug in
// the reducer.
var ErrContentTooSmall = errors.New("reduce: cleaned content below minimum size")

const (
	// DefaultBudget bounds the annotated markup handed to the model.
	DefaultBudget = 80_000
	// MinContent is the smallest cleaned payload still worth extracting from.
	MinContent = 300

	criticalAttr = "data-critical"
)

// DefaultKeywords marks list items and paragraphs that likely carry product
// terms: currency codes, the percent sign, rate/limit/term vocabulary.
var DefaultKeywords = []string{"byn", "usd", "eur", "%", "ставка", "лимит", "срок"}

// Config carries the per-bank reduction knobs. The zero value is usable.
type Config struct {
	// Budget is the final size cap in runes. Zero means DefaultBudget.
	Budget int
	// InitialWindow optionally slices the raw markup before parsing. Some
	// sites bury the product terms deep in a long page and need a larger
	// window than the final budget; the final truncation still applies.
	// Zero disables the pre-slice.
	InitialWindow int
	// Keywords overrides DefaultKeywords when non-nil.
	Keywords []string
}

func (c Config) budget() int {
	if c.Budget > 0 {
		return c.Budget
	}
	return DefaultBudget
}

func (c Config) keywords() []string {
	if c.Keywords != nil {
		return c.Keywords
	}
	return DefaultKeywords
}

// Reduce cleans and annotates page markup. Table nodes and keyword-bearing
// list items and paragraphs get a salience marker the extraction prompt tells
// the model to pay attention to; the marker has no other effect here.
func Reduce(markup string, cfg Config) (string, error) {
	if w := cfg.InitialWindow; w > 0 {
		markup = truncateRunes(markup, w)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, iframe").Remove()

	doc.Find("table").SetAttr(criticalAttr, "table")
	keywords := cfg.keywords()
	doc.Find("li, p").Each(func(_ int, s *goquery.Selection) {
		text := strings.ToLower(s.Text())
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				s.SetAttr(criticalAttr, "important")
				return
			}
		}
	})

	out, err := doc.Html()
	if err != nil {
		return "", err
	}
	out = truncateRunes(out, cfg.budget())
	if len([]rune(out)) < MinContent {
		return "", ErrContentTooSmall
	}
	return out, nil
}

// PlainText derives the space-joined visible text of the page, used for the
// text-only fallback extraction when structured extraction yields nothing.
func PlainText(markup string, limit int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	doc.Find("script, style, iframe").Remove()

	var parts []string
	for _, root := range doc.Nodes {
		collectText(root, &parts)
	}
	text := strings.Join(parts, " ")
	if limit > 0 {
		text = truncateRunes(text, limit)
	}
	return text
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if s := strings.TrimSpace(n.Data); s != "" {
			*parts = append(*parts, strings.Join(strings.Fields(s), " "))
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
