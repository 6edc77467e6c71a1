// Package harvest discovers the PDF documents a product page links to,
// downloads them, and extracts their text. Document text is authoritative for
// numeric terms when the page itself is vague, so harvested text is handed to
// the extractor alongside the reduced markup.
package harvest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultMaxDocs bounds latency and model cost per product. Later
	// discovered links are ignored, not queued.
	DefaultMaxDocs = 3

	// DefaultTextCap bounds extracted text per document.
	DefaultTextCap = 80_000

	DefaultDownloadTimeout = 15 * time.Second
)

// PathKeywords match document links that do not end in .pdf but clearly point
// at contract terms. Kept narrow: broader tokens like "kredit" appear in
// ordinary page URLs too.
var PathKeywords = []string{"usloviya", "dogovor"}

// Document is one harvested source document. The downloaded payload is
// deleted before Harvest returns; only the extracted text survives.
type Document struct {
	URL      string
	Filename string
	Text     string
}

// DiscoveryStrategy finds candidate document URLs in parsed page markup.
type DiscoveryStrategy interface {
	Discover(doc *goquery.Document, base *url.URL) []string
}

// StandardDiscovery scans anchors for PDF references.
type StandardDiscovery struct{}

func (StandardDiscovery) Discover(doc *goquery.Document, base *url.URL) []string {
	var found []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if u, ok := resolveDocLink(base, href); ok {
			found = append(found, u)
		}
	})
	return found
}

// BannerDiscovery additionally scans image and media-source attributes.
// Belarusbank publishes condition documents behind banner images rather than
// plain anchors.
type BannerDiscovery struct{}

func (BannerDiscovery) Discover(doc *goquery.Document, base *url.URL) []string {
	found := StandardDiscovery{}.Discover(doc, base)
	doc.Find("img[src], source[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if u, ok := resolveDocLink(base, src); ok {
			found = append(found, u)
		}
	})
	return found
}

// BankBelarusbank selects the banner discovery rule.
const BankBelarusbank = "belarusbank"

// StrategyFor picks the discovery rule for a bank identity.
func StrategyFor(bankID string) DiscoveryStrategy {
	if bankID == BankBelarusbank {
		return BannerDiscovery{}
	}
	return StandardDiscovery{}
}

func resolveDocLink(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || !isDocRef(ref) {
		return "", false
	}
	u, err := base.Parse(ref)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	u.Fragment = ""
	return u.String(), true
}

func isDocRef(ref string) bool {
	lower := strings.ToLower(ref)
	if strings.Contains(lower, ".pdf") {
		return true
	}
	for _, kw := range PathKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Harvester downloads and text-extracts discovered documents.
type Harvester struct {
	HTTPClient *http.Client
	UserAgent  string
	Timeout    time.Duration
	MaxDocs    int
	TextCap    int

	// extractText is swapped out in tests; nil means ExtractText.
	extractText func(path string, cap int) (string, error)
}

func (h *Harvester) maxDocs() int {
	if h.MaxDocs > 0 {
		return h.MaxDocs
	}
	return DefaultMaxDocs
}

func (h *Harvester) textCap() int {
	if h.TextCap > 0 {
		return h.TextCap
	}
	return DefaultTextCap
}

func (h *Harvester) timeout() time.Duration {
	if h.Timeout > 0 {
		return h.Timeout
	}
	return DefaultDownloadTimeout
}

func (h *Harvester) extract(path string) (string, error) {
	if h.extractText != nil {
		return h.extractText(path, h.textCap())
	}
	return ExtractText(path, h.textCap())
}

// Harvest discovers document links in markup, then downloads and extracts up
// to the per-product cap. Per-document failures are logged and skipped; a
// page with no harvestable documents yields an empty slice, never an error.
func (h *Harvester) Harvest(ctx context.Context, markup, baseURL, bankID string) []Document {
	base, err := url.Parse(baseURL)
	if err != nil {
		log.Warn().Err(err).Str("url", baseURL).Msg("invalid base url; skipping document harvest")
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		log.Warn().Err(err).Msg("unparseable markup; skipping document harvest")
		return nil
	}

	candidates := dedupe(StrategyFor(bankID).Discover(doc, base))
	if len(candidates) > h.maxDocs() {
		candidates = candidates[:h.maxDocs()]
	}

	var out []Document
	for _, u := range candidates {
		text, err := h.fetchOne(ctx, u)
		if err != nil {
			log.Warn().Err(err).Str("doc", u).Msg("document skipped")
			continue
		}
		out = append(out, Document{URL: u, Filename: filenameOf(u), Text: text})
	}
	return out
}

// fetchOne downloads one document to a temporary file, extracts its text and
// removes the file. Deletion runs on every exit path.
func (h *Harvester) fetchOne(ctx context.Context, docURL string) (string, error) {
	local, err := h.download(ctx, docURL)
	if err != nil {
		return "", err
	}
	defer os.Remove(local)
	return h.extract(local)
}

func (h *Harvester) download(ctx context.Context, docURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return "", err
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}
	client := h.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "bankbench-doc-*.pdf")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write payload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func filenameOf(docURL string) string {
	u, err := url.Parse(docURL)
	if err != nil {
		return docURL
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return u.Host
	}
	return name
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := urls[:0]
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
