// Package fetch retrieves rendered page markup for one product URL. A fast
// direct GET is tried first; when the site returns an empty shell to
// non-browser clients the fetcher falls back to a headless browser session.
package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"
)

// ErrUnavailable is returned when both transports fail. Callers must treat it
// as terminal for the product's web source; there is no retry.
var ErrUnavailable = errors.New("fetch: page unavailable on all transports")

// Transport names which path produced the markup.
type Transport string

const (
	TransportHTTP    Transport = "http"
	TransportBrowser Transport = "browser"
)

const (
	// DefaultUserAgent mirrors a desktop browser; many bank sites serve a
	// near-empty shell to anything else.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	// DefaultMinBytes is the smallest payload accepted as a real page load.
	DefaultMinBytes = 500

	DefaultFastTimeout    = 10 * time.Second
	DefaultBrowserTimeout = 30 * time.Second
)

// Page is the fetched markup plus provenance. It lives only for the duration
// of one product's processing.
type Page struct {
	HTML      string
	Bytes     int
	Transport Transport
}

// BrowserFetcher renders a page in a real browser engine. Implementations
// must release the browser session on every exit path.
type BrowserFetcher interface {
	Render(ctx context.Context, url string, timeout time.Duration) (string, error)
}

// Client fetches pages with the fast-then-rendered strategy. Target sites
// come from vetted configuration, not user input, so certificate validation
// is intentionally relaxed: several of them serve incomplete chains.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// Browser is the slow-path fallback; nil disables it.
	Browser BrowserFetcher

	FastTimeout    time.Duration
	BrowserTimeout time.Duration
	// MinBytes rejects payloads at or below this size as load failures.
	MinBytes int

	httpOnce sync.Once
}

func (c *Client) fastTimeout() time.Duration {
	if c.FastTimeout > 0 {
		return c.FastTimeout
	}
	return DefaultFastTimeout
}

func (c *Client) browserTimeout() time.Duration {
	if c.BrowserTimeout > 0 {
		return c.BrowserTimeout
	}
	return DefaultBrowserTimeout
}

func (c *Client) minBytes() int {
	if c.MinBytes > 0 {
		return c.MinBytes
	}
	return DefaultMinBytes
}

func (c *Client) userAgent() string {
	if c.UserAgent != "" {
		return c.UserAgent
	}
	return DefaultUserAgent
}

func (c *Client) httpClient() *http.Client {
	c.httpOnce.Do(func() {
		if c.HTTPClient == nil {
			c.HTTPClient = &http.Client{
				Transport: InsecureTransport(),
			}
		}
	})
	return c.HTTPClient
}

// InsecureTransport returns an http.Transport with certificate verification
// disabled, shared by the page fetcher and the document downloader.
func InsecureTransport() *http.Transport {
	return &http.Transport{
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
}

// Fetch retrieves the page markup for url. It returns ErrUnavailable when
// both the direct GET and the rendered fallback fail or produce a payload at
// or below the minimum size.
func (c *Client) Fetch(ctx context.Context, url string) (Page, error) {
	if markup, err := c.fetchDirect(ctx, url); err == nil {
		log.Debug().Str("url", url).Int("bytes", len(markup)).Msg("page loaded via direct GET")
		return Page{HTML: markup, Bytes: len(markup), Transport: TransportHTTP}, nil
	} else {
		log.Debug().Err(err).Str("url", url).Msg("direct GET rejected; trying rendered fetch")
	}

	if c.Browser == nil {
		return Page{}, ErrUnavailable
	}
	markup, err := c.Browser.Render(ctx, url, c.browserTimeout())
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("rendered fetch failed")
		return Page{}, ErrUnavailable
	}
	if len(markup) <= c.minBytes() {
		log.Warn().Str("url", url).Int("bytes", len(markup)).Msg("rendered payload below minimum size")
		return Page{}, ErrUnavailable
	}
	return Page{HTML: markup, Bytes: len(markup), Transport: TransportBrowser}, nil
}

func (c *Client) fetchDirect(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.fastTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.userAgent())

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	// Decode legacy encodings (windows-1251 is still common on .by sites)
	// so downstream reduction always sees UTF-8.
	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("charset: %w", err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if len(body) <= c.minBytes() {
		return "", fmt.Errorf("payload too small: %d bytes", len(body))
	}
	return string(body), nil
}
