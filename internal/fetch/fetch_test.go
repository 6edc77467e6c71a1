package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeBrowser struct {
	markup string
	err    error
	calls  int
}

func (f *fakeBrowser) Render(_ context.Context, _ string, _ time.Duration) (string, error) {
	f.calls++
	return f.markup, f.err
}

func bigPage() string {
	return "<html><body>" + strings.Repeat("кредит ", 200) + "</body></html>"
}

func TestFetch_DirectSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Mozilla") {
			t.Errorf("browser-like User-Agent not sent: %q", ua)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(bigPage()))
	}))
	defer srv.Close()

	browser := &fakeBrowser{}
	c := &Client{HTTPClient: srv.Client(), Browser: browser, FastTimeout: 2 * time.Second}
	page, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Transport != TransportHTTP {
		t.Fatalf("expected http transport, got %s", page.Transport)
	}
	if browser.calls != 0 {
		t.Fatal("browser fallback must not run when direct GET succeeds")
	}
}

func TestFetch_ShortPayloadFallsBackToBrowser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html></html>")) // empty shell
	}))
	defer srv.Close()

	browser := &fakeBrowser{markup: bigPage()}
	c := &Client{HTTPClient: srv.Client(), Browser: browser, FastTimeout: 2 * time.Second}
	page, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Transport != TransportBrowser {
		t.Fatalf("expected browser transport, got %s", page.Transport)
	}
	if browser.calls != 1 {
		t.Fatalf("expected one browser call, got %d", browser.calls)
	}
}

func TestFetch_ErrorStatusFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	browser := &fakeBrowser{markup: bigPage()}
	c := &Client{HTTPClient: srv.Client(), Browser: browser, FastTimeout: 2 * time.Second}
	page, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Transport != TransportBrowser {
		t.Fatalf("expected browser transport, got %s", page.Transport)
	}
}

func TestFetch_BothTransportsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	browser := &fakeBrowser{err: errors.New("render crashed")}
	c := &Client{HTTPClient: srv.Client(), Browser: browser, FastTimeout: 2 * time.Second}
	if _, err := c.Fetch(context.Background(), srv.URL); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestFetch_ShortRenderedPayloadRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	browser := &fakeBrowser{markup: "<html></html>"}
	c := &Client{HTTPClient: srv.Client(), Browser: browser, FastTimeout: 2 * time.Second}
	if _, err := c.Fetch(context.Background(), srv.URL); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestFetch_NoBrowserConfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := &Client{HTTPClient: srv.Client(), FastTimeout: 2 * time.Second}
	if _, err := c.Fetch(context.Background(), srv.URL); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestFetch_DecodesWindows1251(t *testing.T) {
	// "ставка" in windows-1251
	cp1251 := []byte{0xF1, 0xF2, 0xE0, 0xE2, 0xEA, 0xE0}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=windows-1251")
		_, _ = w.Write([]byte("<html><body>"))
		for i := 0; i < 200; i++ {
			_, _ = w.Write(cp1251)
			_, _ = w.Write([]byte(" "))
		}
		_, _ = w.Write([]byte("</body></html>"))
	}))
	defer srv.Close()

	c := &Client{HTTPClient: srv.Client(), FastTimeout: 2 * time.Second}
	page, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(page.HTML, "ставка") {
		t.Fatal("legacy encoding not decoded to UTF-8")
	}
}
