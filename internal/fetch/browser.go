package fetch

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeFetcher renders pages in a fresh headless Chrome session per call.
// Each call gets an isolated allocator so a wedged page cannot poison later
// fetches; the deferred cancels release the browser on every exit path,
// including caller cancellation.
type ChromeFetcher struct {
	UserAgent string
	// ExtraWait gives late XHR-driven content a chance to land after the
	// document is ready. Zero means 2s.
	ExtraWait time.Duration
}

func (f *ChromeFetcher) userAgent() string {
	if f.UserAgent != "" {
		return f.UserAgent
	}
	return DefaultUserAgent
}

func (f *ChromeFetcher) extraWait() time.Duration {
	if f.ExtraWait > 0 {
		return f.ExtraWait
	}
	return 2 * time.Second
}

// Render navigates to url and captures the fully rendered markup.
func (f *ChromeFetcher) Render(ctx context.Context, url string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		// several bank sites refuse to render for detected automation
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("start-maximized", true),
		chromedp.Flag("mute-audio", true),
		chromedp.UserAgent(f.userAgent()),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var markup string
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(1920, 1080),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.extraWait()),
		chromedp.OuterHTML("html", &markup, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	return markup, nil
}
