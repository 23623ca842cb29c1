package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/williampepple1/legis-harvester/internal/config"
	"github.com/williampepple1/legis-harvester/internal/proxy"
)

// BrowserRenderer renders pages in a headless browser
type BrowserRenderer struct {
	Config *config.AppConfig
}

// NewBrowserRenderer creates a new browser renderer
func NewBrowserRenderer(config *config.AppConfig) *BrowserRenderer {
	return &BrowserRenderer{
		Config: config,
	}
}

// Render navigates to url, waits up to timeout for selector to appear and
// returns the outer HTML of the first match. Each call runs its own browser.
func (r *BrowserRenderer) Render(ctx context.Context, url, selector string, timeout time.Duration) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", r.Config.Browser.Headless),
		chromedp.UserAgent(r.Config.Scraper.UserAgent),
	)
	if r.Config.Browser.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.Config.Browser.ExecPath))
	}

	server, err := proxy.NewManager(&r.Config.Proxies).BrowserServer()
	if err != nil {
		return "", fmt.Errorf("applying proxy: %w", err)
	}
	if server != "" {
		opts = append(opts, chromedp.ProxyServer(server))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	// The first Run owns the browser's lifetime, so it cannot take a
	// deadline of its own
	startErr := runBounded(r.Config.Scraper.Timeout, func() error {
		return chromedp.Run(browserCtx)
	})
	if startErr != nil {
		return "", &FetchError{URL: url, Err: fmt.Errorf("starting browser: %w", startErr)}
	}

	navCtx, cancelNav := context.WithTimeout(browserCtx, r.Config.Scraper.Timeout)
	defer cancelNav()
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return "", &FetchError{URL: url, Err: err}
	}

	waitCtx, cancel := context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err = chromedp.Run(waitCtx,
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.OuterHTML(selector, &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", classifyWaitError(waitCtx, url, selector, timeout, err)
	}

	return html, nil
}

// classifyWaitError maps a failed wait for selector to the error taxonomy.
// Running out of the wait bound is structural; anything else is a fetch
// failure.
func classifyWaitError(waitCtx context.Context, url, selector string, timeout time.Duration, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		return &StructureTimeoutError{URL: url, Selector: selector, Timeout: timeout, Err: err}
	}
	return &FetchError{URL: url, Err: err}
}

// runBounded runs fn and gives up after timeout. fn keeps running in the
// background; callers cancel whatever it blocks on.
func runBounded(timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case err := <-done:
		return err
	case <-t.C:
		return fmt.Errorf("no response within %v", timeout)
	}
}
