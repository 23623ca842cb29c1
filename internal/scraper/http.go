package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/williampepple1/legis-harvester/internal/config"
	"github.com/williampepple1/legis-harvester/internal/proxy"
)

// HTTPFetcher retrieves pages over plain HTTP with a browser-like header set
type HTTPFetcher struct {
	client   *resty.Client
	encoding string
}

// NewHTTPFetcher creates a fetcher. encoding forces a charset label for every
// response (e.g. "latin-1"); empty means declared or inferred.
func NewHTTPFetcher(cfg *config.AppConfig, encoding string) (*HTTPFetcher, error) {
	client := resty.New().
		SetTimeout(cfg.Scraper.Timeout).
		SetRetryCount(0).
		SetHeaders(cfg.Scraper.Headers).
		SetHeader("User-Agent", cfg.Scraper.UserAgent)

	if _, err := proxy.NewManager(&cfg.Proxies).ApplyToClient(client); err != nil {
		return nil, fmt.Errorf("applying proxy: %w", err)
	}

	return &HTTPFetcher{client: client, encoding: encoding}, nil
}

// Get returns the decoded HTML of a page
func (f *HTTPFetcher) Get(ctx context.Context, url string) (string, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}

	if resp.StatusCode() != http.StatusOK {
		return "", &FetchError{URL: url, Err: fmt.Errorf("received non-200 status code: %d", resp.StatusCode())}
	}

	body, err := Decode(resp.Body(), resp.Header().Get("Content-Type"), f.encoding)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	return body, nil
}

// Fetch returns the visible text of a page's body
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	page, err := f.Get(ctx, url)
	if err != nil {
		return "", err
	}

	text, err := BodyText(page)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	return text, nil
}

// BodyText extracts the text of the <body> element, skipping scripts and styles
func BodyText(page string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	body := doc.Find("body")
	body.Find("script, style, noscript").Remove()
	return body.Text(), nil
}
