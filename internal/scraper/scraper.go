package scraper

import (
	"context"
	"time"
)

// ContentFetcher returns the visible text of a remote document
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// PageGetter returns the decoded HTML of a remote page
type PageGetter interface {
	Get(ctx context.Context, url string) (string, error)
}

// Renderer renders a page and returns the outer HTML of the element matching
// selector. When the element does not appear within timeout it returns a
// *StructureTimeoutError and never blocks past the bound.
type Renderer interface {
	Render(ctx context.Context, url, selector string, timeout time.Duration) (string, error)
}
