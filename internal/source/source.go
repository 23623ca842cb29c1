// Package source turns remote listing pages into batches of raw rows.
//
// Two variants share the PageSource contract: TableSource renders a page in a
// browser and reads one static table, PaginatedListSource walks numbered list
// pages over HTTP until a page has no data rows. Both treat the first row of
// every fetch as a header.
package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/williampepple1/legis-harvester/internal/config"
	"github.com/williampepple1/legis-harvester/internal/scraper"
	"github.com/williampepple1/legis-harvester/pkg/models"
)

// PageSource yields successive batches of rows for one span
type PageSource interface {
	// First returns the cursor a harvest starts from
	First() models.Cursor
	// NextBatch fetches the rows at cursor. Done reports exhaustion; rows of a
	// Done batch are still valid data.
	NextBatch(ctx context.Context, span models.Span, cursor models.Cursor) (models.Batch, error)
}

// New selects the PageSource variant declared by the family
func New(cfg *config.AppConfig, family config.FamilyConfig, renderer scraper.Renderer, getter scraper.PageGetter) (PageSource, error) {
	switch family.Kind {
	case config.KindTable:
		return &TableSource{
			Renderer:   renderer,
			BaseURL:    family.BaseURL,
			Selector:   cfg.Browser.TableSelector,
			Timeout:    cfg.Browser.WaitTimeout,
			LinkColumn: family.LinkColumn,
		}, nil
	case config.KindPaginated:
		return &PaginatedListSource{
			Getter:      getter,
			URLTemplate: family.URLTemplate,
			PageType:    family.PageType,
			PageSize:    family.PageSize,
			LinkBase:    family.LinkBase,
			LinkColumn:  family.LinkColumn,
		}, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", family.Kind)
	}
}

// cellText collapses every whitespace run of a cell, line breaks included,
// into one space
func cellText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// resolveLink makes href absolute against base. Unparseable links are dropped.
func resolveLink(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() || base == "" {
		return ref.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(ref).String()
}
