package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/williampepple1/legis-harvester/internal/scraper"
	"github.com/williampepple1/legis-harvester/pkg/models"
)

const (
	rowXPath  = "//tr"
	cellXPath = "./td"
	linkXPath = ".//a[@href]"
)

// PaginatedListSource walks a list split into numbered pages of PageSize rows
type PaginatedListSource struct {
	Getter      scraper.PageGetter
	URLTemplate string // placeholders: {type}, {start}, {count}
	PageType    string
	PageSize    int
	LinkBase    string
	LinkColumn  int
}

func (s *PaginatedListSource) First() models.Cursor {
	return models.Cursor{Page: 1}
}

// PageURL builds the list URL for a cursor
func (s *PaginatedListSource) PageURL(cursor models.Cursor) string {
	return strings.NewReplacer(
		"{type}", s.PageType,
		"{start}", strconv.Itoa(cursor.Start(s.PageSize)),
		"{count}", strconv.Itoa(s.PageSize),
	).Replace(s.URLTemplate)
}

// NextBatch fetches one list page. The batch is Done when the page carries
// no data rows; a lone header row does not count.
func (s *PaginatedListSource) NextBatch(ctx context.Context, span models.Span, cursor models.Cursor) (models.Batch, error) {
	pageURL := s.PageURL(cursor)

	page, err := s.Getter.Get(ctx, pageURL)
	if err != nil {
		return models.Batch{}, err
	}

	rows, err := s.parseRows(page)
	if err != nil {
		return models.Batch{}, &scraper.FetchError{URL: pageURL, Err: err}
	}

	return models.Batch{
		Rows: rows,
		Next: cursor.Next(),
		Done: len(rows) == 0,
		URL:  pageURL,
	}, nil
}

func (s *PaginatedListSource) parseRows(page string) ([]models.RawRow, error) {
	doc, err := htmlquery.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parsing list page: %w", err)
	}

	trs, err := htmlquery.QueryAll(doc, rowXPath)
	if err != nil {
		return nil, err
	}
	if len(trs) <= 1 {
		return nil, nil
	}

	rows := make([]models.RawRow, 0, len(trs)-1)
	for _, tr := range trs[1:] {
		tds := htmlquery.Find(tr, cellXPath)
		cells := make([]string, len(tds))
		for i, td := range tds {
			cells[i] = cellText(htmlquery.InnerText(td))
		}

		rows = append(rows, models.RawRow{
			Index: len(rows),
			Cells: cells,
			Link:  resolveLink(s.LinkBase, s.href(tr, tds)),
		})
	}
	return rows, nil
}

func (s *PaginatedListSource) href(tr *html.Node, tds []*html.Node) string {
	scope := tr
	if s.LinkColumn >= 0 {
		if s.LinkColumn >= len(tds) {
			return ""
		}
		scope = tds[s.LinkColumn]
	}

	a := htmlquery.FindOne(scope, linkXPath)
	if a == nil {
		return ""
	}
	return htmlquery.SelectAttr(a, "href")
}
