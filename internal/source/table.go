package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/williampepple1/legis-harvester/internal/scraper"
	"github.com/williampepple1/legis-harvester/pkg/models"
)

// TableSource reads one table from a browser-rendered page per span
type TableSource struct {
	Renderer   scraper.Renderer
	BaseURL    string
	Selector   string
	Timeout    time.Duration
	LinkColumn int // cell holding the full-text link, -1 for any anchor in the row
}

func (s *TableSource) First() models.Cursor {
	return models.Cursor{Page: 1}
}

// NextBatch renders the span's page and returns every data row of its table.
// A table source has exactly one batch.
func (s *TableSource) NextBatch(ctx context.Context, span models.Span, cursor models.Cursor) (models.Batch, error) {
	pageURL := s.BaseURL + span.Fragment

	html, err := s.Renderer.Render(ctx, pageURL, s.Selector, s.Timeout)
	if err != nil {
		return models.Batch{}, err
	}

	rows, err := s.parseRows(html, pageURL)
	if err != nil {
		return models.Batch{}, &scraper.FetchError{URL: pageURL, Err: err}
	}

	return models.Batch{
		Rows: rows,
		Next: cursor.Next(),
		Done: true,
		URL:  pageURL,
	}, nil
}

func (s *TableSource) parseRows(html, pageURL string) ([]models.RawRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing table: %w", err)
	}

	trs := doc.Find("tr")
	rows := make([]models.RawRow, 0, trs.Length())

	trs.Each(func(i int, tr *goquery.Selection) {
		// First row is the header
		if i == 0 {
			return
		}

		tds := tr.Find("td")
		cells := make([]string, 0, tds.Length())
		tds.Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, cellText(td.Text()))
		})

		anchors := tr.Find("a[href]")
		if s.LinkColumn >= 0 {
			anchors = tds.Eq(s.LinkColumn).Find("a[href]")
		}
		href, _ := anchors.First().Attr("href")

		rows = append(rows, models.RawRow{
			Index: len(rows),
			Cells: cells,
			Link:  resolveLink(pageURL, href),
		})
	})

	return rows, nil
}
