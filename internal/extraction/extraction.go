package extraction

import (
	"context"

	"github.com/williampepple1/legis-harvester/internal/config"
	"github.com/williampepple1/legis-harvester/internal/scraper"
	"github.com/williampepple1/legis-harvester/pkg/models"
)

// Extractor maps raw rows of one source family to records
type Extractor struct {
	Family   config.FamilyConfig
	Fetcher  scraper.ContentFetcher
	Stripper *Stripper
}

// NewExtractor creates a new record extractor
func NewExtractor(family config.FamilyConfig, fetcher scraper.ContentFetcher) *Extractor {
	return &Extractor{
		Family:   family,
		Fetcher:  fetcher,
		Stripper: NewStripper(),
	}
}

// Extract builds the record for one row. The record always carries every
// declared field; anything that could not be determined is left empty and
// reported in the returned issues instead of failing the row.
func (e *Extractor) Extract(ctx context.Context, row models.RawRow, sc models.SourceContext) (*models.Record, []error) {
	record := models.NewRecord(e.Family.Fields)
	var issues []error

	for i, field := range e.Family.Columns {
		if field == "" {
			continue
		}
		if i >= len(row.Cells) {
			issues = append(issues, &scraper.MissingFieldError{Field: field, Index: row.Index})
			continue
		}
		if err := record.Set(field, row.Cells[i]); err != nil {
			issues = append(issues, err)
		}
	}

	if e.Family.YearField != "" && sc.Year != "" {
		if err := record.Set(e.Family.YearField, sc.Year); err != nil {
			issues = append(issues, err)
		}
	}

	if row.Link != "" {
		text, err := e.Fetcher.Fetch(ctx, row.Link)
		if err != nil {
			issues = append(issues, err)
		} else {
			if err := record.Set(e.Family.FullTextField, e.Stripper.Strip(text)); err != nil {
				issues = append(issues, err)
			}
		}
	}

	return record, issues
}
