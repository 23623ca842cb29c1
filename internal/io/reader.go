package io

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/williampepple1/legis-harvester/internal/config"
	"github.com/williampepple1/legis-harvester/pkg/models"
)

// AllYearsLabel marks the single span of sources without a year axis
const AllYearsLabel = "todos-os-anos"

// SpanReader resolves the span enumeration of a family
type SpanReader struct {
	Family *config.FamilyConfig
}

// NewSpanReader creates a new span reader
func NewSpanReader(family *config.FamilyConfig) *SpanReader {
	return &SpanReader{
		Family: family,
	}
}

// ReadFromFile reads spans from a file, one "label fragment" pair per line.
// Blank lines and lines starting with # are skipped. A label of
// todos-os-anos marks a span without a year.
func (r *SpanReader) ReadFromFile(filename string) ([]models.Span, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var spans []models.Span
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%s:%d: expected \"label fragment\", got %q", filename, lineNo, line)
		}
		spans = append(spans, models.Span{
			Label:    parts[0],
			Fragment: parts[1],
			AllYears: parts[0] == AllYearsLabel,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return spans, nil
}

// GetSpans returns the configured spans in order. Inline spans win over a
// spans file; a family with neither has one implicit all-years span.
func (r *SpanReader) GetSpans() ([]models.Span, error) {
	if len(r.Family.Spans) > 0 {
		return r.Family.Spans, nil
	}
	if r.Family.SpansFile != "" {
		spans, err := r.ReadFromFile(r.Family.SpansFile)
		if err != nil {
			return nil, err
		}
		if len(spans) == 0 {
			return nil, fmt.Errorf("%s: no spans listed", r.Family.SpansFile)
		}
		return spans, nil
	}
	return []models.Span{{Label: AllYearsLabel, AllYears: true}}, nil
}
