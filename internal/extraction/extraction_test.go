package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/williampepple1/legis-harvester/internal/config"
	"github.com/williampepple1/legis-harvester/internal/scraper"
	"github.com/williampepple1/legis-harvester/pkg/models"
)

type fakeFetcher struct {
	pages map[string]string
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	text, ok := f.pages[url]
	if !ok {
		return "", &scraper.FetchError{URL: url, Err: errors.New("connection refused")}
	}
	return text, nil
}

func family(t *testing.T, name string) config.FamilyConfig {
	f, ok := config.Default().Family(name)
	require.True(t, ok)
	return f
}

func TestExtractPlanaltoRow(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"http://p/D1.htm": "  Art. 1º <b>Fica</b> instituído\n\n\n  Art. 2º &amp; revoga  ",
	}}
	e := NewExtractor(family(t, "planalto-decretos"), fetcher)

	row := models.RawRow{Cells: []string{"Decreto nº 1", "Dispõe sobre algo"}, Link: "http://p/D1.htm"}
	record, issues := e.Extract(context.Background(), row, models.SourceContext{Year: "2019"})

	assert.Empty(t, issues)
	assert.Equal(t, []string{"lei", "ementa", "ano", "inteiro_teor"}, record.Fields())
	assert.Equal(t, map[string]string{
		"lei":          "Decreto nº 1",
		"ementa":       "Dispõe sobre algo",
		"ano":          "2019",
		"inteiro_teor": "Art. 1º Fica instituído\n\nArt. 2º & revoga",
	}, record.Map())
}

func TestExtractMissingLinkKeepsRow(t *testing.T) {
	fetcher := &fakeFetcher{}
	e := NewExtractor(family(t, "planalto-decretos"), fetcher)

	row := models.RawRow{Cells: []string{"Decreto nº 2", "Sem link"}}
	record, issues := e.Extract(context.Background(), row, models.SourceContext{Year: "2019"})

	assert.Empty(t, issues)
	assert.Empty(t, fetcher.calls)
	text, ok := record.Get("inteiro_teor")
	assert.True(t, ok)
	assert.Equal(t, "", text)
}

func TestExtractFetchFailureIsRecovered(t *testing.T) {
	e := NewExtractor(family(t, "alerj-decretos"), &fakeFetcher{})

	row := models.RawRow{Cells: []string{"12", "2019", "Poder Executivo", "Ementa"}, Link: "http://down/doc"}
	record, issues := e.Extract(context.Background(), row, models.SourceContext{})

	require.Len(t, issues, 1)
	var fetchErr *scraper.FetchError
	assert.True(t, errors.As(issues[0], &fetchErr))
	assert.Equal(t, []string{"12", "2019", "Poder Executivo", "Ementa", ""}, record.Values())
}

func TestExtractShortRowDefaultsFields(t *testing.T) {
	e := NewExtractor(family(t, "alerj-decretos"), &fakeFetcher{})

	row := models.RawRow{Index: 4, Cells: []string{"12", "2019"}}
	record, issues := e.Extract(context.Background(), row, models.SourceContext{})

	require.Len(t, issues, 2)
	var missing *scraper.MissingFieldError
	require.True(t, errors.As(issues[0], &missing))
	assert.Equal(t, "autor", missing.Field)
	assert.Equal(t, 4, missing.Index)

	assert.Len(t, record.Map(), 5)
	assert.Equal(t, []string{"12", "2019", "", "", ""}, record.Values())
}

func TestExtractAllYearsSpanLeavesYearEmpty(t *testing.T) {
	e := NewExtractor(family(t, "planalto-leis-complementares"), &fakeFetcher{})

	span := models.Span{Label: "todos-os-anos", AllYears: true}
	row := models.RawRow{Cells: []string{"LCP 1", "Ementa"}}
	record, _ := e.Extract(context.Background(), row, models.SourceContext{Span: span, Year: span.Year()})

	year, ok := record.Get("ano")
	assert.True(t, ok)
	assert.Empty(t, year)
}

func TestExtractReportsUndeclaredFields(t *testing.T) {
	f := config.FamilyConfig{
		Fields:        []string{"lei", "inteiro_teor"},
		Columns:       []string{"lei", "ementa"},
		YearField:     "ano",
		FullTextField: "texto",
	}
	fetcher := &fakeFetcher{pages: map[string]string{"http://p/1": "corpo"}}
	e := NewExtractor(f, fetcher)

	row := models.RawRow{Cells: []string{"Lei 1", "Ementa"}, Link: "http://p/1"}
	record, issues := e.Extract(context.Background(), row, models.SourceContext{Year: "2019"})

	require.Len(t, issues, 3)
	assert.ErrorContains(t, issues[0], `"ementa"`)
	assert.ErrorContains(t, issues[1], `"ano"`)
	assert.ErrorContains(t, issues[2], `"texto"`)
	assert.Equal(t, []string{"Lei 1", ""}, record.Values())
}

func TestStrip(t *testing.T) {
	s := NewStripper()
	assert.Equal(t, "a < b", s.Strip("a &lt; b"))
	assert.Equal(t, "title\n\nbody text", s.Strip("<h1>title</h1>\n \n\t\n<p>body   text</p>"))
	assert.Equal(t, "", s.Strip("<script>alert(1)</script>"))

	// Literal brackets in decoded text survive
	assert.Equal(t, "x<y e z", s.Strip("x<y e z"))
	assert.Equal(t, "taxa <5% ao ano", s.Strip("taxa <5% ao ano"))
	assert.Equal(t, "Art. 3º se a<b, aplica-se o art. 2º", s.Strip("Art. 3º se a<b, aplica-se o art. 2º"))
	assert.Equal(t, "a negrito > c", s.Strip("a <b>negrito</b> > c"))
}
