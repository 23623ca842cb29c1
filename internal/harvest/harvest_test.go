package harvest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/williampepple1/legis-harvester/internal/config"
	"github.com/williampepple1/legis-harvester/internal/extraction"
	"github.com/williampepple1/legis-harvester/internal/io"
	"github.com/williampepple1/legis-harvester/internal/scraper"
	"github.com/williampepple1/legis-harvester/internal/source"
	"github.com/williampepple1/legis-harvester/pkg/models"
)

// listGetter serves generated ALERJ list pages keyed by call order
type listGetter struct {
	mu    sync.Mutex
	sizes []int
	fails map[int]int // call index -> remaining failures
	urls  []string
}

func (g *listGetter) Get(ctx context.Context, url string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	page := len(g.urls)
	if g.fails[page] > 0 {
		g.fails[page]--
		return "", &scraper.FetchError{URL: url, Err: errors.New("connection reset")}
	}
	g.urls = append(g.urls, url)

	n := 0
	if page < len(g.sizes) {
		n = g.sizes[page]
	}
	var b strings.Builder
	b.WriteString("<table><tr><th>Lei</th><th>Ano</th><th>Autor</th><th>Ementa</th></tr>")
	for i := 0; i < n; i++ {
		id := page*1000 + i + 1
		fmt.Fprintf(&b, `<tr><td><a href="/doc/%d">%d</a></td><td>2019</td><td>Executivo</td><td>Ementa; "%d"</td></tr>`, id, id, id)
	}
	b.WriteString("</table>")
	return b.String(), nil
}

type textFetcher struct{}

func (textFetcher) Fetch(ctx context.Context, url string) (string, error) {
	return "<p>Texto de " + url + "</p>", nil
}

// tableRenderer fails with a structure timeout for the listed URLs
type tableRenderer struct {
	timeouts map[string]bool
	calls    []string
}

func (r *tableRenderer) Render(ctx context.Context, url, selector string, timeout time.Duration) (string, error) {
	r.calls = append(r.calls, url)
	if r.timeouts[url] {
		return "", &scraper.StructureTimeoutError{URL: url, Selector: selector, Timeout: timeout}
	}
	return fmt.Sprintf(`<table><tr><th>Lei</th><th>Ementa</th></tr>
		<tr><td><a href="/%[1]s/1.htm">Decreto 1 de %[1]s</a></td><td>Ementa A</td></tr>
		<tr><td>Decreto 2 de %[1]s</td><td>Ementa B</td></tr></table>`, url[strings.LastIndex(url, "/")+1:]), nil
}

func testConfig(t *testing.T) *config.AppConfig {
	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	cfg.Scraper.Workers = 4
	cfg.Scraper.MaxRetries = 2
	return cfg
}

func newHarvester(t *testing.T, cfg *config.AppConfig, family config.FamilyConfig, src source.PageSource) *Harvester {
	extractor := extraction.NewExtractor(family, textFetcher{})
	openSink := func() (io.Sink, error) { return io.NewSink(&cfg.Output, family) }
	h := New(cfg, family, src, extractor, openSink, zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel)))
	h.sleep = func(context.Context, time.Duration) error { return nil }
	return h
}

func readOutput(t *testing.T, cfg *config.AppConfig, family config.FamilyConfig) [][]string {
	f, err := os.Open(filepath.Join(cfg.Output.Dir, family.Output))
	require.NoError(t, err)
	defer f.Close()

	rows, err := io.NewCSVReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func alerjSource(cfg *config.AppConfig, family config.FamilyConfig, g scraper.PageGetter) source.PageSource {
	src, _ := source.New(cfg, family, nil, g)
	return src
}

func TestPaginatedHarvestStopsOnEmptyPage(t *testing.T) {
	cfg := testConfig(t)
	family, _ := cfg.Family("alerj-decretos")
	g := &listGetter{sizes: []int{1000, 1000, 0}}

	h := newHarvester(t, cfg, family, alerjSource(cfg, family, g))
	summary := h.Run(context.Background(), []models.Span{{Label: io.AllYearsLabel, AllYears: true}})

	require.True(t, summary.OK(), "summary: %+v", summary)
	require.Len(t, g.urls, 3)
	assert.Contains(t, g.urls[0], "Start=1&")
	assert.Contains(t, g.urls[1], "Start=1001&")
	assert.Contains(t, g.urls[2], "Start=2001&")
	assert.Equal(t, 2000, summary.Records())
	assert.Equal(t, 3, summary.Spans[0].Batches)

	rows := readOutput(t, cfg, family)
	require.Len(t, rows, 2001)
	assert.Equal(t, family.Fields, rows[0])

	// Output order follows input order despite concurrent fetches
	for i, row := range rows[1:] {
		require.Len(t, row, len(family.Fields))
		assert.Equal(t, fmt.Sprint(i+1), row[0])
	}
	assert.Equal(t, `Ementa; "1"`, rows[1][3])
	assert.Equal(t, "Texto de http://alerjln1.alerj.rj.gov.br/doc/1", rows[1][4])
}

func TestPaginatedHarvestRetriesFetchErrors(t *testing.T) {
	cfg := testConfig(t)
	family, _ := cfg.Family("alerj-decretos")
	g := &listGetter{sizes: []int{3, 0}, fails: map[int]int{1: 2}}

	h := newHarvester(t, cfg, family, alerjSource(cfg, family, g))
	summary := h.Run(context.Background(), []models.Span{{Label: io.AllYearsLabel, AllYears: true}})

	require.True(t, summary.OK())
	assert.Equal(t, 3, summary.Records())
	assert.Len(t, g.urls, 2)
}

func TestPaginatedFailureRollsBackSpan(t *testing.T) {
	cfg := testConfig(t)
	family, _ := cfg.Family("alerj-decretos")
	g := &listGetter{sizes: []int{5, 5, 0}, fails: map[int]int{1: 10}}

	h := newHarvester(t, cfg, family, alerjSource(cfg, family, g))
	summary := h.Run(context.Background(), []models.Span{{Label: io.AllYearsLabel, AllYears: true}})

	require.Len(t, summary.Failed(), 1)
	var fetchErr *scraper.FetchError
	assert.True(t, errors.As(summary.Spans[0].Err, &fetchErr))
	assert.Equal(t, 0, summary.Records())
	assert.Equal(t, 5, summary.Spans[0].RolledBack)

	rows := readOutput(t, cfg, family)
	assert.Len(t, rows, 1, "only the header is left")
}

func TestPaginatedFailureKeepsPartialWhenAsked(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.KeepPartial = true
	family, _ := cfg.Family("alerj-decretos")
	g := &listGetter{sizes: []int{5, 5, 0}, fails: map[int]int{1: 10}}

	h := newHarvester(t, cfg, family, alerjSource(cfg, family, g))
	summary := h.Run(context.Background(), []models.Span{{Label: io.AllYearsLabel, AllYears: true}})

	require.Len(t, summary.Failed(), 1)
	assert.Len(t, readOutput(t, cfg, family), 6)
}

func TestTableTimeoutSkipsOnlyThatSpan(t *testing.T) {
	cfg := testConfig(t)
	family, _ := cfg.Family("planalto-decretos")
	family.BaseURL = "http://planalto.test/"
	r := &tableRenderer{timeouts: map[string]bool{"http://planalto.test/d2019": true}}
	src, err := source.New(cfg, family, r, nil)
	require.NoError(t, err)

	spans := []models.Span{
		{Label: "2018", Fragment: "d2018"},
		{Label: "2019", Fragment: "d2019"},
		{Label: "2020", Fragment: "d2020"},
	}
	summary := newHarvester(t, cfg, family, src).Run(context.Background(), spans)

	require.Len(t, summary.Spans, 3)
	require.Len(t, summary.Failed(), 1)
	failed := summary.Failed()[0]
	assert.Equal(t, "2019", failed.Span)
	var timeoutErr *scraper.StructureTimeoutError
	assert.True(t, errors.As(failed.Err, &timeoutErr))

	// Timeouts are structural, not retried
	assert.Len(t, r.calls, 3)

	rows := readOutput(t, cfg, family)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"lei", "ementa", "ano", "inteiro_teor"}, rows[0])
	for _, row := range rows[1:] {
		assert.NotEqual(t, "2019", row[2])
	}
	assert.Equal(t, []string{"Decreto 1 de d2018", "Ementa A", "2018", "Texto de http://planalto.test/d2018/1.htm"}, rows[1])
	assert.Equal(t, []string{"Decreto 2 de d2018", "Ementa B", "2018", ""}, rows[2])
	assert.Equal(t, "2020", rows[3][2])
}

func TestRunReportsSinkFailure(t *testing.T) {
	cfg := testConfig(t)
	family, _ := cfg.Family("alerj-decretos")
	h := newHarvester(t, cfg, family, alerjSource(cfg, family, &listGetter{}))
	h.OpenSink = func() (io.Sink, error) { return nil, errors.New("read-only filesystem") }

	summary := h.Run(context.Background(), []models.Span{{Label: io.AllYearsLabel, AllYears: true}})
	assert.ErrorContains(t, summary.Err, "read-only filesystem")
	assert.False(t, summary.OK())
}

func TestRunnerContinuesAfterFailedFamily(t *testing.T) {
	cfg := testConfig(t)
	runner := &Runner{
		Config:   cfg,
		Parallel: true,
		Build: func(cfg *config.AppConfig, family config.FamilyConfig, logger *zap.Logger) (*Harvester, error) {
			return newHarvester(t, cfg, family, alerjSource(cfg, family, &listGetter{sizes: []int{2, 0}})), nil
		},
	}

	var mu sync.Mutex
	progressCalls := 0
	runner.Progress = func(config.FamilyConfig, models.Span, int, int) {
		mu.Lock()
		progressCalls++
		mu.Unlock()
	}

	summaries := runner.Run(context.Background(), []string{"no-such-family", "alerj-decretos"})
	require.Len(t, summaries, 2)
	assert.ErrorContains(t, summaries[0].Err, "unknown family")
	assert.True(t, summaries[1].OK())
	assert.Equal(t, 2, summaries[1].Records())
	assert.Equal(t, 2, progressCalls)

	var out bytes.Buffer
	RenderSummaries(&out, summaries)
	assert.Contains(t, out.String(), "alerj-decretos")
	assert.Contains(t, out.String(), "unknown family")
}
