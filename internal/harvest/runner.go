package harvest

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/williampepple1/legis-harvester/internal/config"
	"github.com/williampepple1/legis-harvester/internal/extraction"
	"github.com/williampepple1/legis-harvester/internal/io"
	"github.com/williampepple1/legis-harvester/internal/scraper"
	"github.com/williampepple1/legis-harvester/internal/source"
)

// ForFamily wires the production collaborators for one family: an HTTP
// fetcher using the family's encoding, a headless browser for table sources
// and the configured sink.
func ForFamily(cfg *config.AppConfig, family config.FamilyConfig, logger *zap.Logger) (*Harvester, error) {
	fetcher, err := scraper.NewHTTPFetcher(cfg, family.Encoding)
	if err != nil {
		return nil, err
	}

	src, err := source.New(cfg, family, scraper.NewBrowserRenderer(cfg), fetcher)
	if err != nil {
		return nil, err
	}

	openSink := func() (io.Sink, error) {
		return io.NewSink(&cfg.Output, family)
	}

	return New(cfg, family, src, extraction.NewExtractor(family, fetcher), openSink, logger), nil
}

// Runner harvests several independent families
type Runner struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Progress ProgressFunc
	Parallel bool

	// Build creates the harvester of a family; defaults to ForFamily
	Build func(cfg *config.AppConfig, family config.FamilyConfig, logger *zap.Logger) (*Harvester, error)
}

// Run harvests the named families and returns one summary per family in the
// given order. A failing family never stops the others.
func (r *Runner) Run(ctx context.Context, names []string) []*Summary {
	summaries := make([]*Summary, len(names))
	if r.Logger == nil {
		r.Logger = zap.NewNop()
	}

	if !r.Parallel {
		for i, name := range names {
			summaries[i] = r.runFamily(ctx, name)
		}
		return summaries
	}

	wg := &sync.WaitGroup{}
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			summaries[i] = r.runFamily(ctx, name)
		}(i, name)
	}
	wg.Wait()
	return summaries
}

func (r *Runner) runFamily(ctx context.Context, name string) *Summary {
	family, ok := r.Config.Family(name)
	if !ok {
		return &Summary{Family: name, Err: fmt.Errorf("unknown family %q", name)}
	}

	spans, err := io.NewSpanReader(&family).GetSpans()
	if err != nil {
		r.Logger.Error("cannot resolve spans", zap.String("family", name), zap.Error(err))
		return &Summary{Family: name, Err: fmt.Errorf("resolving spans: %w", err)}
	}

	build := r.Build
	if build == nil {
		build = ForFamily
	}
	h, err := build(r.Config, family, r.Logger)
	if err != nil {
		return &Summary{Family: name, Err: err}
	}
	h.Progress = r.Progress

	return h.Run(ctx, spans)
}
