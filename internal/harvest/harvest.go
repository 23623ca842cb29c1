// Package harvest drives a PageSource to exhaustion for every span of a
// source family, maps rows to records and streams them to the family's sink.
//
// One run walks START → FETCHING → EXTRACTING → WRITING per batch, looping
// back to FETCHING until the source reports exhaustion (DONE). A fatal span
// failure rolls the span's rows back and the run moves on to the next span.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/williampepple1/legis-harvester/internal/config"
	"github.com/williampepple1/legis-harvester/internal/io"
	"github.com/williampepple1/legis-harvester/internal/scraper"
	"github.com/williampepple1/legis-harvester/internal/source"
	"github.com/williampepple1/legis-harvester/internal/worker"
	"github.com/williampepple1/legis-harvester/pkg/models"
)

// State is a step of the harvest state machine
type State int

const (
	StateStart State = iota
	StateFetching
	StateExtracting
	StateWriting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateFetching:
		return "fetching"
	case StateExtracting:
		return "extracting"
	case StateWriting:
		return "writing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Extractor maps one raw row to a record
type Extractor interface {
	Extract(ctx context.Context, row models.RawRow, sc models.SourceContext) (*models.Record, []error)
}

// ProgressFunc is told about every written row
type ProgressFunc func(family config.FamilyConfig, span models.Span, written, total int)

// Harvester runs one source family
type Harvester struct {
	RunID     string
	Config    *config.AppConfig
	Family    config.FamilyConfig
	Source    source.PageSource
	Extractor Extractor
	OpenSink  func() (io.Sink, error)
	Logger    *zap.Logger
	Progress  ProgressFunc

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a harvester from its collaborators
func New(cfg *config.AppConfig, family config.FamilyConfig, src source.PageSource, extractor Extractor,
	openSink func() (io.Sink, error), logger *zap.Logger) *Harvester {
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := uuid.NewString()

	return &Harvester{
		RunID:     runID,
		Config:    cfg,
		Family:    family,
		Source:    src,
		Extractor: extractor,
		OpenSink:  openSink,
		Logger:    logger.With(zap.String("run_id", runID), zap.String("family", family.Name)),
		sleep:     sleepContext,
	}
}

// Run harvests every span in order into one sink. Span failures are recorded
// in the summary and do not stop later spans; only a sink that cannot be
// opened or closed fails the whole run.
func (h *Harvester) Run(ctx context.Context, spans []models.Span) *Summary {
	summary := &Summary{RunID: h.RunID, Family: h.Family.Name}
	start := time.Now()
	defer func() { summary.Duration = time.Since(start) }()

	sink, err := h.OpenSink()
	if err != nil {
		summary.Err = fmt.Errorf("opening sink: %w", err)
		h.Logger.Error("cannot open sink", zap.Error(err))
		return summary
	}
	defer func() {
		if err := sink.Close(); err != nil && summary.Err == nil {
			summary.Err = fmt.Errorf("closing sink: %w", err)
		}
	}()

	for _, span := range spans {
		result := h.runSpan(ctx, sink, span)
		summary.Spans = append(summary.Spans, result)
		if ctx.Err() != nil {
			summary.Err = ctx.Err()
			break
		}
	}

	h.Logger.Info("harvest finished",
		zap.Int("spans", len(summary.Spans)),
		zap.Int("failed", len(summary.Failed())),
		zap.Int("records", summary.Records()),
	)
	return summary
}

func (h *Harvester) runSpan(ctx context.Context, sink io.Sink, span models.Span) SpanResult {
	logger := h.Logger.With(zap.String("span", span.Label))
	result := SpanResult{Family: h.Family.Name, Span: span.Label}
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	state := StateStart
	transition := func(next State) {
		logger.Debug("state", zap.Stringer("from", state), zap.Stringer("to", next))
		state = next
	}

	fail := func(err error) SpanResult {
		result.Err = err
		logger.Error("span failed", zap.Stringer("state", state), zap.Error(err))
		if h.Config.Output.KeepPartial {
			if cerr := sink.CommitSpan(); cerr != nil {
				logger.Error("keeping partial span", zap.Error(cerr))
			}
			return result
		}
		if rerr := sink.RollbackSpan(); rerr != nil {
			logger.Error("rolling back span", zap.Error(rerr))
		} else {
			result.RolledBack = result.Records
			result.Records = 0
		}
		return result
	}

	if err := sink.BeginSpan(); err != nil {
		result.Err = fmt.Errorf("starting span: %w", err)
		return result
	}

	sc := models.SourceContext{
		Family: h.Family.Name,
		Label:  h.Family.Label,
		Span:   span,
		Year:   span.Year(),
	}
	logger.Info(fmt.Sprintf("harvesting %s (%s)", h.Family.Label, span.Label))

	pool := worker.NewPool(h.Config.Scraper.Workers, func(ctx context.Context, row models.RawRow) (*models.Record, []error) {
		return h.Extractor.Extract(ctx, row, sc)
	})

	cursor := h.Source.First()
	for {
		transition(StateFetching)
		batch, err := h.fetch(ctx, logger, span, cursor)
		if err != nil {
			return fail(err)
		}
		result.Batches++

		transition(StateExtracting)
		written := 0
		err = pool.Run(ctx, batch.Rows, func(r worker.Result) error {
			if state != StateWriting {
				transition(StateWriting)
			}
			for _, issue := range r.Issues {
				result.Issues++
				logger.Warn("row recovered", zap.Int("row", r.Row.Index), zap.String("url", batch.URL), zap.Error(issue))
			}
			if err := sink.Write(r.Record); err != nil {
				return err
			}
			written++
			result.Records++
			if h.Progress != nil {
				h.Progress(h.Family, span, written, len(batch.Rows))
			}
			return nil
		})
		if err != nil {
			return fail(fmt.Errorf("writing records: %w", err))
		}

		if batch.Done {
			break
		}
		if batch.Next.Page <= cursor.Page {
			return fail(fmt.Errorf("cursor did not advance past page %d", cursor.Page))
		}
		cursor = batch.Next
	}

	transition(StateDone)
	if err := sink.CommitSpan(); err != nil {
		return fail(fmt.Errorf("committing span: %w", err))
	}
	logger.Info("span done", zap.Int("records", result.Records), zap.Int("batches", result.Batches))
	return result
}

// fetch asks the source for one batch, retrying fetch errors with backoff.
// Structural timeouts are never retried.
func (h *Harvester) fetch(ctx context.Context, logger *zap.Logger, span models.Span, cursor models.Cursor) (models.Batch, error) {
	var lastErr error
	for attempt := 0; attempt <= h.Config.Scraper.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := retryablehttp.DefaultBackoff(h.Config.Scraper.RetryDelay, h.Config.Scraper.MaxDelay, attempt-1, nil)
			logger.Warn("retrying page fetch",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", h.Config.Scraper.MaxRetries),
				zap.Duration("wait", wait),
				zap.Error(lastErr),
			)
			if err := h.sleep(ctx, wait); err != nil {
				return models.Batch{}, err
			}
		}

		batch, err := h.Source.NextBatch(ctx, span, cursor)
		if err == nil {
			return batch, nil
		}

		var fetchErr *scraper.FetchError
		if !errors.As(err, &fetchErr) {
			return models.Batch{}, err
		}
		lastErr = err
	}
	return models.Batch{}, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
