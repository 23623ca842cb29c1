package worker

import (
	"context"
	"sync"

	"github.com/williampepple1/legis-harvester/pkg/models"
)

// ExtractFunc turns one row into a record. It must not fail the row: recovered
// problems are returned as issues.
type ExtractFunc func(ctx context.Context, row models.RawRow) (*models.Record, []error)

// Result is the outcome of one row
type Result struct {
	Index  int
	Row    models.RawRow
	Record *models.Record
	Issues []error
}

// Pool manages a fixed number of extraction workers
type Pool struct {
	Workers int
	Extract ExtractFunc
}

// NewPool creates a new worker pool
func NewPool(workers int, extract ExtractFunc) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		Workers: workers,
		Extract: extract,
	}
}

// Run extracts every row and hands results to emit in input order, as soon
// as all earlier rows are done. At most Workers rows are in flight. A failing
// row never cancels its siblings; an emit error stops the run and is returned.
func (p *Pool) Run(ctx context.Context, rows []models.RawRow, emit func(Result) error) error {
	if len(rows) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int, len(rows))
	results := make(chan Result, p.Workers)
	wg := &sync.WaitGroup{}

	for w := 1; w <= p.Workers; w++ {
		wg.Add(1)
		go p.worker(ctx, rows, jobs, results, wg)
	}

	for i := range rows {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Reorder: hold finished rows until every earlier row is emitted
	pending := make(map[int]Result)
	next := 0
	var emitErr error
	for result := range results {
		if emitErr != nil {
			continue
		}
		pending[result.Index] = result
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if err := emit(r); err != nil {
				emitErr = err
				cancel()
				break
			}
		}
	}

	if emitErr != nil {
		return emitErr
	}
	return ctx.Err()
}

// worker processes row indexes from the jobs channel
func (p *Pool) worker(ctx context.Context, rows []models.RawRow, jobs <-chan int, results chan<- Result, wg *sync.WaitGroup) {
	defer wg.Done()

	for i := range jobs {
		if ctx.Err() != nil {
			continue
		}
		record, issues := p.Extract(ctx, rows[i])
		results <- Result{Index: i, Row: rows[i], Record: record, Issues: issues}
	}
}
