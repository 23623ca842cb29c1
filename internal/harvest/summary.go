package harvest

import (
	stdio "io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// SpanResult is the outcome of one span
type SpanResult struct {
	Family     string
	Span       string
	Batches    int
	Records    int
	RolledBack int
	Issues     int
	Duration   time.Duration
	Err        error
}

// Summary reports one family run
type Summary struct {
	RunID    string
	Family   string
	Spans    []SpanResult
	Duration time.Duration
	Err      error
}

// Failed returns the spans that aborted
func (s *Summary) Failed() []SpanResult {
	var failed []SpanResult
	for _, r := range s.Spans {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// Records counts the records kept in the output
func (s *Summary) Records() int {
	n := 0
	for _, r := range s.Spans {
		n += r.Records
	}
	return n
}

// OK reports whether the run and all its spans succeeded
func (s *Summary) OK() bool {
	return s.Err == nil && len(s.Failed()) == 0
}

// RenderSummaries prints one table row per span
func RenderSummaries(w stdio.Writer, summaries []*Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Family", "Span", "Records", "Issues", "Duration", "Status"})

	for _, s := range summaries {
		if s.Err != nil && len(s.Spans) == 0 {
			t.AppendRow(table.Row{s.Family, "-", 0, 0, s.Duration.Round(time.Millisecond), "failed: " + s.Err.Error()})
			continue
		}
		for _, r := range s.Spans {
			status := "ok"
			if r.Err != nil {
				status = "failed: " + r.Err.Error()
			}
			t.AppendRow(table.Row{r.Family, r.Span, r.Records, r.Issues, r.Duration.Round(time.Millisecond), status})
		}
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}
