package io

import (
	"encoding/csv"
	"errors"
	"fmt"
	stdio "io"
	"os"
	"path/filepath"
	"slices"

	"github.com/williampepple1/legis-harvester/internal/config"
	"github.com/williampepple1/legis-harvester/pkg/models"
)

// Delimiter separates fields in delimited output. Quoting uses '"'.
const Delimiter = ';'

// ErrFieldMismatch is returned when a record's fields differ from the header
var ErrFieldMismatch = errors.New("record fields do not match sink header")

// Sink is a streaming record writer owned by one harvest run.
//
// Writes between BeginSpan and CommitSpan belong to one span; RollbackSpan
// discards them.
type Sink interface {
	Write(record *models.Record) error
	BeginSpan() error
	CommitSpan() error
	RollbackSpan() error
	Close() error
}

// NewSink opens the sink for a family according to the output configuration
func NewSink(output *config.OutputConfig, family config.FamilyConfig) (Sink, error) {
	path := family.Output
	if path == "" {
		path = family.Name + "." + output.Format
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(output.Dir, path)
	}

	switch output.Format {
	case config.FormatCSV:
		return NewCSVSink(path, family.Fields)
	case config.FormatSQLite:
		return NewSQLiteSink(swapExt(path, ".db"), family.Name, family.Fields)
	default:
		return nil, fmt.Errorf("unsupported output format: %s", output.Format)
	}
}

func swapExt(path, ext string) string {
	return path[:len(path)-len(filepath.Ext(path))] + ext
}

// CSVSink writes ;-separated records with a header line
type CSVSink struct {
	header []string
	file   *os.File
	w      *csv.Writer
	mark   int64
	closed bool
}

// NewCSVSink creates (or truncates) path and writes the header
func NewCSVSink(path string, fields []string) (*CSVSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	s := &CSVSink{
		header: append([]string(nil), fields...),
		file:   file,
		w:      NewCSVWriter(file),
	}

	if err := s.w.Write(s.header); err != nil {
		file.Close()
		return nil, err
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		file.Close()
		return nil, err
	}

	return s, nil
}

// NewCSVWriter returns a csv.Writer using the output delimiter
func NewCSVWriter(w stdio.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter
	return cw
}

// NewCSVReader returns a csv.Reader matching NewCSVWriter
func NewCSVReader(r stdio.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = Delimiter
	return cr
}

func (s *CSVSink) Write(record *models.Record) error {
	if !slices.Equal(record.Fields(), s.header) {
		return fmt.Errorf("%w: got %v, want %v", ErrFieldMismatch, record.Fields(), s.header)
	}
	return s.w.Write(record.Values())
}

// BeginSpan records the current end of file as the rollback point
func (s *CSVSink) BeginSpan() error {
	if err := s.flush(); err != nil {
		return err
	}
	offset, err := s.file.Seek(0, stdio.SeekCurrent)
	if err != nil {
		return err
	}
	s.mark = offset
	return nil
}

func (s *CSVSink) CommitSpan() error {
	return s.flush()
}

// RollbackSpan truncates the file back to the last BeginSpan
func (s *CSVSink) RollbackSpan() error {
	if err := s.flush(); err != nil {
		return err
	}
	if err := s.file.Truncate(s.mark); err != nil {
		return err
	}
	_, err := s.file.Seek(s.mark, stdio.SeekStart)
	return err
}

func (s *CSVSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	flushErr := s.flush()
	if err := s.file.Close(); err != nil {
		return err
	}
	return flushErr
}

func (s *CSVSink) flush() error {
	s.w.Flush()
	return s.w.Error()
}
