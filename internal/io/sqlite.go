package io

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/williampepple1/legis-harvester/pkg/models"
)

// SQLiteSink stores records in one table per family, one TEXT column per field
type SQLiteSink struct {
	header []string
	conn   *sql.DB
	tx     *sql.Tx
	insert string
}

// NewSQLiteSink opens (or creates) the database at path and recreates the
// family's table so each run starts empty, like the CSV sink.
func NewSQLiteSink(path, table string, fields []string) (*SQLiteSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	conn.SetMaxOpenConns(1)

	columns := make([]string, len(fields))
	marks := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = quoteIdent(f)
		marks[i] = "?"
	}

	name := quoteIdent(table)
	ddl := []string{
		`DROP TABLE IF EXISTS ` + name,
		`CREATE TABLE ` + name + ` (` + strings.Join(columns, " TEXT NOT NULL, ") + ` TEXT NOT NULL)`,
	}
	for _, stmt := range ddl {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	return &SQLiteSink{
		header: append([]string(nil), fields...),
		conn:   conn,
		insert: `INSERT INTO ` + name + ` (` + strings.Join(columns, ", ") + `) VALUES (` + strings.Join(marks, ", ") + `)`,
	}, nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (s *SQLiteSink) Write(record *models.Record) error {
	if !slices.Equal(record.Fields(), s.header) {
		return fmt.Errorf("%w: got %v, want %v", ErrFieldMismatch, record.Fields(), s.header)
	}

	values := record.Values()
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}

	if s.tx != nil {
		_, err := s.tx.Exec(s.insert, args...)
		return err
	}
	_, err := s.conn.Exec(s.insert, args...)
	return err
}

func (s *SQLiteSink) BeginSpan() error {
	if s.tx != nil {
		return fmt.Errorf("span already open")
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	s.tx = tx
	return nil
}

func (s *SQLiteSink) CommitSpan() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	return err
}

func (s *SQLiteSink) RollbackSpan() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	return err
}

// Close rolls back an unfinished span and closes the database
func (s *SQLiteSink) Close() error {
	if s.conn == nil {
		return nil
	}
	rollbackErr := s.RollbackSpan()
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return err
	}
	return rollbackErr
}
