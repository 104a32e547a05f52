package core

// import.go loads rows from CSV into a table through the table engine.
//
// The first record is the header and names schema columns (case-insensitive,
// any order, every primary-key column required). Each following record is
// written with InsertEntry, so imported rows join the session change set
// exactly like interactive edits. Empty non-key cells fall back to the table
// defaults.
//
// Rows that cannot be converted are skipped and reported. A statement the
// database rejects stops the import: earlier rows stay written and tracked.

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JonMunkholm/dbpatch/internal/logging"
	"github.com/JonMunkholm/dbpatch/internal/schema"
)

// ErrEmptyImport is returned when the CSV input has no header row.
var ErrEmptyImport = errors.New("empty import: no header row")

// FailedRow is a CSV record that was skipped.
type FailedRow struct {
	LineNumber int      `json:"lineNumber"`
	Reason     string   `json:"reason"`
	Data       []string `json:"data"`
}

// ImportResult summarises a CSV import.
type ImportResult struct {
	Table      string        `json:"table"`
	TotalRows  int           `json:"totalRows"`
	Written    int           `json:"written"`
	Skipped    int           `json:"skipped"`
	FailedRows []FailedRow   `json:"failedRows,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// ImportCSV writes every CSV row to table. The result is returned even when
// err is non-nil and describes the rows handled before the failure.
func (s *Service) ImportCSV(ctx context.Context, table string, r io.Reader) (*ImportResult, error) {
	start := time.Now()
	result := &ImportResult{Table: table}

	def, ok := Get(table)
	if !ok {
		return result, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	cr := csv.NewReader(newImportReader(r))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return result, ErrEmptyImport
	}
	if err != nil {
		return result, fmt.Errorf("read header: %w", err)
	}
	cols, err := importColumns(def.Schema, header)
	if err != nil {
		return result, fmt.Errorf("import into %s: %w", table, err)
	}

	log := logging.WithFields(ctx, "table", table, "op", "import", "ip", GetIPAddressFromContext(ctx))

	err = s.edit(ctx, table, func(t *Table) error {
		for {
			row, err := cr.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				var pe *csv.ParseError
				if errors.As(err, &pe) {
					result.TotalRows++
					result.fail(pe.StartLine, pe.Err.Error(), row)
					continue
				}
				return fmt.Errorf("read csv: %w", err)
			}
			line, _ := cr.FieldPos(0)
			if isBlankRecord(row) {
				continue
			}
			result.TotalRows++

			if err := ctx.Err(); err != nil {
				return err
			}
			if len(row) != len(cols) {
				result.fail(line, fmt.Sprintf("expected %d columns, got %d", len(cols), len(row)), row)
				continue
			}

			fields, err := importFields(def.Schema, cols, row)
			if err != nil {
				result.fail(line, err.Error(), row)
				continue
			}
			if err := t.InsertEntry(ctx, s.db, fields...); err != nil {
				var stmtErr *StatementError
				if errors.As(err, &stmtErr) {
					return fmt.Errorf("line %d: %w", line, err)
				}
				result.fail(line, err.Error(), row)
				continue
			}
			result.Written++
		}
	})
	result.Duration = time.Since(start)

	if err != nil {
		log.Warn("import stopped", "written", result.Written, "skipped", result.Skipped, "error", err)
		return result, fmt.Errorf("import into %s: %w", table, err)
	}

	s.journal.add(ctx, JournalEntry{Action: ActionImport, Table: table, Rows: result.Written})
	log.Info("import complete",
		"rows", result.TotalRows,
		"written", result.Written,
		"skipped", result.Skipped,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

func (r *ImportResult) fail(line int, reason string, data []string) {
	r.Skipped++
	r.FailedRows = append(r.FailedRows, FailedRow{LineNumber: line, Reason: reason, Data: data})
}

// importColumns resolves header names to schema columns. Every key column
// must be present; unknown and repeated names are rejected.
func importColumns(sc *schema.Schema, header []string) ([]schema.Column, error) {
	cols := make([]schema.Column, len(header))
	seen := make(map[string]bool, len(header))
	var unknown []string

	for i, h := range header {
		name := strings.TrimSpace(h)
		col, ok := findColumn(sc, name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if seen[col.Name] {
			return nil, fmt.Errorf("%w: %s", schema.ErrDuplicateColumn, col.Name)
		}
		seen[col.Name] = true
		cols[i] = col
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", schema.ErrUnknownColumn, strings.Join(unknown, ", "))
	}

	var missing []string
	for _, k := range sc.KeyColumns() {
		if !seen[k.Name] {
			missing = append(missing, k.Name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", schema.ErrKeyNotCovered, strings.Join(missing, ", "))
	}
	return cols, nil
}

func findColumn(sc *schema.Schema, name string) (schema.Column, bool) {
	if c, ok := sc.Column(name); ok {
		return c, true
	}
	for _, c := range sc.Columns() {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return schema.Column{}, false
}

// importFields converts one record. Empty cells are left out so the table
// default applies, except for key columns where they are an error.
func importFields(sc *schema.Schema, cols []schema.Column, row []string) ([]schema.Field, error) {
	fields := make([]schema.Field, 0, len(row))
	for i, cell := range row {
		cell = strings.ToValidUTF8(cell, "\uFFFD")
		if cell == "" {
			if sc.IsKeyColumn(cols[i].Name) {
				return nil, fmt.Errorf("%w: %s is empty", schema.ErrKeyNotCovered, cols[i].Name)
			}
			continue
		}
		f, err := parseField(cols[i], cell)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func isBlankRecord(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// newImportReader skips a leading UTF-8 byte order mark, which spreadsheet
// exports on Windows commonly add.
func newImportReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = br.Discard(3)
	}
	return br
}
