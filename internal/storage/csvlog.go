// Package storage persists daily traffic records to an append-only CSV log.
package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/naka-gawa/github-traffic/internal/domain"
)

// Header is the column layout of the traffic log.
var Header = []string{"date", "views", "unique_visitors", "clones", "unique_cloners"}

// TrafficLog is a CSV file keyed by date. Rows are only ever appended.
type TrafficLog struct {
	path   string
	logger *log.Logger
}

// NewTrafficLog returns a TrafficLog backed by the file at path.
// The file is not touched until it is read or appended to.
func NewTrafficLog(path string, logger *log.Logger) *TrafficLog {
	return &TrafficLog{path: path, logger: logger}
}

// Path returns the location of the log file.
func (l *TrafficLog) Path() string {
	return l.path
}

// hasContent reports whether the log exists and is non-empty.
func (l *TrafficLog) hasContent() (bool, error) {
	info, err := os.Stat(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat traffic log: %w", err)
	}
	return info.Size() > 0, nil
}

// ExistingDates returns the set of dates already stored in the log.
// A missing or empty log yields an empty set.
func (l *TrafficLog) ExistingDates() (map[string]struct{}, error) {
	dates := make(map[string]struct{})
	err := l.scan(func(row map[string]string) {
		dates[row["date"]] = struct{}{}
	})
	if err != nil {
		return nil, err
	}
	return dates, nil
}

// ReadAll returns every record stored in the log, in file order.
func (l *TrafficLog) ReadAll() ([]*domain.DailyRecord, error) {
	var records []*domain.DailyRecord
	var parseErr error
	line := 1
	err := l.scan(func(row map[string]string) {
		line++
		if parseErr != nil {
			return
		}
		rec, err := parseRecord(row)
		if err != nil {
			parseErr = fmt.Errorf("line %d: %w", line, err)
			return
		}
		records = append(records, rec)
	})
	if err != nil {
		return nil, err
	}
	if parseErr != nil {
		return nil, fmt.Errorf("failed to parse traffic log: %w", parseErr)
	}
	return records, nil
}

// scan calls fn for every data row, keyed by header column name.
func (l *TrafficLog) scan(fn func(row map[string]string)) error {
	ok, err := l.hasContent()
	if err != nil || !ok {
		return err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("failed to open traffic log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	columns, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read traffic log header: %w", err)
	}
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read traffic log: %w", err)
		}
		row := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(fields) {
				row[col] = fields[i]
			}
		}
		fn(row)
	}
}

// Append writes records to the end of the log in the given order, creating the
// file and its directory if needed. The header row is written only when the
// file is new or empty.
func (l *TrafficLog) Append(records []*domain.DailyRecord) error {
	ok, err := l.hasContent()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create traffic log directory: %w", err)
		}
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open traffic log for append: %w", err)
	}
	defer f.Close()

	if ok {
		if err := l.terminateLastRow(f); err != nil {
			return err
		}
	}
	w := csv.NewWriter(f)
	if !ok {
		l.logger.Printf("Writing header to new traffic log %s", l.path)
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("failed to write traffic log header: %w", err)
		}
	}
	for _, rec := range records {
		if err := w.Write(formatRecord(rec)); err != nil {
			return fmt.Errorf("failed to write traffic log row for %s: %w", rec.Date, err)
		}
		l.logger.Printf("  Appended %s", rec.Date)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush traffic log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close traffic log: %w", err)
	}
	return nil
}

// terminateLastRow writes a newline to f if the log does not already end in
// one, so the next row starts on its own line.
func (l *TrafficLog) terminateLastRow(f *os.File) error {
	r, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("failed to open traffic log: %w", err)
	}
	defer r.Close()
	info, err := r.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat traffic log: %w", err)
	}
	last := make([]byte, 1)
	if _, err := r.ReadAt(last, info.Size()-1); err != nil {
		return fmt.Errorf("failed to read traffic log: %w", err)
	}
	if last[0] == '\n' {
		return nil
	}
	l.logger.Printf("Traffic log %s has no trailing newline, adding one", l.path)
	if _, err := f.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to terminate last traffic log row: %w", err)
	}
	return nil
}

func formatRecord(rec *domain.DailyRecord) []string {
	return []string{
		rec.Date,
		formatOptional(rec.Views),
		formatOptional(rec.UniqueVisitors),
		formatOptional(rec.Clones),
		formatOptional(rec.UniqueCloners),
	}
}

func formatOptional(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func parseRecord(row map[string]string) (*domain.DailyRecord, error) {
	rec := &domain.DailyRecord{Date: row["date"]}
	fields := []struct {
		column string
		dst    **int
	}{
		{"views", &rec.Views},
		{"unique_visitors", &rec.UniqueVisitors},
		{"clones", &rec.Clones},
		{"unique_cloners", &rec.UniqueCloners},
	}
	for _, f := range fields {
		raw := row[f.column]
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", f.column, raw, err)
		}
		*f.dst = &v
	}
	return rec, nil
}
