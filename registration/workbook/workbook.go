// Package workbook stores attendee records in a single-sheet xlsx file, the
// format the organisers already open in a spreadsheet program.
package workbook

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/m3rciful/regbot/core/logger"
	"github.com/m3rciful/regbot/registration"
)

// Header is the first row of the sheet. It is never treated as data.
var Header = []string{"نام", "کد دانشجویی", "تعداد همراهان"}

const (
	colName = iota
	colStudentID
	colGuestCount
)

const defaultSheet = "Sheet1"

// Options configures the workbook store.
type Options struct {
	Path string
	// Sheet selects the data sheet; empty means the active sheet.
	Sheet string
}

// Store is a registration.Store backed by an xlsx file. The file is reopened
// for every operation and saved before each mutating call returns.
type Store struct {
	mu    sync.Mutex
	path  string
	sheet string
}

var _ registration.Store = (*Store)(nil)

// New returns a workbook store for the given file.
func New(opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, fmt.Errorf("workbook: empty path")
	}
	return &Store{path: opts.Path, sheet: strings.TrimSpace(opts.Sheet)}, nil
}

// Path returns the workbook file location.
func (s *Store) Path() string { return s.path }

// EnsureInitialized creates the workbook with only the header row when the
// file does not exist yet.
func (s *Store) EnsureInitialized(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("workbook: stat %s: %w", s.path, err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("workbook: create dir %s: %w", dir, err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := defaultSheet
	if s.sheet != "" && s.sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, s.sheet); err != nil {
			return fmt.Errorf("workbook: rename sheet: %w", err)
		}
		sheet = s.sheet
	}
	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("workbook: write header: %w", err)
	}
	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("workbook: save %s: %w", s.path, err)
	}
	logger.Info(ctx, "store", "store.created",
		slog.String("backend", "workbook"),
		slog.String("path", s.path),
		slog.String("sheet", sheet),
	)
	return nil
}

// FindByStudentID scans data rows and returns the first exact match.
func (s *Store) FindByStudentID(ctx context.Context, id string) (registration.Record, error) {
	if err := ctx.Err(); err != nil {
		return registration.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	f, sheet, err := s.open()
	if err != nil {
		return registration.Record{}, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return registration.Record{}, fmt.Errorf("workbook: read rows: %w", err)
	}
	rec, ok := scan(rows, id)
	logger.Debug(ctx, "store", "store.find",
		slog.String("backend", "workbook"),
		slog.String("student_id", id),
		slog.Bool("found", ok),
		slog.Duration("duration", logger.Took(start)),
	)
	if !ok {
		return registration.Record{}, registration.ErrNotFound
	}
	return rec, nil
}

// Register appends rec as the last row unless its student id is present.
// The check and the append run under the same lock and file handle.
func (s *Store) Register(ctx context.Context, rec registration.Record) (registration.Record, error) {
	if err := ctx.Err(); err != nil {
		return registration.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	f, sheet, err := s.open()
	if err != nil {
		return registration.Record{}, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return registration.Record{}, fmt.Errorf("workbook: read rows: %w", err)
	}
	if _, ok := scan(rows, rec.StudentID); ok {
		return registration.Record{}, registration.ErrDuplicate
	}

	// GetRows drops trailing empty rows, so the next free row follows the last one read.
	next := len(rows) + 1
	if next < 2 {
		next = 2
	}
	cell, err := excelize.CoordinatesToCellName(1, next)
	if err != nil {
		return registration.Record{}, fmt.Errorf("workbook: cell name: %w", err)
	}
	values := []any{rec.Name, rec.StudentID, rec.GuestCount}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return registration.Record{}, fmt.Errorf("workbook: write row %d: %w", next, err)
	}
	if err := f.Save(); err != nil {
		return registration.Record{}, fmt.Errorf("workbook: save %s: %w", s.path, err)
	}

	rec.Position = registration.Position(next)
	logger.Debug(ctx, "store", "store.register",
		slog.String("backend", "workbook"),
		slog.String("student_id", rec.StudentID),
		slog.String("position", rec.Position.String()),
		slog.Duration("duration", logger.Took(start)),
	)
	return rec, nil
}

// UpdateAt rewrites the name and guest count cells of the row at pos.
func (s *Store) UpdateAt(ctx context.Context, pos registration.Position, name, guestCount string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	f, sheet, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("workbook: read rows: %w", err)
	}
	row := int(pos)
	if row < 2 || row > len(rows) || blank(rows[row-1]) {
		return registration.ErrRecordNotFound
	}

	if err := setCell(f, sheet, colName, row, name); err != nil {
		return err
	}
	if err := setCell(f, sheet, colGuestCount, row, guestCount); err != nil {
		return err
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("workbook: save %s: %w", s.path, err)
	}
	logger.Debug(ctx, "store", "store.update",
		slog.String("backend", "workbook"),
		slog.String("position", pos.String()),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// List returns every data row in sheet order.
func (s *Store) List(ctx context.Context) ([]registration.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, sheet, err := s.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("workbook: read rows: %w", err)
	}
	var out []registration.Record
	for i := 1; i < len(rows); i++ {
		if blank(rows[i]) {
			continue
		}
		out = append(out, toRecord(rows[i], i+1))
	}
	return out, nil
}

// Close is a no-op; the file is closed after every operation.
func (s *Store) Close() error { return nil }

func (s *Store) open() (*excelize.File, string, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, "", fmt.Errorf("workbook: open %s: %w", s.path, err)
	}
	sheet := s.sheet
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		_ = f.Close()
		return nil, "", fmt.Errorf("workbook: sheet %q not found in %s", sheet, s.path)
	}
	return f, sheet, nil
}

// setCell writes value as text into the zero-based column col of row.
func setCell(f *excelize.File, sheet string, col, row int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return fmt.Errorf("workbook: cell name: %w", err)
	}
	if err := f.SetCellStr(sheet, cell, value); err != nil {
		return fmt.Errorf("workbook: write %s: %w", cell, err)
	}
	return nil
}

func scan(rows [][]string, id string) (registration.Record, bool) {
	for i := 1; i < len(rows); i++ {
		if blank(rows[i]) {
			continue
		}
		if cellAt(rows[i], colStudentID) == id {
			return toRecord(rows[i], i+1), true
		}
	}
	return registration.Record{}, false
}

func toRecord(row []string, rowNum int) registration.Record {
	return registration.Record{
		Name:       cellAt(row, colName),
		StudentID:  cellAt(row, colStudentID),
		GuestCount: cellAt(row, colGuestCount),
		Position:   registration.Position(rowNum),
	}
}

func cellAt(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}

func blank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
