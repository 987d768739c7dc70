package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/esxtool/esxtool/internal/errors"
)

// Output formats.
const (
	FormatCSV    = "csv"
	FormatXLSX   = "xlsx"
	FormatSQLite = "sqlite"
)

// Sink writes a finished table somewhere.
type Sink interface {
	Write(ctx context.Context, t *Table) error
}

// SinkOptions carries the format specific settings.
type SinkOptions struct {
	SheetName string // xlsx
	TableName string // sqlite
	BatchSize int    // sqlite
}

// NewSink returns the sink for format writing to path.
func NewSink(format, path string, opts SinkOptions) (Sink, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return &CSVSink{Path: path}, nil
	case FormatXLSX:
		return &XLSXSink{Path: path, SheetName: opts.SheetName}, nil
	case FormatSQLite:
		return &SQLiteSink{Path: path, TableName: opts.TableName, BatchSize: opts.BatchSize}, nil
	}
	return nil, errors.Newf("unsupported report format %q", format).
		Component(component).
		Category(errors.CategoryValidation).
		Context("format", format).
		Build()
}

// Extension returns the file extension used for format.
func Extension(format string) string {
	switch strings.ToLower(format) {
	case FormatXLSX:
		return ".xlsx"
	case FormatSQLite:
		return ".db"
	}
	return ".csv"
}

func sinkError(err error, format, path string) error {
	return errors.New(fmt.Errorf("write %s report: %w", format, err)).
		Component(component).
		Category(errors.CategoryReportSink).
		Priority(errors.PriorityHigh).
		Context("format", format).
		FileContext(path, 0).
		Build()
}

// CSVSink writes a header line followed by one line per row.
type CSVSink struct {
	Path string
}

func (s *CSVSink) Write(ctx context.Context, t *Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeFileAtomic(s.Path, func(w io.Writer) error { return WriteCSV(w, t) }); err != nil {
		return sinkError(err, FormatCSV, s.Path)
	}
	return nil
}

// WriteCSV writes t as CSV to w.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// writeFileAtomic writes path through a temp file in the same directory.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
