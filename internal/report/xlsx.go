package report

import (
	"context"
	"io"

	"github.com/xuri/excelize/v2"
)

const defaultSheetName = "Measurements"

// XLSXSink writes the table to a single worksheet with a frozen header row.
type XLSXSink struct {
	Path      string
	SheetName string
}

func (s *XLSXSink) Write(ctx context.Context, t *Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := buildWorkbook(t, s.SheetName)
	if err != nil {
		return sinkError(err, FormatXLSX, s.Path)
	}
	defer func() {
		_ = f.Close()
	}()

	err = writeFileAtomic(s.Path, func(w io.Writer) error {
		_, err := f.WriteTo(w)
		return err
	})
	if err != nil {
		return sinkError(err, FormatXLSX, s.Path)
	}
	return nil
}

func buildWorkbook(t *Table, sheet string) (*excelize.File, error) {
	if sheet == "" {
		sheet = defaultSheetName
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		_ = f.Close()
		return nil, err
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	for i, row := range append([][]string{t.Columns}, t.Rows...) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := sw.SetRow(cell, values); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	if err := sw.Flush(); err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}
