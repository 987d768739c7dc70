// Package mapping applies a BSSID keyed controller export to the access
// points of a survey project.
package mapping

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/esxtool/esxtool/internal/errors"
)

const component = "mapping"

// Columns every mapping file must have.
const (
	ColumnBSS      = "bss"
	ColumnESS      = "ess"
	ColumnAPName   = "ap_name"
	ColumnGroup    = "group"
	ColumnModel    = "model"
	ColumnSerial   = "serial"
	ColumnWiredMAC = "wired-mac"
	ColumnColor    = "color"
)

// RequiredColumns lists the mapping file header in its documented order.
var RequiredColumns = []string{
	ColumnBSS, ColumnESS, ColumnAPName, ColumnGroup,
	ColumnModel, ColumnSerial, ColumnWiredMAC, ColumnColor,
}

// Row is one mapping entry.
type Row struct {
	Line   int
	values map[string]string
}

// Get returns the value of a column.
func (r Row) Get(column string) string {
	return r.values[column]
}

// BSS returns the BSSID the row is keyed by.
func (r Row) BSS() string { return r.values[ColumnBSS] }

// Mapping holds the rows of a mapping file keyed by BSSID. A BSSID that
// appears more than once keeps its last row.
type Mapping struct {
	Columns []string
	rows    map[string]Row
}

// Lookup returns the row for a BSSID.
func (m *Mapping) Lookup(bss string) (Row, bool) {
	r, ok := m.rows[bss]
	return r, ok
}

// Len returns the number of distinct BSSIDs.
func (m *Mapping) Len() int {
	return len(m.rows)
}

// ReadFile reads a mapping file from disk. See Read.
func ReadFile(path string, extraColumns ...string) (*Mapping, *errors.Issues, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.New(fmt.Errorf("open mapping file: %w", err)).
			Component(component).
			Category(errors.CategoryFileIO).
			Priority(errors.PriorityHigh).
			FileContext(path, 0).
			Build()
	}
	defer func() {
		_ = f.Close()
	}()
	return Read(f, extraColumns...)
}

// Read parses a mapping CSV. The header must contain RequiredColumns plus
// extraColumns, in any order; other columns are kept but unused. A missing
// column is fatal. Rows with fewer fields than the header or an empty bss
// are skipped and returned as issues.
func Read(r io.Reader, extraColumns ...string) (*Mapping, *errors.Issues, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			err = fmt.Errorf("mapping file is empty")
		}
		return nil, nil, parseError(err)
	}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = h
	}

	var missing []string
	for _, col := range slices.Concat(RequiredColumns, extraColumns) {
		if !slices.Contains(header, col) && !slices.Contains(missing, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, errors.Newf("mapping file is missing columns: %s", strings.Join(missing, ", ")).
			Component(component).
			Category(errors.CategoryValidation).
			Priority(errors.PriorityHigh).
			Context("missing_columns", missing).
			Build()
	}

	m := &Mapping{Columns: header, rows: make(map[string]Row)}
	issues := &errors.Issues{}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, issues, parseError(err)
		}
		line, _ := cr.FieldPos(0)

		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) < len(header) {
			issues.Add(malformed(line, fmt.Sprintf("row has %d fields, header has %d", len(record), len(header))))
			continue
		}

		values := make(map[string]string, len(header))
		for i, col := range header {
			values[col] = strings.TrimSpace(record[i])
		}
		if values[ColumnBSS] == "" {
			issues.Add(malformed(line, "row has no bss"))
			continue
		}
		m.rows[values[ColumnBSS]] = Row{Line: line, values: values}
	}

	return m, issues, nil
}

func parseError(err error) error {
	return errors.New(fmt.Errorf("read mapping file: %w", err)).
		Component(component).
		Category(errors.CategoryFileParsing).
		Priority(errors.PriorityHigh).
		Build()
}

func malformed(line int, reason string) error {
	return errors.Newf("mapping line %d skipped: %s", line, reason).
		Component(component).
		Category(errors.CategoryMalformedRow).
		Priority(errors.PriorityLow).
		Context("line", line).
		Build()
}
