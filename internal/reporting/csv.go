package reporting

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Record is a row that renders itself in a fixed column order.
type Record interface {
	CSVRecord() []string
}

// Table is a header plus rendered rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// Index maps column names to positions.
func (t Table) Index() map[string]int {
	return HeaderIndex(t.Header)
}

// Column returns the cells of one column, or nil when absent.
func (t Table) Column(name string) []string {
	i, ok := t.Index()[name]
	if !ok {
		return nil
	}
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		if i < len(row) {
			out[r] = row[i]
		}
	}
	return out
}

// TableOf renders records under header.
func TableOf[T Record](header []string, records []T) Table {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = r.CSVRecord()
	}
	return Table{Header: header, Rows: rows}
}

// RenderCSV renders a table as UTF-8 CSV with a header line.
func RenderCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("write rows: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteCSV writes a table to path through a temporary file and rename,
// so readers never observe a partially written file.
func WriteCSV(path string, t Table) error {
	data, err := RenderCSV(t)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// WriteRecords renders and writes records under header.
func WriteRecords[T Record](path string, header []string, records []T) error {
	return WriteCSV(path, TableOf(header, records))
}

// ReadCSV reads a table written by WriteCSV.
func ReadCSV(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ParseCSV(f)
}

// ParseCSV parses CSV with a header line. Rows may have fewer cells than the header.
func ParseCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return Table{}, fmt.Errorf("parse csv: missing header")
	}
	return Table{Header: records[0], Rows: records[1:]}, nil
}

// CountRows returns the number of data rows of a CSV file.
func CountRows(path string) (int, error) {
	t, err := ReadCSV(path)
	if err != nil {
		return 0, err
	}
	return len(t.Rows), nil
}

// HeaderIndex maps column names to positions.
func HeaderIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}
	return index
}
