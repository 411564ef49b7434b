package pricebook

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"
)

// This file contains the CSV plumbing shared by every persisted table.
// Tables are read by column name, so column order in a file is free, and written
// atomically through a temporary file renamed over the target.

// csvReader reads a CSV file with a header line.
type csvReader struct {
	r        *csv.Reader
	filename string
	index    map[string]int
}

// newCSVReader reads the header. aliases maps alternative column names to the canonical ones.
// filename is for error messages only.
func newCSVReader(r io.Reader, filename string, aliases map[string]string) (*csvReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &csvReader{r: cr, filename: filename, index: map[string]int{}}, nil
		}
		return nil, fmt.Errorf("parse error %s:1: cannot read header: %w", filename, err)
	}
	index := make(map[string]int, len(header))
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		if canonical, ok := aliases[col]; ok {
			col = canonical
		}
		if _, exists := index[col]; !exists {
			index[col] = i
		}
	}
	return &csvReader{r: cr, filename: filename, index: index}, nil
}

// require fails when one of the columns is absent from the header.
func (c *csvReader) require(columns ...string) error {
	var missing []string
	for _, col := range columns {
		if _, ok := c.index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("parse error %s:1: missing column(s) %s", c.filename, strings.Join(missing, ", "))
	}
	return nil
}

// csvRow is a single record with access by column name.
type csvRow struct {
	fields   []string
	index    map[string]int
	filename string
	line     int
}

// Get returns the trimmed value of a column, empty when absent.
func (r csvRow) Get(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// Errorf prefixes an error with the row position.
func (r csvRow) Errorf(format string, args ...any) error {
	return fmt.Errorf("parse error %s:%d: %s", r.filename, r.line, fmt.Sprintf(format, args...))
}

// errSkipRow marks a row that carries no usable record. The table drops it with a warning
// instead of failing the load.
var errSkipRow = errors.New("row skipped")

// Skip returns an errSkipRow error with the row position and reason.
func (r csvRow) Skip(reason string) error {
	return fmt.Errorf("%w %s:%d: %s", errSkipRow, r.filename, r.line, reason)
}

// Rows iterates over the records. Blank lines are skipped by encoding/csv.
func (c *csvReader) Rows() iter.Seq2[csvRow, error] {
	return func(yield func(csvRow, error) bool) {
		for {
			fields, err := c.r.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(csvRow{}, fmt.Errorf("parse error %s: %w", c.filename, err))
				return
			}
			line, _ := c.r.FieldPos(0)
			if !yield(csvRow{fields: fields, index: c.index, filename: c.filename, line: line}, nil) {
				return
			}
		}
	}
}

// writeCSVAtomic writes header and rows to a temporary file in the target directory, then
// renames it over path. Readers never observe a partially written file.
func writeCSVAtomic(path string, header []string, rows iter.Seq[[]string]) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create directory %q: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create temporary file for %q: %w", path, err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("cannot write %q: %w", path, err)
	}
	for row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("cannot write %q: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("cannot write %q: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("cannot sync %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("cannot close %q: %w", path, err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return fmt.Errorf("cannot chmod %q: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("cannot replace %q: %w", path, err)
	}
	return nil
}
