package pricebook

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"slices"

	"github.com/etnz/pricebook/logger"
	"go.uber.org/zap"
)

// record is a row of a dated table.
type record interface{ Key() Key }

// schema describes how a table maps to its CSV file.
type schema[R record] struct {
	header  []string          // canonical columns, in write order
	aliases map[string]string // alternative column names accepted on read
	encode  func(R) []string
	decode  func(csvRow) (R, error)
}

// Table is a dated table persisted as a CSV file.
//
// It is loaded once, merged in memory, and written back atomically. Within a table there is at
// most one row per Key: when records collide, the last one merged wins.
type Table[R record] struct {
	path   string
	schema schema[R]
	rows   []R
}

// loadTable reads the table at path. A missing file is an empty table, not an error.
func loadTable[R record](path string, s schema[R]) (*Table[R], error) {
	t := &Table[R]{path: path, schema: s}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot open %q for reading: %w", path, err)
	}
	defer f.Close()
	if err := t.decode(f); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table[R]) decode(r io.Reader) error {
	cr, err := newCSVReader(r, t.path, t.schema.aliases)
	if err != nil {
		return err
	}
	if len(cr.index) == 0 {
		return nil // empty file
	}
	if err := cr.require(t.schema.header...); err != nil {
		return err
	}
	for row, err := range cr.Rows() {
		if err != nil {
			return err
		}
		rec, err := t.schema.decode(row)
		if errors.Is(err, errSkipRow) {
			logger.L().Warn("table.row_skipped", zap.String("file", t.path), zap.Error(err))
			continue
		}
		if err != nil {
			return err
		}
		t.rows = append(t.rows, rec)
	}
	return nil
}

// Path returns the file backing the table.
func (t *Table[R]) Path() string { return t.path }

// Len returns the number of rows.
func (t *Table[R]) Len() int { return len(t.rows) }

// All iterates over the rows in table order.
func (t *Table[R]) All() iter.Seq[R] { return slices.Values(t.rows) }

// Merge appends records, then keeps only the last row for each Key. Rows end up sorted by
// date, then identifier.
func (t *Table[R]) Merge(records []R) {
	all := append(t.rows, records...)

	last := make(map[Key]int, len(all))
	for i, r := range all {
		last[r.Key()] = i
	}
	kept := make([]R, 0, len(last))
	for i, r := range all {
		if last[r.Key()] == i {
			kept = append(kept, r)
		}
	}
	slices.SortStableFunc(kept, func(a, b R) int {
		ka, kb := a.Key(), b.Key()
		if c := ka.Date.Compare(kb.Date); c != 0 {
			return c
		}
		return cmp.Compare(ka.Identifier, kb.Identifier)
	})
	t.rows = kept
}

// MergeAndPersist merges records and writes the table back.
// With no records, nothing is written and it reports false.
func (t *Table[R]) MergeAndPersist(records []R) (bool, error) {
	if len(records) == 0 {
		return false, nil
	}
	t.Merge(records)
	if err := t.Save(); err != nil {
		return false, err
	}
	return true, nil
}

// Remove drops the rows matching drop, in memory only, and returns how many were removed.
func (t *Table[R]) Remove(drop func(R) bool) int {
	n := len(t.rows)
	t.rows = slices.DeleteFunc(t.rows, drop)
	return n - len(t.rows)
}

// Save writes the table atomically.
func (t *Table[R]) Save() error {
	rows := func(yield func([]string) bool) {
		for _, r := range t.rows {
			if !yield(t.schema.encode(r)) {
				return
			}
		}
	}
	return writeCSVAtomic(t.path, t.schema.header, rows)
}
