package pricebook

import (
	"context"

	"github.com/etnz/pricebook/date"
	"github.com/shopspring/decimal"
)

// Quote tiers. None of them returns an error: a failing provider is reported as "no data"
// and the adapter logs the cause.

// BulkQuoter prices many symbols with as few provider calls as possible.
// Symbols the provider did not price are absent from the result.
type BulkQuoter interface {
	BulkQuotes(ctx context.Context, symbols []string) map[string]Quote
}

// Quoter prices a single symbol.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (Quote, bool)
}

// NAVTabler returns the full table of latest fund NAVs. A failed download is an empty table.
type NAVTabler interface {
	NAVTable(ctx context.Context) *NAVTable
}

// NAVRow is one fund in a NAV table.
type NAVRow struct {
	SchemeCode  string
	Identifiers []string // ISINs of the share classes sharing this NAV
	Name        string
	NAV         decimal.Decimal
	Date        date.Date
}

// NAVTable is an ordered list of fund NAVs indexed by identifier.
// When an identifier appears in several rows, the first row wins.
type NAVTable struct {
	rows  []NAVRow
	index map[string]int
}

// NewNAVTable indexes rows.
func NewNAVTable(rows []NAVRow) *NAVTable {
	t := &NAVTable{rows: rows, index: make(map[string]int)}
	for i, r := range rows {
		for _, id := range r.Identifiers {
			if _, exists := t.index[id]; !exists {
				t.index[id] = i
			}
		}
	}
	return t
}

// Lookup returns the row for an identifier. A nil table is empty.
func (t *NAVTable) Lookup(identifier string) (NAVRow, bool) {
	if t == nil {
		return NAVRow{}, false
	}
	i, ok := t.index[identifier]
	if !ok {
		return NAVRow{}, false
	}
	return t.rows[i], true
}

// Len returns the number of rows.
func (t *NAVTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Rows returns the rows in table order.
func (t *NAVTable) Rows() []NAVRow {
	if t == nil {
		return nil
	}
	return t.rows
}

// Latest returns the table restricted to the rows of its most recent date.
func (t *NAVTable) Latest() *NAVTable {
	var last date.Date
	for _, r := range t.Rows() {
		if r.Date.After(last) {
			last = r.Date
		}
	}
	var rows []NAVRow
	for _, r := range t.Rows() {
		if r.Date == last {
			rows = append(rows, r)
		}
	}
	return NewNAVTable(rows)
}
