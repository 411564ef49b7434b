package pgsink

import (
	"context"
	"errors"
	"testing"

	"github.com/etnz/pricebook"
	"github.com/etnz/pricebook/date"
	"github.com/etnz/pricebook/metrics"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls  []call
	failOn int // 1-based call index, 0 never
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, call{sql, args})
	if len(f.calls) == f.failOn {
		return pgconn.CommandTag{}, errors.New("connection reset")
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestNewRejectsTableName(t *testing.T) {
	for _, name := range []string{"", "prices; DROP TABLE x", "1prices", "a.b.c"} {
		_, err := New(&fakeDB{}, name)
		assert.Error(t, err, name)
	}
	_, err := New(&fakeDB{}, "market.price_history")
	assert.NoError(t, err)
}

func TestInit(t *testing.T) {
	db := &fakeDB{}
	s, err := New(db, "price_history")
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	require.Len(t, db.calls, 1)
	assert.Contains(t, db.calls[0].sql, "CREATE TABLE IF NOT EXISTS price_history")
	assert.Contains(t, db.calls[0].sql, "PRIMARY KEY (date, identifier)")
}

func TestExport(t *testing.T) {
	db := &fakeDB{}
	s, err := New(db, "price_history")
	require.NoError(t, err)

	day := date.New(2025, 3, 14)
	records := []pricebook.PriceRecord{
		{Date: day, Identifier: "INE002A01018", Symbol: "RELIANCE.NS", Price: decimal.RequireFromString("1245.50"), Source: pricebook.Bulk},
		{Date: day, Identifier: "INF209K01YN0", Symbol: "119551", Price: decimal.RequireFromString("105.5187"), Source: pricebook.NAV},
	}
	require.NoError(t, s.Export(context.Background(), records))

	require.Len(t, db.calls, 2)
	assert.Contains(t, db.calls[0].sql, "ON CONFLICT (date, identifier)")
	assert.Equal(t, []any{"2025-03-14", "INE002A01018", "RELIANCE.NS", "1245.5", "bulk"}, db.calls[0].args)
	assert.Equal(t, []any{"2025-03-14", "INF209K01YN0", "119551", "105.5187", "nav"}, db.calls[1].args)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.RowsWritten.WithLabelValues("postgres")))
}

func TestExportError(t *testing.T) {
	db := &fakeDB{failOn: 1}
	s, err := New(db, "price_history")
	require.NoError(t, err)
	err = s.Export(context.Background(), []pricebook.PriceRecord{{Date: date.New(2025, 3, 14), Identifier: "INE002A01018", Price: decimal.NewFromInt(1)}})
	assert.ErrorContains(t, err, "INE002A01018")
	assert.ErrorContains(t, err, "connection reset")
}
