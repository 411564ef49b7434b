// Package pgsink mirrors priced records into a Postgres table.
package pgsink

import (
	"context"
	"fmt"
	"regexp"

	"github.com/etnz/pricebook"
	"github.com/etnz/pricebook/logger"
	"github.com/etnz/pricebook/metrics"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Executor is the subset of *pgxpool.Pool the sink needs.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ Executor = (*pgxpool.Pool)(nil)

// Sink upserts records keyed on (date, identifier). It implements pricebook.Sink.
type Sink struct {
	db    Executor
	table string
}

var _ pricebook.Sink = (*Sink)(nil)

var tableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

// New returns a sink writing to table, optionally schema qualified.
func New(db Executor, table string) (*Sink, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Sink{db: db, table: table}, nil
}

// Open connects to url and returns a sink on table. The caller closes the pool.
func Open(ctx context.Context, url, table string) (*Sink, *pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid postgres url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot connect to postgres: %w", err)
	}
	s, err := New(pool, table)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool, nil
}

// Init creates the table when it does not exist.
func (s *Sink) Init(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			date       DATE    NOT NULL,
			identifier TEXT    NOT NULL,
			symbol     TEXT    NOT NULL,
			price      NUMERIC NOT NULL,
			source     TEXT    NOT NULL,
			PRIMARY KEY (date, identifier)
		)`, s.table)
	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("cannot create table %s: %w", s.table, err)
	}
	return nil
}

// Export upserts records. The last write wins, like the price history file.
func (s *Sink) Export(ctx context.Context, records []pricebook.PriceRecord) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (date, identifier, symbol, price, source)
		VALUES ($1::date, $2, $3, $4::numeric, $5)
		ON CONFLICT (date, identifier)
		DO UPDATE SET
			symbol = EXCLUDED.symbol,
			price = EXCLUDED.price,
			source = EXCLUDED.source`, s.table)

	var rows int64
	for _, r := range records {
		tag, err := s.db.Exec(ctx, query, r.Date.String(), r.Identifier, r.Symbol, r.Price.String(), string(r.Source))
		if err != nil {
			return fmt.Errorf("cannot upsert %s on %s: %w", r.Identifier, r.Date, err)
		}
		rows += tag.RowsAffected()
	}
	metrics.RowsWritten.WithLabelValues("postgres").Set(float64(rows))
	logger.L().Info("pgsink.exported", zap.String("table", s.table), zap.Int64("rows", rows))
	return nil
}
