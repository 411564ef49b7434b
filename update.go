package pricebook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/etnz/pricebook/date"
	"github.com/etnz/pricebook/logger"
	"github.com/etnz/pricebook/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// This file contains the daily update: load the tables, reconcile, persist.

// Sink receives the prices of a run after they have been persisted locally.
type Sink interface {
	Export(ctx context.Context, records []PriceRecord) error
}

// Notifier is told about a completed run.
type Notifier interface {
	Notify(ctx context.Context, r *Report) error
}

// Updater runs one update over the files of a data directory.
type Updater struct {
	Reconciler    *Reconciler
	SymbolMapPath string
	HistoryPath   string
	MissingPath   string
	Sink          Sink       // optional
	Notifiers     []Notifier // optional, failures are only logged
}

// Report summarizes a run.
type Report struct {
	RunID       string
	Date        date.Date
	Instruments int
	Active      int
	Skipped     int
	Invalid     int
	Priced      int
	BySource    map[Source]int
	Missing     []MissingRecord
	Stale       []StaleQuote
	HistoryRows int  // rows in the price history after the run
	Suppressed  int  // pairs in the suppression set after the run
	Written     bool // false when the run had nothing to persist
	Duration    time.Duration
}

// Update loads the symbol map and both tables, reconciles, and persists the new records.
//
// Load and persistence failures are fatal: the tables are the durable state of the system.
func (u *Updater) Update(ctx context.Context) (*Report, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := logger.L().With(zap.String("run_id", runID))

	m, err := LoadSymbolMap(u.SymbolMapPath)
	if err != nil {
		return nil, err
	}
	history, err := LoadPriceHistory(u.HistoryPath)
	if err != nil {
		return nil, fmt.Errorf("cannot load price history: %w", err)
	}
	missing, err := LoadMissingLog(u.MissingPath)
	if err != nil {
		return nil, fmt.Errorf("cannot load missing-quote log: %w", err)
	}
	suppressed := missing.Suppression()
	log.Info("update.loaded",
		zap.Int("instruments", len(m)),
		zap.Int("history_rows", history.Len()),
		zap.Int("suppressed", suppressed.Len()),
	)

	res, err := u.Reconciler.Reconcile(ctx, m, suppressed)
	if err != nil {
		return nil, fmt.Errorf("update interrupted, nothing persisted: %w", err)
	}

	wroteHistory, err := history.MergeAndPersist(res.Priced)
	if err != nil {
		return nil, fmt.Errorf("cannot persist price history: %w", err)
	}
	wroteMissing, err := missing.MergeAndPersist(res.Missing)
	if err != nil {
		return nil, fmt.Errorf("cannot persist missing-quote log: %w", err)
	}
	metrics.RowsWritten.WithLabelValues("history").Set(float64(len(res.Priced)))
	metrics.RowsWritten.WithLabelValues("missing").Set(float64(len(res.Missing)))
	log.Info("update.persisted",
		zap.Bool("history_written", wroteHistory),
		zap.Bool("missing_written", wroteMissing),
	)

	if u.Sink != nil && len(res.Priced) > 0 {
		if err := u.Sink.Export(ctx, res.Priced); err != nil {
			return nil, fmt.Errorf("cannot export prices: %w", err)
		}
	}

	metrics.ObserveRun(start)
	report := &Report{
		RunID:       runID,
		Date:        res.Date,
		Instruments: len(m),
		Active:      res.Active,
		Skipped:     res.Skipped,
		Invalid:     res.Invalid,
		Priced:      len(res.Priced),
		BySource:    res.BySource(),
		Missing:     res.Missing,
		Stale:       res.Stale,
		HistoryRows: history.Len(),
		Suppressed:  suppressed.Len(),
		Written:     wroteHistory || wroteMissing,
		Duration:    time.Since(start),
	}

	var errs []error
	for _, n := range u.Notifiers {
		errs = append(errs, n.Notify(ctx, report))
	}
	if err := errors.Join(errs...); err != nil {
		log.Warn("update.notify_failed", zap.Error(err))
	}
	return report, nil
}
