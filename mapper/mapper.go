// Package mapper builds a symbol map from an ISIN master list.
//
// Equities get a Yahoo symbol guessed from their name and confirmed with the provider.
// Funds get their AMFI scheme code.
package mapper

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/etnz/pricebook"
	"github.com/etnz/pricebook/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Entry is one row of the ISIN master list: ISIN, Name, liquidity status, Type (EQ or MF).
type Entry struct {
	ISIN      string
	Name      string
	LiqStatus string
	Type      string
}

// ReadMaster reads the ISIN master list. Columns are positional and the first line is a
// header. Rows without ISIN are dropped.
func ReadMaster(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot read ISIN master header: %w", err)
	}
	var entries []Entry
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("cannot read ISIN master: %w", err)
		}
		for len(fields) < 4 {
			fields = append(fields, "")
		}
		e := Entry{
			ISIN:      strings.TrimSpace(fields[0]),
			Name:      strings.TrimSpace(fields[1]),
			LiqStatus: strings.TrimSpace(fields[2]),
			Type:      strings.ToUpper(strings.TrimSpace(fields[3])),
		}
		if e.ISIN == "" {
			continue
		}
		entries = append(entries, e)
	}
}

// SymbolChecker confirms that a provider knows a symbol.
type SymbolChecker interface {
	Exists(ctx context.Context, symbol string) bool
}

// Builder turns master entries into instruments.
type Builder struct {
	Equities    SymbolChecker
	Funds       pricebook.NAVTabler
	Suffix      string // appended to equity symbols, like ".NS"
	Concurrency int    // parallel symbol checks, defaults to 4
}

// Stats counts the outcome of a build.
type Stats struct {
	Entries   int
	Equities  int
	Funds     int
	Unmatched int
	Ignored   int // unknown type
}

var nameSeparator = regexp.MustCompile(`[ #(/]`)

// ProbableSymbol guesses the ticker of an equity: the first word of its name, upper-cased,
// followed by suffix.
func ProbableSymbol(name, suffix string) string {
	word := nameSeparator.Split(strings.TrimSpace(name), 2)[0]
	if word == "" {
		return ""
	}
	return strings.ToUpper(word) + suffix
}

// Build maps every entry it can. Entries without a confirmed symbol are left out.
// The order of the master list is kept.
func (b *Builder) Build(ctx context.Context, entries []Entry) (pricebook.SymbolMap, Stats) {
	log := logger.L()
	stats := Stats{Entries: len(entries)}
	found := make([]pricebook.Instrument, len(entries))

	var navs *pricebook.NAVTable
	for _, e := range entries {
		if e.Type == "MF" && b.Funds != nil {
			navs = b.Funds.NAVTable(ctx)
			break
		}
	}

	limit := b.Concurrency
	if limit <= 0 {
		limit = 4
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, e := range entries {
		switch e.Type {
		case "EQ":
			symbol := ProbableSymbol(e.Name, b.Suffix)
			if symbol == "" || b.Equities == nil {
				continue
			}
			g.Go(func() error {
				if b.Equities.Exists(ctx, symbol) {
					found[i] = pricebook.Instrument{Identifier: e.ISIN, Symbol: symbol, Kind: pricebook.Equity}
				}
				return nil
			})
		case "MF":
			if row, ok := navs.Lookup(e.ISIN); ok && row.SchemeCode != "" {
				found[i] = pricebook.Instrument{Identifier: e.ISIN, Symbol: row.SchemeCode, Kind: pricebook.Fund}
			}
		default:
			stats.Ignored++
			log.Debug("mapper.unknown_type", zap.String("isin", e.ISIN), zap.String("type", e.Type))
		}
	}
	_ = g.Wait()

	var m pricebook.SymbolMap
	for i, in := range found {
		switch in.Kind {
		case pricebook.Equity:
			stats.Equities++
		case pricebook.Fund:
			stats.Funds++
		default:
			if t := entries[i].Type; t == "EQ" || t == "MF" {
				stats.Unmatched++
			}
			continue
		}
		m = append(m, in)
	}
	log.Info("mapper.built",
		zap.Int("entries", stats.Entries),
		zap.Int("equities", stats.Equities),
		zap.Int("funds", stats.Funds),
		zap.Int("unmatched", stats.Unmatched),
	)
	return m, stats
}
