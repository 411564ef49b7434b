package pricebook

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/etnz/pricebook/date"
	"github.com/etnz/pricebook/logger"
	"github.com/etnz/pricebook/metrics"
	"go.uber.org/zap"
)

// DefaultChains is the ordered list of tiers tried for each kind.
var DefaultChains = map[Kind][]Source{
	Equity: {Bulk, Individual},
	Fund:   {NAV},
}

// Reconciler prices a symbol map for one run date. It never writes durable storage.
//
// A nil adapter behaves like a provider that has no data.
type Reconciler struct {
	Bulk       BulkQuoter
	Individual Quoter
	NAV        NAVTabler
	Chains     map[Kind][]Source // defaults to DefaultChains
	Date       date.Date         // run date, defaults to today
}

// Result is the outcome of a reconciliation pass.
//
// Every active instrument contributes exactly one record, to Priced or to Missing.
type Result struct {
	Date    date.Date
	Active  int // instruments neither suppressed nor invalid
	Priced  []PriceRecord
	Missing []MissingRecord
	Skipped int // suppressed at the start of the run
	Invalid int // empty identifier or symbol
	Stale   []StaleQuote
}

// BySource counts priced records per source.
func (r *Result) BySource() map[Source]int {
	count := make(map[Source]int)
	for _, p := range r.Priced {
		count[p.Source]++
	}
	return count
}

// pass holds the state of one Reconcile call.
type pass struct {
	*Reconciler
	ctx        context.Context
	log        *zap.Logger
	bulk       map[string]Quote
	nav        *NAVTable
	navFetched bool
}

// Reconcile classifies every instrument of m as priced or missing.
//
// Instruments whose (identifier, symbol) is in suppressed are left out entirely. Instruments
// that could not be priced are added to suppressed once the pass completes. Reconcile only
// fails when ctx is done, in which case the result must be discarded and suppressed is left
// untouched: adapters report cancellation as missing data.
func (r *Reconciler) Reconcile(ctx context.Context, m SymbolMap, suppressed *SuppressionSet) (*Result, error) {
	if suppressed == nil {
		suppressed = NewSuppressionSet()
	}
	on := r.Date
	if on.IsZero() {
		on = date.Today()
	}
	chains := r.Chains
	if chains == nil {
		chains = DefaultChains
	}
	p := &pass{
		Reconciler: r,
		ctx:        ctx,
		log:        logger.L().With(zap.Stringer("date", on)),
	}
	res := &Result{Date: on}

	// Active instruments are selected before any lookup, so that suppressions added during
	// the pass do not change the selection.
	var active SymbolMap
	for _, in := range m {
		switch {
		case in.Identifier == "" || in.Symbol == "":
			res.Invalid++
			metrics.IncQuote(in.Kind.String(), "invalid")
		case suppressed.Contains(in.Identifier, in.Symbol):
			res.Skipped++
			metrics.IncQuote(in.Kind.String(), "suppressed")
		default:
			active = append(active, in)
		}
	}
	res.Active = len(active)
	var failed []Instrument

	p.fetchBulk(active, chains)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, in := range active {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chain := chains[in.Kind]
		if len(chain) == 0 {
			res.Missing = append(res.Missing, MissingRecord{
				Date: on, Identifier: in.Identifier, Symbol: in.Symbol,
				Reason: fmt.Sprintf("no eligible tier for kind %s", in.Kind),
			})
			failed = append(failed, in)
			metrics.IncQuote(in.Kind.String(), "missing")
			continue
		}

		priced := false
		for _, tier := range chain {
			q, ok := p.quote(tier, in)
			metrics.IncTier(string(tier), ok)
			if !ok {
				continue
			}
			res.Priced = append(res.Priced, PriceRecord{
				Date: on, Identifier: in.Identifier, Symbol: in.Symbol, Price: q.Price, Source: tier,
			})
			if !q.Date.IsZero() && q.Date != on {
				res.Stale = append(res.Stale, StaleQuote{
					Identifier: in.Identifier, Symbol: in.Symbol, Source: tier, QuoteDate: q.Date, RunDate: on,
				})
				metrics.StaleQuotesTotal.Inc()
				p.log.Warn("reconcile.stale_quote",
					zap.String("identifier", in.Identifier),
					zap.String("symbol", in.Symbol),
					zap.String("tier", string(tier)),
					zap.Stringer("quote_date", q.Date),
				)
			}
			priced = true
			break
		}
		if priced {
			metrics.IncQuote(in.Kind.String(), "priced")
			continue
		}

		res.Missing = append(res.Missing, MissingRecord{
			Date: on, Identifier: in.Identifier, Symbol: in.Symbol, Reason: missingReason(chain),
		})
		failed = append(failed, in)
		metrics.IncQuote(in.Kind.String(), "missing")
		p.log.Debug("reconcile.missing", zap.String("identifier", in.Identifier), zap.String("symbol", in.Symbol))
	}

	// an adapter may have turned a cancellation into "no data"
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, in := range failed {
		suppressed.Add(in.Identifier, in.Symbol)
	}
	p.log.Info("reconcile.done",
		zap.Int("active", res.Active),
		zap.Int("priced", len(res.Priced)),
		zap.Int("missing", len(res.Missing)),
		zap.Int("skipped", res.Skipped),
		zap.Int("stale", len(res.Stale)),
	)
	return res, nil
}

// fetchBulk issues the single bulk request of the run, for every distinct symbol whose kind
// can be priced by the bulk tier.
func (p *pass) fetchBulk(active SymbolMap, chains map[Kind][]Source) {
	var symbols []string
	seen := make(map[string]bool)
	for _, in := range active {
		if slices.Contains(chains[in.Kind], Bulk) && !seen[in.Symbol] {
			seen[in.Symbol] = true
			symbols = append(symbols, in.Symbol)
		}
	}
	if len(symbols) == 0 || p.Bulk == nil {
		return
	}
	p.bulk = p.Bulk.BulkQuotes(p.ctx, symbols)
	p.log.Info("reconcile.bulk_fetched", zap.Int("requested", len(symbols)), zap.Int("received", len(p.bulk)))
}

// navTable downloads the NAV table the first time a fund needs it.
func (p *pass) navTable() *NAVTable {
	if !p.navFetched && p.NAV != nil {
		p.nav = p.NAV.NAVTable(p.ctx)
		p.log.Info("reconcile.nav_fetched", zap.Int("rows", p.nav.Len()))
	}
	p.navFetched = true
	return p.nav
}

func (p *pass) quote(tier Source, in Instrument) (Quote, bool) {
	var q Quote
	var ok bool
	switch tier {
	case Bulk:
		q, ok = p.bulk[in.Symbol]
	case Individual:
		if p.Individual != nil {
			q, ok = p.Individual.Quote(p.ctx, in.Symbol)
		}
	case NAV:
		var row NAVRow
		row, ok = p.navTable().Lookup(in.Identifier)
		q = Quote{Price: row.NAV, Date: row.Date}
	}
	return q, ok && q.Valid()
}

func missingReason(chain []Source) string {
	tiers := make([]string, len(chain))
	for i, s := range chain {
		tiers[i] = string(s)
	}
	return "no data from " + strings.Join(tiers, ", ")
}
