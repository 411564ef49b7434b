package pricebook

import (
	"context"
	"testing"

	"github.com/etnz/pricebook/date"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	reliance = Instrument{Identifier: "INE002A01018", Symbol: "RELIANCE.NS", Kind: Equity}
	infosys  = Instrument{Identifier: "INE009A01021", Symbol: "INFY.NS", Kind: Equity}
	hdfc     = Instrument{Identifier: "INE040A01034", Symbol: "HDFCBANK.NS", Kind: Equity}
	fund     = Instrument{Identifier: "INF209K01YN0", Symbol: "119551", Kind: Fund}
)

func navRow(id, nav string) NAVRow {
	return NAVRow{Identifiers: []string{id}, NAV: dec(nav), Date: runDate}
}

// Bulk covers one equity, the second equity falls back to the individual tier, the fund is
// priced from the NAV table.
func TestReconcileFallbackChain(t *testing.T) {
	bulk := &fakeBulk{quotes: map[string]Quote{"RELIANCE.NS": quote("100")}}
	individual := &fakeQuoter{quotes: map[string]Quote{"INFY.NS": quote("50")}}
	nav := &fakeNAV{rows: []NAVRow{navRow("INF209K01YN0", "12.5")}}
	r := &Reconciler{Bulk: bulk, Individual: individual, NAV: nav, Date: runDate}

	res, err := r.Reconcile(context.Background(), SymbolMap{reliance, infosys, fund}, NewSuppressionSet())
	require.NoError(t, err)

	assert.Equal(t, []PriceRecord{
		{Date: runDate, Identifier: reliance.Identifier, Symbol: reliance.Symbol, Price: dec("100"), Source: Bulk},
		{Date: runDate, Identifier: infosys.Identifier, Symbol: infosys.Symbol, Price: dec("50"), Source: Individual},
		{Date: runDate, Identifier: fund.Identifier, Symbol: fund.Symbol, Price: dec("12.5"), Source: NAV},
	}, res.Priced)
	assert.Empty(t, res.Missing)
	assert.Equal(t, 3, res.Active)

	// the bulk tier is asked once, for equities only
	assert.Equal(t, [][]string{{"RELIANCE.NS", "INFY.NS"}}, bulk.calls)
	// the individual tier is only asked for bulk misses
	assert.Equal(t, []string{"INFY.NS"}, individual.calls)
	assert.Equal(t, 1, nav.calls)
	assert.Equal(t, map[Source]int{Bulk: 1, Individual: 1, NAV: 1}, res.BySource())
}

// Scenario: bulk down, individual tier has one of two equities.
func TestReconcileBulkUnavailable(t *testing.T) {
	bulk := &fakeBulk{}
	individual := &fakeQuoter{quotes: map[string]Quote{"RELIANCE.NS": quote("101")}}
	r := &Reconciler{Bulk: bulk, Individual: individual, Date: runDate}
	suppressed := NewSuppressionSet()

	res, err := r.Reconcile(context.Background(), SymbolMap{reliance, hdfc}, suppressed)
	require.NoError(t, err)

	require.Len(t, res.Priced, 1)
	assert.Equal(t, Individual, res.Priced[0].Source)
	require.Len(t, res.Missing, 1)
	assert.Equal(t, MissingRecord{
		Date: runDate, Identifier: hdfc.Identifier, Symbol: hdfc.Symbol, Reason: "no data from bulk, individual",
	}, res.Missing[0])
	assert.True(t, suppressed.Contains(hdfc.Identifier, hdfc.Symbol))
	assert.False(t, suppressed.Contains(reliance.Identifier, reliance.Symbol))
}

// Scenario: a suppressed instrument is never sent to any adapter.
func TestReconcileSkipsSuppressed(t *testing.T) {
	bulk := &fakeBulk{quotes: map[string]Quote{"RELIANCE.NS": quote("100"), "HDFCBANK.NS": quote("1")}}
	individual := &fakeQuoter{}
	nav := &fakeNAV{rows: []NAVRow{navRow("INF209K01YN0", "12.5")}}
	suppressed := NewSuppressionSet()
	suppressed.Add(hdfc.Identifier, hdfc.Symbol)
	suppressed.Add(fund.Identifier, fund.Symbol)
	r := &Reconciler{Bulk: bulk, Individual: individual, NAV: nav, Date: runDate}

	res, err := r.Reconcile(context.Background(), SymbolMap{reliance, hdfc, fund}, suppressed)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 1, res.Active)
	assert.Len(t, res.Priced, 1)
	assert.Empty(t, res.Missing)
	assert.Equal(t, [][]string{{"RELIANCE.NS"}}, bulk.calls)
	assert.Empty(t, individual.calls)
	assert.Equal(t, 0, nav.calls, "no active fund, the NAV table is not downloaded")
}

// Every active instrument gets exactly one outcome, whatever the adapters answer.
func TestReconcileCompleteness(t *testing.T) {
	m := SymbolMap{
		reliance, infosys, hdfc, fund,
		{Identifier: "INF179K01BB8", Symbol: "100270", Kind: Fund},
		{Identifier: "INE467B01029", Symbol: "TCS.NS", Kind: Kind(9)},
		{Identifier: "", Symbol: "EMPTY.NS", Kind: Equity},
	}
	combos := []struct {
		name string
		r    *Reconciler
	}{
		{"no adapters", &Reconciler{Date: runDate}},
		{"all empty", &Reconciler{Bulk: &fakeBulk{}, Individual: &fakeQuoter{}, NAV: &fakeNAV{}, Date: runDate}},
		{"all answer", &Reconciler{
			Bulk:       &fakeBulk{quotes: map[string]Quote{"RELIANCE.NS": quote("1"), "INFY.NS": quote("2")}},
			Individual: &fakeQuoter{quotes: map[string]Quote{"HDFCBANK.NS": quote("3"), "TCS.NS": quote("4")}},
			NAV:        &fakeNAV{rows: []NAVRow{navRow("INF209K01YN0", "5"), navRow("INF179K01BB8", "6")}},
			Date:       runDate,
		}},
	}
	for _, c := range combos {
		t.Run(c.name, func(t *testing.T) {
			res, err := c.r.Reconcile(context.Background(), m, NewSuppressionSet())
			require.NoError(t, err)

			assert.Equal(t, 1, res.Invalid)
			assert.Equal(t, 6, res.Active)
			assert.Equal(t, res.Active, len(res.Priced)+len(res.Missing))

			seen := make(map[string]int)
			for _, p := range res.Priced {
				seen[p.Identifier]++
			}
			for _, p := range res.Missing {
				seen[p.Identifier]++
			}
			for id, n := range seen {
				assert.Equal(t, 1, n, "identifier %s", id)
			}
		})
	}
}

func TestReconcileUnknownKind(t *testing.T) {
	odd := Instrument{Identifier: "INE467B01029", Symbol: "TCS.NS", Kind: Kind(9)}
	individual := &fakeQuoter{quotes: map[string]Quote{"TCS.NS": quote("4")}}
	res, err := (&Reconciler{Individual: individual, Date: runDate}).Reconcile(context.Background(), SymbolMap{odd}, nil)
	require.NoError(t, err)

	require.Len(t, res.Missing, 1)
	assert.Equal(t, "no eligible tier for kind Kind(9)", res.Missing[0].Reason)
	assert.Empty(t, individual.calls)
}

func TestReconcileRejectsNonPositivePrice(t *testing.T) {
	bulk := &fakeBulk{quotes: map[string]Quote{"RELIANCE.NS": quote("0")}}
	individual := &fakeQuoter{quotes: map[string]Quote{"RELIANCE.NS": quote("-1")}}
	res, err := (&Reconciler{Bulk: bulk, Individual: individual, Date: runDate}).Reconcile(context.Background(), SymbolMap{reliance}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Priced)
	assert.Len(t, res.Missing, 1)
}

func TestReconcileStaleQuote(t *testing.T) {
	yesterday := runDate.Add(-1)
	bulk := &fakeBulk{quotes: map[string]Quote{
		"RELIANCE.NS": {Price: dec("100"), Date: yesterday},
		"INFY.NS":     {Price: dec("50"), Date: runDate},
	}}
	res, err := (&Reconciler{Bulk: bulk, Date: runDate}).Reconcile(context.Background(), SymbolMap{reliance, infosys}, nil)
	require.NoError(t, err)

	require.Len(t, res.Priced, 2)
	assert.Equal(t, runDate, res.Priced[0].Date, "accepted for the run date")
	assert.Equal(t, []StaleQuote{{
		Identifier: reliance.Identifier, Symbol: reliance.Symbol, Source: Bulk, QuoteDate: yesterday, RunDate: runDate,
	}}, res.Stale)
}

func TestReconcileFirstNAVRowWins(t *testing.T) {
	nav := &fakeNAV{rows: []NAVRow{navRow("INF209K01YN0", "10"), navRow("INF209K01YN0", "20")}}
	res, err := (&Reconciler{NAV: nav, Date: runDate}).Reconcile(context.Background(), SymbolMap{fund}, nil)
	require.NoError(t, err)
	require.Len(t, res.Priced, 1)
	assert.Equal(t, "10", res.Priced[0].Price.String())
}

func TestReconcileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	suppressed := NewSuppressionSet()
	_, err := (&Reconciler{Bulk: &fakeBulk{}, Date: runDate}).Reconcile(ctx, SymbolMap{reliance}, suppressed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, suppressed.Len())
}

// cancellingQuoter has no data and cancels the run on its n-th call.
type cancellingQuoter struct {
	cancel context.CancelFunc
	n      int
	calls  int
}

func (c *cancellingQuoter) Quote(context.Context, string) (Quote, bool) {
	c.calls++
	if c.calls == c.n {
		c.cancel()
	}
	return Quote{}, false
}

func TestReconcileCancelledMidPassKeepsSuppressions(t *testing.T) {
	tests := []struct {
		name  string
		known []Instrument
	}{
		{name: "empty set"},
		{name: "existing entries", known: []Instrument{fund}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			suppressed := NewSuppressionSet()
			for _, in := range tt.known {
				suppressed.Add(in.Identifier, in.Symbol)
			}
			individual := &cancellingQuoter{cancel: cancel, n: 2}
			r := &Reconciler{Bulk: &fakeBulk{}, Individual: individual, Date: runDate}

			res, err := r.Reconcile(ctx, SymbolMap{reliance, infosys, hdfc}, suppressed)

			assert.ErrorIs(t, err, context.Canceled)
			assert.Nil(t, res)
			assert.Equal(t, len(tt.known), suppressed.Len())
			assert.False(t, suppressed.Contains(reliance.Identifier, reliance.Symbol))
			assert.False(t, suppressed.Contains(infosys.Identifier, infosys.Symbol))
		})
	}
}

func TestReconcileDefaultsToToday(t *testing.T) {
	bulk := &fakeBulk{quotes: map[string]Quote{"RELIANCE.NS": quote("100")}}
	res, err := (&Reconciler{Bulk: bulk}).Reconcile(context.Background(), SymbolMap{reliance}, nil)
	require.NoError(t, err)
	assert.Equal(t, date.Today(), res.Date)
}
