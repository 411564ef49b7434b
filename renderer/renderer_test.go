package renderer

import (
	"strings"
	"testing"
	"time"

	"github.com/etnz/pricebook"
	"github.com/etnz/pricebook/date"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// outline is the structure of a rendered document.
type outline struct {
	headings []string
	tables   [][][]string // table, row, cell
}

func parse(t *testing.T, doc string) outline {
	t.Helper()
	source := []byte(doc)
	parser := goldmark.New(goldmark.WithExtensions(extension.Table)).Parser()
	root := parser.Parse(text.NewReader(source))

	var o outline
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Heading:
			o.headings = append(o.headings, textOf(n, source))
			return ast.WalkSkipChildren, nil
		case *east.Table:
			o.tables = append(o.tables, nil)
		case *east.TableHeader, *east.TableRow:
			var row []string
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				row = append(row, textOf(c, source))
			}
			last := len(o.tables) - 1
			o.tables[last] = append(o.tables[last], row)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return o
}

func textOf(n ast.Node, source []byte) string {
	var b strings.Builder
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering {
			b.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func TestReportMarkdown(t *testing.T) {
	day := date.New(2025, 3, 14)
	r := &pricebook.Report{
		RunID:       "run-1",
		Date:        day,
		Instruments: 5,
		Active:      4,
		Skipped:     1,
		Priced:      3,
		BySource:    map[pricebook.Source]int{pricebook.NAV: 1, pricebook.Bulk: 2},
		Missing:     []pricebook.MissingRecord{{Date: day, Identifier: "INE467B01029", Symbol: "TCS.NS", Reason: "no data from bulk, individual"}},
		Stale:       []pricebook.StaleQuote{{Identifier: "INE002A01018", Symbol: "RELIANCE.NS", Source: pricebook.Bulk, QuoteDate: date.New(2025, 3, 13), RunDate: day}},
		HistoryRows: 12,
		Suppressed:  2,
		Written:     true,
		Duration:    1500 * time.Millisecond,
	}

	o := parse(t, ReportMarkdown(r))

	assert.Equal(t, []string{"Price Update 2025-03-14", "Sources", "Stale Quotes", "Missing"}, o.headings)
	if assert.Len(t, o.tables, 4) {
		assert.Equal(t, []string{"Instruments", "5"}, o.tables[0][0])
		assert.Contains(t, o.tables[0], []string{"Priced", "3"})
		assert.Contains(t, o.tables[0], []string{"Persisted", "yes"})
		assert.Equal(t, [][]string{{"Source", "Priced"}, {"bulk", "2"}, {"nav", "1"}}, o.tables[1])
		assert.Equal(t, []string{"INE002A01018", "RELIANCE.NS", "bulk", "2025-03-13"}, o.tables[2][1])
		assert.Equal(t, []string{"2025-03-14", "INE467B01029", "TCS.NS", "no data from bulk, individual"}, o.tables[3][1])
	}
}

func TestReportMarkdownQuietRun(t *testing.T) {
	o := parse(t, ReportMarkdown(&pricebook.Report{Date: date.New(2025, 3, 14)}))
	assert.Equal(t, []string{"Price Update 2025-03-14"}, o.headings)
	if assert.Len(t, o.tables, 1) {
		assert.Contains(t, o.tables[0], []string{"Persisted", "nothing to write"})
	}
}

func TestMissingMarkdown(t *testing.T) {
	doc := MissingMarkdown(nil)
	assert.Contains(t, doc, "No instrument is suppressed.")
	assert.Empty(t, parse(t, doc).tables)
}

func TestHistoryMarkdown(t *testing.T) {
	series := new(date.History[decimal.Decimal]).
		Append(date.New(2025, 3, 14), decimal.RequireFromString("1245.5")).
		Append(date.New(2025, 3, 13), decimal.RequireFromString("1240"))

	o := parse(t, HistoryMarkdown("INE002A01018", series))
	assert.Equal(t, []string{"History for INE002A01018"}, o.headings)
	assert.Equal(t, [][]string{{"Date", "Price"}, {"2025-03-13", "1240"}, {"2025-03-14", "1245.5"}}, o.tables[0])
}

func TestQuotesMarkdown(t *testing.T) {
	quotes := map[string]pricebook.Quote{"RELIANCE.NS": {Price: decimal.RequireFromString("1245.5"), Date: date.New(2025, 3, 14)}}
	o := parse(t, QuotesMarkdown([]string{"RELIANCE.NS", "GONE.NS"}, quotes))
	assert.Equal(t, [][]string{{"Symbol", "Price", "Date"}, {"RELIANCE.NS", "1245.5", "2025-03-14"}, {"GONE.NS", "", ""}}, o.tables[0])
}
