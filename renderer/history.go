package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/pricebook"
	"github.com/etnz/pricebook/date"
	md "github.com/nao1215/markdown"
	"github.com/shopspring/decimal"
)

// HistoryMarkdown renders the price series of one instrument.
func HistoryMarkdown(identifier string, series *date.History[decimal.Decimal]) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1(fmt.Sprintf("History for %s", identifier))

	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{"Date", "Price"},
		Rows:      [][]string{},
	}
	for day, price := range series.Values() {
		table.Rows = append(table.Rows, []string{day.String(), price.String()})
	}
	doc.Table(table)
	return doc.String()
}

// QuotesMarkdown renders live quotes, in the order of symbols. Symbols without a quote
// are listed with an empty price.
func QuotesMarkdown(symbols []string, quotes map[string]pricebook.Quote) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight},
		Header:    []string{"Symbol", "Price", "Date"},
		Rows:      [][]string{},
	}
	for _, s := range symbols {
		q, ok := quotes[s]
		if !ok {
			table.Rows = append(table.Rows, []string{s, "", ""})
			continue
		}
		table.Rows = append(table.Rows, []string{s, q.Price.String(), q.Date.String()})
	}
	doc.Table(table)
	return doc.String()
}
