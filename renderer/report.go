// Package renderer turns run reports and tables into Markdown.
package renderer

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/etnz/pricebook"
	md "github.com/nao1215/markdown"
)

// ReportMarkdown renders the outcome of an update run.
func ReportMarkdown(r *pricebook.Report) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Price Update %s", r.Date))

	persisted := "yes"
	if !r.Written {
		persisted = "nothing to write"
	}
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{md.Bold("Instruments"), md.Bold(strconv.Itoa(r.Instruments))},
		Rows: [][]string{
			{"Active", strconv.Itoa(r.Active)},
			{"Suppressed", strconv.Itoa(r.Skipped)},
			{"Invalid", strconv.Itoa(r.Invalid)},
			{"Priced", strconv.Itoa(r.Priced)},
			{"Missing", strconv.Itoa(len(r.Missing))},
			{"Stale", strconv.Itoa(len(r.Stale))},
			{"History rows", strconv.Itoa(r.HistoryRows)},
			{"Suppression set", strconv.Itoa(r.Suppressed)},
			{"Persisted", persisted},
		},
	})

	if len(r.BySource) > 0 {
		doc.H2("Sources")
		sources := make([]pricebook.Source, 0, len(r.BySource))
		for s := range r.BySource {
			sources = append(sources, s)
		}
		slices.Sort(sources)
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
			Header:    []string{"Source", "Priced"},
		}
		for _, s := range sources {
			table.Rows = append(table.Rows, []string{string(s), strconv.Itoa(r.BySource[s])})
		}
		doc.Table(table)
	}

	if len(r.Stale) > 0 {
		doc.H2("Stale Quotes")
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignRight},
			Header:    []string{"Identifier", "Symbol", "Source", "Quote Date"},
		}
		for _, s := range r.Stale {
			table.Rows = append(table.Rows, []string{s.Identifier, s.Symbol, string(s.Source), s.QuoteDate.String()})
		}
		doc.Table(table)
	}

	if len(r.Missing) > 0 {
		doc.H2("Missing")
		writeMissing(doc, r.Missing)
	}

	doc.PlainText(fmt.Sprintf("Run %s in %s.", r.RunID, r.Duration.Round(time.Millisecond)))
	return doc.String()
}

func writeMissing(doc *md.Markdown, records []pricebook.MissingRecord) {
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignLeft},
		Header:    []string{"Date", "Identifier", "Symbol", "Reason"},
	}
	for _, m := range records {
		table.Rows = append(table.Rows, []string{m.Date.String(), m.Identifier, m.Symbol, m.Reason})
	}
	doc.Table(table)
}

// MissingMarkdown renders the missing-quote log.
func MissingMarkdown(records []pricebook.MissingRecord) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1("Missing Quotes")
	if len(records) == 0 {
		doc.PlainText("No instrument is suppressed.")
		return doc.String()
	}
	writeMissing(doc, records)
	return doc.String()
}
