package pricebook

import (
	"fmt"

	"github.com/etnz/pricebook/date"
	"github.com/shopspring/decimal"
)

// PriceHistory is the durable set of PriceRecord, one per (date, identifier).
type PriceHistory struct {
	*Table[PriceRecord]
}

var priceSchema = schema[PriceRecord]{
	header:  []string{"Date", "Identifier", "Symbol", "Price", "Source"},
	aliases: map[string]string{"ISIN": "Identifier", "Close": "Price"},
	encode: func(r PriceRecord) []string {
		return []string{r.Date.String(), r.Identifier, r.Symbol, r.Price.String(), string(r.Source)}
	},
	decode: func(row csvRow) (PriceRecord, error) {
		day, err := date.Parse(row.Get("Date"))
		if err != nil {
			return PriceRecord{}, row.Errorf("%v", err)
		}
		id := row.Get("Identifier")
		if id == "" {
			return PriceRecord{}, row.Errorf("empty identifier")
		}
		// older histories kept failed lookups as rows without a price
		if row.Get("Price") == "" {
			return PriceRecord{}, row.Skip("empty price")
		}
		price, err := decimal.NewFromString(row.Get("Price"))
		if err != nil {
			return PriceRecord{}, row.Errorf("invalid price %q: %v", row.Get("Price"), err)
		}
		if !price.IsPositive() {
			return PriceRecord{}, row.Skip(fmt.Sprintf("non-positive price %s", price))
		}
		return PriceRecord{
			Date:       day,
			Identifier: id,
			Symbol:     row.Get("Symbol"),
			Price:      price,
			Source:     Source(row.Get("Source")),
		}, nil
	},
}

// LoadPriceHistory reads the price history at path. A missing file is an empty history.
func LoadPriceHistory(path string) (*PriceHistory, error) {
	t, err := loadTable(path, priceSchema)
	if err != nil {
		return nil, err
	}
	return &PriceHistory{t}, nil
}

// Series returns the prices recorded for one identifier.
func (h *PriceHistory) Series(identifier string) *date.History[decimal.Decimal] {
	series := new(date.History[decimal.Decimal])
	for r := range h.All() {
		if r.Identifier == identifier {
			series.Append(r.Date, r.Price)
		}
	}
	return series
}

// Latest returns the most recent record for each identifier.
func (h *PriceHistory) Latest() map[string]PriceRecord {
	latest := make(map[string]PriceRecord)
	for r := range h.All() {
		if prev, ok := latest[r.Identifier]; !ok || !r.Date.Before(prev.Date) {
			latest[r.Identifier] = r
		}
	}
	return latest
}
