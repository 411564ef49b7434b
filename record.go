package pricebook

import (
	"github.com/etnz/pricebook/date"
	"github.com/shopspring/decimal"
)

// Source names a quote tier. It is also recorded on every price it produced.
type Source string

const (
	Bulk       Source = "bulk"       // one batched request for many symbols
	Individual Source = "individual" // one request per symbol
	NAV        Source = "nav"        // the mutual fund NAV table
)

// Key identifies a row in the Price History and in the Missing-Quote Log.
type Key struct {
	Date       date.Date
	Identifier string
}

// Quote is one observation returned by a quote tier.
type Quote struct {
	Price decimal.Decimal
	Date  date.Date // quote date as reported by the provider, zero if unknown
}

// Valid reports whether the quote carries a usable price.
func (q Quote) Valid() bool { return q.Price.IsPositive() }

// PriceRecord is a successfully obtained price.
type PriceRecord struct {
	Date       date.Date
	Identifier string
	Symbol     string
	Price      decimal.Decimal
	Source     Source
}

func (r PriceRecord) Key() Key { return Key{r.Date, r.Identifier} }

// MissingRecord notes that no tier could price an instrument on a date.
type MissingRecord struct {
	Date       date.Date
	Identifier string
	Symbol     string
	Reason     string
}

func (r MissingRecord) Key() Key { return Key{r.Date, r.Identifier} }

// StaleQuote is a price accepted for the run date although the provider dated it otherwise.
type StaleQuote struct {
	Identifier string
	Symbol     string
	Source     Source
	QuoteDate  date.Date
	RunDate    date.Date
}
