package pricebook

import (
	"context"
	"errors"

	"github.com/etnz/pricebook/date"
	"github.com/shopspring/decimal"
)

// NAVRecord is one dated fund NAV in the NAV archive.
type NAVRecord struct {
	Date       date.Date
	Identifier string
	FundName   string
	NAV        decimal.Decimal
}

func (r NAVRecord) Key() Key { return Key{r.Date, r.Identifier} }

// NAVArchive is the dated copy of every NAV table fetched, one row per (date, identifier).
type NAVArchive struct {
	*Table[NAVRecord]
}

var navSchema = schema[NAVRecord]{
	header:  []string{"Date", "Identifier", "FundName", "NAV"},
	aliases: map[string]string{"ISIN": "Identifier"},
	encode: func(r NAVRecord) []string {
		return []string{r.Date.String(), r.Identifier, r.FundName, r.NAV.String()}
	},
	decode: func(row csvRow) (NAVRecord, error) {
		day, err := date.Parse(row.Get("Date"))
		if err != nil {
			return NAVRecord{}, row.Errorf("%v", err)
		}
		if row.Get("NAV") == "" {
			return NAVRecord{}, row.Skip("empty NAV")
		}
		nav, err := decimal.NewFromString(row.Get("NAV"))
		if err != nil {
			return NAVRecord{}, row.Errorf("invalid NAV %q: %v", row.Get("NAV"), err)
		}
		return NAVRecord{Date: day, Identifier: row.Get("Identifier"), FundName: row.Get("FundName"), NAV: nav}, nil
	},
}

// LoadNAVArchive reads the NAV archive at path. A missing file is an empty archive.
func LoadNAVArchive(path string) (*NAVArchive, error) {
	t, err := loadTable(path, navSchema)
	if err != nil {
		return nil, err
	}
	return &NAVArchive{t}, nil
}

// ErrNoNAV is returned when the NAV source delivered nothing.
var ErrNoNAV = errors.New("no NAV data available")

// ArchiveNAV fetches the NAV table, keeps the rows of its latest date and merges them into the
// archive at path. It returns the number of records merged.
func ArchiveNAV(ctx context.Context, tabler NAVTabler, path string) (int, error) {
	table := tabler.NAVTable(ctx).Latest()
	if table.Len() == 0 {
		return 0, ErrNoNAV
	}
	archive, err := LoadNAVArchive(path)
	if err != nil {
		return 0, err
	}
	var records []NAVRecord
	for _, row := range table.Rows() {
		for _, id := range row.Identifiers {
			records = append(records, NAVRecord{Date: row.Date, Identifier: id, FundName: row.Name, NAV: row.NAV})
		}
	}
	if _, err := archive.MergeAndPersist(records); err != nil {
		return 0, err
	}
	return len(records), nil
}
