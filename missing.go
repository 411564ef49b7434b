package pricebook

import (
	"slices"

	"github.com/etnz/pricebook/date"
)

// MissingLog is the durable set of MissingRecord. It is the source of the suppression set.
type MissingLog struct {
	*Table[MissingRecord]
}

var missingSchema = schema[MissingRecord]{
	header:  []string{"Date", "Identifier", "Symbol", "Reason"},
	aliases: map[string]string{"ISIN": "Identifier"},
	encode: func(r MissingRecord) []string {
		return []string{r.Date.String(), r.Identifier, r.Symbol, r.Reason}
	},
	decode: func(row csvRow) (MissingRecord, error) {
		day, err := date.Parse(row.Get("Date"))
		if err != nil {
			return MissingRecord{}, row.Errorf("%v", err)
		}
		id := row.Get("Identifier")
		if id == "" {
			return MissingRecord{}, row.Errorf("empty identifier")
		}
		return MissingRecord{
			Date:       day,
			Identifier: id,
			Symbol:     row.Get("Symbol"),
			Reason:     row.Get("Reason"),
		}, nil
	},
}

// LoadMissingLog reads the missing-quote log at path. A missing file is an empty log.
func LoadMissingLog(path string) (*MissingLog, error) {
	t, err := loadTable(path, missingSchema)
	if err != nil {
		return nil, err
	}
	return &MissingLog{t}, nil
}

// Suppression returns the (identifier, symbol) pairs of every row in the log.
func (l *MissingLog) Suppression() *SuppressionSet {
	s := NewSuppressionSet()
	for r := range l.All() {
		s.Add(r.Identifier, r.Symbol)
	}
	return s
}

// Clear removes every row for the given identifiers and persists the log when something was
// removed. It is the way to give suppressed instruments another chance.
func (l *MissingLog) Clear(identifiers ...string) (int, error) {
	n := l.Remove(func(r MissingRecord) bool { return slices.Contains(identifiers, r.Identifier) })
	if n == 0 {
		return 0, nil
	}
	return n, l.Save()
}
