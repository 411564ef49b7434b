package pricebook

import (
	"fmt"
	"io"
	"os"

	"github.com/etnz/pricebook/logger"
	"go.uber.org/zap"
)

// SymbolMap is the configured universe of instruments, in file order.
type SymbolMap []Instrument

var symbolMapHeader = []string{"Identifier", "Symbol", "Kind"}

var symbolMapAliases = map[string]string{"ISIN": "Identifier", "Type": "Kind"}

// LoadSymbolMap reads the symbol map at path.
//
// Rows with an empty identifier or symbol, or an unknown kind, are skipped with a warning.
// Identifiers that are not valid ISINs are kept, with a warning. Only the first row of a
// duplicated (identifier, symbol) pair is kept.
func LoadSymbolMap(path string) (SymbolMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open symbol map: %w", err)
	}
	defer f.Close()
	return ReadSymbolMap(f, path)
}

// ReadSymbolMap decodes a symbol map. filename is for messages only.
func ReadSymbolMap(r io.Reader, filename string) (SymbolMap, error) {
	cr, err := newCSVReader(r, filename, symbolMapAliases)
	if err != nil {
		return nil, err
	}
	if len(cr.index) == 0 {
		return nil, nil
	}
	if err := cr.require(symbolMapHeader...); err != nil {
		return nil, err
	}

	log := logger.L().With(zap.String("file", filename))
	var m SymbolMap
	seen := make(map[pair]bool)
	for row, err := range cr.Rows() {
		if err != nil {
			return nil, err
		}
		in := Instrument{Identifier: row.Get("Identifier"), Symbol: row.Get("Symbol")}
		if in.Identifier == "" || in.Symbol == "" {
			log.Warn("symbolmap.row_rejected", zap.Int("line", row.line), zap.String("identifier", in.Identifier), zap.String("reason", "empty identifier or symbol"))
			continue
		}
		in.Kind, err = ParseKind(row.Get("Kind"))
		if err != nil {
			log.Warn("symbolmap.row_rejected", zap.Int("line", row.line), zap.String("identifier", in.Identifier), zap.Error(err))
			continue
		}
		if err := ValidateISIN(in.Identifier); err != nil {
			log.Warn("symbolmap.invalid_isin", zap.Int("line", row.line), zap.String("identifier", in.Identifier), zap.Error(err))
		}
		p := pair{in.Identifier, in.Symbol}
		if seen[p] {
			log.Warn("symbolmap.duplicate", zap.Int("line", row.line), zap.String("identifier", in.Identifier), zap.String("symbol", in.Symbol))
			continue
		}
		seen[p] = true
		m = append(m, in)
	}
	return m, nil
}

// Save writes the symbol map atomically at path.
func (m SymbolMap) Save(path string) error {
	rows := func(yield func([]string) bool) {
		for _, in := range m {
			if !yield([]string{in.Identifier, in.Symbol, in.Kind.String()}) {
				return
			}
		}
	}
	return writeCSVAtomic(path, symbolMapHeader, rows)
}

// Count returns the number of instruments per kind.
func (m SymbolMap) Count() map[Kind]int {
	count := make(map[Kind]int)
	for _, in := range m {
		count[in.Kind]++
	}
	return count
}
