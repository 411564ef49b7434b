package pricebook

// pair identifies an instrument in the suppression set.
type pair struct{ identifier, symbol string }

// SuppressionSet holds the (identifier, symbol) pairs known to be unpriceable.
// A change of symbol for an identifier lifts its suppression.
type SuppressionSet struct {
	pairs map[pair]struct{}
}

// NewSuppressionSet returns an empty set.
func NewSuppressionSet() *SuppressionSet {
	return &SuppressionSet{pairs: make(map[pair]struct{})}
}

// Add records the pair. Adding an existing pair is a no-op.
func (s *SuppressionSet) Add(identifier, symbol string) {
	s.pairs[pair{identifier, symbol}] = struct{}{}
}

// Contains reports whether the pair is suppressed. A nil set contains nothing.
func (s *SuppressionSet) Contains(identifier, symbol string) bool {
	if s == nil {
		return false
	}
	_, ok := s.pairs[pair{identifier, symbol}]
	return ok
}

// Len returns the number of suppressed pairs.
func (s *SuppressionSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.pairs)
}
