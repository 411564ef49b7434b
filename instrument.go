package pricebook

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies an instrument; it selects the quote tiers tried for it.
type Kind uint8

const (
	Equity Kind = iota + 1
	Fund
)

func (k Kind) String() string {
	switch k {
	case Equity:
		return "EQUITY"
	case Fund:
		return "FUND"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind parses a kind. The short tags "EQ" and "MF" are accepted as well.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EQUITY", "EQ":
		return Equity, nil
	case "FUND", "MF":
		return Fund, nil
	}
	return 0, fmt.Errorf("unknown instrument kind %q", s)
}

// Instrument is one row of the Symbol Map.
type Instrument struct {
	Identifier string // stable identifier, usually an ISIN
	Symbol     string // provider-specific quote symbol
	Kind       Kind
}

func (in Instrument) String() string {
	return fmt.Sprintf("%s (%s, %s)", in.Identifier, in.Symbol, in.Kind)
}

// isinRegex checks for the basic structure: 2 letters, 9 alphanumeric, 1 digit.
var isinRegex = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// ValidateISIN checks the format and the check digit of an ISIN.
func ValidateISIN(isin string) error {
	if len(isin) != 12 {
		return fmt.Errorf("invalid length: must be 12 characters, got %d", len(isin))
	}
	if !isinRegex.MatchString(isin) {
		return fmt.Errorf("invalid format: must be 2 uppercase letters, 9 alphanumeric chars, and 1 digit")
	}

	// letters expand to two digits: A=10 ... Z=35
	var digits strings.Builder
	for _, char := range isin[:11] {
		if char >= 'A' && char <= 'Z' {
			digits.WriteString(strconv.Itoa(int(char - 'A' + 10)))
		} else {
			digits.WriteRune(char)
		}
	}

	// Luhn, doubling from the rightmost digit.
	sum := 0
	double := true
	s := digits.String()
	for i := len(s) - 1; i >= 0; i-- {
		digit := int(s[i] - '0')
		if double {
			digit *= 2
		}
		sum += digit/10 + digit%10
		double = !double
	}

	want := (10 - sum%10) % 10
	got := int(isin[11] - '0')
	if want != got {
		return fmt.Errorf("invalid check digit: expected %d, got %d", want, got)
	}
	return nil
}
