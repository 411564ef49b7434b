package pricebook

import "testing"

func TestValidateISIN(t *testing.T) {
	testCases := []struct {
		name    string
		isin    string
		wantErr bool
	}{
		{name: "Valid ISIN (Apple)", isin: "US0378331005", wantErr: false},
		{name: "Valid ISIN (Reliance)", isin: "INE002A01018", wantErr: false},
		{name: "Valid ISIN (fund)", isin: "INF209K01YN0", wantErr: false},
		{name: "Invalid check digit", isin: "US0378331006", wantErr: true},
		{name: "Invalid length", isin: "US037833100", wantErr: true},
		{name: "Invalid format (lowercase)", isin: "us0378331005", wantErr: true},
		{name: "Scheme code", isin: "119551", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateISIN(tc.isin)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateISIN(%q) error = %v, wantErr %v", tc.isin, err, tc.wantErr)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"EQUITY", Equity, false},
		{"eq", Equity, false},
		{" FUND ", Fund, false},
		{"MF", Fund, false},
		{"BOND", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseKind(%q) = %v, %v want %v, wantErr %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
	if Equity.String() != "EQUITY" || Fund.String() != "FUND" {
		t.Errorf("Kind.String() = %q, %q", Equity, Fund)
	}
}
