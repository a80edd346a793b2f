package validate

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"asset-tokenization-kit/internal/domain"
)

func TestIsPincode(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"123456", true},
		{"000000", true},
		{"12345", false},
		{"1234567", false},
		{"12a456", false},
		{"", false},
		{"١٢٣٤٥٦", false}, // non-ASCII digits
	}
	for _, tt := range tests {
		if got := IsPincode(tt.in); got != tt.want {
			t.Errorf("IsPincode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsAddress(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0x71C7656EC7ab88b098defB751B7401B5f6d8976F", true},
		{"0x71c7656ec7ab88b098defb751b7401b5f6d8976f", true},
		{"71C7656EC7ab88b098defB751B7401B5f6d8976F", false},
		{"0x71C7656EC7ab88b098defB751B7401B5f6d8976", false},
		{"0xZZC7656EC7ab88b098defB751B7401B5f6d8976F", false},
	}
	for _, tt := range tests {
		if got := IsAddress(tt.in); got != tt.want {
			t.Errorf("IsAddress(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestChecksum(t *testing.T) {
	got, err := Checksum("0x71c7656ec7ab88b098defb751b7401b5f6d8976f")
	if err != nil {
		t.Fatalf("Checksum() error = %v", err)
	}
	if got != "0x71C7656EC7ab88b098defB751B7401B5f6d8976F" {
		t.Errorf("Checksum() = %s", got)
	}

	if _, err := Checksum("not-an-address"); err == nil {
		t.Error("Checksum() expected error for invalid input")
	}
}

func TestIsISIN(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"US0378331005", true},
		{"DE000BAY0017", true},
		{"US0378331006", false}, // bad check digit
		{"us0378331005", false},
		{"US037833100", false},
	}
	for _, tt := range tests {
		if got := IsISIN(tt.in); got != tt.want {
			t.Errorf("IsISIN(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

type createRequest struct {
	Name     string          `json:"name" validate:"required,max=64"`
	Symbol   string          `json:"symbol" validate:"required,symbol"`
	Decimals int             `json:"decimals" validate:"min=0,max=18"`
	Type     string          `json:"assetType" validate:"required,assettype"`
	ISIN     string          `json:"isin" validate:"omitempty,isin"`
	Currency string          `json:"currency" validate:"required,currency"`
	Owner    string          `json:"owner" validate:"required,evmaddress"`
	Pincode  string          `json:"pincode" validate:"required,pincode"`
	Cap      decimal.Decimal `json:"cap" validate:"dpositive"`
}

func TestStruct(t *testing.T) {
	valid := createRequest{
		Name:     "Test Bond",
		Symbol:   "TBND",
		Decimals: 18,
		Type:     string(domain.AssetTypeBond),
		ISIN:     "US0378331005",
		Currency: "EUR",
		Owner:    "0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
		Pincode:  "123456",
		Cap:      decimal.NewFromInt(1000),
	}
	if err := Struct(valid); err != nil {
		t.Fatalf("Struct(valid) error = %v", err)
	}

	invalid := valid
	invalid.Symbol = "tb nd"
	invalid.Decimals = 19
	invalid.Currency = "XYZ"
	invalid.Pincode = "12345"
	invalid.Cap = decimal.Zero

	err := Struct(invalid)
	var verrs Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("Struct(invalid) error = %v, want Errors", err)
	}

	fields := verrs.Fields()
	for _, f := range []string{"symbol", "decimals", "currency", "pincode", "cap"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("missing error for field %q in %v", f, fields)
		}
	}
	if fields["pincode"] != "must be exactly 6 digits" {
		t.Errorf("pincode message = %q", fields["pincode"])
	}
}

func TestScaleAmount(t *testing.T) {
	tests := []struct {
		amount   string
		decimals int
		want     string
		wantErr  error
	}{
		{"1", 18, "1000000000000000000", nil},
		{"1.5", 2, "150", nil},
		{"0.000001", 6, "1", nil},
		{"100", 0, "100", nil},
		{"1.005", 2, "", ErrAmountPrecision},
		{"0", 18, "", ErrAmountNotPositive},
		{"-1", 18, "", ErrAmountNotPositive},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			got, err := ScaleAmount(decimal.RequireFromString(tt.amount), tt.decimals)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ScaleAmount() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ScaleAmount() error = %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("ScaleAmount() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFormatUnits(t *testing.T) {
	units, _ := new(big.Int).SetString("1500000000000000000", 10)
	if got := FormatUnits(units, 18); !got.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("FormatUnits() = %s, want 1.5", got)
	}
	if got := FormatUnits(nil, 18); !got.IsZero() {
		t.Errorf("FormatUnits(nil) = %s, want 0", got)
	}
}

func TestBondRules(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := BondCreation(now.Add(-time.Hour), now); !errors.Is(err, ErrMaturityInPast) {
		t.Errorf("BondCreation(past) = %v", err)
	}
	if err := BondCreation(now.Add(time.Hour), now); err != nil {
		t.Errorf("BondCreation(future) = %v", err)
	}

	bond := &domain.BondDetails{MaturityDate: now.Add(24 * time.Hour)}
	if err := BondMaturity(bond, now); !errors.Is(err, ErrNotYetMature) {
		t.Errorf("BondMaturity(before) = %v", err)
	}
	if err := BondMaturity(bond, now.Add(24*time.Hour)); err != nil {
		t.Errorf("BondMaturity(at) = %v", err)
	}
	bond.IsMatured = true
	if err := BondMaturity(bond, now.Add(48*time.Hour)); !errors.Is(err, ErrAlreadyMatured) {
		t.Errorf("BondMaturity(matured) = %v", err)
	}
}

func TestYieldSchedule(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	if err := YieldSchedule(start, end, 24*time.Hour, 500); err != nil {
		t.Errorf("YieldSchedule(valid) = %v", err)
	}
	if err := YieldSchedule(end, start, 24*time.Hour, 500); !errors.Is(err, ErrScheduleWindow) {
		t.Errorf("YieldSchedule(reversed) = %v", err)
	}
	if err := YieldSchedule(start, end, 0, 500); !errors.Is(err, ErrScheduleInterval) {
		t.Errorf("YieldSchedule(zero interval) = %v", err)
	}
	if err := YieldSchedule(start, end, time.Hour, 10_001); !errors.Is(err, ErrRateOutOfRange) {
		t.Errorf("YieldSchedule(rate) = %v", err)
	}
}
