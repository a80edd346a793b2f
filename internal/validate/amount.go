package validate

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// MaxDecimals is the largest token precision accepted at creation.
const MaxDecimals = 18

// ErrAmountPrecision is returned when an amount has more fractional digits
// than the token supports.
var ErrAmountPrecision = errors.New("amount exceeds token precision")

// ErrAmountNotPositive is returned for zero or negative amounts.
var ErrAmountNotPositive = errors.New("amount must be positive")

// Decimals checks a token precision.
func Decimals(d int) error {
	if d < 0 || d > MaxDecimals {
		return fmt.Errorf("decimals must be between 0 and %d, got %d", MaxDecimals, d)
	}
	return nil
}

// Amount checks that a human-readable amount is positive and fits decimals.
func Amount(amount decimal.Decimal, decimals int) error {
	if !amount.IsPositive() {
		return ErrAmountNotPositive
	}
	if !amount.Equal(amount.Truncate(int32(decimals))) {
		return fmt.Errorf("%w: %s has more than %d decimals", ErrAmountPrecision, amount, decimals)
	}
	return nil
}

// ScaleAmount converts a human-readable amount into base units
// (amount * 10^decimals) as sent to the chain.
func ScaleAmount(amount decimal.Decimal, decimals int) (*big.Int, error) {
	if err := Amount(amount, decimals); err != nil {
		return nil, err
	}
	return amount.Shift(int32(decimals)).BigInt(), nil
}

// FormatUnits converts base units back into a human-readable amount.
func FormatUnits(units *big.Int, decimals int) decimal.Decimal {
	if units == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(units, -int32(decimals))
}
