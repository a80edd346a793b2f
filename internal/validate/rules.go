package validate

import (
	"errors"
	"fmt"
	"time"

	"asset-tokenization-kit/internal/domain"
)

var (
	ErrMaturityInPast   = errors.New("maturity date must be in the future")
	ErrNotYetMature     = errors.New("bond cannot be matured before its maturity date")
	ErrAlreadyMatured   = errors.New("bond is already matured")
	ErrScheduleWindow   = errors.New("yield schedule end date must be after start date")
	ErrScheduleInterval = errors.New("yield schedule interval must be greater than zero")
	ErrRateOutOfRange   = errors.New("yield rate must be between 1 and 10000 basis points")
)

// BondCreation checks the maturity date of a new bond.
func BondCreation(maturity, now time.Time) error {
	if !maturity.After(now) {
		return ErrMaturityInPast
	}
	return nil
}

// BondMaturity checks that a bond may be matured at now.
func BondMaturity(b *domain.BondDetails, now time.Time) error {
	if b == nil {
		return errors.New("asset is not a bond")
	}
	if b.IsMatured {
		return ErrAlreadyMatured
	}
	if !b.CanMature(now) {
		return ErrNotYetMature
	}
	return nil
}

// YieldSchedule checks a schedule's window, interval and rate.
func YieldSchedule(start, end time.Time, interval time.Duration, rateBps int) error {
	if !end.After(start) {
		return ErrScheduleWindow
	}
	if interval <= 0 {
		return ErrScheduleInterval
	}
	if rateBps <= 0 || rateBps > 10_000 {
		return fmt.Errorf("%w: %d", ErrRateOutOfRange, rateBps)
	}
	return nil
}
