package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BondDetails holds bond-specific terms and state.
type BondDetails struct {
	FaceValue       decimal.Decimal `json:"faceValue"`
	MaturityDate    time.Time       `json:"maturityDate"`
	UnderlyingAsset string          `json:"underlyingAsset"` // address of the redemption token
	UnderlyingTotal decimal.Decimal `json:"underlyingBalance"`
	Cap             decimal.Decimal `json:"cap"`
	IsMatured       bool            `json:"isMatured"`
	RedeemedAmount  decimal.Decimal `json:"redeemedAmount"`
	YieldSchedule   *YieldSchedule  `json:"yieldSchedule,omitempty"`
}

// CanMature reports whether the bond may be matured at now.
// A bond cannot mature before its maturity date or twice.
func (b *BondDetails) CanMature(now time.Time) bool {
	return !b.IsMatured && !now.Before(b.MaturityDate)
}

// RequiredUnderlying is face value times supply: what must be held to redeem everything.
func (b *BondDetails) RequiredUnderlying(totalSupply decimal.Decimal) decimal.Decimal {
	return b.FaceValue.Mul(totalSupply)
}

// YieldSchedule is a fixed-rate yield attached to a bond.
type YieldSchedule struct {
	Address         string          `json:"address"`
	StartDate       time.Time       `json:"startDate"`
	EndDate         time.Time       `json:"endDate"`
	RateBps         int             `json:"rateBps"` // basis points per period
	IntervalSeconds int64           `json:"intervalSeconds"`
	TotalClaimed    decimal.Decimal `json:"totalClaimed"`
	UnclaimedYield  decimal.Decimal `json:"unclaimedYield"`
}

// Periods returns the number of complete yield periods in the schedule.
func (y *YieldSchedule) Periods() int64 {
	if y.IntervalSeconds <= 0 || !y.EndDate.After(y.StartDate) {
		return 0
	}
	return int64(y.EndDate.Sub(y.StartDate)/time.Second) / y.IntervalSeconds
}

// ElapsedPeriods returns the number of complete periods between start and now,
// capped at the schedule length.
func (y *YieldSchedule) ElapsedPeriods(now time.Time) int64 {
	if y.IntervalSeconds <= 0 || !now.After(y.StartDate) {
		return 0
	}
	n := int64(now.Sub(y.StartDate)/time.Second) / y.IntervalSeconds
	if total := y.Periods(); n > total {
		n = total
	}
	return n
}

// YieldPerPeriod is the yield owed per period for a given balance and face value.
func (y *YieldSchedule) YieldPerPeriod(balance, faceValue decimal.Decimal) decimal.Decimal {
	return balance.Mul(faceValue).Mul(decimal.NewFromInt(int64(y.RateBps))).Div(decimal.NewFromInt(10000))
}
