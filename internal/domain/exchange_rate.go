package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is the price of one unit of Base expressed in Quote.
// Corresponds to the currency_rates table in PostgreSQL.
type ExchangeRate struct {
	Base        Currency        `json:"base"`
	Quote       Currency        `json:"quote"`
	Rate        decimal.Decimal `json:"rate"`
	Provider    string          `json:"provider"`
	EffectiveAt time.Time       `json:"effectiveAt"` // provider's timestamp
	UpdatedAt   time.Time       `json:"updatedAt"`   // when we stored it
}

// Pair returns the "BASE/QUOTE" key of the rate.
func (r *ExchangeRate) Pair() string {
	return string(r.Base) + "/" + string(r.Quote)
}
