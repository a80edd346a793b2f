package domain

// Currency is an ISO 4217 fiat currency code supported for display and
// bond face values.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyCHF Currency = "CHF"
	CurrencyJPY Currency = "JPY"
	CurrencyAED Currency = "AED"
	CurrencySGD Currency = "SGD"
	CurrencySAR Currency = "SAR"
)

// DefaultCurrency is the base currency for stored valuations.
const DefaultCurrency = CurrencyEUR

// SupportedCurrencies lists every currency the exchange-rate updater tracks.
var SupportedCurrencies = []Currency{
	CurrencyUSD,
	CurrencyEUR,
	CurrencyGBP,
	CurrencyCHF,
	CurrencyJPY,
	CurrencyAED,
	CurrencySGD,
	CurrencySAR,
}

// IsValid checks if the currency is supported.
func (c Currency) IsValid() bool {
	for _, s := range SupportedCurrencies {
		if c == s {
			return true
		}
	}
	return false
}

// String returns the string representation of Currency.
func (c Currency) String() string {
	return string(c)
}
