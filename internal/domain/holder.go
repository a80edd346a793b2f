package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holder is an account balance for one asset.
type Holder struct {
	Account      string          `json:"account"`
	Asset        string          `json:"asset"`
	Balance      decimal.Decimal `json:"balance"`
	Frozen       decimal.Decimal `json:"frozen"`
	Blocked      bool            `json:"blocked"`
	LastActivity time.Time       `json:"lastActivity"`
}

// Available is the balance that is not frozen.
func (h *Holder) Available() decimal.Decimal {
	avail := h.Balance.Sub(h.Frozen)
	if avail.IsNegative() {
		return decimal.Zero
	}
	return avail
}

// UserAsset is a balance as seen from a wallet: the holding plus the asset it belongs to.
type UserAsset struct {
	Holder
	Asset *Asset `json:"assetDetails"`
}
