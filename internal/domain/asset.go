package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetType identifies the token contract family.
type AssetType string

const (
	AssetTypeBond           AssetType = "bond"
	AssetTypeCryptocurrency AssetType = "cryptocurrency"
	AssetTypeEquity         AssetType = "equity"
	AssetTypeFund           AssetType = "fund"
	AssetTypeStablecoin     AssetType = "stablecoin"
	AssetTypeDeposit        AssetType = "deposit"
)

// AllAssetTypes lists every asset type in display order.
var AllAssetTypes = []AssetType{
	AssetTypeBond,
	AssetTypeCryptocurrency,
	AssetTypeEquity,
	AssetTypeFund,
	AssetTypeStablecoin,
	AssetTypeDeposit,
}

// IsValid checks if the asset type is a known value.
func (t AssetType) IsValid() bool {
	for _, a := range AllAssetTypes {
		if t == a {
			return true
		}
	}
	return false
}

// String returns the string representation of AssetType.
func (t AssetType) String() string {
	return string(t)
}

// Collateralized reports whether the type is backed by proven collateral.
func (t AssetType) Collateralized() bool {
	return t == AssetTypeStablecoin || t == AssetTypeDeposit
}

// Pausable reports whether the type supports pause/unpause.
func (t AssetType) Pausable() bool {
	return t != AssetTypeCryptocurrency
}

// Blocklist reports whether the type supports blocking accounts.
func (t AssetType) Blocklist() bool {
	return t != AssetTypeCryptocurrency && t != AssetTypeDeposit
}

// Asset merges on-chain token state (TheGraph) with off-chain metadata (Hasura).
type Asset struct {
	// On-chain
	ID          string          `json:"id"` // contract address
	Type        AssetType       `json:"type"`
	Name        string          `json:"name"`
	Symbol      string          `json:"symbol"`
	Decimals    int             `json:"decimals"`
	TotalSupply decimal.Decimal `json:"totalSupply"`
	Paused      bool            `json:"paused"`
	Creator     string          `json:"creator"`
	HolderCount int             `json:"holderCount"`
	CreatedAt   time.Time       `json:"createdAt"`

	Bond       *BondDetails       `json:"bond,omitempty"`
	Equity     *EquityDetails     `json:"equity,omitempty"`
	Fund       *FundDetails       `json:"fund,omitempty"`
	Collateral *CollateralDetails `json:"collateral,omitempty"`

	// Off-chain
	Private             bool             `json:"private"`
	ISIN                string           `json:"isin,omitempty"`
	ValueInBaseCurrency *decimal.Decimal `json:"valueInBaseCurrency,omitempty"`
}

// AssetMetadata is the off-chain part of an asset kept in Hasura.
type AssetMetadata struct {
	ID                  string           `json:"id"`
	Private             bool             `json:"private"`
	ISIN                string           `json:"isin,omitempty"`
	ValueInBaseCurrency *decimal.Decimal `json:"value_in_base_currency,omitempty"`
}

// Merge copies off-chain metadata onto the asset.
func (a *Asset) Merge(m *AssetMetadata) {
	if m == nil {
		return
	}
	a.Private = m.Private
	a.ISIN = m.ISIN
	a.ValueInBaseCurrency = m.ValueInBaseCurrency
}

// EquityDetails holds equity-specific classification.
type EquityDetails struct {
	Class    string `json:"class"`
	Category string `json:"category"`
}

// FundDetails holds fund-specific classification.
type FundDetails struct {
	Class            string `json:"class"`
	Category         string `json:"category"`
	ManagementFeeBps int    `json:"managementFeeBps"`
}

// CollateralDetails holds the collateral proof state of stablecoins and deposits.
type CollateralDetails struct {
	Collateral      decimal.Decimal `json:"collateral"`
	LivenessSeconds int64           `json:"livenessSeconds"`
	LastUpdated     time.Time       `json:"lastUpdated"`
}

// CollateralExpired reports whether the last collateral proof is older
// than the liveness window at now.
func (c *CollateralDetails) CollateralExpired(now time.Time) bool {
	if c.LivenessSeconds <= 0 {
		return false
	}
	return now.After(c.LastUpdated.Add(time.Duration(c.LivenessSeconds) * time.Second))
}

// AssetEvent is an indexed on-chain event for an asset (transfer, mint, ...).
type AssetEvent struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Asset     string            `json:"asset"`
	Sender    string            `json:"sender"`
	TxHash    string            `json:"txHash"`
	Timestamp time.Time         `json:"timestamp"`
	Values    map[string]string `json:"values,omitempty"`
}

// AssetStats is a bucketed activity summary for an asset.
type AssetStats struct {
	Asset         string          `json:"asset"`
	Timestamp     time.Time       `json:"timestamp"`
	TotalSupply   decimal.Decimal `json:"totalSupply"`
	Minted        decimal.Decimal `json:"minted"`
	Burned        decimal.Decimal `json:"burned"`
	Transferred   decimal.Decimal `json:"transferred"`
	TransferCount int             `json:"transferCount"`
}
