package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AirdropType is the distribution mechanism of an airdrop contract.
type AirdropType string

const (
	AirdropStandard AirdropType = "standard"
	AirdropVesting  AirdropType = "vesting"
	AirdropPush     AirdropType = "push"
)

// IsValid checks if the airdrop type is a known value.
func (t AirdropType) IsValid() bool {
	return t == AirdropStandard || t == AirdropVesting || t == AirdropPush
}

// Airdrop is a token distribution contract.
type Airdrop struct {
	Address      string          `json:"address"`
	Type         AirdropType     `json:"type"`
	Asset        string          `json:"asset"`
	Owner        string          `json:"owner"`
	MerkleRoot   string          `json:"merkleRoot,omitempty"`
	StartTime    *time.Time      `json:"startTime,omitempty"`
	EndTime      *time.Time      `json:"endTime,omitempty"`
	TotalClaimed decimal.Decimal `json:"totalClaimed"`
	Recipients   int             `json:"recipients"`
}

// AirdropRecipient is a single allocation in an airdrop distribution.
type AirdropRecipient struct {
	Account string          `json:"account" validate:"required,evmaddress"`
	Amount  decimal.Decimal `json:"amount"`
}
