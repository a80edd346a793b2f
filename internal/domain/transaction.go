package domain

import "time"

// TransactionStatus tracks a relayed transaction through its lifecycle.
type TransactionStatus string

const (
	TxStatusPending  TransactionStatus = "pending"
	TxStatusSuccess  TransactionStatus = "success"
	TxStatusReverted TransactionStatus = "reverted"
	TxStatusTimeout  TransactionStatus = "timeout"
)

// Final reports whether no further status change is expected.
func (s TransactionStatus) Final() bool {
	return s == TxStatusSuccess || s == TxStatusReverted
}

// Transaction is a Portal-relayed transaction submitted by a user.
// Corresponds to the transactions table in PostgreSQL.
type Transaction struct {
	Hash         string            `json:"hash"`
	From         string            `json:"from"`
	Function     string            `json:"function"` // mutation name, e.g. "mint"
	Asset        string            `json:"asset,omitempty"`
	Status       TransactionStatus `json:"status"`
	BlockNumber  int64             `json:"blockNumber,omitempty"`
	GasUsed      string            `json:"gasUsed,omitempty"`
	RevertReason string            `json:"revertReason,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// Receipt is the mined result of a transaction as reported by Portal.
type Receipt struct {
	TransactionHash string `json:"transactionHash"`
	Status          string `json:"status"` // "Success" | "Reverted"
	BlockNumber     int64  `json:"blockNumber"`
	GasUsed         string `json:"gasUsed"`
	ContractAddress string `json:"contractAddress,omitempty"`
	RevertReason    string `json:"revertReasonDecoded,omitempty"`
}

// Succeeded reports whether the receipt is a successful execution.
func (r *Receipt) Succeeded() bool {
	return r.Status == "Success"
}
