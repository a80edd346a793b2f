package domain

import "time"

// RegulationType names a regulatory framework.
type RegulationType string

const RegulationMiCA RegulationType = "mica"

// RegulationStatus is the compliance state of an asset under a framework.
type RegulationStatus string

const (
	RegulationNotApplicable RegulationStatus = "not_applicable"
	RegulationPending       RegulationStatus = "pending"
	RegulationCompliant     RegulationStatus = "compliant"
)

// ReserveStatus is the audit state of a stablecoin's reserves.
type ReserveStatus string

const (
	ReservePending   ReserveStatus = "pending"
	ReserveCompliant ReserveStatus = "compliant"
	ReserveDeficient ReserveStatus = "deficient"
)

// RegulationConfig is the off-chain regulatory record of an asset, kept in Hasura.
type RegulationConfig struct {
	ID            string           `json:"id"`
	Asset         string           `json:"asset"`
	Type          RegulationType   `json:"type"`
	Status        RegulationStatus `json:"status"`
	ReserveStatus ReserveStatus    `json:"reserveStatus,omitempty"`
	LastAuditDate *time.Time       `json:"lastAuditDate,omitempty"`
	Documents     []Document       `json:"documents"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}
