package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Role is an AccessControl role on an asset contract.
type Role string

const (
	RoleDefaultAdmin     Role = "DEFAULT_ADMIN_ROLE"
	RoleSupplyManagement Role = "SUPPLY_MANAGEMENT_ROLE"
	RoleUserManagement   Role = "USER_MANAGEMENT_ROLE"
)

// AllRoles lists every role in display order.
var AllRoles = []Role{RoleDefaultAdmin, RoleSupplyManagement, RoleUserManagement}

// IsValid checks if the role is a known value.
func (r Role) IsValid() bool {
	return r == RoleDefaultAdmin || r == RoleSupplyManagement || r == RoleUserManagement
}

// ID returns the bytes32 role identifier as used by the contracts:
// zero for the admin role, keccak256(name) for the others.
func (r Role) ID() common.Hash {
	if r == RoleDefaultAdmin {
		return common.Hash{}
	}
	return crypto.Keccak256Hash([]byte(r))
}

// RoleFromID maps a bytes32 role identifier back to a known role.
func RoleFromID(id common.Hash) (Role, bool) {
	for _, r := range AllRoles {
		if r.ID() == id {
			return r, true
		}
	}
	return "", false
}
