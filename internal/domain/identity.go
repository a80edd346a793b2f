package domain

// Identity is an on-chain identity contract bound to an account.
type Identity struct {
	ID      string  `json:"id"`      // identity contract address
	Account string  `json:"account"` // wallet the identity belongs to
	Claims  []Claim `json:"claims"`
}

// Claim is a signed statement about an identity, e.g. KYC or collateral.
type Claim struct {
	ID      string            `json:"id"`
	Topic   string            `json:"topic"`
	Name    string            `json:"name"`
	Issuer  string            `json:"issuer"`
	Revoked bool              `json:"revoked"`
	Values  map[string]string `json:"values,omitempty"`
}

// HasClaim reports whether the identity carries a non-revoked claim with that name.
func (i *Identity) HasClaim(name string) bool {
	for _, c := range i.Claims {
		if c.Name == name && !c.Revoked {
			return true
		}
	}
	return false
}
