package domain

import "time"

// UserRole is the platform-level role of an account.
type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleIssuer UserRole = "issuer"
	UserRoleUser   UserRole = "user"
)

// IsValid checks if the role is a known value.
func (r UserRole) IsValid() bool {
	return r == UserRoleAdmin || r == UserRoleIssuer || r == UserRoleUser
}

// User is a platform account. Every user owns exactly one custodial wallet
// created through Portal at sign-up.
// Corresponds to the users table in PostgreSQL.
type User struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	EmailVerified bool     `json:"emailVerified"`
	PasswordHash  string   `json:"-"`
	Role          UserRole `json:"role"`
	Wallet        string   `json:"wallet"`   // checksummed 0x address
	Currency      Currency `json:"currency"` // preferred display currency

	PincodeEnabled           bool   `json:"pincodeEnabled"`
	PincodeVerificationID    string `json:"-"`
	TwoFactorEnabled         bool   `json:"twoFactorEnabled"`
	TwoFactorVerificationID  string `json:"-"`
	SecretCodesConfirmed     bool   `json:"secretCodesConfirmed"`
	SecretCodeVerificationID string `json:"-"`

	Banned    bool   `json:"banned"`
	BanReason string `json:"banReason,omitempty"`

	KYCVerifiedAt *time.Time `json:"kycVerifiedAt,omitempty"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// VerificationID returns the Portal verification ID registered for the given type.
// Returns an empty string when that verification is not enabled.
func (u *User) VerificationID(t VerificationType) string {
	switch t {
	case VerificationPincode:
		if u.PincodeEnabled {
			return u.PincodeVerificationID
		}
	case VerificationOTP:
		if u.TwoFactorEnabled {
			return u.TwoFactorVerificationID
		}
	case VerificationSecretCodes:
		return u.SecretCodeVerificationID
	}
	return ""
}
