// Package portal talks to the Portal transaction-relay service: custodial
// wallets, wallet verifications and contract calls signed on a user's behalf.
package portal

import (
	"context"
	"errors"
	"strings"

	"asset-tokenization-kit/internal/domain"
)

var (
	// ErrInvalidChallengeResponse is returned when Portal rejects the proof.
	ErrInvalidChallengeResponse = errors.New("invalid challenge response")
	// ErrNoChallenge is returned when no challenge exists for a verification.
	ErrNoChallenge = errors.New("no challenge for verification")
	// ErrSubscriptionsDisabled is returned when no WebSocket endpoint is set.
	ErrSubscriptionsDisabled = errors.New("portal subscriptions not configured")
)

// Portal defines the Portal operations used by the backend.
type Portal interface {
	// CreateWallet creates a custodial wallet and returns its address.
	CreateWallet(ctx context.Context, name string) (string, error)

	// CreateWalletVerification registers a pincode, OTP or secret-codes
	// verification on wallet.
	CreateWalletVerification(ctx context.Context, wallet string, spec VerificationSpec) (*WalletVerification, error)

	// DeleteWalletVerification removes a verification from wallet.
	DeleteWalletVerification(ctx context.Context, wallet, verificationID string) error

	// CreateVerificationChallenges issues fresh challenges for every
	// verification on wallet.
	CreateVerificationChallenges(ctx context.Context, wallet string) ([]VerificationChallenge, error)

	// VerifyWalletVerificationChallenge checks a response without sending
	// a transaction.
	VerifyWalletVerificationChallenge(ctx context.Context, wallet, verificationID, response string) (bool, error)

	// Submit sends a contract call and returns the transaction hash.
	Submit(ctx context.Context, call Call) (string, error)

	// GetTransaction returns the receipt for hash, or nil if not yet mined.
	GetTransaction(ctx context.Context, hash string) (*domain.Receipt, error)
}

// VerificationSpec describes a verification to create.
type VerificationSpec struct {
	Type    domain.VerificationType
	Name    string
	Pincode string // PINCODE only
	Issuer  string // OTP only
}

// WalletVerification is a verification registered on a wallet.
type WalletVerification struct {
	ID         string                  `json:"id"`
	Name       string                  `json:"name"`
	Type       domain.VerificationType `json:"verificationType"`
	Parameters map[string]string       `json:"parameters,omitempty"`
}

// OTPURI returns the otpauth:// URI for OTP verifications.
func (v *WalletVerification) OTPURI() string {
	return v.Parameters["uri"]
}

// SecretCodes returns the generated recovery codes for SECRET_CODES verifications.
func (v *WalletVerification) SecretCodes() []string {
	raw := v.Parameters["secretCodes"]
	if raw == "" {
		return nil
	}
	return splitCodes(raw)
}

// VerificationChallenge is a salt/secret pair issued for a verification.
type VerificationChallenge struct {
	ID               string                  `json:"id"`
	Name             string                  `json:"name"`
	VerificationID   string                  `json:"verificationId"`
	VerificationType domain.VerificationType `json:"verificationType"`
	Salt             string                  `json:"salt"`
	Secret           string                  `json:"secret"`
}

// Call is a contract function invocation relayed through Portal.
// Contract and Method name the generated Portal mutation, e.g. "Bond"+"Mint".
type Call struct {
	Contract     string
	Method       string
	Address      string // contract (or factory) address
	From         string // sender wallet
	Input        map[string]any
	Verification domain.ChallengeResponse
}

// Mutation returns the Portal mutation name.
func (c Call) Mutation() string {
	return c.Contract + c.Method
}

func splitCodes(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
