// Package challenge turns a user's pincode, OTP or secret code into the
// challenge response Portal verifies before signing.
package challenge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/portal"
)

// ErrVerificationNotEnabled is returned when the user has no verification
// of the requested type.
var ErrVerificationNotEnabled = errors.New("verification not enabled")

// HashPincode computes the salted pincode hash.
// Formula: SHA256(salt + pincode), hex-encoded.
func HashPincode(pincode, salt string) string {
	hash := sha256.Sum256([]byte(salt + pincode))
	return hex.EncodeToString(hash[:])
}

// Response computes the challenge response for a pincode.
// Formula: SHA256(HashPincode(pincode, salt) + "_" + secret), hex-encoded.
func Response(pincode, salt, secret string) string {
	data := HashPincode(pincode, salt) + "_" + secret
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// NormalizeSecretCode upper-cases a recovery code, strips separators and
// regroups it in blocks of four joined by dashes.
func NormalizeSecretCode(code string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(code) {
		if r == '-' || r == ' ' {
			continue
		}
		b.WriteRune(r)
	}
	flat := b.String()

	var groups []string
	for len(flat) > 4 {
		groups = append(groups, flat[:4])
		flat = flat[4:]
	}
	groups = append(groups, flat)
	return strings.Join(groups, "-")
}

// ChallengeIssuer issues verification challenges for a wallet.
type ChallengeIssuer interface {
	CreateVerificationChallenges(ctx context.Context, wallet string) ([]portal.VerificationChallenge, error)
}

// Resolve builds the Portal proof for in on behalf of user.
func Resolve(ctx context.Context, issuer ChallengeIssuer, user *domain.User, in domain.VerificationInput) (domain.ChallengeResponse, error) {
	verificationID := user.VerificationID(in.Type)
	if verificationID == "" {
		return domain.ChallengeResponse{}, fmt.Errorf("%w: %s", ErrVerificationNotEnabled, in.Type)
	}

	switch in.Type {
	case domain.VerificationPincode:
		return ForPincode(ctx, issuer, user.Wallet, verificationID, in.Code)
	case domain.VerificationOTP:
		return domain.ChallengeResponse{
			VerificationID:    verificationID,
			ChallengeResponse: in.Code,
		}, nil
	case domain.VerificationSecretCodes:
		return domain.ChallengeResponse{
			VerificationID:    verificationID,
			ChallengeResponse: NormalizeSecretCode(in.Code),
		}, nil
	}
	return domain.ChallengeResponse{}, fmt.Errorf("unknown verification type %q", in.Type)
}

// ForPincode fetches a fresh challenge for the pincode verification and
// answers it.
func ForPincode(ctx context.Context, issuer ChallengeIssuer, wallet, verificationID, pincode string) (domain.ChallengeResponse, error) {
	challenges, err := issuer.CreateVerificationChallenges(ctx, wallet)
	if err != nil {
		return domain.ChallengeResponse{}, fmt.Errorf("fetch challenges: %w", err)
	}

	ch, err := Pick(challenges, domain.VerificationPincode, verificationID)
	if err != nil {
		return domain.ChallengeResponse{}, err
	}

	return domain.ChallengeResponse{
		VerificationID:    verificationID,
		ChallengeID:       ch.ID,
		ChallengeResponse: Response(pincode, ch.Salt, ch.Secret),
	}, nil
}

// Pick selects the challenge of type t, preferring the one for verificationID.
func Pick(challenges []portal.VerificationChallenge, t domain.VerificationType, verificationID string) (*portal.VerificationChallenge, error) {
	var chosen *portal.VerificationChallenge
	for i := range challenges {
		ch := &challenges[i]
		if ch.VerificationType != t {
			continue
		}
		if verificationID != "" && ch.VerificationID == verificationID {
			chosen = ch
			break
		}
		if chosen == nil {
			chosen = ch
		}
	}
	if chosen == nil {
		return nil, fmt.Errorf("%w: %s", portal.ErrNoChallenge, t)
	}
	if chosen.Salt == "" || chosen.Secret == "" {
		return nil, fmt.Errorf("%w: %s challenge has no salt or secret", portal.ErrNoChallenge, t)
	}
	return chosen, nil
}
