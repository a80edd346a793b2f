// Package stub provides an in-memory Portal for tests and local runs.
package stub

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"

	"asset-tokenization-kit/internal/challenge"
	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/portal"
)

// DefaultOTPCode is the code every stub OTP verification accepts.
const DefaultOTPCode = "111111"

// DefaultSecretCodeCount is how many recovery codes are generated.
const DefaultSecretCodeCount = 12

type verification struct {
	portal.WalletVerification
	wallet      string
	pincode     string
	secretCodes map[string]bool // code -> used
}

// Portal implements portal.Portal in memory. It checks challenge responses
// the way the real service does, so callers exercise the full proof path.
type Portal struct {
	mu sync.Mutex

	// PendingPolls is how many GetTransaction calls return nil per hash
	// before the receipt becomes visible.
	PendingPolls int
	// Reverts maps a mutation name to the revert reason its receipts carry.
	Reverts map[string]string
	// SubmitErr, when set, is returned by every Submit.
	SubmitErr error
	// OTPCode is accepted by OTP verifications.
	OTPCode string

	wallets       map[string]string // address -> name
	verifications map[string]*verification
	challenges    map[string]*portal.VerificationChallenge
	receipts      map[string]*domain.Receipt
	polls         map[string]int
	calls         []portal.Call
	seq           uint64
}

// NewPortal creates an empty stub Portal.
func NewPortal() *Portal {
	return &Portal{
		Reverts:       make(map[string]string),
		OTPCode:       DefaultOTPCode,
		wallets:       make(map[string]string),
		verifications: make(map[string]*verification),
		challenges:    make(map[string]*portal.VerificationChallenge),
		receipts:      make(map[string]*domain.Receipt),
		polls:         make(map[string]int),
	}
}

func (p *Portal) next(prefix string) []byte {
	p.seq++
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", prefix, p.seq)))
	return sum[:]
}

func randomToken(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("read random: %v", err))
	}
	return base58.Encode(buf)
}

// CreateWallet creates a wallet with a deterministic address.
func (p *Portal) CreateWallet(_ context.Context, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	addr := common.BytesToAddress(p.next("wallet:" + name)[:20]).Hex()
	p.wallets[addr] = name
	return addr, nil
}

// CreateWalletVerification registers a verification.
func (p *Portal) CreateWalletVerification(_ context.Context, wallet string, spec portal.VerificationSpec) (*portal.WalletVerification, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.wallets[wallet]; !ok {
		return nil, fmt.Errorf("create wallet verification: unknown wallet %s", wallet)
	}

	id := common.BytesToHash(p.next("verification")).Hex()[2:18]
	v := &verification{
		WalletVerification: portal.WalletVerification{
			ID:         id,
			Name:       spec.Name,
			Type:       spec.Type,
			Parameters: map[string]string{},
		},
		wallet: wallet,
	}

	switch spec.Type {
	case domain.VerificationPincode:
		if len(spec.Pincode) != 6 {
			return nil, fmt.Errorf("create wallet verification: pincode must be 6 digits")
		}
		v.pincode = spec.Pincode
	case domain.VerificationOTP:
		v.Parameters["uri"] = fmt.Sprintf("otpauth://totp/%s:%s?secret=%s&issuer=%s&algorithm=SHA256&digits=6&period=30",
			spec.Issuer, wallet, strings.ToUpper(randomToken(10)), spec.Issuer)
	case domain.VerificationSecretCodes:
		v.secretCodes = make(map[string]bool)
		codes := make([]string, 0, DefaultSecretCodeCount)
		for len(codes) < DefaultSecretCodeCount {
			code := challenge.NormalizeSecretCode(strings.ToUpper(randomToken(8))[:8])
			if _, dup := v.secretCodes[code]; dup {
				continue
			}
			v.secretCodes[code] = false
			codes = append(codes, code)
		}
		v.Parameters["secretCodes"] = strings.Join(codes, ",")
	default:
		return nil, fmt.Errorf("create wallet verification: unknown type %q", spec.Type)
	}

	p.verifications[id] = v
	out := v.WalletVerification
	return &out, nil
}

// DeleteWalletVerification removes a verification.
func (p *Portal) DeleteWalletVerification(_ context.Context, wallet, verificationID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, ok := p.verifications[verificationID]
	if !ok || v.wallet != wallet {
		return fmt.Errorf("delete wallet verification %s: not found", verificationID)
	}
	delete(p.verifications, verificationID)
	for id, ch := range p.challenges {
		if ch.VerificationID == verificationID {
			delete(p.challenges, id)
		}
	}
	return nil
}

// CreateVerificationChallenges issues a challenge per verification on wallet.
// Only pincode challenges carry a salt and secret.
func (p *Portal) CreateVerificationChallenges(_ context.Context, wallet string) ([]portal.VerificationChallenge, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []portal.VerificationChallenge
	for _, v := range p.verifications {
		if v.wallet != wallet {
			continue
		}
		ch := portal.VerificationChallenge{
			ID:               common.BytesToHash(p.next("challenge")).Hex()[2:18],
			Name:             v.Name,
			VerificationID:   v.ID,
			VerificationType: v.Type,
		}
		if v.Type == domain.VerificationPincode {
			ch.Salt = randomToken(16)
			ch.Secret = randomToken(16)
			stored := ch
			p.challenges[ch.ID] = &stored
		}
		out = append(out, ch)
	}
	return out, nil
}

// VerifyWalletVerificationChallenge checks a response without a challenge id.
func (p *Portal) VerifyWalletVerificationChallenge(_ context.Context, wallet, verificationID, response string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.check(wallet, domain.ChallengeResponse{VerificationID: verificationID, ChallengeResponse: response})
	return err == nil, nil
}

// check validates proof against the stored verification. Caller holds mu.
func (p *Portal) check(wallet string, proof domain.ChallengeResponse) error {
	v, ok := p.verifications[proof.VerificationID]
	if !ok || v.wallet != wallet {
		return fmt.Errorf("%w: unknown verification", portal.ErrInvalidChallengeResponse)
	}

	switch v.Type {
	case domain.VerificationPincode:
		for id, ch := range p.challenges {
			if ch.VerificationID != v.ID {
				continue
			}
			if proof.ChallengeID != "" && proof.ChallengeID != id {
				continue
			}
			if challenge.Response(v.pincode, ch.Salt, ch.Secret) == proof.ChallengeResponse {
				delete(p.challenges, id)
				return nil
			}
		}
	case domain.VerificationOTP:
		if proof.ChallengeResponse == p.OTPCode {
			return nil
		}
	case domain.VerificationSecretCodes:
		if used, ok := v.secretCodes[proof.ChallengeResponse]; ok && !used {
			v.secretCodes[proof.ChallengeResponse] = true
			return nil
		}
	}
	return portal.ErrInvalidChallengeResponse
}

// Submit verifies the proof and records the call.
func (p *Portal) Submit(_ context.Context, call portal.Call) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.SubmitErr != nil {
		return "", p.SubmitErr
	}
	if err := p.check(call.From, call.Verification); err != nil {
		return "", fmt.Errorf("%s: %w", call.Mutation(), err)
	}

	hash := common.BytesToHash(p.next("tx:" + call.Mutation())).Hex()
	receipt := &domain.Receipt{
		TransactionHash: hash,
		Status:          "Success",
		BlockNumber:     int64(p.seq),
		GasUsed:         "21000",
	}
	if reason, ok := p.Reverts[call.Mutation()]; ok {
		receipt.Status = "Reverted"
		receipt.RevertReason = reason
	}
	if strings.HasSuffix(call.Contract, "Factory") {
		receipt.ContractAddress = common.BytesToAddress(p.next("contract")[:20]).Hex()
	}

	p.receipts[hash] = receipt
	p.calls = append(p.calls, call)
	return hash, nil
}

// GetTransaction returns the receipt after PendingPolls misses.
func (p *Portal) GetTransaction(_ context.Context, hash string) (*domain.Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, ok := p.receipts[hash]
	if !ok {
		return nil, nil
	}
	if p.polls[hash] < p.PendingPolls {
		p.polls[hash]++
		return nil, nil
	}
	out := *r
	return &out, nil
}

// Calls returns the recorded successful submissions.
func (p *Portal) Calls() []portal.Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]portal.Call(nil), p.calls...)
}

// LastCall returns the most recent submission, or nil.
func (p *Portal) LastCall() *portal.Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.calls) == 0 {
		return nil
	}
	c := p.calls[len(p.calls)-1]
	return &c
}

// Pincode returns the pincode stored for a verification.
func (p *Portal) Pincode(verificationID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.verifications[verificationID]; ok {
		return v.pincode
	}
	return ""
}

// HasVerification reports whether verificationID exists.
func (p *Portal) HasVerification(verificationID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.verifications[verificationID]
	return ok
}

var _ portal.Portal = (*Portal)(nil)
