package assets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/portal"
	"asset-tokenization-kit/internal/validate"
)

// AirdropInput deploys an airdrop distributing an asset.
type AirdropInput struct {
	Asset      string                    `json:"asset" validate:"required,evmaddress"`
	Type       domain.AirdropType        `json:"type" validate:"required,oneof=standard vesting push"`
	Recipients []domain.AirdropRecipient `json:"recipients" validate:"required,min=1,dive"`
	Owner      string                    `json:"owner,omitempty" validate:"omitempty,evmaddress"`

	// Standard and vesting
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`

	// Vesting
	VestingSeconds int64 `json:"vestingSeconds" validate:"min=0"`
	CliffSeconds   int64 `json:"cliffSeconds" validate:"min=0"`

	// Push; zero means the sum of all allocations.
	DistributionCap decimal.Decimal `json:"distributionCap" validate:"dnonneg"`

	Verification domain.VerificationInput `json:"verification"`
}

// AirdropResult is a deployed airdrop with the proofs recipients claim with.
type AirdropResult struct {
	MutationResult
	MerkleRoot string              `json:"merkleRoot"`
	Proofs     map[string][]string `json:"proofs"` // account -> proof
}

var airdropMethods = map[domain.AirdropType]string{
	domain.AirdropStandard: methodDeployStandardAirdrop,
	domain.AirdropVesting:  methodDeployVestingAirdrop,
	domain.AirdropPush:     methodDeployPushAirdrop,
}

// CreateAirdrop builds the merkle tree of allocations and deploys the
// airdrop through the AirdropFactory.
func (s *Service) CreateAirdrop(ctx context.Context, user *domain.User, in AirdropInput) (*AirdropResult, error) {
	if s.factories.Airdrop == "" {
		return nil, fmt.Errorf("%w: airdrop", ErrFactoryNotConfigured)
	}
	method, ok := airdropMethods[in.Type]
	if !ok {
		return nil, fmt.Errorf("unknown airdrop type %q", in.Type)
	}
	a, err := s.chainAsset(ctx, in.Asset)
	if err != nil {
		return nil, err
	}

	leaves := make([]MerkleLeaf, len(in.Recipients))
	total := decimal.Zero
	for i, r := range in.Recipients {
		n, err := validate.ScaleAmount(r.Amount, a.Decimals)
		if err != nil {
			return nil, fmt.Errorf("recipient %s: %w", r.Account, err)
		}
		leaves[i] = MerkleLeaf{Index: uint64(i), Account: common.HexToAddress(r.Account), Amount: n}
		total = total.Add(r.Amount)
	}
	tree, err := NewMerkleTree(leaves)
	if err != nil {
		return nil, err
	}

	owner := in.Owner
	if owner == "" {
		owner = user.Wallet
	}
	input := map[string]any{
		"token":      a.ID,
		"merkleRoot": tree.Root().Hex(),
		"owner":      address(owner),
	}

	switch in.Type {
	case domain.AirdropStandard, domain.AirdropVesting:
		if !in.EndTime.After(in.StartTime) {
			return nil, validate.ErrScheduleWindow
		}
		input["startTime"] = fmt.Sprint(in.StartTime.Unix())
		input["endTime"] = fmt.Sprint(in.EndTime.Unix())
		if in.Type == domain.AirdropVesting {
			if in.VestingSeconds <= 0 || in.CliffSeconds > in.VestingSeconds {
				return nil, fmt.Errorf("vesting duration must be positive and not shorter than the cliff")
			}
			input["vestingDuration"] = fmt.Sprint(in.VestingSeconds)
			input["cliffDuration"] = fmt.Sprint(in.CliffSeconds)
		}
	case domain.AirdropPush:
		limit := in.DistributionCap
		if limit.IsZero() {
			limit = total
		}
		if limit.LessThan(total) {
			return nil, fmt.Errorf("distribution cap %s is below the allocated %s", limit, total)
		}
		capUnits, err := units(limit, a.Decimals)
		if err != nil {
			return nil, err
		}
		input["distributionCap"] = capUnits
	}

	res, err := s.execute(ctx, user, in.Verification, mutation{
		name:  "create_airdrop",
		asset: a.ID,
		wait:  true,
		calls: []portal.Call{{
			Contract: contractAirdropFactory,
			Method:   method,
			Address:  s.factories.Airdrop,
			Input:    input,
		}},
	})
	if err != nil {
		return nil, err
	}

	out := &AirdropResult{
		MutationResult: *res,
		MerkleRoot:     tree.Root().Hex(),
		Proofs:         make(map[string][]string, len(leaves)),
	}
	for _, l := range leaves {
		proof, _ := tree.Proof(l)
		hexes := make([]string, len(proof))
		for i, p := range proof {
			hexes[i] = p.Hex()
		}
		out.Proofs[strings.ToLower(l.Account.Hex())] = hexes
	}
	return out, nil
}
