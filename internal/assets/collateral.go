package assets

import (
	"context"

	"github.com/shopspring/decimal"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/portal"
)

// CollateralInput proves the collateral backing a stablecoin or deposit.
type CollateralInput struct {
	Asset        string                   `json:"asset" validate:"required,evmaddress"`
	Amount       decimal.Decimal          `json:"amount" validate:"dnonneg"`
	Verification domain.VerificationInput `json:"verification"`
}

// UpdateCollateral records a new collateral amount. Minting on chain is
// capped by the latest proven collateral.
func (s *Service) UpdateCollateral(ctx context.Context, user *domain.User, in CollateralInput) (*MutationResult, error) {
	a, err := s.chainAsset(ctx, in.Asset)
	if err != nil {
		return nil, err
	}
	if err := requireType(a, domain.AssetType.Collateralized); err != nil {
		return nil, err
	}
	amount := "0"
	if !in.Amount.IsZero() {
		if amount, err = units(in.Amount, a.Decimals); err != nil {
			return nil, err
		}
	}
	return s.execute(ctx, user, in.Verification, mutation{
		name:  "update_collateral",
		asset: a.ID,
		calls: []portal.Call{s.tokenCall(a, methodUpdateCollateral, map[string]any{"amount": amount})},
	})
}
