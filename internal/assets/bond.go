package assets

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/portal"
	"asset-tokenization-kit/internal/validate"
)

// RedeemInput redeems matured bonds for the underlying asset.
type RedeemInput struct {
	Asset        string                   `json:"asset" validate:"required,evmaddress"`
	Amount       decimal.Decimal          `json:"amount" validate:"dpositive"`
	Verification domain.VerificationInput `json:"verification"`
}

// UnderlyingInput moves underlying asset into or out of a bond.
type UnderlyingInput struct {
	Asset        string                   `json:"asset" validate:"required,evmaddress"`
	Amount       decimal.Decimal          `json:"amount" validate:"dpositive"`
	To           string                   `json:"to,omitempty" validate:"omitempty,evmaddress"` // withdrawals only
	Verification domain.VerificationInput `json:"verification"`
}

// YieldScheduleInput attaches a fixed-rate yield schedule to a bond.
type YieldScheduleInput struct {
	Asset           string                   `json:"asset" validate:"required,evmaddress"`
	StartTime       time.Time                `json:"startTime" validate:"required"`
	EndTime         time.Time                `json:"endTime" validate:"required,gtfield=StartTime"`
	RateBps         int                      `json:"rateBps" validate:"min=1,max=10000"`
	IntervalSeconds int64                    `json:"intervalSeconds" validate:"min=1"`
	Verification    domain.VerificationInput `json:"verification"`
}

func (s *Service) bond(ctx context.Context, address string) (*domain.Asset, error) {
	a, err := s.chainAsset(ctx, address)
	if err != nil {
		return nil, err
	}
	if err := requireType(a, isBond); err != nil {
		return nil, err
	}
	if a.Bond == nil {
		return nil, fmt.Errorf("asset %s has no bond details", a.ID)
	}
	return a, nil
}

// underlyingDecimals returns the precision of the bond's redemption token.
func (s *Service) underlyingDecimals(ctx context.Context, b *domain.BondDetails) (int, error) {
	u, err := s.chainAsset(ctx, b.UnderlyingAsset)
	if err != nil {
		return 0, fmt.Errorf("underlying asset: %w", err)
	}
	return u.Decimals, nil
}

// Mature marks a bond matured once it is past maturity and the underlying
// balance covers face value times supply.
func (s *Service) Mature(ctx context.Context, user *domain.User, in AssetInput) (*MutationResult, error) {
	a, err := s.bond(ctx, in.Asset)
	if err != nil {
		return nil, err
	}
	if err := validate.BondMaturity(a.Bond, s.now()); err != nil {
		return nil, err
	}
	if need := a.Bond.RequiredUnderlying(a.TotalSupply); a.Bond.UnderlyingTotal.LessThan(need) {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientUnderlying, a.Bond.UnderlyingTotal, need)
	}
	return s.execute(ctx, user, in.Verification, mutation{
		name:  "mature",
		asset: a.ID,
		calls: []portal.Call{s.tokenCall(a, methodMature, nil)},
	})
}

// Redeem burns the caller's matured bonds for underlying asset.
func (s *Service) Redeem(ctx context.Context, user *domain.User, in RedeemInput) (*MutationResult, error) {
	a, err := s.bond(ctx, in.Asset)
	if err != nil {
		return nil, err
	}
	if !a.Bond.IsMatured {
		return nil, ErrNotMatured
	}
	amount, err := units(in.Amount, a.Decimals)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, user, in.Verification, mutation{
		name:  "redeem",
		asset: a.ID,
		calls: []portal.Call{s.tokenCall(a, methodRedeem, map[string]any{"amount": amount})},
	})
}

// TopUpUnderlying approves the bond to pull underlying asset from the caller
// and then deposits it. Both transactions are submitted in order.
func (s *Service) TopUpUnderlying(ctx context.Context, user *domain.User, in UnderlyingInput) (*MutationResult, error) {
	a, err := s.bond(ctx, in.Asset)
	if err != nil {
		return nil, err
	}
	decimals, err := s.underlyingDecimals(ctx, a.Bond)
	if err != nil {
		return nil, err
	}
	amount, err := units(in.Amount, decimals)
	if err != nil {
		return nil, err
	}
	approve := portal.Call{
		Contract: contractERC20,
		Method:   methodApprove,
		Address:  a.Bond.UnderlyingAsset,
		Input:    map[string]any{"spender": a.ID, "value": amount},
	}
	return s.execute(ctx, user, in.Verification, mutation{
		name:  "top_up_underlying",
		asset: a.ID,
		calls: []portal.Call{approve, s.tokenCall(a, methodTopUpUnderlying, map[string]any{"amount": amount})},
	})
}

// WithdrawUnderlying moves excess underlying asset out of a bond.
func (s *Service) WithdrawUnderlying(ctx context.Context, user *domain.User, in UnderlyingInput) (*MutationResult, error) {
	a, err := s.bond(ctx, in.Asset)
	if err != nil {
		return nil, err
	}
	decimals, err := s.underlyingDecimals(ctx, a.Bond)
	if err != nil {
		return nil, err
	}
	amount, err := units(in.Amount, decimals)
	if err != nil {
		return nil, err
	}
	to := in.To
	if to == "" {
		to = user.Wallet
	}
	return s.execute(ctx, user, in.Verification, mutation{
		name:  "withdraw_underlying",
		asset: a.ID,
		calls: []portal.Call{s.tokenCall(a, methodWithdrawUnderlying, map[string]any{"to": address(to), "amount": amount})},
	})
}

// SetYieldSchedule deploys a fixed-yield schedule for a bond through the
// FixedYieldFactory and returns the schedule address.
func (s *Service) SetYieldSchedule(ctx context.Context, user *domain.User, in YieldScheduleInput) (*MutationResult, error) {
	if s.factories.FixedYield == "" {
		return nil, fmt.Errorf("%w: fixed yield", ErrFactoryNotConfigured)
	}
	a, err := s.bond(ctx, in.Asset)
	if err != nil {
		return nil, err
	}
	if a.Bond.YieldSchedule != nil {
		return nil, fmt.Errorf("%w: bond already has a yield schedule", ErrUnsupportedOperation)
	}
	interval := time.Duration(in.IntervalSeconds) * time.Second
	if err := validate.YieldSchedule(in.StartTime, in.EndTime, interval, in.RateBps); err != nil {
		return nil, err
	}
	res, err := s.execute(ctx, user, in.Verification, mutation{
		name:  "set_yield_schedule",
		asset: a.ID,
		wait:  true,
		calls: []portal.Call{{
			Contract: contractFixedYieldFact,
			Method:   methodCreate,
			Address:  s.factories.FixedYield,
			Input: map[string]any{
				"token":     a.ID,
				"startTime": fmt.Sprint(in.StartTime.Unix()),
				"endTime":   fmt.Sprint(in.EndTime.Unix()),
				"rate":      fmt.Sprint(in.RateBps),
				"interval":  fmt.Sprint(in.IntervalSeconds),
			},
		}},
	})
	if err != nil {
		return nil, err
	}
	if res.Address == "" && s.watcher != nil {
		return nil, ErrNoContractAddress
	}
	return res, nil
}

// ClaimYield claims the caller's accrued yield from the bond's schedule.
func (s *Service) ClaimYield(ctx context.Context, user *domain.User, in AssetInput) (*MutationResult, error) {
	a, err := s.bond(ctx, in.Asset)
	if err != nil {
		return nil, err
	}
	if a.Bond.YieldSchedule == nil || a.Bond.YieldSchedule.Address == "" {
		return nil, ErrNoYieldSchedule
	}
	return s.execute(ctx, user, in.Verification, mutation{
		name:  "claim_yield",
		asset: a.ID,
		calls: []portal.Call{{
			Contract: contractFixedYield,
			Method:   methodClaimYield,
			Address:  a.Bond.YieldSchedule.Address,
		}},
	})
}
