package assets

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/portal"
	"asset-tokenization-kit/internal/validate"
)

// MintInput mints new tokens to an account.
type MintInput struct {
	Asset        string                   `json:"asset" validate:"required,evmaddress"`
	To           string                   `json:"to" validate:"required,evmaddress"`
	Amount       decimal.Decimal          `json:"amount" validate:"dpositive"`
	Verification domain.VerificationInput `json:"verification"`
}

// BurnInput burns tokens held by the caller.
type BurnInput struct {
	Asset        string                   `json:"asset" validate:"required,evmaddress"`
	Amount       decimal.Decimal          `json:"amount" validate:"dpositive"`
	Verification domain.VerificationInput `json:"verification"`
}

// TransferInput transfers tokens from the caller.
type TransferInput struct {
	Asset        string                   `json:"asset" validate:"required,evmaddress"`
	To           string                   `json:"to" validate:"required,evmaddress"`
	Amount       decimal.Decimal          `json:"amount" validate:"dpositive"`
	Verification domain.VerificationInput `json:"verification"`
}

// AssetInput targets an asset with no other parameters.
type AssetInput struct {
	Asset        string                   `json:"asset" validate:"required,evmaddress"`
	Verification domain.VerificationInput `json:"verification"`
}

// AccountInput targets one account of an asset.
type AccountInput struct {
	Asset        string                   `json:"asset" validate:"required,evmaddress"`
	Account      string                   `json:"account" validate:"required,evmaddress"`
	Verification domain.VerificationInput `json:"verification"`
}

// FreezeInput freezes part of an account's balance.
type FreezeInput struct {
	Asset        string                   `json:"asset" validate:"required,evmaddress"`
	Account      string                   `json:"account" validate:"required,evmaddress"`
	Amount       decimal.Decimal          `json:"amount" validate:"dnonneg"`
	Verification domain.VerificationInput `json:"verification"`
}

// RolesInput grants or revokes roles for an account.
type RolesInput struct {
	Asset        string                   `json:"asset" validate:"required,evmaddress"`
	Account      string                   `json:"account" validate:"required,evmaddress"`
	Roles        []domain.Role            `json:"roles" validate:"required,min=1,dive,role"`
	Verification domain.VerificationInput `json:"verification"`
}

// WithdrawTokenInput recovers ERC20 tokens sent to an asset contract.
type WithdrawTokenInput struct {
	Asset        string                   `json:"asset" validate:"required,evmaddress"`
	Token        string                   `json:"token" validate:"required,evmaddress"`
	To           string                   `json:"to" validate:"required,evmaddress"`
	Amount       decimal.Decimal          `json:"amount" validate:"dpositive"`
	Verification domain.VerificationInput `json:"verification"`
}

func address(s string) string {
	return common.HexToAddress(s).Hex()
}

// units scales a human amount by the token's decimals for the chain.
func units(amount decimal.Decimal, decimals int) (string, error) {
	n, err := validate.ScaleAmount(amount, decimals)
	if err != nil {
		return "", err
	}
	return n.String(), nil
}

func (s *Service) tokenCall(a *domain.Asset, method string, input map[string]any) portal.Call {
	return portal.Call{
		Contract: contractFor(a.Type),
		Method:   method,
		Address:  a.ID,
		Input:    input,
	}
}

// Mint mints tokens to an account.
func (s *Service) Mint(ctx context.Context, user *domain.User, in MintInput) (*MutationResult, error) {
	a, err := s.chainAsset(ctx, in.Asset)
	if err != nil {
		return nil, err
	}
	amount, err := units(in.Amount, a.Decimals)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, user, in.Verification, mutation{
		name:  "mint",
		asset: a.ID,
		calls: []portal.Call{s.tokenCall(a, methodMint, map[string]any{"to": address(in.To), "amount": amount})},
	})
}

// Burn burns tokens from the caller's balance.
func (s *Service) Burn(ctx context.Context, user *domain.User, in BurnInput) (*MutationResult, error) {
	a, err := s.chainAsset(ctx, in.Asset)
	if err != nil {
		return nil, err
	}
	amount, err := units(in.Amount, a.Decimals)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, user, in.Verification, mutation{
		name:  "burn",
		asset: a.ID,
		calls: []portal.Call{s.tokenCall(a, methodBurn, map[string]any{"value": amount})},
	})
}

// Transfer moves tokens from the caller to an account.
func (s *Service) Transfer(ctx context.Context, user *domain.User, in TransferInput) (*MutationResult, error) {
	a, err := s.chainAsset(ctx, in.Asset)
	if err != nil {
		return nil, err
	}
	amount, err := units(in.Amount, a.Decimals)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, user, in.Verification, mutation{
		name:  "transfer",
		asset: a.ID,
		calls: []portal.Call{s.tokenCall(a, methodTransfer, map[string]any{"to": address(in.To), "value": amount})},
	})
}

// Pause stops all transfers of an asset.
func (s *Service) Pause(ctx context.Context, user *domain.User, in AssetInput) (*MutationResult, error) {
	a, err := s.chainAsset(ctx, in.Asset)
	if err != nil {
		return nil, err
	}
	if err := requireType(a, domain.AssetType.Pausable); err != nil {
		return nil, err
	}
	if a.Paused {
		return nil, ErrAlreadyPaused
	}
	return s.execute(ctx, user, in.Verification, mutation{
		name:  "pause",
		asset: a.ID,
		calls: []portal.Call{s.tokenCall(a, methodPause, nil)},
	})
}

// Unpause resumes transfers of a paused asset.
func (s *Service) Unpause(ctx context.Context, user *domain.User, in AssetInput) (*MutationResult, error) {
	a, err := s.chainAsset(ctx, in.Asset)
	if err != nil {
		return nil, err
	}
	if err := requireType(a, domain.AssetType.Pausable); err != nil {
		return nil, err
	}
	if !a.Paused {
		return nil, ErrNotPaused
	}
	return s.execute(ctx, user, in.Verification, mutation{
		name:  "unpause",
		asset: a.ID,
		calls: []portal.Call{s.tokenCall(a, methodUnpause, nil)},
	})
}

// BlockUser adds an account to the asset's blocklist.
func (s *Service) BlockUser(ctx context.Context, user *domain.User, in AccountInput) (*MutationResult, error) {
	return s.blocklist(ctx, user, in, "block_user", methodBlockUser)
}

// UnblockUser removes an account from the asset's blocklist.
func (s *Service) UnblockUser(ctx context.Context, user *domain.User, in AccountInput) (*MutationResult, error) {
	return s.blocklist(ctx, user, in, "unblock_user", methodUnblockUser)
}

func (s *Service) blocklist(ctx context.Context, user *domain.User, in AccountInput, name, method string) (*MutationResult, error) {
	a, err := s.chainAsset(ctx, in.Asset)
	if err != nil {
		return nil, err
	}
	if err := requireType(a, domain.AssetType.Blocklist); err != nil {
		return nil, err
	}
	return s.execute(ctx, user, in.Verification, mutation{
		name:  name,
		asset: a.ID,
		calls: []portal.Call{s.tokenCall(a, method, map[string]any{"user": address(in.Account)})},
	})
}

// Freeze sets the frozen part of an account's balance. Zero unfreezes.
func (s *Service) Freeze(ctx context.Context, user *domain.User, in FreezeInput) (*MutationResult, error) {
	a, err := s.chainAsset(ctx, in.Asset)
	if err != nil {
		return nil, err
	}
	amount := "0"
	if !in.Amount.IsZero() {
		if amount, err = units(in.Amount, a.Decimals); err != nil {
			return nil, err
		}
	}
	return s.execute(ctx, user, in.Verification, mutation{
		name:  "freeze",
		asset: a.ID,
		calls: []portal.Call{s.tokenCall(a, methodFreeze, map[string]any{"user": address(in.Account), "amount": amount})},
	})
}

// GrantRole grants each role to an account, one transaction per role.
func (s *Service) GrantRole(ctx context.Context, user *domain.User, in RolesInput) (*MutationResult, error) {
	return s.roles(ctx, user, in, "grant_role", methodGrantRole)
}

// RevokeRole revokes each role from an account, one transaction per role.
func (s *Service) RevokeRole(ctx context.Context, user *domain.User, in RolesInput) (*MutationResult, error) {
	return s.roles(ctx, user, in, "revoke_role", methodRevokeRole)
}

func (s *Service) roles(ctx context.Context, user *domain.User, in RolesInput, name, method string) (*MutationResult, error) {
	a, err := s.chainAsset(ctx, in.Asset)
	if err != nil {
		return nil, err
	}
	calls := make([]portal.Call, 0, len(in.Roles))
	for _, r := range in.Roles {
		if !r.IsValid() {
			return nil, fmt.Errorf("unknown role %q", r)
		}
		calls = append(calls, s.tokenCall(a, method, map[string]any{
			"role":    r.ID().Hex(),
			"account": address(in.Account),
		}))
	}
	return s.execute(ctx, user, in.Verification, mutation{name: name, asset: a.ID, calls: calls})
}

// WithdrawToken recovers an ERC20 balance held by the asset contract.
func (s *Service) WithdrawToken(ctx context.Context, user *domain.User, in WithdrawTokenInput) (*MutationResult, error) {
	a, err := s.chainAsset(ctx, in.Asset)
	if err != nil {
		return nil, err
	}
	decimals := validate.MaxDecimals
	if tok, err := s.indexer.GetAsset(ctx, in.Token); err == nil && tok != nil {
		decimals = tok.Decimals
	}
	amount, err := units(in.Amount, decimals)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, user, in.Verification, mutation{
		name:  "withdraw_token",
		asset: a.ID,
		calls: []portal.Call{s.tokenCall(a, methodWithdrawToken, map[string]any{
			"token":  address(in.Token),
			"to":     address(in.To),
			"amount": amount,
		})},
	})
}
