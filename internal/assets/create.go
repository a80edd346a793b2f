package assets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/portal"
	"asset-tokenization-kit/internal/validate"
)

// CreateInput deploys a new asset through its type's factory.
type CreateInput struct {
	Type     domain.AssetType `json:"type" validate:"required,assettype"`
	Name     string           `json:"name" validate:"required,max=128"`
	Symbol   string           `json:"symbol" validate:"required,symbol"`
	Decimals int              `json:"decimals" validate:"min=0,max=18"`
	ISIN     string           `json:"isin,omitempty" validate:"omitempty,isin"`
	Private  bool             `json:"private"`

	// Value of one unit in Currency, stored converted into the base currency.
	Value    *decimal.Decimal `json:"value,omitempty"`
	Currency domain.Currency  `json:"currency,omitempty" validate:"omitempty,currency"`

	// Bond
	FaceValue       decimal.Decimal `json:"faceValue"`
	MaturityDate    time.Time       `json:"maturityDate"`
	UnderlyingAsset string          `json:"underlyingAsset,omitempty" validate:"omitempty,evmaddress"`
	Cap             decimal.Decimal `json:"cap"`

	// Equity and fund
	Class            string `json:"class,omitempty" validate:"max=64"`
	Category         string `json:"category,omitempty" validate:"max=64"`
	ManagementFeeBps int    `json:"managementFeeBps" validate:"min=0,max=10000"`

	// Stablecoin and deposit
	CollateralLivenessSeconds int64 `json:"collateralLivenessSeconds" validate:"min=0"`

	Verification domain.VerificationInput `json:"verification"`
}

// Create deploys an asset and stores its off-chain metadata under the
// deployed address. It always waits for the deployment receipt.
func (s *Service) Create(ctx context.Context, user *domain.User, in CreateInput) (*MutationResult, error) {
	factory := s.factories.Assets[in.Type]
	if factory == "" {
		return nil, fmt.Errorf("%w: %s", ErrFactoryNotConfigured, in.Type)
	}
	if s.watcher == nil {
		return nil, fmt.Errorf("create %s: receipt watcher not configured", in.Type)
	}
	if err := validate.Decimals(in.Decimals); err != nil {
		return nil, err
	}

	input := map[string]any{
		"name":     in.Name,
		"symbol":   in.Symbol,
		"decimals": in.Decimals,
	}
	if in.ISIN != "" {
		input["isin"] = in.ISIN
	}

	switch in.Type {
	case domain.AssetTypeBond:
		bond, err := s.bondInput(ctx, in)
		if err != nil {
			return nil, err
		}
		for k, v := range bond {
			input[k] = v
		}
	case domain.AssetTypeEquity:
		input["equityClass"] = in.Class
		input["equityCategory"] = in.Category
	case domain.AssetTypeFund:
		input["fundClass"] = in.Class
		input["fundCategory"] = in.Category
		input["managementFeeBps"] = in.ManagementFeeBps
	case domain.AssetTypeStablecoin, domain.AssetTypeDeposit:
		input["collateralLivenessSeconds"] = fmt.Sprint(in.CollateralLivenessSeconds)
	}

	meta := domain.AssetMetadata{Private: in.Private, ISIN: in.ISIN}
	if in.Value != nil {
		v, err := s.baseValue(ctx, *in.Value, in.Currency)
		if err != nil {
			return nil, err
		}
		meta.ValueInBaseCurrency = &v
	}

	res, err := s.execute(ctx, user, in.Verification, mutation{
		name: "create_" + string(in.Type),
		wait: true,
		calls: []portal.Call{{
			Contract: factoryFor(in.Type),
			Method:   methodCreate,
			Address:  factory,
			Input:    input,
		}},
	})
	if err != nil {
		return nil, err
	}
	if res.Address == "" {
		return nil, ErrNoContractAddress
	}

	meta.ID = strings.ToLower(res.Address)
	if err := s.metadata.UpsertAssetMetadata(ctx, meta); err != nil {
		return res, fmt.Errorf("store metadata for %s: %w", res.Address, err)
	}
	s.invalidate(ctx, res.Address)
	return res, nil
}

func (s *Service) bondInput(ctx context.Context, in CreateInput) (map[string]any, error) {
	if err := validate.BondCreation(in.MaturityDate, s.now()); err != nil {
		return nil, err
	}
	if in.UnderlyingAsset == "" {
		return nil, fmt.Errorf("bond requires an underlying asset")
	}
	underlying, err := s.chainAsset(ctx, in.UnderlyingAsset)
	if err != nil {
		return nil, fmt.Errorf("underlying asset: %w", err)
	}
	faceValue, err := units(in.FaceValue, underlying.Decimals)
	if err != nil {
		return nil, fmt.Errorf("face value: %w", err)
	}
	bondCap, err := units(in.Cap, in.Decimals)
	if err != nil {
		return nil, fmt.Errorf("cap: %w", err)
	}
	return map[string]any{
		"cap":             bondCap,
		"faceValue":       faceValue,
		"maturityDate":    fmt.Sprint(in.MaturityDate.Unix()),
		"underlyingAsset": address(in.UnderlyingAsset),
	}, nil
}
