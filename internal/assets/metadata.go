package assets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/storage"
)

// PrivateInput toggles whether an asset is hidden from non-holders.
type PrivateInput struct {
	Asset   string `json:"asset" validate:"required,evmaddress"`
	Private bool   `json:"private"`
}

// ValueInput sets the value of one unit of an asset.
type ValueInput struct {
	Asset    string          `json:"asset" validate:"required,evmaddress"`
	Value    decimal.Decimal `json:"value" validate:"dnonneg"`
	Currency domain.Currency `json:"currency,omitempty" validate:"omitempty,currency"`
}

// BaseCurrency returns the currency asset values are stored in.
func (s *Service) BaseCurrency(ctx context.Context) (domain.Currency, error) {
	if s.settings == nil {
		return domain.DefaultCurrency, nil
	}
	v, err := s.settings.Get(ctx, storage.SettingBaseCurrency)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.DefaultCurrency, nil
	}
	if err != nil {
		return "", fmt.Errorf("load base currency: %w", err)
	}
	c := domain.Currency(v)
	if !c.IsValid() {
		return domain.DefaultCurrency, nil
	}
	return c, nil
}

// SetBaseCurrency changes the base currency. Admins only. Stored values are
// not converted.
func (s *Service) SetBaseCurrency(ctx context.Context, user *domain.User, c domain.Currency) error {
	if !user.IsAdmin() {
		return ErrForbidden
	}
	if !c.IsValid() {
		return fmt.Errorf("unsupported currency %q", c)
	}
	if s.settings == nil {
		return errors.New("settings store not configured")
	}
	if err := s.settings.Set(ctx, storage.SettingBaseCurrency, string(c)); err != nil {
		return fmt.Errorf("store base currency: %w", err)
	}
	s.invalidate(ctx, "")
	return nil
}

// baseValue converts value from currency into the base currency.
func (s *Service) baseValue(ctx context.Context, value decimal.Decimal, from domain.Currency) (decimal.Decimal, error) {
	base, err := s.BaseCurrency(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if from == "" || from == base {
		return value, nil
	}
	if s.converter == nil {
		return decimal.Zero, fmt.Errorf("no exchange rates to convert %s to %s", from, base)
	}
	return s.converter.Convert(ctx, value, from, base)
}

// editable loads the metadata of an asset the user may edit: admins and
// the asset creator.
func (s *Service) editable(ctx context.Context, user *domain.User, addr string) (*domain.AssetMetadata, error) {
	a, err := s.chainAsset(ctx, addr)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() && !strings.EqualFold(a.Creator, user.Wallet) {
		return nil, ErrForbidden
	}
	m, err := s.metadata.AssetMetadata(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	if m == nil {
		m = &domain.AssetMetadata{}
	}
	m.ID = strings.ToLower(a.ID)
	return m, nil
}

// SetPrivate updates the privacy flag. No chain transaction is sent.
func (s *Service) SetPrivate(ctx context.Context, user *domain.User, in PrivateInput) (*domain.AssetMetadata, error) {
	m, err := s.editable(ctx, user, in.Asset)
	if err != nil {
		return nil, err
	}
	m.Private = in.Private
	if err := s.metadata.UpsertAssetMetadata(ctx, *m); err != nil {
		return nil, fmt.Errorf("store metadata: %w", err)
	}
	s.invalidate(ctx, in.Asset)
	return m, nil
}

// SetValue stores the unit value of an asset converted into the base currency.
func (s *Service) SetValue(ctx context.Context, user *domain.User, in ValueInput) (*domain.AssetMetadata, error) {
	m, err := s.editable(ctx, user, in.Asset)
	if err != nil {
		return nil, err
	}
	v, err := s.baseValue(ctx, in.Value, in.Currency)
	if err != nil {
		return nil, err
	}
	m.ValueInBaseCurrency = &v
	if err := s.metadata.UpsertAssetMetadata(ctx, *m); err != nil {
		return nil, fmt.Errorf("store metadata: %w", err)
	}
	s.invalidate(ctx, in.Asset)
	return m, nil
}
