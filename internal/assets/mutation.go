package assets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"asset-tokenization-kit/internal/cache"
	"asset-tokenization-kit/internal/challenge"
	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/logging"
	"asset-tokenization-kit/internal/observability"
	"asset-tokenization-kit/internal/portal"
)

// MutationResult is returned by every chain mutation.
type MutationResult struct {
	TxHashes []string          `json:"txHashes"`
	Receipts []*domain.Receipt `json:"receipts,omitempty"`
	Address  string            `json:"address,omitempty"` // deployed contract, if any
}

// mutation is one or more Portal calls that make up a user action.
type mutation struct {
	name  string // metrics label, e.g. "mint"
	asset string // asset whose cached reads become stale
	calls []portal.Call
	wait  bool
}

// execute resolves a fresh proof for every call, submits it and records the
// transaction. Calls run in order; the first failure stops the rest.
func (s *Service) execute(ctx context.Context, user *domain.User, v domain.VerificationInput, m mutation) (res *MutationResult, err error) {
	ctx, span := tracer.Start(ctx, "Assets.Service."+m.name)
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", user.ID),
		attribute.String("asset", m.asset),
		attribute.String("mutation", m.name),
	)

	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RecordMutation(m.name, status)
	}()

	log := logging.FromContext(ctx, s.log).WithFields(logrus.Fields{"mutation": m.name, "asset": m.asset})
	out := &MutationResult{}

	// Cached reads are stale as soon as anything was submitted.
	defer func() {
		if len(out.TxHashes) > 0 {
			s.invalidate(ctx, m.asset)
		}
	}()

	for _, call := range m.calls {
		proof, err := challenge.Resolve(ctx, s.portal, user, v)
		if err != nil {
			return nil, err
		}
		call.From = user.Wallet
		call.Verification = proof

		hash, err := s.portal.Submit(ctx, call)
		if err != nil {
			return nil, fmt.Errorf("submit %s: %w", call.Mutation(), err)
		}
		out.TxHashes = append(out.TxHashes, hash)
		s.recordTransaction(ctx, log, hash, user.Wallet, m.name, m.asset)
		log.WithField("tx", hash).Info("transaction submitted")
	}

	if !(m.wait || s.wait) || s.watcher == nil {
		return out, nil
	}
	for _, hash := range out.TxHashes {
		receipt, err := s.watcher.Wait(ctx, hash)
		if err != nil {
			return nil, err
		}
		out.Receipts = append(out.Receipts, receipt)
		// Reads cached while the transaction was pending are stale now.
		s.invalidate(ctx, m.asset)
		if !receipt.Succeeded() {
			return nil, fmt.Errorf("%w: %s %s", ErrTransactionReverted, hash, receipt.RevertReason)
		}
		if receipt.ContractAddress != "" {
			out.Address = receipt.ContractAddress
		}
	}
	return out, nil
}

func (s *Service) recordTransaction(ctx context.Context, log *logrus.Entry, hash, from, function, asset string) {
	now := s.now()
	err := s.txs.Insert(ctx, &domain.Transaction{
		Hash:      hash,
		From:      from,
		Function:  function,
		Asset:     strings.ToLower(asset),
		Status:    domain.TxStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		log.WithError(err).WithField("tx", hash).Warn("record transaction")
	}
}

func (s *Service) invalidate(ctx context.Context, asset string) {
	if s.cache == nil {
		return
	}
	tags := []string{cache.TagAssets}
	if asset != "" {
		tags = append(tags, cache.AssetTag(strings.ToLower(asset)))
	}
	if err := s.cache.InvalidateTags(ctx, tags...); err != nil {
		s.log.WithError(err).Warn("invalidate asset cache")
	}
}

// chainAsset reads uncached on-chain state for a mutation precondition.
func (s *Service) chainAsset(ctx context.Context, address string) (*domain.Asset, error) {
	a, err := s.indexer.GetAsset(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("load asset: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, address)
	}
	return a, nil
}

func requireType(a *domain.Asset, allowed func(domain.AssetType) bool) error {
	if !allowed(a.Type) {
		return fmt.Errorf("%w: %s", ErrUnsupportedOperation, a.Type)
	}
	return nil
}

func isBond(t domain.AssetType) bool { return t == domain.AssetTypeBond }

// IsVerificationError reports whether err came from a bad or missing
// verification code.
func IsVerificationError(err error) bool {
	return errors.Is(err, challenge.ErrVerificationNotEnabled) ||
		errors.Is(err, portal.ErrInvalidChallengeResponse) ||
		errors.Is(err, portal.ErrNoChallenge)
}
