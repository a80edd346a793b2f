package assets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/validate"
)

func setBond(t *testing.T, f *fixture, mutate func(a *domain.Asset)) {
	t.Helper()
	a, err := f.indexer.GetAsset(context.Background(), bondAddr)
	if err != nil || a == nil {
		t.Fatalf("GetAsset: %v", err)
	}
	b := *a.Bond
	a.Bond = &b
	mutate(a)
	f.indexer.PutAsset(*a)
}

func TestMature(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Mature(context.Background(), f.user, AssetInput{Asset: bondAddr, Verification: pin()}); err != nil {
		t.Fatalf("Mature: %v", err)
	}
	if got := f.portal.LastCall().Mutation(); got != "BondMature" {
		t.Errorf("mutation = %s", got)
	}
}

func TestMature_BeforeMaturityDate(t *testing.T) {
	f := newFixture(t)
	setBond(t, f, func(a *domain.Asset) { a.Bond.MaturityDate = testNow.Add(time.Hour) })

	_, err := f.svc.Mature(context.Background(), f.user, AssetInput{Asset: bondAddr, Verification: pin()})
	if !errors.Is(err, validate.ErrNotYetMature) {
		t.Fatalf("expected ErrNotYetMature, got %v", err)
	}
}

func TestMature_InsufficientUnderlying(t *testing.T) {
	f := newFixture(t)
	setBond(t, f, func(a *domain.Asset) { a.Bond.UnderlyingTotal = decimal.NewFromInt(999) })

	_, err := f.svc.Mature(context.Background(), f.user, AssetInput{Asset: bondAddr, Verification: pin()})
	if !errors.Is(err, ErrInsufficientUnderlying) {
		t.Fatalf("expected ErrInsufficientUnderlying, got %v", err)
	}
}

func TestMature_NotABond(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Mature(context.Background(), f.user, AssetInput{Asset: equityAddr, Verification: pin()})
	if !errors.Is(err, ErrUnsupportedOperation) {
		t.Fatalf("expected ErrUnsupportedOperation, got %v", err)
	}
}

func TestRedeem_RequiresMaturity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Redeem(ctx, f.user, RedeemInput{Asset: bondAddr, Amount: decimal.NewFromInt(1), Verification: pin()})
	if !errors.Is(err, ErrNotMatured) {
		t.Fatalf("expected ErrNotMatured, got %v", err)
	}

	setBond(t, f, func(a *domain.Asset) { a.Bond.IsMatured = true })
	if _, err := f.svc.Redeem(ctx, f.user, RedeemInput{Asset: bondAddr, Amount: decimal.NewFromInt(1), Verification: pin()}); err != nil {
		t.Fatalf("Redeem: %v", err)
	}
}

func TestTopUpUnderlying_ApprovesThenDeposits(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.TopUpUnderlying(context.Background(), f.user, UnderlyingInput{
		Asset: bondAddr, Amount: decimal.NewFromInt(50), Verification: pin(),
	})
	if err != nil {
		t.Fatalf("TopUpUnderlying: %v", err)
	}
	if len(res.TxHashes) != 2 {
		t.Fatalf("expected 2 tx hashes, got %d", len(res.TxHashes))
	}

	calls := f.portal.Calls()
	if calls[0].Mutation() != "ERC20Approve" || calls[0].Address != usdcAddr || calls[0].Input["spender"] != bondAddr {
		t.Errorf("approve call = %s %s %v", calls[0].Mutation(), calls[0].Address, calls[0].Input)
	}
	if calls[0].Input["value"] != "50000000" {
		t.Errorf("approve value = %v, want 50000000", calls[0].Input["value"])
	}
	if calls[1].Mutation() != "BondTopUpUnderlyingAsset" || calls[1].Address != bondAddr {
		t.Errorf("top-up call = %s %s", calls[1].Mutation(), calls[1].Address)
	}
	if calls[0].Verification.ChallengeID == calls[1].Verification.ChallengeID {
		t.Error("each call should answer a fresh challenge")
	}
}

func TestWithdrawUnderlying_DefaultsToCaller(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.WithdrawUnderlying(context.Background(), f.user, UnderlyingInput{
		Asset: bondAddr, Amount: decimal.NewFromInt(1), Verification: pin(),
	}); err != nil {
		t.Fatalf("WithdrawUnderlying: %v", err)
	}
	if got := f.portal.LastCall().Input["to"]; got != f.user.Wallet {
		t.Errorf("to = %v, want %s", got, f.user.Wallet)
	}
}

func TestSetYieldSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := YieldScheduleInput{
		Asset:           bondAddr,
		StartTime:       testNow,
		EndTime:         testNow.Add(365 * 24 * time.Hour),
		RateBps:         500,
		IntervalSeconds: 86400,
		Verification:    pin(),
	}
	res, err := f.svc.SetYieldSchedule(ctx, f.user, in)
	if err != nil {
		t.Fatalf("SetYieldSchedule: %v", err)
	}
	if res.Address == "" {
		t.Error("expected schedule address from receipt")
	}
	call := f.portal.LastCall()
	if call.Mutation() != "FixedYieldFactoryCreate" || call.Address != yieldFactory {
		t.Errorf("call = %s %s", call.Mutation(), call.Address)
	}

	in.EndTime = in.StartTime
	if _, err := f.svc.SetYieldSchedule(ctx, f.user, in); !errors.Is(err, validate.ErrScheduleWindow) {
		t.Errorf("expected ErrScheduleWindow, got %v", err)
	}
}

func TestClaimYield(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.ClaimYield(ctx, f.user, AssetInput{Asset: bondAddr, Verification: pin()}); !errors.Is(err, ErrNoYieldSchedule) {
		t.Fatalf("expected ErrNoYieldSchedule, got %v", err)
	}

	schedule := "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"
	setBond(t, f, func(a *domain.Asset) { a.Bond.YieldSchedule = &domain.YieldSchedule{Address: schedule} })
	if _, err := f.svc.ClaimYield(ctx, f.user, AssetInput{Asset: bondAddr, Verification: pin()}); err != nil {
		t.Fatalf("ClaimYield: %v", err)
	}
	call := f.portal.LastCall()
	if call.Mutation() != "FixedYieldClaimYield" || call.Address != schedule {
		t.Errorf("call = %s %s", call.Mutation(), call.Address)
	}
}

func TestCreate_DeploysBondAndStoresMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, f.user, CreateInput{
		Type:            domain.AssetTypeBond,
		Name:            "Treasury 2030",
		Symbol:          "T30",
		Decimals:        2,
		ISIN:            "US0378331005",
		Private:         true,
		FaceValue:       decimal.NewFromInt(100),
		MaturityDate:    testNow.Add(24 * time.Hour),
		UnderlyingAsset: usdcAddr,
		Cap:             decimal.NewFromInt(1000),
		Verification:    pin(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Address == "" {
		t.Fatal("expected deployed address")
	}

	call := f.portal.LastCall()
	if call.Mutation() != "BondFactoryCreate" || call.Address != bondFactory {
		t.Errorf("call = %s %s", call.Mutation(), call.Address)
	}
	if call.Input["faceValue"] != "100000000" || call.Input["cap"] != "100000" {
		t.Errorf("faceValue/cap = %v/%v", call.Input["faceValue"], call.Input["cap"])
	}

	m, err := f.meta.AssetMetadata(ctx, res.Address)
	if err != nil || m == nil {
		t.Fatalf("AssetMetadata: %v %v", m, err)
	}
	if !m.Private || m.ISIN != "US0378331005" {
		t.Errorf("metadata = %+v", m)
	}

	tx, err := f.txs.Get(ctx, res.TxHashes[0])
	if err != nil {
		t.Fatalf("Get tx: %v", err)
	}
	if tx.Status != domain.TxStatusSuccess {
		t.Errorf("deployment status = %s, want success", tx.Status)
	}
}

func TestCreate_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.user, CreateInput{Type: domain.AssetTypeEquity, Name: "E", Symbol: "E", Verification: pin()})
	if !errors.Is(err, ErrFactoryNotConfigured) {
		t.Errorf("expected ErrFactoryNotConfigured, got %v", err)
	}

	_, err = f.svc.Create(ctx, f.user, CreateInput{
		Type: domain.AssetTypeBond, Name: "B", Symbol: "B",
		FaceValue: decimal.NewFromInt(1), Cap: decimal.NewFromInt(1),
		MaturityDate: testNow.Add(-time.Hour), UnderlyingAsset: usdcAddr, Verification: pin(),
	})
	if !errors.Is(err, validate.ErrMaturityInPast) {
		t.Errorf("expected ErrMaturityInPast, got %v", err)
	}
	if len(f.portal.Calls()) != 0 {
		t.Error("rejected creations should not submit")
	}
}
