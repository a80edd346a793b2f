package assets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"asset-tokenization-kit/internal/cache"
	"asset-tokenization-kit/internal/domain"
	hasurastub "asset-tokenization-kit/internal/hasura/stub"
	"asset-tokenization-kit/internal/portal"
	portalstub "asset-tokenization-kit/internal/portal/stub"
	"asset-tokenization-kit/internal/storage/memory"
	thegraphstub "asset-tokenization-kit/internal/thegraph/stub"
	"asset-tokenization-kit/internal/txwatch"
)

const (
	testPincode  = "123456"
	equityAddr   = "0x1111111111111111111111111111111111111111"
	bondAddr     = "0x2222222222222222222222222222222222222222"
	usdcAddr     = "0x3333333333333333333333333333333333333333"
	cryptoAddr   = "0x4444444444444444444444444444444444444444"
	depositAddr  = "0x5555555555555555555555555555555555555555"
	recipient    = "0x6666666666666666666666666666666666666666"
	bondFactory  = "0x7777777777777777777777777777777777777777"
	yieldFactory = "0x8888888888888888888888888888888888888888"
	dropFactory  = "0x9999999999999999999999999999999999999999"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	portal   *portalstub.Portal
	indexer  *thegraphstub.Indexer
	meta     *hasurastub.Metadata
	txs      *memory.TransactionStore
	settings *memory.SettingsStore
	user     *domain.User
}

type fixtureOption func(*Options)

func withWait(o *Options) { o.WaitForReceipts = true }

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	f := &fixture{
		portal:   portalstub.NewPortal(),
		indexer:  thegraphstub.NewIndexer(),
		meta:     hasurastub.NewMetadata(),
		txs:      memory.NewTransactionStore(),
		settings: memory.NewSettingsStore(),
	}
	f.user = newUser(t, f.portal, "admin", domain.UserRoleAdmin)

	o := Options{
		Portal:       f.portal,
		Indexer:      f.indexer,
		Metadata:     f.meta,
		Transactions: f.txs,
		Settings:     f.settings,
		Watcher: txwatch.New(txwatch.Options{
			Source:       f.portal,
			Store:        f.txs,
			PollInterval: time.Millisecond,
			Timeout:      time.Second,
		}),
		Cache: cache.NewMemory(time.Minute, time.Minute),
		Factories: Factories{
			Assets:     map[domain.AssetType]string{domain.AssetTypeBond: bondFactory},
			FixedYield: yieldFactory,
			Airdrop:    dropFactory,
		},
		Now: func() time.Time { return testNow },
	}
	for _, opt := range opts {
		opt(&o)
	}
	f.svc = NewService(o)

	f.indexer.PutAsset(domain.Asset{ID: equityAddr, Type: domain.AssetTypeEquity, Symbol: "EQ", Decimals: 6, TotalSupply: decimal.NewFromInt(100), Creator: f.user.Wallet})
	f.indexer.PutAsset(domain.Asset{ID: usdcAddr, Type: domain.AssetTypeStablecoin, Symbol: "USDC", Decimals: 6})
	f.indexer.PutAsset(domain.Asset{ID: cryptoAddr, Type: domain.AssetTypeCryptocurrency, Symbol: "CC", Decimals: 18})
	f.indexer.PutAsset(domain.Asset{ID: depositAddr, Type: domain.AssetTypeDeposit, Symbol: "DEP", Decimals: 2})
	f.indexer.PutAsset(domain.Asset{
		ID: bondAddr, Type: domain.AssetTypeBond, Symbol: "BND", Decimals: 0,
		TotalSupply: decimal.NewFromInt(10),
		Bond: &domain.BondDetails{
			FaceValue:       decimal.NewFromInt(100),
			MaturityDate:    testNow.Add(-time.Hour),
			UnderlyingAsset: usdcAddr,
			UnderlyingTotal: decimal.NewFromInt(1000),
		},
	})
	return f
}

// newUser creates a wallet with a pincode verification on the stub.
func newUser(t *testing.T, p *portalstub.Portal, name string, role domain.UserRole) *domain.User {
	t.Helper()
	ctx := context.Background()
	wallet, err := p.CreateWallet(ctx, name)
	if err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}
	v, err := p.CreateWalletVerification(ctx, wallet, portal.VerificationSpec{
		Type: domain.VerificationPincode, Name: "pincode", Pincode: testPincode,
	})
	if err != nil {
		t.Fatalf("CreateWalletVerification: %v", err)
	}
	return &domain.User{
		ID:                    name,
		Role:                  role,
		Wallet:                wallet,
		PincodeEnabled:        true,
		PincodeVerificationID: v.ID,
	}
}

func pin() domain.VerificationInput {
	return domain.VerificationInput{Code: testPincode, Type: domain.VerificationPincode}
}

func TestMint_SubmitsScaledAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Mint(ctx, f.user, MintInput{
		Asset: equityAddr, To: recipient, Amount: decimal.RequireFromString("1.5"), Verification: pin(),
	})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if len(res.TxHashes) != 1 {
		t.Fatalf("expected 1 tx hash, got %d", len(res.TxHashes))
	}

	call := f.portal.LastCall()
	if call.Mutation() != "EquityMint" {
		t.Errorf("mutation = %s, want EquityMint", call.Mutation())
	}
	if call.Address != equityAddr || call.From != f.user.Wallet {
		t.Errorf("call address/from = %s/%s", call.Address, call.From)
	}
	if call.Input["amount"] != "1500000" {
		t.Errorf("amount = %v, want 1500000", call.Input["amount"])
	}

	tx, err := f.txs.Get(ctx, res.TxHashes[0])
	if err != nil {
		t.Fatalf("Get tx: %v", err)
	}
	if tx.Status != domain.TxStatusPending || tx.Function != "mint" {
		t.Errorf("tx = %+v", tx)
	}
}

func TestMint_RejectsExcessPrecision(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Mint(context.Background(), f.user, MintInput{
		Asset: equityAddr, To: recipient, Amount: decimal.RequireFromString("0.0000001"), Verification: pin(),
	})
	if err == nil {
		t.Fatal("expected precision error")
	}
	if len(f.portal.Calls()) != 0 {
		t.Error("nothing should be submitted")
	}
}

func TestMint_WrongPincode(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Mint(context.Background(), f.user, MintInput{
		Asset: equityAddr, To: recipient, Amount: decimal.NewFromInt(1),
		Verification: domain.VerificationInput{Code: "000000", Type: domain.VerificationPincode},
	})
	if !IsVerificationError(err) {
		t.Fatalf("expected verification error, got %v", err)
	}
	if len(f.portal.Calls()) != 0 {
		t.Error("rejected call should not be recorded")
	}
}

func TestMint_VerificationNotEnabled(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Mint(context.Background(), f.user, MintInput{
		Asset: equityAddr, To: recipient, Amount: decimal.NewFromInt(1),
		Verification: domain.VerificationInput{Code: "111111", Type: domain.VerificationOTP},
	})
	if !IsVerificationError(err) {
		t.Fatalf("expected verification error, got %v", err)
	}
}

func TestMint_UnknownAsset(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Mint(context.Background(), f.user, MintInput{
		Asset: recipient, To: recipient, Amount: decimal.NewFromInt(1), Verification: pin(),
	})
	if !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestMutation_WaitsAndRecordsRevert(t *testing.T) {
	f := newFixture(t, withWait)
	f.portal.Reverts["EquityBurn"] = "insufficient balance"
	ctx := context.Background()

	_, err := f.svc.Burn(ctx, f.user, BurnInput{Asset: equityAddr, Amount: decimal.NewFromInt(1), Verification: pin()})
	if !errors.Is(err, ErrTransactionReverted) {
		t.Fatalf("expected ErrTransactionReverted, got %v", err)
	}

	txs, err := f.txs.ListByAccount(ctx, f.user.Wallet, 10, 0)
	if err != nil || len(txs) != 1 {
		t.Fatalf("ListByAccount: %v %d", err, len(txs))
	}
	if txs[0].Status != domain.TxStatusReverted || txs[0].RevertReason != "insufficient balance" {
		t.Errorf("tx = %+v", txs[0])
	}
}

func TestMutation_WaitReturnsReceipts(t *testing.T) {
	f := newFixture(t, withWait)

	res, err := f.svc.Transfer(context.Background(), f.user, TransferInput{
		Asset: equityAddr, To: recipient, Amount: decimal.NewFromInt(2), Verification: pin(),
	})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if len(res.Receipts) != 1 || !res.Receipts[0].Succeeded() {
		t.Fatalf("receipts = %+v", res.Receipts)
	}
}

func TestPause(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Pause(ctx, f.user, AssetInput{Asset: cryptoAddr, Verification: pin()}); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("cryptocurrency pause: expected ErrUnsupportedOperation, got %v", err)
	}
	if _, err := f.svc.Unpause(ctx, f.user, AssetInput{Asset: equityAddr, Verification: pin()}); !errors.Is(err, ErrNotPaused) {
		t.Errorf("unpause active: expected ErrNotPaused, got %v", err)
	}
	if _, err := f.svc.Pause(ctx, f.user, AssetInput{Asset: equityAddr, Verification: pin()}); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if got := f.portal.LastCall().Mutation(); got != "EquityPause" {
		t.Errorf("mutation = %s", got)
	}

	a, _ := f.indexer.GetAsset(ctx, equityAddr)
	a.Paused = true
	f.indexer.PutAsset(*a)
	if _, err := f.svc.Pause(ctx, f.user, AssetInput{Asset: equityAddr, Verification: pin()}); !errors.Is(err, ErrAlreadyPaused) {
		t.Errorf("pause paused: expected ErrAlreadyPaused, got %v", err)
	}
}

func TestBlockUser_RequiresBlocklist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.BlockUser(ctx, f.user, AccountInput{Asset: depositAddr, Account: recipient, Verification: pin()})
	if !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("deposit block: expected ErrUnsupportedOperation, got %v", err)
	}

	if _, err := f.svc.BlockUser(ctx, f.user, AccountInput{Asset: equityAddr, Account: recipient, Verification: pin()}); err != nil {
		t.Fatalf("BlockUser: %v", err)
	}
	call := f.portal.LastCall()
	if call.Mutation() != "EquityBlockUser" || call.Input["user"] != recipient {
		t.Errorf("call = %s %v", call.Mutation(), call.Input)
	}
}

func TestFreeze_AllowsZero(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Freeze(context.Background(), f.user, FreezeInput{Asset: equityAddr, Account: recipient, Amount: decimal.Zero, Verification: pin()}); err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	if got := f.portal.LastCall().Input["amount"]; got != "0" {
		t.Errorf("amount = %v, want 0", got)
	}
}

func TestGrantRole_OneTransactionPerRole(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.GrantRole(context.Background(), f.user, RolesInput{
		Asset: equityAddr, Account: recipient,
		Roles:        []domain.Role{domain.RoleSupplyManagement, domain.RoleUserManagement},
		Verification: pin(),
	})
	if err != nil {
		t.Fatalf("GrantRole: %v", err)
	}
	if len(res.TxHashes) != 2 {
		t.Fatalf("expected 2 tx hashes, got %d", len(res.TxHashes))
	}
	calls := f.portal.Calls()
	if calls[0].Input["role"] != domain.RoleSupplyManagement.ID().Hex() {
		t.Errorf("role = %v", calls[0].Input["role"])
	}
	if calls[1].Input["role"] != domain.RoleUserManagement.ID().Hex() {
		t.Errorf("role = %v", calls[1].Input["role"])
	}
}

func TestUpdateCollateral_RequiresCollateralizedType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateCollateral(ctx, f.user, CollateralInput{Asset: equityAddr, Amount: decimal.NewFromInt(5), Verification: pin()})
	if !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("expected ErrUnsupportedOperation, got %v", err)
	}

	if _, err := f.svc.UpdateCollateral(ctx, f.user, CollateralInput{Asset: depositAddr, Amount: decimal.NewFromInt(5), Verification: pin()}); err != nil {
		t.Fatalf("UpdateCollateral: %v", err)
	}
	call := f.portal.LastCall()
	if call.Mutation() != "DepositUpdateCollateral" || call.Input["amount"] != "500" {
		t.Errorf("call = %s %v", call.Mutation(), call.Input)
	}
}

func TestWithdrawToken_UsesTokenDecimals(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.WithdrawToken(context.Background(), f.user, WithdrawTokenInput{
		Asset: equityAddr, Token: usdcAddr, To: recipient, Amount: decimal.NewFromInt(3), Verification: pin(),
	})
	if err != nil {
		t.Fatalf("WithdrawToken: %v", err)
	}
	if got := f.portal.LastCall().Input["amount"]; got != "3000000" {
		t.Errorf("amount = %v, want 3000000", got)
	}
}

func TestMutation_InvalidatesCachedAsset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	before, err := f.svc.GetAsset(ctx, f.user, equityAddr)
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}

	a, _ := f.indexer.GetAsset(ctx, equityAddr)
	a.TotalSupply = decimal.NewFromInt(200)
	f.indexer.PutAsset(*a)

	cached, _ := f.svc.GetAsset(ctx, f.user, equityAddr)
	if !cached.TotalSupply.Equal(before.TotalSupply) {
		t.Fatalf("expected cached supply %s, got %s", before.TotalSupply, cached.TotalSupply)
	}

	if _, err := f.svc.Mint(ctx, f.user, MintInput{Asset: equityAddr, To: recipient, Amount: decimal.NewFromInt(1), Verification: pin()}); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	fresh, _ := f.svc.GetAsset(ctx, f.user, equityAddr)
	if !fresh.TotalSupply.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected fresh supply 200 after mutation, got %s", fresh.TotalSupply)
	}
}

func TestTransaction_FinalStatusInvalidatesCachedAsset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Mint(ctx, f.user, MintInput{Asset: equityAddr, To: recipient, Amount: decimal.NewFromInt(1), Verification: pin()})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	// Read while the transaction is still pending, before the indexer catches up.
	if _, err := f.svc.GetAsset(ctx, f.user, equityAddr); err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	a, _ := f.indexer.GetAsset(ctx, equityAddr)
	a.TotalSupply = decimal.NewFromInt(101)
	f.indexer.PutAsset(*a)

	stale, _ := f.svc.GetAsset(ctx, f.user, equityAddr)
	if !stale.TotalSupply.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected cached supply 100 while pending, got %s", stale.TotalSupply)
	}

	tx, err := f.svc.Transaction(ctx, f.user, res.TxHashes[0])
	if err != nil || tx.Status != domain.TxStatusSuccess {
		t.Fatalf("Transaction = %+v, %v", tx, err)
	}

	fresh, _ := f.svc.GetAsset(ctx, f.user, equityAddr)
	if !fresh.TotalSupply.Equal(decimal.NewFromInt(101)) {
		t.Errorf("expected supply 101 after finalization, got %s", fresh.TotalSupply)
	}
}

type tagRecorder struct {
	cache.Cache
	invalidated [][]string
}

func (r *tagRecorder) InvalidateTags(ctx context.Context, tags ...string) error {
	r.invalidated = append(r.invalidated, tags)
	return r.Cache.InvalidateTags(ctx, tags...)
}

func TestMutation_WaitInvalidatesAfterReceipt(t *testing.T) {
	rec := &tagRecorder{Cache: cache.NewMemory(time.Minute, time.Minute)}
	f := newFixture(t, withWait, func(o *Options) { o.Cache = rec })

	if _, err := f.svc.Mint(context.Background(), f.user, MintInput{
		Asset: equityAddr, To: recipient, Amount: decimal.NewFromInt(1), Verification: pin(),
	}); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	// Once for the mined receipt, once when the mutation returns.
	if len(rec.invalidated) != 2 {
		t.Fatalf("invalidations = %v, want 2", rec.invalidated)
	}
	for _, tags := range rec.invalidated {
		if len(tags) != 2 || tags[0] != cache.TagAssets || tags[1] != cache.AssetTag(equityAddr) {
			t.Errorf("tags = %v", tags)
		}
	}
}
