package dca

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/dauTT/astroport-dca/internal/asset"
	"github.com/dauTT/astroport-dca/internal/types"
	"github.com/dauTT/astroport-dca/storage"
)

const (
	testContract = "dca_contract"
	testRouter   = "router_contract"
	testOwner    = "owner"
	testUser     = "user1"
	testExecutor = "bot1"
)

var (
	aaaInfo = asset.TokenInfo("token_aaa")
	bbbInfo = asset.TokenInfo("token_bbb")
	cccInfo = asset.TokenInfo("token_ccc")
	tipInfo = asset.NativeInfo("uusdc")
	gasInfo = asset.NativeInfo("uluna")
)

type stubRouter struct {
	received asset.Amount
	err      error

	lastHops   []types.SwapOperation
	lastOffer  asset.Asset
	lastSpread string
	calls      int
}

func (r *stubRouter) Swap(_ context.Context, hops []types.SwapOperation, offer asset.Asset, maxSpread string, _ string) (asset.Amount, error) {
	r.calls++
	r.lastHops = hops
	r.lastOffer = offer
	r.lastSpread = maxSpread
	if r.err != nil {
		return asset.Amount{}, r.err
	}
	return r.received, nil
}

type stubLedger struct {
	allowances map[string]asset.Amount
}

func (l *stubLedger) Balance(_ context.Context, contract, _ string) (asset.Amount, error) {
	return asset.ZeroAmount(), nil
}

func (l *stubLedger) Allowance(_ context.Context, contract, _, _ string) (asset.Amount, error) {
	if a, ok := l.allowances[contract]; ok {
		return a, nil
	}
	return asset.ZeroAmount(), nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig() types.Config {
	return types.Config{
		Owner:      testOwner,
		RouterAddr: testRouter,
		GasInfo:    gasInfo,
		MaxHops:    4,
		MaxSpread:  "0.1",
		PerHopFee:  asset.New(tipInfo, asset.NewAmount(100000)),
		WhitelistedTokens: types.WhitelistedTokens{
			Source: []asset.Info{aaaInfo, gasInfo},
			Tip:    []asset.Info{tipInfo},
		},
	}
}

func newTestEngine(t *testing.T, router Router, tokens TokenLedger) (*Engine, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	engine, err := NewEngine(store, router, tokens, testLogger(), map[string]interface{}{
		"contract_addr": testContract,
	})
	require.NoError(t, err)
	require.NoError(t, engine.Instantiate(context.Background(), testConfig()))
	return engine, store
}

func fixClock(e *Engine, unix int64) {
	e.now = func() time.Time { return time.Unix(unix, 0) }
}

func createParams() types.CreateOrderParams {
	return types.CreateOrderParams{
		Source:     asset.New(aaaInfo, asset.NewAmount(10000000)),
		TargetInfo: bbbInfo,
		Tip:        asset.New(tipInfo, asset.NewAmount(1000000)),
		Gas:        asset.New(gasInfo, asset.NewAmount(500000)),
		DcaAmount:  asset.New(aaaInfo, asset.NewAmount(1000000)),
		Interval:   3600,
		StartAt:    0,
	}
}

func directRoute() []types.SwapOperation {
	return []types.SwapOperation{{Offer: aaaInfo, Ask: bbbInfo}}
}

func twoHopRoute() []types.SwapOperation {
	return []types.SwapOperation{
		{Offer: aaaInfo, Ask: cccInfo},
		{Offer: cccInfo, Ask: bbbInfo},
	}
}

func TestCreateOrder(t *testing.T) {
	engine, _ := newTestEngine(t, &stubRouter{}, nil)
	fixClock(engine, 1000)
	ctx := context.Background()

	res, err := engine.CreateOrder(ctx, testUser, createParams())
	require.NoError(t, err)

	order := res.Order
	require.Equal(t, uint64(1), order.ID)
	require.Equal(t, testUser, order.CreatedBy)
	require.Equal(t, int64(1000), order.CreatedAt)
	require.Equal(t, "10000000", order.Balance.Source.Amount.String())
	require.Equal(t, "0", order.Balance.Spent.Amount.String())
	require.True(t, order.Balance.Spent.Info.Equal(aaaInfo))
	require.Equal(t, "0", order.Balance.Target.Amount.String())
	require.True(t, order.Balance.Target.Info.Equal(bbbInfo))
	require.Equal(t, "1000000", order.Balance.Tip.Amount.String())
	require.Equal(t, "500000", order.Balance.Gas.Amount.String())
	require.Equal(t, int64(0), order.Balance.LastPurchase)

	// one inbound instruction per funded bucket
	require.Len(t, res.Instructions, 3)
	require.Equal(t, asset.TokenTransferFrom, res.Instructions[0].Method)
	require.Equal(t, testUser, res.Instructions[0].From)
	require.Equal(t, testContract, res.Instructions[0].To)
	require.Equal(t, asset.BankSend, res.Instructions[1].Method)
	require.Equal(t, asset.BankSend, res.Instructions[2].Method)

	ids, err := engine.ListUserOrders(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, ids)
}

func TestCreateOrderRejections(t *testing.T) {
	engine, _ := newTestEngine(t, &stubRouter{}, nil)
	ctx := context.Background()

	cases := []struct {
		name    string
		mutate  func(*types.CreateOrderParams)
		wantErr error
	}{
		{
			name:    "source not whitelisted",
			mutate:  func(p *types.CreateOrderParams) { p.Source = asset.New(cccInfo, asset.NewAmount(100)) },
			wantErr: ErrAssetNotWhitelisted,
		},
		{
			name:    "tip not whitelisted",
			mutate:  func(p *types.CreateOrderParams) { p.Tip = asset.New(gasInfo, asset.NewAmount(100)) },
			wantErr: ErrAssetNotWhitelisted,
		},
		{
			name:    "zero source",
			mutate:  func(p *types.CreateOrderParams) { p.Source.Amount = asset.ZeroAmount() },
			wantErr: ErrZeroAmount,
		},
		{
			name:    "zero tip",
			mutate:  func(p *types.CreateOrderParams) { p.Tip.Amount = asset.ZeroAmount() },
			wantErr: ErrZeroAmount,
		},
		{
			name:    "zero interval",
			mutate:  func(p *types.CreateOrderParams) { p.Interval = 0 },
			wantErr: ErrInvalidInterval,
		},
		{
			name:    "dca amount kind mismatch",
			mutate:  func(p *types.CreateOrderParams) { p.DcaAmount = asset.New(bbbInfo, asset.NewAmount(100)) },
			wantErr: ErrAssetKindMismatch,
		},
		{
			name:    "wrong gas denom",
			mutate:  func(p *types.CreateOrderParams) { p.Gas = asset.New(tipInfo, asset.NewAmount(100)) },
			wantErr: ErrAssetKindMismatch,
		},
		{
			name: "max hops above bound",
			mutate: func(p *types.CreateOrderParams) {
				hops := uint64(5)
				p.MaxHops = &hops
			},
			wantErr: ErrInvalidHops,
		},
		{
			name: "max hops zero",
			mutate: func(p *types.CreateOrderParams) {
				hops := uint64(0)
				p.MaxHops = &hops
			},
			wantErr: ErrInvalidHops,
		},
		{
			name: "max spread above bound",
			mutate: func(p *types.CreateOrderParams) {
				spread := "0.5"
				p.MaxSpread = &spread
			},
			wantErr: ErrInvalidSpread,
		},
		{
			name: "max spread not a decimal",
			mutate: func(p *types.CreateOrderParams) {
				spread := "lots"
				p.MaxSpread = &spread
			},
			wantErr: ErrInvalidSpread,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := createParams()
			tc.mutate(&p)
			_, err := engine.CreateOrder(ctx, testUser, p)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}

	// nothing was stored
	ids, err := engine.ListUserOrders(ctx, testUser)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestCreateOrderAllowance(t *testing.T) {
	ledger := &stubLedger{allowances: map[string]asset.Amount{}}
	engine, _ := newTestEngine(t, &stubRouter{}, ledger)
	ctx := context.Background()

	_, err := engine.CreateOrder(ctx, testUser, createParams())
	require.ErrorIs(t, err, ErrInsufficientAllowance)

	ledger.allowances["token_aaa"] = asset.NewAmount(10000000)
	_, err = engine.CreateOrder(ctx, testUser, createParams())
	require.NoError(t, err)
}

func TestDepositWithdrawRoundTrip(t *testing.T) {
	engine, _ := newTestEngine(t, &stubRouter{}, nil)
	ctx := context.Background()

	res, err := engine.CreateOrder(ctx, testUser, createParams())
	require.NoError(t, err)
	id := res.Order.ID

	dep := asset.New(aaaInfo, asset.NewAmount(2500000))
	depRes, err := engine.Deposit(ctx, testUser, id, types.BucketSource, dep)
	require.NoError(t, err)
	require.Equal(t, "12500000", depRes.Order.Balance.Source.Amount.String())
	require.Len(t, depRes.Instructions, 1)
	require.Equal(t, asset.TokenTransferFrom, depRes.Instructions[0].Method)

	wdRes, err := engine.Withdraw(ctx, testUser, id, types.BucketSource, dep)
	require.NoError(t, err)
	require.Equal(t, "10000000", wdRes.Order.Balance.Source.Amount.String())
	require.Len(t, wdRes.Instructions, 1)
	require.Equal(t, asset.TokenTransfer, wdRes.Instructions[0].Method)
	require.Equal(t, testContract, wdRes.Instructions[0].From)
	require.Equal(t, testUser, wdRes.Instructions[0].To)
}

func TestDepositRejections(t *testing.T) {
	engine, _ := newTestEngine(t, &stubRouter{}, nil)
	ctx := context.Background()

	res, err := engine.CreateOrder(ctx, testUser, createParams())
	require.NoError(t, err)
	id := res.Order.ID

	_, err = engine.Deposit(ctx, "someone_else", id, types.BucketSource, asset.New(aaaInfo, asset.NewAmount(1)))
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = engine.Deposit(ctx, testUser, id, types.BucketTarget, asset.New(bbbInfo, asset.NewAmount(1)))
	require.ErrorIs(t, err, ErrInvalidBucket)

	_, err = engine.Deposit(ctx, testUser, id, types.BucketSpent, asset.New(aaaInfo, asset.NewAmount(1)))
	require.ErrorIs(t, err, ErrInvalidBucket)

	_, err = engine.Deposit(ctx, testUser, id, types.BucketSource, asset.New(bbbInfo, asset.NewAmount(1)))
	require.ErrorIs(t, err, ErrAssetKindMismatch)

	_, err = engine.Deposit(ctx, testUser, id, types.BucketSource, asset.Zero(aaaInfo))
	require.ErrorIs(t, err, ErrZeroAmount)

	_, err = engine.Deposit(ctx, testUser, 99, types.BucketSource, asset.New(aaaInfo, asset.NewAmount(1)))
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestWithdrawRejections(t *testing.T) {
	engine, _ := newTestEngine(t, &stubRouter{}, nil)
	ctx := context.Background()

	res, err := engine.CreateOrder(ctx, testUser, createParams())
	require.NoError(t, err)
	id := res.Order.ID

	_, err = engine.Withdraw(ctx, testUser, id, types.BucketSpent, asset.New(aaaInfo, asset.NewAmount(1)))
	require.ErrorIs(t, err, ErrInvalidBucket)

	_, err = engine.Withdraw(ctx, testUser, id, types.BucketSource, asset.New(aaaInfo, asset.NewAmount(10000001)))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	// a failed withdraw leaves the balance untouched
	order, err := engine.GetOrder(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "10000000", order.Balance.Source.Amount.String())
}

func TestPerformPurchase(t *testing.T) {
	router := &stubRouter{received: asset.NewAmount(950000)}
	engine, _ := newTestEngine(t, router, nil)
	fixClock(engine, 0)
	ctx := context.Background()

	res, err := engine.CreateOrder(ctx, testUser, createParams())
	require.NoError(t, err)
	id := res.Order.ID

	fixClock(engine, 3600)
	pr, err := engine.PerformPurchase(ctx, testExecutor, id, directRoute())
	require.NoError(t, err)

	require.Equal(t, "9000000", pr.OrderState.Balance.Source.Amount.String())
	require.Equal(t, "1000000", pr.OrderState.Balance.Spent.Amount.String())
	require.Equal(t, "950000", pr.OrderState.Balance.Target.Amount.String())
	require.Equal(t, "900000", pr.OrderState.Balance.Tip.Amount.String())
	require.Equal(t, "500000", pr.OrderState.Balance.Gas.Amount.String())
	require.Equal(t, int64(3600), pr.OrderState.Balance.LastPurchase)

	require.Equal(t, "1000000", router.lastOffer.Amount.String())
	require.Equal(t, "0.1", router.lastSpread)

	// source to router, fee to executor
	require.Len(t, pr.Instructions, 2)
	require.Equal(t, testRouter, pr.Instructions[0].To)
	require.Equal(t, testExecutor, pr.Instructions[1].To)
	require.Equal(t, "100000", pr.Instructions[1].Asset.Amount.String())
}

func TestPerformPurchaseTwoHopFee(t *testing.T) {
	router := &stubRouter{received: asset.NewAmount(900000)}
	engine, _ := newTestEngine(t, router, nil)
	fixClock(engine, 3600)
	ctx := context.Background()

	res, err := engine.CreateOrder(ctx, testUser, createParams())
	require.NoError(t, err)

	fixClock(engine, 7200)
	pr, err := engine.PerformPurchase(ctx, testExecutor, res.Order.ID, twoHopRoute())
	require.NoError(t, err)

	// per-hop fee 100000 times two hops
	require.Equal(t, "200000", pr.Fee.Amount.String())
	require.Equal(t, "800000", pr.OrderState.Balance.Tip.Amount.String())
}

func TestPerformPurchaseNotYetDue(t *testing.T) {
	router := &stubRouter{received: asset.NewAmount(1)}
	engine, _ := newTestEngine(t, router, nil)
	fixClock(engine, 0)
	ctx := context.Background()

	res, err := engine.CreateOrder(ctx, testUser, createParams())
	require.NoError(t, err)
	id := res.Order.ID

	fixClock(engine, 3599)
	_, err = engine.PerformPurchase(ctx, testExecutor, id, directRoute())
	require.ErrorIs(t, err, ErrNotYetDue)
	require.Zero(t, router.calls)

	order, err := engine.GetOrder(ctx, id)
	require.NoError(t, err)
	require.Equal(t, res.Order, order)

	// interval counts from the last purchase, not from wall-clock ticks
	fixClock(engine, 3600)
	first, err := engine.PerformPurchase(ctx, testExecutor, id, directRoute())
	require.NoError(t, err)
	require.Equal(t, int64(3600), first.OrderState.Balance.LastPurchase)

	fixClock(engine, 7199)
	_, err = engine.PerformPurchase(ctx, testExecutor, id, directRoute())
	require.ErrorIs(t, err, ErrNotYetDue)
}

func TestPerformPurchaseStartAt(t *testing.T) {
	router := &stubRouter{received: asset.NewAmount(1)}
	engine, _ := newTestEngine(t, router, nil)
	fixClock(engine, 0)
	ctx := context.Background()

	p := createParams()
	p.StartAt = 10000
	res, err := engine.CreateOrder(ctx, testUser, p)
	require.NoError(t, err)

	fixClock(engine, 9999)
	_, err = engine.PerformPurchase(ctx, testExecutor, res.Order.ID, directRoute())
	require.ErrorIs(t, err, ErrNotYetDue)

	fixClock(engine, 10000)
	_, err = engine.PerformPurchase(ctx, testExecutor, res.Order.ID, directRoute())
	require.NoError(t, err)
}

func TestPerformPurchasePartialFinalSpend(t *testing.T) {
	router := &stubRouter{received: asset.NewAmount(100)}
	engine, _ := newTestEngine(t, router, nil)
	fixClock(engine, 0)
	ctx := context.Background()

	p := createParams()
	p.Source = asset.New(aaaInfo, asset.NewAmount(1500000))
	res, err := engine.CreateOrder(ctx, testUser, p)
	require.NoError(t, err)
	id := res.Order.ID

	fixClock(engine, 3600)
	pr, err := engine.PerformPurchase(ctx, testExecutor, id, directRoute())
	require.NoError(t, err)
	require.Equal(t, "1000000", pr.Spent.Amount.String())
	require.Equal(t, "500000", pr.OrderState.Balance.Source.Amount.String())

	// the remainder below dca_amount is still spent in full
	fixClock(engine, 7200)
	pr, err = engine.PerformPurchase(ctx, testExecutor, id, directRoute())
	require.NoError(t, err)
	require.Equal(t, "500000", pr.Spent.Amount.String())
	require.Equal(t, "0", pr.OrderState.Balance.Source.Amount.String())
	require.Equal(t, "1500000", pr.OrderState.Balance.Spent.Amount.String())

	// and an empty source cannot be purchased from
	fixClock(engine, 10800)
	_, err = engine.PerformPurchase(ctx, testExecutor, id, directRoute())
	require.ErrorIs(t, err, ErrInsufficientSourceBalance)
}

func TestPerformPurchaseInsufficientTip(t *testing.T) {
	router := &stubRouter{received: asset.NewAmount(1)}
	engine, _ := newTestEngine(t, router, nil)
	fixClock(engine, 0)
	ctx := context.Background()

	p := createParams()
	p.Tip = asset.New(tipInfo, asset.NewAmount(150000))
	res, err := engine.CreateOrder(ctx, testUser, p)
	require.NoError(t, err)

	fixClock(engine, 3600)
	_, err = engine.PerformPurchase(ctx, testExecutor, res.Order.ID, twoHopRoute())
	require.ErrorIs(t, err, ErrInsufficientTipBalance)
	require.Zero(t, router.calls)

	// a cheaper single-hop route still fits the tip
	_, err = engine.PerformPurchase(ctx, testExecutor, res.Order.ID, directRoute())
	require.NoError(t, err)
}

func TestPerformPurchaseInvalidRoutes(t *testing.T) {
	router := &stubRouter{received: asset.NewAmount(1)}
	engine, _ := newTestEngine(t, router, nil)
	fixClock(engine, 0)
	ctx := context.Background()

	res, err := engine.CreateOrder(ctx, testUser, createParams())
	require.NoError(t, err)
	id := res.Order.ID
	fixClock(engine, 3600)

	cases := []struct {
		name string
		hops []types.SwapOperation
	}{
		{"empty route", nil},
		{"wrong first offer", []types.SwapOperation{{Offer: cccInfo, Ask: bbbInfo}}},
		{"wrong last ask", []types.SwapOperation{{Offer: aaaInfo, Ask: cccInfo}}},
		{"broken chain", []types.SwapOperation{
			{Offer: aaaInfo, Ask: cccInfo},
			{Offer: tipInfo, Ask: bbbInfo},
		}},
		{"too many hops", []types.SwapOperation{
			{Offer: aaaInfo, Ask: cccInfo},
			{Offer: cccInfo, Ask: aaaInfo},
			{Offer: aaaInfo, Ask: cccInfo},
			{Offer: cccInfo, Ask: aaaInfo},
			{Offer: aaaInfo, Ask: bbbInfo},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.PerformPurchase(ctx, testExecutor, id, tc.hops)
			require.ErrorIs(t, err, ErrInvalidRoute)
		})
	}
	require.Zero(t, router.calls)
}

func TestPerformPurchaseSwapFailure(t *testing.T) {
	router := &stubRouter{err: errors.New("spread assertion failed")}
	engine, _ := newTestEngine(t, router, nil)
	fixClock(engine, 0)
	ctx := context.Background()

	res, err := engine.CreateOrder(ctx, testUser, createParams())
	require.NoError(t, err)
	id := res.Order.ID

	fixClock(engine, 3600)
	_, err = engine.PerformPurchase(ctx, testExecutor, id, directRoute())
	require.Error(t, err)

	// the failed swap left the order untouched
	order, err := engine.GetOrder(ctx, id)
	require.NoError(t, err)
	require.Equal(t, res.Order, order)
}

func TestPerformPurchaseSpreadOverride(t *testing.T) {
	router := &stubRouter{received: asset.NewAmount(1)}
	engine, _ := newTestEngine(t, router, nil)
	fixClock(engine, 0)
	ctx := context.Background()

	p := createParams()
	spread := "0.05"
	p.MaxSpread = &spread
	res, err := engine.CreateOrder(ctx, testUser, p)
	require.NoError(t, err)

	fixClock(engine, 3600)
	_, err = engine.PerformPurchase(ctx, testExecutor, res.Order.ID, directRoute())
	require.NoError(t, err)
	require.Equal(t, "0.05", router.lastSpread)
}

func TestModifyOrder(t *testing.T) {
	engine, _ := newTestEngine(t, &stubRouter{}, nil)
	ctx := context.Background()

	res, err := engine.CreateOrder(ctx, testUser, createParams())
	require.NoError(t, err)
	id := res.Order.ID

	newInterval := int64(7200)
	newDca := asset.New(aaaInfo, asset.NewAmount(2000000))
	mod, err := engine.ModifyOrder(ctx, testUser, id, types.ModifyOrderParams{
		NewInterval:  &newInterval,
		NewDcaAmount: &newDca,
	})
	require.NoError(t, err)
	require.Equal(t, int64(7200), mod.Order.Interval)
	require.Equal(t, "2000000", mod.Order.DcaAmount.Amount.String())
	require.Empty(t, mod.Instructions)

	// spent survives every modification
	require.Equal(t, "0", mod.Order.Balance.Spent.Amount.String())
}

func TestModifyOrderSourceKindChange(t *testing.T) {
	engine, _ := newTestEngine(t, &stubRouter{}, nil)
	ctx := context.Background()

	res, err := engine.CreateOrder(ctx, testUser, createParams())
	require.NoError(t, err)
	id := res.Order.ID

	newSource := asset.New(gasInfo, asset.NewAmount(3000000))
	newDca := asset.New(gasInfo, asset.NewAmount(300000))
	mod, err := engine.ModifyOrder(ctx, testUser, id, types.ModifyOrderParams{
		NewSourceAsset: &newSource,
		NewDcaAmount:   &newDca,
	})
	require.NoError(t, err)
	require.True(t, mod.Order.Balance.Source.Info.Equal(gasInfo))
	require.Equal(t, "3000000", mod.Order.Balance.Source.Amount.String())

	// old source refunded, new source pulled in
	require.Len(t, mod.Instructions, 2)
	require.Equal(t, asset.TokenTransfer, mod.Instructions[0].Method)
	require.Equal(t, "10000000", mod.Instructions[0].Asset.Amount.String())
	require.Equal(t, testUser, mod.Instructions[0].To)
	require.Equal(t, asset.BankSend, mod.Instructions[1].Method)
	require.Equal(t, "3000000", mod.Instructions[1].Asset.Amount.String())
}

func TestModifyOrderRejections(t *testing.T) {
	engine, _ := newTestEngine(t, &stubRouter{}, nil)
	ctx := context.Background()

	res, err := engine.CreateOrder(ctx, testUser, createParams())
	require.NoError(t, err)
	id := res.Order.ID

	t.Run("unauthorized", func(t *testing.T) {
		newInterval := int64(60)
		_, err := engine.ModifyOrder(ctx, "someone_else", id, types.ModifyOrderParams{NewInterval: &newInterval})
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("same source kind", func(t *testing.T) {
		same := asset.New(aaaInfo, asset.NewAmount(5))
		_, err := engine.ModifyOrder(ctx, testUser, id, types.ModifyOrderParams{NewSourceAsset: &same})
		require.ErrorIs(t, err, ErrAssetKindMismatch)
	})

	t.Run("source change without matching dca amount", func(t *testing.T) {
		newSource := asset.New(gasInfo, asset.NewAmount(100))
		_, err := engine.ModifyOrder(ctx, testUser, id, types.ModifyOrderParams{NewSourceAsset: &newSource})
		require.ErrorIs(t, err, ErrAssetKindMismatch)
	})

	t.Run("non-whitelisted source", func(t *testing.T) {
		newSource := asset.New(cccInfo, asset.NewAmount(100))
		newDca := asset.New(cccInfo, asset.NewAmount(10))
		_, err := engine.ModifyOrder(ctx, testUser, id, types.ModifyOrderParams{
			NewSourceAsset: &newSource,
			NewDcaAmount:   &newDca,
		})
		require.ErrorIs(t, err, ErrAssetNotWhitelisted)
	})

	t.Run("zero interval", func(t *testing.T) {
		bad := int64(0)
		_, err := engine.ModifyOrder(ctx, testUser, id, types.ModifyOrderParams{NewInterval: &bad})
		require.ErrorIs(t, err, ErrInvalidInterval)
	})

	// the order is unchanged after all rejections
	order, err := engine.GetOrder(ctx, id)
	require.NoError(t, err)
	require.Equal(t, res.Order, order)
}

func TestCancelOrder(t *testing.T) {
	router := &stubRouter{received: asset.NewAmount(777)}
	engine, _ := newTestEngine(t, router, nil)
	fixClock(engine, 0)
	ctx := context.Background()

	res, err := engine.CreateOrder(ctx, testUser, createParams())
	require.NoError(t, err)
	id := res.Order.ID

	// accumulate some target first
	fixClock(engine, 3600)
	_, err = engine.PerformPurchase(ctx, testExecutor, id, directRoute())
	require.NoError(t, err)

	_, err = engine.CancelOrder(ctx, "someone_else", id)
	require.ErrorIs(t, err, ErrUnauthorized)

	cancel, err := engine.CancelOrder(ctx, testUser, id)
	require.NoError(t, err)

	// source, gas and tip come back; target stays for explicit withdrawal
	require.Len(t, cancel.Instructions, 3)
	kinds := make(map[string]string)
	for _, in := range cancel.Instructions {
		kinds[in.Asset.Info.String()] = in.Asset.Amount.String()
		require.Equal(t, testUser, in.To)
	}
	require.Equal(t, "9000000", kinds["token_aaa"])
	require.Equal(t, "500000", kinds["uluna"])
	require.Equal(t, "900000", kinds["uusdc"])

	_, err = engine.GetOrder(ctx, id)
	require.ErrorIs(t, err, ErrOrderNotFound)

	ids, err := engine.ListUserOrders(ctx, testUser)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestCancelOrderRefundTarget(t *testing.T) {
	router := &stubRouter{received: asset.NewAmount(777)}
	store := storage.NewMemoryStore()
	engine, err := NewEngine(store, router, nil, testLogger(), map[string]interface{}{
		"contract_addr":           testContract,
		"refund_target_on_cancel": true,
	})
	require.NoError(t, err)
	require.NoError(t, engine.Instantiate(context.Background(), testConfig()))
	fixClock(engine, 0)
	ctx := context.Background()

	res, err := engine.CreateOrder(ctx, testUser, createParams())
	require.NoError(t, err)
	id := res.Order.ID

	fixClock(engine, 3600)
	_, err = engine.PerformPurchase(ctx, testExecutor, id, directRoute())
	require.NoError(t, err)

	cancel, err := engine.CancelOrder(ctx, testUser, id)
	require.NoError(t, err)
	require.Len(t, cancel.Instructions, 4)
	require.Equal(t, "777", cancel.Instructions[3].Asset.Amount.String())
	require.True(t, cancel.Instructions[3].Asset.Info.Equal(bbbInfo))
}

func TestCanceledIDNeverReused(t *testing.T) {
	engine, _ := newTestEngine(t, &stubRouter{}, nil)
	ctx := context.Background()

	first, err := engine.CreateOrder(ctx, testUser, createParams())
	require.NoError(t, err)
	_, err = engine.CancelOrder(ctx, testUser, first.Order.ID)
	require.NoError(t, err)

	second, err := engine.CreateOrder(ctx, testUser, createParams())
	require.NoError(t, err)
	require.Greater(t, second.Order.ID, first.Order.ID)
}

func TestUpdateConfig(t *testing.T) {
	engine, _ := newTestEngine(t, &stubRouter{}, nil)
	ctx := context.Background()

	newHops := uint64(8)
	_, err := engine.UpdateConfig(ctx, testUser, types.ConfigUpdate{MaxHops: &newHops})
	require.ErrorIs(t, err, ErrUnauthorized)

	newFee := asset.New(tipInfo, asset.NewAmount(250000))
	cfg, err := engine.UpdateConfig(ctx, testOwner, types.ConfigUpdate{
		MaxHops:   &newHops,
		PerHopFee: &newFee,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(8), cfg.MaxHops)
	require.Equal(t, "250000", cfg.PerHopFee.Amount.String())

	// untouched fields survive
	require.Equal(t, "0.1", cfg.MaxSpread)

	badSpread := "1.5"
	_, err = engine.UpdateConfig(ctx, testOwner, types.ConfigUpdate{MaxSpread: &badSpread})
	require.ErrorIs(t, err, ErrInvalidSpread)
}

func TestGasPerPurchase(t *testing.T) {
	router := &stubRouter{received: asset.NewAmount(1)}
	store := storage.NewMemoryStore()
	engine, err := NewEngine(store, router, nil, testLogger(), map[string]interface{}{
		"contract_addr":    testContract,
		"gas_per_purchase": "250000",
	})
	require.NoError(t, err)
	require.NoError(t, engine.Instantiate(context.Background(), testConfig()))
	fixClock(engine, 0)
	ctx := context.Background()

	res, err := engine.CreateOrder(ctx, testUser, createParams())
	require.NoError(t, err)
	id := res.Order.ID

	fixClock(engine, 3600)
	pr, err := engine.PerformPurchase(ctx, testExecutor, id, directRoute())
	require.NoError(t, err)
	require.Equal(t, "250000", pr.OrderState.Balance.Gas.Amount.String())

	fixClock(engine, 7200)
	pr, err = engine.PerformPurchase(ctx, testExecutor, id, directRoute())
	require.NoError(t, err)
	require.Equal(t, "0", pr.OrderState.Balance.Gas.Amount.String())

	fixClock(engine, 10800)
	_, err = engine.PerformPurchase(ctx, testExecutor, id, directRoute())
	require.ErrorIs(t, err, ErrInsufficientBalance)
}
