package dca

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"

	"github.com/dauTT/astroport-dca/internal/asset"
	"github.com/dauTT/astroport-dca/internal/types"
	"github.com/dauTT/astroport-dca/storage"
)

// Router is the AMM router the engine swaps through. It is a black box:
// the engine never prices swaps itself, it only trusts the reported
// received amount. A failed swap must leave no trace on the router side.
type Router interface {
	// Swap executes the hop route spending offer and returns the amount of
	// the final ask asset received.
	Swap(ctx context.Context, hops []types.SwapOperation, offer asset.Asset, maxSpread string, recipient string) (asset.Amount, error)
}

// TokenLedger exposes the token-contract queries the engine needs before it
// may emit a transfer_from instruction. The allowance is granted by the user
// in their own transaction, never by the engine.
type TokenLedger interface {
	Balance(ctx context.Context, contract, address string) (asset.Amount, error)
	Allowance(ctx context.Context, contract, owner, spender string) (asset.Amount, error)
}

// Options tunes the engine's policy points. They arrive as a raw map from
// the plugin configuration and are decoded with mapstructure.
type Options struct {
	// ContractAddr is the custody address funds are moved to and from.
	ContractAddr string `mapstructure:"contract_addr"`
	// RefundTargetOnCancel also returns the accumulated target balance when
	// an order is canceled. Off by default: the target bucket is normally
	// withdrawn explicitly before cancel.
	RefundTargetOnCancel bool `mapstructure:"refund_target_on_cancel"`
	// GasPerPurchase debits a flat native amount from the gas bucket on each
	// purchase. Empty means the gas bucket is a pure reserve and purchases
	// leave it untouched.
	GasPerPurchase string `mapstructure:"gas_per_purchase"`
}

// Engine owns order state and executes the DCA operations. All entry points
// are serialized: each call runs to completion against the store before the
// next one starts, so an order is never mutated concurrently.
type Engine struct {
	mu     sync.Mutex
	store  storage.Store
	router Router
	tokens TokenLedger
	logger *logrus.Logger
	opts   Options

	gasPerPurchase asset.Amount
	now            func() time.Time
}

func NewEngine(store storage.Store, router Router, tokens TokenLedger, logger *logrus.Logger, rawOpts map[string]interface{}) (*Engine, error) {
	var opts Options
	if err := mapstructure.Decode(rawOpts, &opts); err != nil {
		return nil, fmt.Errorf("fail to decode engine options: %w", err)
	}
	if opts.ContractAddr == "" {
		return nil, fmt.Errorf("contract_addr is required")
	}

	gasPerPurchase := asset.ZeroAmount()
	if opts.GasPerPurchase != "" {
		parsed, err := asset.ParseAmount(opts.GasPerPurchase)
		if err != nil {
			return nil, fmt.Errorf("invalid gas_per_purchase: %w", err)
		}
		gasPerPurchase = parsed
	}

	return &Engine{
		store:          store,
		router:         router,
		tokens:         tokens,
		logger:         logger,
		opts:           opts,
		gasPerPurchase: gasPerPurchase,
		now:            time.Now,
	}, nil
}

// Instantiate stores the initial configuration. It is a one-time operation;
// later changes go through UpdateConfig.
func (e *Engine) Instantiate(ctx context.Context, cfg types.Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := parseSpread(cfg.MaxSpread); err != nil {
		return err
	}
	if err := e.store.SetConfig(ctx, cfg); err != nil {
		return fmt.Errorf("fail to store config: %w", err)
	}
	e.logger.WithFields(logrus.Fields{
		"owner":       cfg.Owner,
		"router_addr": cfg.RouterAddr,
	}).Info("engine instantiated")
	return nil
}

// UpdateConfig applies an owner-authorized partial configuration update.
// Fields left nil keep their current values.
func (e *Engine) UpdateConfig(ctx context.Context, caller string, update types.ConfigUpdate) (types.Config, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.store.GetConfig(ctx)
	if err != nil {
		return types.Config{}, fmt.Errorf("fail to load config: %w", err)
	}
	if caller != cfg.Owner {
		return types.Config{}, fmt.Errorf("%w: only %s may update config", ErrUnauthorized, cfg.Owner)
	}

	if update.MaxHops != nil {
		cfg.MaxHops = *update.MaxHops
	}
	if update.PerHopFee != nil {
		cfg.PerHopFee = *update.PerHopFee
	}
	if update.WhitelistedTokensSource != nil {
		cfg.WhitelistedTokens.Source = update.WhitelistedTokensSource
	}
	if update.WhitelistedTokensTip != nil {
		cfg.WhitelistedTokens.Tip = update.WhitelistedTokensTip
	}
	if update.MaxSpread != nil {
		if _, err := parseSpread(*update.MaxSpread); err != nil {
			return types.Config{}, err
		}
		cfg.MaxSpread = *update.MaxSpread
	}
	if update.RouterAddr != nil {
		cfg.RouterAddr = *update.RouterAddr
	}

	if err := e.store.SetConfig(ctx, cfg); err != nil {
		return types.Config{}, fmt.Errorf("fail to store config: %w", err)
	}
	e.logger.Info("config updated")
	return cfg, nil
}

// GetConfig returns the current configuration.
func (e *Engine) GetConfig(ctx context.Context) (types.Config, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg, err := e.store.GetConfig(ctx)
	if err != nil {
		return types.Config{}, fmt.Errorf("fail to load config: %w", err)
	}
	return cfg, nil
}

// GetOrder returns a single order by id.
func (e *Engine) GetOrder(ctx context.Context, id uint64) (types.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadOrder(ctx, id)
}

// ListUserOrders returns the ids of the user's orders in creation order.
func (e *Engine) ListUserOrders(ctx context.Context, address string) ([]uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids, err := e.store.ListUserOrders(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("fail to list orders for %s: %w", address, err)
	}
	return ids, nil
}

func (e *Engine) loadOrder(ctx context.Context, id uint64) (types.Order, error) {
	order, err := e.store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return types.Order{}, fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
		}
		return types.Order{}, fmt.Errorf("fail to load order %d: %w", id, err)
	}
	return order, nil
}

// checkAllowances verifies that every token asset the caller is funding has
// been pre-approved for the contract. Amounts of the same kind are summed
// first, since one allowance covers them all.
func (e *Engine) checkAllowances(ctx context.Context, owner string, assets ...asset.Asset) error {
	if e.tokens == nil {
		return nil
	}
	needed := make(map[string]asset.Amount)
	for _, a := range assets {
		if a.Info.IsNative() || a.Amount.IsZero() {
			continue
		}
		if prev, ok := needed[a.Info.Contract]; ok {
			needed[a.Info.Contract] = prev.Add(a.Amount)
		} else {
			needed[a.Info.Contract] = a.Amount
		}
	}
	for contract, amount := range needed {
		allowance, err := e.tokens.Allowance(ctx, contract, owner, e.opts.ContractAddr)
		if err != nil {
			return fmt.Errorf("fail to query allowance of %s: %w", contract, err)
		}
		if allowance.Cmp(amount) < 0 {
			return fmt.Errorf("%w: token %s needs %s, approved %s",
				ErrInsufficientAllowance, contract, amount, allowance)
		}
	}
	return nil
}
