package dca

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dauTT/astroport-dca/internal/asset"
	"github.com/dauTT/astroport-dca/internal/types"
)

// PurchaseResult is the outcome of one executed DCA purchase.
type PurchaseResult struct {
	OrderState   types.Order                 `json:"order"`
	Spent        asset.Asset                 `json:"spent"`
	Received     asset.Asset                 `json:"received"`
	Fee          asset.Asset                 `json:"fee"`
	Instructions []asset.TransferInstruction `json:"instructions"`
}

// PerformPurchase executes one DCA purchase of the given order through the
// supplied hop route. The executor is any third party; it is paid the per-hop
// fee from the order's tip bucket. The order is only persisted after the
// router reports a successful swap, so a failed swap leaves the order
// untouched.
func (e *Engine) PerformPurchase(ctx context.Context, executor string, orderID uint64, hops []types.SwapOperation) (*PurchaseResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, err := e.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	cfg, err := e.store.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("fail to load config: %w", err)
	}

	now := e.now().Unix()
	due := order.StartAt
	if next := order.Balance.LastPurchase + order.Interval; next > due {
		due = next
	}
	if now < due {
		return nil, fmt.Errorf("%w: order %d due at %d, now %d", ErrNotYetDue, orderID, due, now)
	}

	if err := validateRoute(hops, order, cfg); err != nil {
		return nil, err
	}

	spend := asset.Min(order.DcaAmount.Amount, order.Balance.Source.Amount)
	if spend.IsZero() {
		return nil, fmt.Errorf("%w: order %d source is empty", ErrInsufficientSourceBalance, orderID)
	}

	fee := cfg.PerHopFee.Amount.MulUint64(uint64(len(hops)))
	tipRemaining, err := order.Balance.Tip.Amount.Sub(fee)
	if err != nil {
		return nil, fmt.Errorf("%w: order %d needs %s for %d hops, tip holds %s",
			ErrInsufficientTipBalance, orderID, fee, len(hops), order.Balance.Tip.Amount)
	}

	gasRemaining := order.Balance.Gas.Amount
	if !e.gasPerPurchase.IsZero() {
		gasRemaining, err = order.Balance.Gas.Amount.Sub(e.gasPerPurchase)
		if err != nil {
			return nil, fmt.Errorf("%w: order %d gas bucket holds %s, purchase costs %s",
				ErrInsufficientBalance, orderID, order.Balance.Gas.Amount, e.gasPerPurchase)
		}
	}

	offer := asset.New(order.Balance.Source.Info, spend)
	maxSpread := cfg.MaxSpread
	if order.MaxSpread != nil {
		maxSpread = *order.MaxSpread
	}

	received, err := e.router.Swap(ctx, hops, offer, maxSpread, e.opts.ContractAddr)
	if err != nil {
		return nil, fmt.Errorf("swap failed for order %d: %w", orderID, err)
	}

	sourceRemaining, err := order.Balance.Source.Amount.Sub(spend)
	if err != nil {
		return nil, fmt.Errorf("%w: order %d", ErrInsufficientSourceBalance, orderID)
	}
	order.Balance.Source.Amount = sourceRemaining
	order.Balance.Spent.Amount = order.Balance.Spent.Amount.Add(spend)
	order.Balance.Target.Amount = order.Balance.Target.Amount.Add(received)
	order.Balance.Tip.Amount = tipRemaining
	order.Balance.Gas.Amount = gasRemaining
	order.Balance.LastPurchase = now

	if err := e.store.PutOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("fail to store order: %w", err)
	}

	feeAsset := asset.New(order.Balance.Tip.Info, fee)
	instructions := []asset.TransferInstruction{
		offer.ReleaseInstruction(e.opts.ContractAddr, cfg.RouterAddr),
	}
	if !fee.IsZero() {
		instructions = append(instructions,
			feeAsset.ReleaseInstruction(e.opts.ContractAddr, executor))
	}

	e.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"executor": executor,
		"spent":    offer.String(),
		"received": received.String(),
		"fee":      fee.String(),
		"hops":     len(hops),
	}).Info("dca purchase performed")

	return &PurchaseResult{
		OrderState:   order,
		Spent:        offer,
		Received:     asset.New(order.Balance.Target.Info, received),
		Fee:          feeAsset,
		Instructions: instructions,
	}, nil
}
