package dca

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dauTT/astroport-dca/internal/asset"
	"github.com/dauTT/astroport-dca/internal/types"
)

// TxResult is the outcome of a state-changing operation: the stored order
// plus the transfer instructions the external bank/token modules must execute
// atomically with it.
type TxResult struct {
	Order        types.Order                 `json:"order"`
	Instructions []asset.TransferInstruction `json:"instructions"`
}

// CreateOrder creates a new DCA order for the caller. Source, tip and gas
// funds move from the caller into contract custody; token kinds must have
// been pre-approved.
func (e *Engine) CreateOrder(ctx context.Context, caller string, p types.CreateOrderParams) (*TxResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.store.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("fail to load config: %w", err)
	}
	if err := validateCreate(p, cfg); err != nil {
		return nil, err
	}
	if err := e.checkAllowances(ctx, caller, p.Source, p.Tip, p.Gas); err != nil {
		return nil, err
	}

	id, err := e.store.NextOrderID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fail to assign order id: %w", err)
	}

	now := e.now().Unix()
	order := types.Order{
		ID:        id,
		CreatedBy: caller,
		CreatedAt: now,
		StartAt:   p.StartAt,
		Interval:  p.Interval,
		DcaAmount: p.DcaAmount,
		MaxHops:   p.MaxHops,
		MaxSpread: p.MaxSpread,
		Balance: types.Balance{
			Source:       p.Source,
			Spent:        asset.Zero(p.Source.Info),
			Target:       asset.Zero(p.TargetInfo),
			Tip:          p.Tip,
			Gas:          p.Gas,
			LastPurchase: 0,
		},
	}

	if err := e.store.PutOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("fail to store order: %w", err)
	}

	instructions := []asset.TransferInstruction{
		p.Source.TransferInstruction(caller, e.opts.ContractAddr),
		p.Tip.TransferInstruction(caller, e.opts.ContractAddr),
		p.Gas.TransferInstruction(caller, e.opts.ContractAddr),
	}

	e.logger.WithFields(logrus.Fields{
		"order_id": id,
		"user":     caller,
		"source":   p.Source.String(),
		"target":   p.TargetInfo.String(),
		"interval": p.Interval,
	}).Info("dca order created")

	return &TxResult{Order: order, Instructions: instructions}, nil
}

// Deposit adds funds to the source, tip or gas bucket of the caller's order.
func (e *Engine) Deposit(ctx context.Context, caller string, orderID uint64, bucket types.Bucket, a asset.Asset) (*TxResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch bucket {
	case types.BucketSource, types.BucketTip, types.BucketGas:
	default:
		return nil, fmt.Errorf("%w: cannot deposit into %q", ErrInvalidBucket, bucket)
	}

	order, err := e.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if caller != order.CreatedBy {
		return nil, fmt.Errorf("%w: order %d belongs to %s", ErrUnauthorized, orderID, order.CreatedBy)
	}
	if a.Amount.IsZero() {
		return nil, fmt.Errorf("%w: deposit amount must be greater than 0", ErrZeroAmount)
	}

	held, _ := order.BucketAsset(bucket)
	if !held.SameKind(a) {
		return nil, fmt.Errorf("%w: %s bucket holds %s, got %s", ErrAssetKindMismatch, bucket, held.Info, a.Info)
	}
	if err := e.checkAllowances(ctx, caller, a); err != nil {
		return nil, err
	}

	held.Amount = held.Amount.Add(a.Amount)
	order.SetBucketAsset(bucket, held)

	if err := e.store.PutOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("fail to store order: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"bucket":   bucket,
		"asset":    a.String(),
	}).Info("deposit")

	return &TxResult{
		Order:        order,
		Instructions: []asset.TransferInstruction{a.TransferInstruction(caller, e.opts.ContractAddr)},
	}, nil
}

// Withdraw removes funds from the source, tip, gas or target bucket of the
// caller's order and returns them to the caller. The spent bucket is a
// lifetime counter and cannot be withdrawn.
func (e *Engine) Withdraw(ctx context.Context, caller string, orderID uint64, bucket types.Bucket, a asset.Asset) (*TxResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch bucket {
	case types.BucketSource, types.BucketTip, types.BucketGas, types.BucketTarget:
	default:
		return nil, fmt.Errorf("%w: cannot withdraw from %q", ErrInvalidBucket, bucket)
	}

	order, err := e.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if caller != order.CreatedBy {
		return nil, fmt.Errorf("%w: order %d belongs to %s", ErrUnauthorized, orderID, order.CreatedBy)
	}
	if a.Amount.IsZero() {
		return nil, fmt.Errorf("%w: withdraw amount must be greater than 0", ErrZeroAmount)
	}

	held, _ := order.BucketAsset(bucket)
	if !held.SameKind(a) {
		return nil, fmt.Errorf("%w: %s bucket holds %s, got %s", ErrAssetKindMismatch, bucket, held.Info, a.Info)
	}

	remaining, err := held.Amount.Sub(a.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %s bucket holds %s, requested %s",
			ErrInsufficientBalance, bucket, held.Amount, a.Amount)
	}
	held.Amount = remaining
	order.SetBucketAsset(bucket, held)

	if err := e.store.PutOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("fail to store order: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"bucket":   bucket,
		"asset":    a.String(),
	}).Info("withdraw")

	return &TxResult{
		Order:        order,
		Instructions: []asset.TransferInstruction{a.ReleaseInstruction(e.opts.ContractAddr, caller)},
	}, nil
}

// ModifyOrder applies the non-nil fields of p to the caller's order. A
// source or tip kind change refunds the old bucket in full and replaces it
// with the newly funded asset; a target kind change refunds the accumulated
// target. The spent counter is never touched.
func (e *Engine) ModifyOrder(ctx context.Context, caller string, orderID uint64, p types.ModifyOrderParams) (*TxResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, err := e.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if caller != order.CreatedBy {
		return nil, fmt.Errorf("%w: order %d belongs to %s", ErrUnauthorized, orderID, order.CreatedBy)
	}
	cfg, err := e.store.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("fail to load config: %w", err)
	}

	// merge the draft before validating it
	draft := order
	var instructions []asset.TransferInstruction

	if p.NewSourceAsset != nil {
		if p.NewSourceAsset.Info.Equal(order.Balance.Source.Info) {
			return nil, fmt.Errorf("%w: new source kind %s equals the current one; use deposit/withdraw to resize",
				ErrAssetKindMismatch, p.NewSourceAsset.Info)
		}
		if !order.Balance.Source.Amount.IsZero() {
			instructions = append(instructions,
				order.Balance.Source.ReleaseInstruction(e.opts.ContractAddr, caller))
		}
		draft.Balance.Source = *p.NewSourceAsset
		instructions = append(instructions,
			p.NewSourceAsset.TransferInstruction(caller, e.opts.ContractAddr))
	}
	if p.NewTargetInfo != nil {
		if p.NewTargetInfo.Equal(order.Balance.Target.Info) {
			return nil, fmt.Errorf("%w: new target kind %s equals the current one",
				ErrAssetKindMismatch, *p.NewTargetInfo)
		}
		if !order.Balance.Target.Amount.IsZero() {
			instructions = append(instructions,
				order.Balance.Target.ReleaseInstruction(e.opts.ContractAddr, caller))
		}
		draft.Balance.Target = asset.Zero(*p.NewTargetInfo)
	}
	if p.NewTipAsset != nil {
		if p.NewTipAsset.Info.Equal(order.Balance.Tip.Info) {
			return nil, fmt.Errorf("%w: new tip kind %s equals the current one; use deposit/withdraw to resize",
				ErrAssetKindMismatch, p.NewTipAsset.Info)
		}
		if !order.Balance.Tip.Amount.IsZero() {
			instructions = append(instructions,
				order.Balance.Tip.ReleaseInstruction(e.opts.ContractAddr, caller))
		}
		draft.Balance.Tip = *p.NewTipAsset
		instructions = append(instructions,
			p.NewTipAsset.TransferInstruction(caller, e.opts.ContractAddr))
	}
	if p.NewDcaAmount != nil {
		draft.DcaAmount = *p.NewDcaAmount
	}
	if p.NewInterval != nil {
		draft.Interval = *p.NewInterval
	}
	if p.NewStartAt != nil {
		draft.StartAt = *p.NewStartAt
	}
	if p.NewMaxHops != nil {
		draft.MaxHops = p.NewMaxHops
	}
	if p.NewMaxSpread != nil {
		draft.MaxSpread = p.NewMaxSpread
	}

	if err := validateModify(p, draft, cfg); err != nil {
		return nil, err
	}
	if p.NewSourceAsset != nil || p.NewTipAsset != nil {
		funding := make([]asset.Asset, 0, 2)
		if p.NewSourceAsset != nil {
			funding = append(funding, *p.NewSourceAsset)
		}
		if p.NewTipAsset != nil {
			funding = append(funding, *p.NewTipAsset)
		}
		if err := e.checkAllowances(ctx, caller, funding...); err != nil {
			return nil, err
		}
	}

	if err := e.store.PutOrder(ctx, draft); err != nil {
		return nil, fmt.Errorf("fail to store order: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"user":     caller,
	}).Info("dca order modified")

	return &TxResult{Order: draft, Instructions: instructions}, nil
}

// CancelOrder removes the caller's order, refunding the source, gas and tip
// buckets. The target bucket is refunded too when the engine is configured
// with refund_target_on_cancel.
func (e *Engine) CancelOrder(ctx context.Context, caller string, orderID uint64) (*TxResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, err := e.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if caller != order.CreatedBy {
		return nil, fmt.Errorf("%w: order %d belongs to %s", ErrUnauthorized, orderID, order.CreatedBy)
	}

	refunds := []asset.Asset{order.Balance.Source, order.Balance.Gas, order.Balance.Tip}
	if e.opts.RefundTargetOnCancel {
		refunds = append(refunds, order.Balance.Target)
	}

	var instructions []asset.TransferInstruction
	for _, a := range refunds {
		if !a.Amount.IsZero() {
			instructions = append(instructions, a.ReleaseInstruction(e.opts.ContractAddr, caller))
		}
	}

	if err := e.store.RemoveOrder(ctx, orderID); err != nil {
		return nil, fmt.Errorf("fail to remove order %d: %w", orderID, err)
	}

	e.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"user":     caller,
	}).Info("dca order canceled")

	return &TxResult{Order: order, Instructions: instructions}, nil
}
