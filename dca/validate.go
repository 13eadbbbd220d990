package dca

import (
	"fmt"
	"math/big"

	"github.com/dauTT/astroport-dca/internal/asset"
	"github.com/dauTT/astroport-dca/internal/types"
)

// parseSpread parses a decimal spread string and bounds it to [0, 1].
func parseSpread(s string) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a decimal", ErrInvalidSpread, s)
	}
	if r.Sign() < 0 || r.Cmp(big.NewRat(1, 1)) > 0 {
		return nil, fmt.Errorf("%w: %q outside [0, 1]", ErrInvalidSpread, s)
	}
	return r, nil
}

// validateCaps checks caller-supplied max_hops/max_spread overrides against
// the global bounds.
func validateCaps(maxHops *uint64, maxSpread *string, cfg types.Config) error {
	if maxHops != nil {
		if *maxHops == 0 || *maxHops > cfg.MaxHops {
			return fmt.Errorf("%w: %d exceeds global bound %d", ErrInvalidHops, *maxHops, cfg.MaxHops)
		}
	}
	if maxSpread != nil {
		spread, err := parseSpread(*maxSpread)
		if err != nil {
			return err
		}
		bound, err := parseSpread(cfg.MaxSpread)
		if err != nil {
			return err
		}
		if spread.Cmp(bound) > 0 {
			return fmt.Errorf("%w: %s exceeds global bound %s", ErrInvalidSpread, *maxSpread, cfg.MaxSpread)
		}
	}
	return nil
}

// validateCreate checks a new order draft against the configuration.
func validateCreate(p types.CreateOrderParams, cfg types.Config) error {
	if p.Interval <= 0 {
		return fmt.Errorf("%w: interval must be greater than 0", ErrInvalidInterval)
	}

	if !p.DcaAmount.SameKind(p.Source) {
		return fmt.Errorf("%w: dca_amount kind %s does not match source kind %s",
			ErrAssetKindMismatch, p.DcaAmount.Info, p.Source.Info)
	}

	if !cfg.WhitelistedTokens.IsSourceAsset(p.Source.Info) {
		return fmt.Errorf("%w: source asset %s", ErrAssetNotWhitelisted, p.Source.Info)
	}
	if !cfg.WhitelistedTokens.IsTipAsset(p.Tip.Info) {
		return fmt.Errorf("%w: tip asset %s", ErrAssetNotWhitelisted, p.Tip.Info)
	}

	if !p.Gas.Info.Equal(cfg.GasInfo) {
		return fmt.Errorf("%w: gas must be %s, got %s", ErrAssetKindMismatch, cfg.GasInfo, p.Gas.Info)
	}

	for _, check := range []struct {
		name string
		a    asset.Asset
	}{
		{"source", p.Source},
		{"tip", p.Tip},
		{"gas", p.Gas},
		{"dca_amount", p.DcaAmount},
	} {
		if check.a.Amount.IsZero() {
			return fmt.Errorf("%w: %s amount must be greater than 0", ErrZeroAmount, check.name)
		}
	}

	return validateCaps(p.MaxHops, p.MaxSpread, cfg)
}

// validateModify checks the merged draft of an order modification. draft is
// the order with the explicit modify fields already applied.
func validateModify(p types.ModifyOrderParams, draft types.Order, cfg types.Config) error {
	if p.NewSourceAsset != nil {
		if !cfg.WhitelistedTokens.IsSourceAsset(p.NewSourceAsset.Info) {
			return fmt.Errorf("%w: source asset %s", ErrAssetNotWhitelisted, p.NewSourceAsset.Info)
		}
		if p.NewSourceAsset.Amount.IsZero() {
			return fmt.Errorf("%w: new source amount must be greater than 0", ErrZeroAmount)
		}
	}
	if p.NewTipAsset != nil {
		if !cfg.WhitelistedTokens.IsTipAsset(p.NewTipAsset.Info) {
			return fmt.Errorf("%w: tip asset %s", ErrAssetNotWhitelisted, p.NewTipAsset.Info)
		}
		if p.NewTipAsset.Amount.IsZero() {
			return fmt.Errorf("%w: new tip amount must be greater than 0", ErrZeroAmount)
		}
	}
	if p.NewDcaAmount != nil && p.NewDcaAmount.Amount.IsZero() {
		return fmt.Errorf("%w: new dca_amount must be greater than 0", ErrZeroAmount)
	}

	// the merged dca_amount must spend the merged source kind
	if !draft.DcaAmount.SameKind(draft.Balance.Source) {
		return fmt.Errorf("%w: dca_amount kind %s does not match source kind %s; supply new_dca_amount with the new source",
			ErrAssetKindMismatch, draft.DcaAmount.Info, draft.Balance.Source.Info)
	}

	if draft.Interval <= 0 {
		return fmt.Errorf("%w: interval must be greater than 0", ErrInvalidInterval)
	}

	return validateCaps(p.NewMaxHops, p.NewMaxSpread, cfg)
}

// validateRoute checks the hop path of a purchase: non-empty, within the hop
// budget, starting at the source kind, contiguous, and ending at the target
// kind.
func validateRoute(hops []types.SwapOperation, order types.Order, cfg types.Config) error {
	if len(hops) == 0 {
		return fmt.Errorf("%w: empty hop route", ErrInvalidRoute)
	}

	maxHops := cfg.MaxHops
	if order.MaxHops != nil {
		maxHops = *order.MaxHops
	}
	if uint64(len(hops)) > maxHops {
		return fmt.Errorf("%w: %d hops exceed limit %d", ErrInvalidRoute, len(hops), maxHops)
	}

	if !hops[0].Offer.Equal(order.Balance.Source.Info) {
		return fmt.Errorf("%w: first hop offers %s, order source is %s",
			ErrInvalidRoute, hops[0].Offer, order.Balance.Source.Info)
	}
	for i := 1; i < len(hops); i++ {
		if !hops[i-1].Ask.Equal(hops[i].Offer) {
			return fmt.Errorf("%w: hop %d asks %s but hop %d offers %s",
				ErrInvalidRoute, i-1, hops[i-1].Ask, i, hops[i].Offer)
		}
	}
	last := hops[len(hops)-1]
	if !last.Ask.Equal(order.Balance.Target.Info) {
		return fmt.Errorf("%w: last hop asks %s, order target is %s",
			ErrInvalidRoute, last.Ask, order.Balance.Target.Info)
	}
	return nil
}
