package types

import (
	"fmt"

	"github.com/dauTT/astroport-dca/internal/asset"
)

// Bucket names one of the per-order balance buckets.
type Bucket string

const (
	BucketSource Bucket = "source"
	BucketSpent  Bucket = "spent"
	BucketTarget Bucket = "target"
	BucketTip    Bucket = "tip"
	BucketGas    Bucket = "gas"
)

// Balance holds the five per-order buckets plus the purchase clock.
// Spent is a lifetime counter of source funds consumed by purchases; it is
// never refunded or withdrawn.
type Balance struct {
	Source       asset.Asset `json:"source"`
	Spent        asset.Asset `json:"spent"`
	Target       asset.Asset `json:"target"`
	Tip          asset.Asset `json:"tip"`
	Gas          asset.Asset `json:"gas"`
	LastPurchase int64       `json:"last_purchase"`
}

// Order is one DCA order. MaxHops and MaxSpread are optional per-order
// overrides of the global bounds; nil means the global value applies.
type Order struct {
	ID        uint64      `json:"id"`
	CreatedBy string      `json:"created_by"`
	CreatedAt int64       `json:"created_at"`
	StartAt   int64       `json:"start_at"`
	Interval  int64       `json:"interval"`
	DcaAmount asset.Asset `json:"dca_amount"`
	MaxHops   *uint64     `json:"max_hops,omitempty"`
	MaxSpread *string     `json:"max_spread,omitempty"`
	Balance   Balance     `json:"balance"`
}

// BucketAsset returns the asset held in the named bucket.
func (o Order) BucketAsset(b Bucket) (asset.Asset, error) {
	switch b {
	case BucketSource:
		return o.Balance.Source, nil
	case BucketSpent:
		return o.Balance.Spent, nil
	case BucketTarget:
		return o.Balance.Target, nil
	case BucketTip:
		return o.Balance.Tip, nil
	case BucketGas:
		return o.Balance.Gas, nil
	default:
		return asset.Asset{}, fmt.Errorf("unknown bucket %q", b)
	}
}

// SetBucketAsset replaces the asset held in the named bucket. Unknown buckets
// are ignored; callers validate the bucket name first.
func (o *Order) SetBucketAsset(b Bucket, a asset.Asset) {
	switch b {
	case BucketSource:
		o.Balance.Source = a
	case BucketSpent:
		o.Balance.Spent = a
	case BucketTarget:
		o.Balance.Target = a
	case BucketTip:
		o.Balance.Tip = a
	case BucketGas:
		o.Balance.Gas = a
	}
}

// SwapOperation is one hop of a purchase route: swap the offer kind for the
// ask kind on the pair the router resolves for them.
type SwapOperation struct {
	Offer asset.Info `json:"offer_asset_info"`
	Ask   asset.Info `json:"ask_asset_info"`
}

// CreateOrderParams carries the fields of a new order request.
type CreateOrderParams struct {
	Source     asset.Asset `json:"source"`
	TargetInfo asset.Info  `json:"target_info"`
	Tip        asset.Asset `json:"tip"`
	Gas        asset.Asset `json:"gas"`
	DcaAmount  asset.Asset `json:"dca_amount"`
	Interval   int64       `json:"interval"`
	StartAt    int64       `json:"start_at"`
	MaxHops    *uint64     `json:"max_hops,omitempty"`
	MaxSpread  *string     `json:"max_spread,omitempty"`
}

// ModifyOrderParams carries an order modification. Nil fields keep their
// current values. Replacing the source or tip asset supplies the full new
// balance; the old one is refunded.
type ModifyOrderParams struct {
	NewSourceAsset *asset.Asset `json:"new_source_asset,omitempty"`
	NewTargetInfo  *asset.Info  `json:"new_target_info,omitempty"`
	NewTipAsset    *asset.Asset `json:"new_tip_asset,omitempty"`
	NewDcaAmount   *asset.Asset `json:"new_dca_amount,omitempty"`
	NewInterval    *int64       `json:"new_interval,omitempty"`
	NewStartAt     *int64       `json:"new_start_at,omitempty"`
	NewMaxHops     *uint64      `json:"new_max_hops,omitempty"`
	NewMaxSpread   *string      `json:"new_max_spread,omitempty"`
}
