package types

import "github.com/dauTT/astroport-dca/internal/asset"

// WhitelistedTokens bounds what users may fund orders with. Source lists the
// asset kinds orders may spend, Tip the kinds executor fees may be paid in.
type WhitelistedTokens struct {
	Source []asset.Info `json:"source"`
	Tip    []asset.Info `json:"tip"`
}

func (w WhitelistedTokens) IsSourceAsset(info asset.Info) bool {
	for _, a := range w.Source {
		if a.Equal(info) {
			return true
		}
	}
	return false
}

func (w WhitelistedTokens) IsTipAsset(info asset.Info) bool {
	for _, a := range w.Tip {
		if a.Equal(info) {
			return true
		}
	}
	return false
}

// Config is the engine's global configuration singleton.
type Config struct {
	Owner             string            `json:"owner"`
	FactoryAddr       string            `json:"factory_addr"`
	RouterAddr        string            `json:"router_addr"`
	GasInfo           asset.Info        `json:"gas_info"`
	MaxHops           uint64            `json:"max_hops"`
	MaxSpread         string            `json:"max_spread"`
	PerHopFee         asset.Asset       `json:"per_hop_fee"`
	WhitelistedTokens WhitelistedTokens `json:"whitelisted_tokens"`
}

// ConfigUpdate is an owner-only partial update. Nil fields keep their
// current values.
type ConfigUpdate struct {
	MaxHops                 *uint64      `json:"max_hops,omitempty"`
	MaxSpread               *string      `json:"max_spread,omitempty"`
	PerHopFee               *asset.Asset `json:"per_hop_fee,omitempty"`
	WhitelistedTokensSource []asset.Info `json:"whitelisted_tokens_source,omitempty"`
	WhitelistedTokensTip    []asset.Info `json:"whitelisted_tokens_tip,omitempty"`
	RouterAddr              *string      `json:"router_addr,omitempty"`
}
