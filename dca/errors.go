package dca

import "errors"

// Every entry point rejects bad input with one of these sentinels, wrapped
// with context. Callers match them with errors.Is. A rejected call never
// leaves partial state behind.
var (
	ErrUnauthorized              = errors.New("unauthorized")
	ErrOrderNotFound             = errors.New("order not found")
	ErrAssetKindMismatch         = errors.New("asset kind mismatch")
	ErrAssetNotWhitelisted       = errors.New("asset not whitelisted")
	ErrZeroAmount                = errors.New("zero amount")
	ErrInsufficientBalance       = errors.New("insufficient balance")
	ErrInsufficientSourceBalance = errors.New("insufficient source balance")
	ErrInsufficientTipBalance    = errors.New("insufficient tip balance")
	ErrNotYetDue                 = errors.New("purchase not yet due")
	ErrInvalidRoute              = errors.New("invalid hop route")
	ErrInvalidHops               = errors.New("invalid max hops")
	ErrInvalidSpread             = errors.New("invalid max spread")
	ErrInvalidInterval           = errors.New("invalid interval")
	ErrInvalidBucket             = errors.New("invalid balance bucket")
	ErrInsufficientAllowance     = errors.New("insufficient token allowance")
)
