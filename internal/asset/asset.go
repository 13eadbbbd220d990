package asset

import (
	"errors"
	"fmt"
)

var (
	// ErrWrongAssetKind is returned when a native-only operation is attempted
	// on a token asset, or vice versa.
	ErrWrongAssetKind = errors.New("wrong asset kind")
)

// Type discriminates the two kinds of assets the engine handles.
type Type string

const (
	// Native is a bank-module coin identified by its denom (uluna, usdt, ...).
	Native Type = "native"
	// Token is a fungible token living in its own contract.
	Token Type = "token"
)

// Info identifies an asset kind without an amount: either a native denom or a
// token contract id.
type Info struct {
	Type     Type   `json:"type"`
	Denom    string `json:"denom,omitempty"`
	Contract string `json:"contract,omitempty"`
}

func NativeInfo(denom string) Info {
	return Info{Type: Native, Denom: denom}
}

func TokenInfo(contract string) Info {
	return Info{Type: Token, Contract: contract}
}

// Equal reports whether two infos name the same asset kind.
func (i Info) Equal(other Info) bool {
	return i.Type == other.Type && i.Denom == other.Denom && i.Contract == other.Contract
}

func (i Info) IsNative() bool {
	return i.Type == Native
}

func (i Info) String() string {
	if i.Type == Native {
		return i.Denom
	}
	return i.Contract
}

// Asset pairs an asset kind with an amount.
type Asset struct {
	Info   Info   `json:"info"`
	Amount Amount `json:"amount"`
}

func New(info Info, amount Amount) Asset {
	return Asset{Info: info, Amount: amount}
}

// Zero returns a zero-amount asset of the given kind.
func Zero(info Info) Asset {
	return Asset{Info: info, Amount: ZeroAmount()}
}

// GetInfo returns the asset kind only.
func (a Asset) GetInfo() Info {
	return a.Info
}

// ToNative returns the denom of a native asset, or ErrWrongAssetKind.
func (a Asset) ToNative() (string, error) {
	if !a.Info.IsNative() {
		return "", fmt.Errorf("%w: %s is not native", ErrWrongAssetKind, a.Info)
	}
	return a.Info.Denom, nil
}

// SameKind reports whether the two assets are of the same kind.
func (a Asset) SameKind(other Asset) bool {
	return a.Info.Equal(other.Info)
}

func (a Asset) String() string {
	return a.Amount.String() + a.Info.String()
}

// TransferMethod names how the external environment moves the funds.
type TransferMethod string

const (
	// BankSend moves native coins through the bank module.
	BankSend TransferMethod = "bank_send"
	// TokenTransferFrom pulls tokens from a pre-approved allowance.
	TokenTransferFrom TransferMethod = "token_transfer_from"
	// TokenTransfer moves tokens already held by the sender.
	TokenTransfer TransferMethod = "token_transfer"
)

// TransferInstruction tells the external bank or token module to move an
// asset. The engine only emits instructions; executing them is the
// environment's job, atomically with the state update.
type TransferInstruction struct {
	Method TransferMethod `json:"method"`
	Asset  Asset          `json:"asset"`
	From   string         `json:"from"`
	To     string         `json:"to"`
}

// TransferInstruction builds the instruction moving the asset from one
// address to another. Pulling tokens out of a foreign account uses
// transfer_from and requires a prior allowance; everything else is a plain
// send/transfer.
func (a Asset) TransferInstruction(from, to string) TransferInstruction {
	method := BankSend
	if !a.Info.IsNative() {
		method = TokenTransferFrom
	}
	return TransferInstruction{Method: method, Asset: a, From: from, To: to}
}

// ReleaseInstruction builds the instruction returning custody-held funds to a
// recipient: a bank send for native coins, a token transfer otherwise.
func (a Asset) ReleaseInstruction(from, to string) TransferInstruction {
	method := BankSend
	if !a.Info.IsNative() {
		method = TokenTransfer
	}
	return TransferInstruction{Method: method, Asset: a, From: from, To: to}
}
