package asset

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAmountSub(t *testing.T) {
	a := NewAmount(100)
	b := NewAmount(40)

	got, err := a.Sub(b)
	require.NoError(t, err)
	require.Equal(t, "60", got.String())

	_, err = b.Sub(a)
	require.ErrorIs(t, err, ErrUnderflow)

	zero, err := a.Sub(a)
	require.NoError(t, err)
	require.True(t, zero.IsZero())
}

func TestAmountParse(t *testing.T) {
	a, err := ParseAmount("340282366920938463463374607431768211455")
	require.NoError(t, err)
	require.Equal(t, "340282366920938463463374607431768211455", a.String())

	_, err = ParseAmount("-5")
	require.Error(t, err)

	_, err = ParseAmount("12.5")
	require.Error(t, err)

	_, err = ParseAmount("")
	require.Error(t, err)
}

func TestAmountMulAndMin(t *testing.T) {
	fee := NewAmount(100000)
	require.Equal(t, "200000", fee.MulUint64(2).String())
	require.Equal(t, "0", fee.MulUint64(0).String())

	require.Equal(t, "3", Min(NewAmount(3), NewAmount(7)).String())
	require.Equal(t, "3", Min(NewAmount(7), NewAmount(3)).String())
}

func TestAmountJSON(t *testing.T) {
	raw, err := json.Marshal(NewAmount(123456))
	require.NoError(t, err)
	require.Equal(t, `"123456"`, string(raw))

	var a Amount
	require.NoError(t, json.Unmarshal([]byte(`"789"`), &a))
	require.Equal(t, "789", a.String())

	require.Error(t, json.Unmarshal([]byte(`"abc"`), &a))
}

func TestZeroValueAmount(t *testing.T) {
	var a Amount
	require.True(t, a.IsZero())
	require.Equal(t, "0", a.String())
	require.Equal(t, "5", a.Add(NewAmount(5)).String())
}

func TestInfoEqual(t *testing.T) {
	require.True(t, NativeInfo("uluna").Equal(NativeInfo("uluna")))
	require.False(t, NativeInfo("uluna").Equal(NativeInfo("uusdc")))
	require.False(t, NativeInfo("uluna").Equal(TokenInfo("uluna")))
	require.True(t, TokenInfo("addr1").Equal(TokenInfo("addr1")))
}

func TestToNative(t *testing.T) {
	denom, err := New(NativeInfo("uluna"), NewAmount(1)).ToNative()
	require.NoError(t, err)
	require.Equal(t, "uluna", denom)

	_, err = New(TokenInfo("addr1"), NewAmount(1)).ToNative()
	require.ErrorIs(t, err, ErrWrongAssetKind)
}

func TestTransferInstructions(t *testing.T) {
	native := New(NativeInfo("uluna"), NewAmount(10))
	token := New(TokenInfo("addr1"), NewAmount(10))

	in := native.TransferInstruction("user", "contract")
	require.Equal(t, BankSend, in.Method)

	in = token.TransferInstruction("user", "contract")
	require.Equal(t, TokenTransferFrom, in.Method)
	require.Equal(t, "user", in.From)
	require.Equal(t, "contract", in.To)

	out := token.ReleaseInstruction("contract", "user")
	require.Equal(t, TokenTransfer, out.Method)

	out = native.ReleaseInstruction("contract", "user")
	require.Equal(t, BankSend, out.Method)
}
