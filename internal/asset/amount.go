package asset

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrUnderflow is returned when a subtraction would produce a negative amount.
	ErrUnderflow = errors.New("amount underflow")
)

// Amount is a non-negative arbitrary-precision integer. On the wire it is a
// decimal string, like the Uint128 amounts the chain uses.
type Amount struct {
	i *big.Int
}

func ZeroAmount() Amount {
	return Amount{i: new(big.Int)}
}

func NewAmount(v uint64) Amount {
	return Amount{i: new(big.Int).SetUint64(v)}
}

// ParseAmount parses a base-10 amount string. Negative values are rejected.
func ParseAmount(s string) (Amount, error) {
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("invalid amount %q", s)
	}
	if i.Sign() < 0 {
		return Amount{}, fmt.Errorf("negative amount %q", s)
	}
	return Amount{i: i}, nil
}

// MustAmount is ParseAmount for literals known to be valid; it panics otherwise.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) big() *big.Int {
	if a.i == nil {
		return new(big.Int)
	}
	return a.i
}

func (a Amount) IsZero() bool {
	return a.big().Sign() == 0
}

func (a Amount) Cmp(b Amount) int {
	return a.big().Cmp(b.big())
}

func (a Amount) String() string {
	return a.big().String()
}

func (a Amount) Add(b Amount) Amount {
	return Amount{i: new(big.Int).Add(a.big(), b.big())}
}

// Sub returns a-b, or ErrUnderflow when b exceeds a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.big().Cmp(b.big()) < 0 {
		return Amount{}, ErrUnderflow
	}
	return Amount{i: new(big.Int).Sub(a.big(), b.big())}, nil
}

// MulUint64 returns a*n. Used for the per-hop fee times the route length.
func (a Amount) MulUint64(n uint64) Amount {
	return Amount{i: new(big.Int).Mul(a.big(), new(big.Int).SetUint64(n))}
}

// Min returns the smaller of a and b.
func Min(a, b Amount) Amount {
	if a.Cmp(b) <= 0 {
		return Amount{i: new(big.Int).Set(a.big())}
	}
	return Amount{i: new(big.Int).Set(b.big())}
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.big().String() + `"`), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
