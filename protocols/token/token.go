// Package token describes the ERC-20 style assets the router trades. The
// router itself only compares token addresses; decimals matter to the
// people typing amounts.
package token

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// MaxDecimals bounds TokenView.Decimals so 10^decimals fits in 256 bits.
const MaxDecimals = 77

var (
	ErrUnknownToken  = errors.New("unknown token")
	ErrBadAmount     = errors.New("malformed amount")
	ErrTooManyDigits = errors.New("too many fractional digits")
)

// TokenView is the static description of a token.
type TokenView struct {
	Address  common.Address `json:"address" yaml:"address"`
	Symbol   string         `json:"symbol" yaml:"symbol"`
	Decimals uint8          `json:"decimals" yaml:"decimals"`
}

func (t TokenView) Validate() error {
	if t.Address == (common.Address{}) {
		return fmt.Errorf("token %q: zero address", t.Symbol)
	}
	if t.Decimals > MaxDecimals {
		return fmt.Errorf("token %q: decimals %d above %d", t.Symbol, t.Decimals, MaxDecimals)
	}
	return nil
}

// ParseAmount converts a human decimal like "1.5" into base units.
func (t TokenView) ParseAmount(s string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrBadAmount, s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %q is negative", ErrBadAmount, s)
	}
	base := d.Shift(int32(t.Decimals))
	if !base.IsInteger() {
		return nil, fmt.Errorf("%w: %q has more than %d", ErrTooManyDigits, s, t.Decimals)
	}
	v, overflow := uint256.FromBig(base.BigInt())
	if overflow {
		return nil, fmt.Errorf("%w: %q overflows 256 bits", ErrBadAmount, s)
	}
	return v, nil
}

// FormatAmount renders base units with the token's decimals, trimming
// trailing fractional zeros.
func (t TokenView) FormatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v.ToBig(), -int32(t.Decimals)).String()
}
