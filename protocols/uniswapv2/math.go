package uniswapv2

import (
	"errors"

	"github.com/defistate/liquidator-go/swapper"
	"github.com/holiman/uint256"
)

// FeeDenominator is the base of pool fees: a fee of 300 is 0.3%.
const FeeDenominator uint64 = 100_000

var (
	ErrEmptyReserves = errors.New("empty reserves")
	ErrInvalidFee    = errors.New("fee must be below FeeDenominator")
	ErrMathOverflow  = errors.New("amount overflows 256 bits")
)

// GetAmountOut returns the constant-product output for amountIn after the
// pool fee: amountIn*(D-fee)*reserveOut / (reserveIn*D + amountIn*(D-fee)).
func GetAmountOut(amountIn, reserveIn, reserveOut *uint256.Int, fee uint64) (*uint256.Int, error) {
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrEmptyReserves
	}
	if fee >= FeeDenominator {
		return nil, ErrInvalidFee
	}

	// t1 = amountIn * (D - fee)
	t1, overflow := new(uint256.Int).MulOverflow(amountIn, uint256.NewInt(FeeDenominator-fee))
	if overflow {
		return nil, ErrMathOverflow
	}
	// t2 = reserveIn * D + t1 (denominator)
	t2, overflow := new(uint256.Int).MulOverflow(reserveIn, uint256.NewInt(FeeDenominator))
	if overflow {
		return nil, ErrMathOverflow
	}
	if _, overflow = t2.AddOverflow(t2, t1); overflow {
		return nil, ErrMathOverflow
	}
	// t1 * reserveOut / t2
	out, overflow := new(uint256.Int).MulDivOverflow(t1, reserveOut, t2)
	if overflow {
		return nil, ErrMathOverflow
	}
	return out, nil
}

// SpotAmountOut is the fee-free output at the pool's marginal price, the
// output an infinitesimally small trade would scale to.
func SpotAmountOut(amountIn, reserveIn, reserveOut *uint256.Int) (*uint256.Int, error) {
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrEmptyReserves
	}
	out, overflow := new(uint256.Int).MulDivOverflow(amountIn, reserveOut, reserveIn)
	if overflow {
		return nil, ErrMathOverflow
	}
	return out, nil
}

// PriceImpact is the shortfall of amountOut against spotOut in
// swapper.PriceImpactDenominator units.
func PriceImpact(spotOut, amountOut *uint256.Int) uint64 {
	if spotOut.IsZero() || !amountOut.Lt(spotOut) {
		return 0
	}
	diff := new(uint256.Int).Sub(spotOut, amountOut)
	impact, _ := new(uint256.Int).MulDivOverflow(diff, uint256.NewInt(swapper.PriceImpactDenominator), spotOut)
	return impact.Uint64()
}
