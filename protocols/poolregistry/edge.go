package poolregistry

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrSameTokens = errors.New("edge tokenIn equals tokenOut")
	ErrZeroToken  = errors.New("edge token is the zero address")
	ErrZeroPool   = errors.New("edge pool key is zero")
)

// PoolEdge is a directed willingness to quote TokenIn -> TokenOut through
// Pool using the adapter identified by Swapper. Edges carry one canonical
// direction; the pool itself can trade both ways (see Reverse).
type PoolEdge struct {
	Pool     PoolKey        `json:"pool" yaml:"pool"`
	Swapper  common.Address `json:"swapper" yaml:"swapper"`
	TokenIn  common.Address `json:"tokenIn" yaml:"token_in"`
	TokenOut common.Address `json:"tokenOut" yaml:"token_out"`
}

// Validate checks the structural invariants of a single edge.
func (e PoolEdge) Validate() error {
	if e.TokenIn == (common.Address{}) || e.TokenOut == (common.Address{}) {
		return fmt.Errorf("%w: %s", ErrZeroToken, e)
	}
	if e.TokenIn == e.TokenOut {
		return fmt.Errorf("%w: %s", ErrSameTokens, e)
	}
	if e.Pool.IsZero() {
		return fmt.Errorf("%w: %s", ErrZeroPool, e)
	}
	return nil
}

// Reverse returns the same pool traversed from TokenOut to TokenIn.
func (e PoolEdge) Reverse() PoolEdge {
	e.TokenIn, e.TokenOut = e.TokenOut, e.TokenIn
	return e
}

// SameLeg reports whether two edges describe the same pool in the same
// direction, ignoring the adapter.
func (e PoolEdge) SameLeg(o PoolEdge) bool {
	return e.Pool == o.Pool && e.TokenIn == o.TokenIn && e.TokenOut == o.TokenOut
}

func (e PoolEdge) String() string {
	return fmt.Sprintf("%s->%s@%s", e.TokenIn.Hex(), e.TokenOut.Hex(), e.Pool)
}
