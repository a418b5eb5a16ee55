// Package route resolves token pairs into multi-hop routes over the pool
// registry and quotes them through venue adapters.
package route

import (
	"errors"
	"fmt"
	"strings"

	"github.com/defistate/liquidator-go/protocols/poolregistry"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrZeroRouteLength = errors.New("ZERO_LENGTH")
	ErrBrokenRoute     = errors.New("route hops are not chained")
)

// Route is an ordered list of hops where each hop's TokenOut is the next
// hop's TokenIn.
type Route []poolregistry.PoolEdge

// TokenIn returns the token the route starts from, or the zero address for
// an empty route.
func (r Route) TokenIn() common.Address {
	if len(r) == 0 {
		return common.Address{}
	}
	return r[0].TokenIn
}

// TokenOut returns the token the route ends in.
func (r Route) TokenOut() common.Address {
	if len(r) == 0 {
		return common.Address{}
	}
	return r[len(r)-1].TokenOut
}

// Validate checks that r is non-empty, chained, and connects tokenIn to
// tokenOut. Zero tokens skip the endpoint checks.
func (r Route) Validate(tokenIn, tokenOut common.Address) error {
	if len(r) == 0 {
		return ErrZeroRouteLength
	}
	for i := 1; i < len(r); i++ {
		if r[i-1].TokenOut != r[i].TokenIn {
			return fmt.Errorf("%w: hop %d ends in %s, hop %d starts with %s",
				ErrBrokenRoute, i-1, r[i-1].TokenOut.Hex(), i, r[i].TokenIn.Hex())
		}
	}
	if tokenIn != (common.Address{}) && r.TokenIn() != tokenIn {
		return fmt.Errorf("%w: starts with %s, want %s", ErrBrokenRoute, r.TokenIn().Hex(), tokenIn.Hex())
	}
	if tokenOut != (common.Address{}) && r.TokenOut() != tokenOut {
		return fmt.Errorf("%w: ends in %s, want %s", ErrBrokenRoute, r.TokenOut().Hex(), tokenOut.Hex())
	}
	return nil
}

func (r Route) String() string {
	if len(r) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteString(r[0].TokenIn.Hex())
	for _, hop := range r {
		fmt.Fprintf(&b, " -(%s)-> %s", hop.Pool, hop.TokenOut.Hex())
	}
	return b.String()
}
