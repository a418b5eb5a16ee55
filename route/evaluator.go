package route

import (
	"fmt"

	"github.com/defistate/liquidator-go/ledger"
	"github.com/defistate/liquidator-go/protocols/poolregistry"
	"github.com/defistate/liquidator-go/swapper"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// SwapperSource resolves the adapter named by a pool edge.
// *swapper.Registry implements it.
type SwapperSource interface {
	Lookup(id common.Address) (swapper.Swapper, error)
}

var _ SwapperSource = (*swapper.Registry)(nil)

// HopError ties a failure to the hop of the route that produced it.
type HopError struct {
	Index int
	Hop   poolregistry.PoolEdge
	Err   error
}

func (e *HopError) Error() string {
	return fmt.Sprintf("hop %d (%s): %v", e.Index, e.Hop, e.Err)
}

func (e *HopError) Unwrap() error {
	return e.Err
}

// Evaluator quotes routes by threading amounts through each hop's adapter.
type Evaluator struct {
	swappers SwapperSource
}

// NewEvaluator creates an Evaluator over the given adapters.
func NewEvaluator(swappers SwapperSource) *Evaluator {
	return &Evaluator{swappers: swappers}
}

// CompoundImpact folds the impact of one more hop into total. Both are in
// swapper.PriceImpactDenominator units and the result never exceeds it.
func CompoundImpact(total, impact uint64) uint64 {
	const d = swapper.PriceImpactDenominator
	if total >= d || impact >= d {
		return d
	}
	return total + (d-total)*impact/d
}

// QuoteRoute quotes amountIn along r. An empty route or a zero amount
// quotes zero. Adapter failures are returned as *HopError.
func (e *Evaluator) QuoteRoute(st ledger.Reader, r Route, amountIn *uint256.Int) (swapper.Quote, error) {
	if len(r) == 0 || amountIn == nil || amountIn.IsZero() {
		return swapper.ZeroQuote(), nil
	}

	amount := new(uint256.Int).Set(amountIn)
	var total uint64
	for i, hop := range r {
		s, err := e.swappers.Lookup(hop.Swapper)
		if err != nil {
			return swapper.Quote{}, &HopError{Index: i, Hop: hop, Err: err}
		}
		q, err := s.GetPriceWithImpact(st, hop.Pool, hop.TokenIn, hop.TokenOut, amount)
		if err != nil {
			return swapper.Quote{}, &HopError{Index: i, Hop: hop, Err: err}
		}
		amount = q.AmountOut
		total = CompoundImpact(total, q.PriceImpact)
		if amount.IsZero() {
			return swapper.Quote{AmountOut: new(uint256.Int), PriceImpact: total}, nil
		}
	}
	return swapper.Quote{AmountOut: amount, PriceImpact: total}, nil
}

// GetPriceWithImpactForRoute is QuoteRoute that reports any failure as a
// zero quote.
func (e *Evaluator) GetPriceWithImpactForRoute(st ledger.Reader, r Route, amountIn *uint256.Int) swapper.Quote {
	q, err := e.QuoteRoute(st, r, amountIn)
	if err != nil {
		return swapper.ZeroQuote()
	}
	return q
}

// GetPriceForRoute returns the expected output of r, or zero.
func (e *Evaluator) GetPriceForRoute(st ledger.Reader, r Route, amountIn *uint256.Int) *uint256.Int {
	return e.GetPriceWithImpactForRoute(st, r, amountIn).AmountOut
}
