// Package swapper defines the venue adapter contract the router composes.
package swapper

import (
	"errors"
	"fmt"
	"sync"

	"github.com/defistate/liquidator-go/ledger"
	"github.com/defistate/liquidator-go/protocols/poolregistry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// PriceImpactDenominator is the fixed-point base of price impact and
// slippage tolerance values: 100_000 is 100%.
const PriceImpactDenominator uint64 = 100_000

var (
	ErrWrongTokenIn    = errors.New("wrong tokenIn")
	ErrWrongTokenOut   = errors.New("wrong tokenOut")
	ErrPriceProtection = errors.New("!PRICE")
	ErrZeroConfig      = errors.New("zero config")
	ErrUnknownPool     = errors.New("unknown pool")
	ErrUnknownSwapper  = errors.New("unknown swapper")
	ErrSwapperExists   = errors.New("swapper already registered")
	ErrZeroAmount      = errors.New("zero amount")
)

// Quote is the expected output of a trade and its price impact relative to
// an infinitesimally small trade, in PriceImpactDenominator units.
type Quote struct {
	AmountOut   *uint256.Int `json:"amountOut"`
	PriceImpact uint64       `json:"priceImpact"`
}

// ZeroQuote returns an empty quote.
func ZeroQuote() Quote {
	return Quote{AmountOut: new(uint256.Int)}
}

// Swapper adapts one venue to the uniform quote/execute contract.
type Swapper interface {
	// GetPrice quotes amountIn of tokenIn through pool.
	GetPrice(st ledger.Reader, pool poolregistry.PoolKey, tokenIn, tokenOut common.Address, amountIn *uint256.Int) (*uint256.Int, error)
	GetPriceWithImpact(st ledger.Reader, pool poolregistry.PoolKey, tokenIn, tokenOut common.Address, amountIn *uint256.Int) (Quote, error)
	// Swap trades the adapter's whole tokenIn balance and sends the output
	// to recipient. It fails with ErrPriceProtection when the impact of the
	// trade exceeds slippageTolerance.
	Swap(st ledger.State, pool poolregistry.PoolKey, tokenIn, tokenOut, recipient common.Address, slippageTolerance uint64) (*uint256.Int, error)
	// Account is where the router deposits tokenIn before calling Swap.
	Account() common.Address
}

// Registry maps swapper ids, as carried by pool edges, to implementations.
type Registry struct {
	mu       sync.RWMutex
	swappers map[common.Address]Swapper
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{swappers: make(map[common.Address]Swapper)}
}

// Register binds id to s.
func (r *Registry) Register(id common.Address, s Swapper) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.swappers[id]; ok {
		return fmt.Errorf("%w: %s", ErrSwapperExists, id.Hex())
	}
	r.swappers[id] = s
	return nil
}

// Get returns the swapper bound to id.
func (r *Registry) Get(id common.Address) (Swapper, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.swappers[id]
	return s, ok
}

// Lookup is Get with an error for unknown ids.
func (r *Registry) Lookup(id common.Address) (Swapper, error) {
	s, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSwapper, id.Hex())
	}
	return s, nil
}
