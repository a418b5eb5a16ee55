package uniswapv2

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/defistate/liquidator-go/ledger"
	"github.com/defistate/liquidator-go/protocols/poolregistry"
	"github.com/defistate/liquidator-go/swapper"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var ErrPairExists = errors.New("pair already registered")

// Pair is the static metadata of a constant-product pool. Reserves are not
// cached: they are the pool account's balances in the ledger.
type Pair struct {
	Address common.Address `json:"address" yaml:"address"`
	Token0  common.Address `json:"token0" yaml:"token0"`
	Token1  common.Address `json:"token1" yaml:"token1"`
}

// Swapper adapts constant-product pools to the swapper.Swapper contract.
type Swapper struct {
	account common.Address
	logger  *slog.Logger

	mu    sync.RWMutex
	pairs map[poolregistry.PoolKey]Pair
	fees  map[poolregistry.PoolKey]uint64
}

var _ swapper.Swapper = (*Swapper)(nil)

// NewSwapper creates an adapter that receives input tokens at account.
func NewSwapper(account common.Address, logger *slog.Logger) *Swapper {
	return &Swapper{
		account: account,
		logger:  logger,
		pairs:   make(map[poolregistry.PoolKey]Pair),
		fees:    make(map[poolregistry.PoolKey]uint64),
	}
}

func (s *Swapper) Account() common.Address {
	return s.account
}

// AddPair makes a pool known to the adapter.
func (s *Swapper) AddPair(p Pair) error {
	key := poolregistry.AddressToPoolKey(p.Address)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pairs[key]; ok {
		return fmt.Errorf("%w: %s", ErrPairExists, p.Address.Hex())
	}
	s.pairs[key] = p
	return nil
}

// SetFee configures the fee of a pool in FeeDenominator units. Swaps
// through a pool without a fee fail with swapper.ErrZeroConfig.
func (s *Swapper) SetFee(pool common.Address, fee uint64) error {
	if fee >= FeeDenominator {
		return ErrInvalidFee
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fees[poolregistry.AddressToPoolKey(pool)] = fee
	return nil
}

// GetPrice quotes amountIn through pool. Pools without a configured fee are
// quoted fee-free.
func (s *Swapper) GetPrice(st ledger.Reader, pool poolregistry.PoolKey, tokenIn, tokenOut common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	q, err := s.GetPriceWithImpact(st, pool, tokenIn, tokenOut, amountIn)
	if err != nil {
		return nil, err
	}
	return q.AmountOut, nil
}

func (s *Swapper) GetPriceWithImpact(st ledger.Reader, pool poolregistry.PoolKey, tokenIn, tokenOut common.Address, amountIn *uint256.Int) (swapper.Quote, error) {
	r, err := s.load(st, pool, tokenIn, tokenOut)
	if err != nil {
		return swapper.Quote{}, err
	}
	return r.quote(amountIn)
}

// Swap trades the adapter's whole tokenIn balance through pool.
func (s *Swapper) Swap(st ledger.State, pool poolregistry.PoolKey, tokenIn, tokenOut, recipient common.Address, slippageTolerance uint64) (*uint256.Int, error) {
	r, err := s.load(st, pool, tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}
	if !r.hasFee {
		return nil, fmt.Errorf("%w: fee for %s", swapper.ErrZeroConfig, pool)
	}

	amountIn, err := st.BalanceOf(tokenIn, s.account)
	if err != nil {
		return nil, err
	}
	if amountIn.IsZero() {
		return nil, fmt.Errorf("%w: nothing to swap in %s", swapper.ErrZeroAmount, tokenIn.Hex())
	}

	q, err := r.quote(amountIn)
	if err != nil {
		return nil, err
	}
	if q.PriceImpact > slippageTolerance {
		return nil, fmt.Errorf("%w: impact %d exceeds tolerance %d", swapper.ErrPriceProtection, q.PriceImpact, slippageTolerance)
	}
	if q.AmountOut.IsZero() {
		return nil, fmt.Errorf("%w: no output for %s", swapper.ErrZeroAmount, amountIn.Dec())
	}

	if err := st.Transfer(tokenIn, s.account, r.pair, amountIn); err != nil {
		return nil, err
	}
	if err := st.Transfer(tokenOut, r.pair, recipient, q.AmountOut); err != nil {
		return nil, err
	}

	s.logger.Debug("Swapped",
		"pool", r.pair,
		"token_in", tokenIn,
		"token_out", tokenOut,
		"amount_in", amountIn.Dec(),
		"amount_out", q.AmountOut.Dec(),
		"price_impact", q.PriceImpact,
	)
	return q.AmountOut, nil
}

type reserves struct {
	pair       common.Address
	reserveIn  *uint256.Int
	reserveOut *uint256.Int
	fee        uint64
	hasFee     bool
}

func (r reserves) quote(amountIn *uint256.Int) (swapper.Quote, error) {
	if amountIn.IsZero() {
		return swapper.ZeroQuote(), nil
	}
	out, err := GetAmountOut(amountIn, r.reserveIn, r.reserveOut, r.fee)
	if err != nil {
		return swapper.Quote{}, err
	}
	spot, err := SpotAmountOut(amountIn, r.reserveIn, r.reserveOut)
	if err != nil {
		return swapper.Quote{}, err
	}
	return swapper.Quote{AmountOut: out, PriceImpact: PriceImpact(spot, out)}, nil
}

// load resolves the pool and reads its reserves in the trade direction.
func (s *Swapper) load(st ledger.Reader, pool poolregistry.PoolKey, tokenIn, tokenOut common.Address) (reserves, error) {
	s.mu.RLock()
	p, ok := s.pairs[pool]
	fee, hasFee := s.fees[pool]
	s.mu.RUnlock()
	if !ok {
		return reserves{}, fmt.Errorf("%w: %s", swapper.ErrUnknownPool, pool)
	}

	var other common.Address
	switch tokenIn {
	case p.Token0:
		other = p.Token1
	case p.Token1:
		other = p.Token0
	default:
		return reserves{}, fmt.Errorf("%w: %s not in %s", swapper.ErrWrongTokenIn, tokenIn.Hex(), p.Address.Hex())
	}
	if tokenOut != other {
		return reserves{}, fmt.Errorf("%w: %s not in %s", swapper.ErrWrongTokenOut, tokenOut.Hex(), p.Address.Hex())
	}

	reserveIn, err := st.BalanceOf(tokenIn, p.Address)
	if err != nil {
		return reserves{}, err
	}
	reserveOut, err := st.BalanceOf(tokenOut, p.Address)
	if err != nil {
		return reserves{}, err
	}
	return reserves{
		pair:       p.Address,
		reserveIn:  reserveIn,
		reserveOut: reserveOut,
		fee:        fee,
		hasFee:     hasFee,
	}, nil
}
