// Package liquidator ties the pool registry, the route resolver and the
// venue adapters together. Quotes degrade to zero; liquidations are
// all-or-nothing.
package liquidator

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/defistate/liquidator-go/ledger"
	"github.com/defistate/liquidator-go/protocols/poolregistry"
	"github.com/defistate/liquidator-go/route"
	"github.com/defistate/liquidator-go/swapper"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// SnapshotSource hands out consistent views of the pool registry.
// *poolregistry.Registry implements it.
type SnapshotSource interface {
	Snapshot() *poolregistry.Snapshot
}

var _ SnapshotSource = (*poolregistry.Registry)(nil)

// Config holds the dependencies of a Liquidator.
type Config struct {
	// Account is the router's own balance holder for intermediate hops.
	Account  common.Address
	Pools    SnapshotSource
	Swappers *swapper.Registry
	Ledger   *ledger.Ledger
	Resolver *route.Resolver
	// Metrics is optional.
	Metrics *Metrics
	Logger  *slog.Logger
}

func (c *Config) validate() error {
	if c.Account == (common.Address{}) {
		return errors.New("config: Account is required")
	}
	if c.Pools == nil {
		return errors.New("config: Pools is required")
	}
	if c.Swappers == nil {
		return errors.New("config: Swappers is required")
	}
	if c.Ledger == nil {
		return errors.New("config: Ledger is required")
	}
	if c.Resolver == nil {
		return errors.New("config: Resolver is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	return nil
}

// Liquidator resolves, quotes and executes routes.
type Liquidator struct {
	account   common.Address
	pools     SnapshotSource
	swappers  *swapper.Registry
	ledger    *ledger.Ledger
	resolver  *route.Resolver
	evaluator *route.Evaluator
	metrics   *Metrics
	logger    *slog.Logger

	// execMu runs one liquidation at a time to completion.
	execMu sync.Mutex
}

// New creates a Liquidator.
func New(cfg Config) (*Liquidator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Liquidator{
		account:   cfg.Account,
		pools:     cfg.Pools,
		swappers:  cfg.Swappers,
		ledger:    cfg.Ledger,
		resolver:  cfg.Resolver,
		evaluator: route.NewEvaluator(cfg.Swappers),
		metrics:   cfg.Metrics,
		logger:    cfg.Logger.With("component", "liquidator"),
	}, nil
}

// Account returns the router's balance holder.
func (l *Liquidator) Account() common.Address {
	return l.account
}

// BuildRoute resolves a route between two tokens. Failures are
// *route.ResolveError values; use route.Message for the bare reason.
func (l *Liquidator) BuildRoute(tokenIn, tokenOut common.Address) (route.Route, error) {
	r, err := l.resolver.Resolve(l.pools.Snapshot(), tokenIn, tokenOut)
	l.metrics.observeResolution(r, err)
	return r, err
}

// IsRouteExist reports whether BuildRoute would succeed.
func (l *Liquidator) IsRouteExist(tokenIn, tokenOut common.Address) bool {
	_, err := l.BuildRoute(tokenIn, tokenOut)
	return err == nil
}

// GetPrice quotes amountIn of tokenIn in tokenOut along the resolved route.
// It returns zero when no route exists or a hop cannot quote. Identical
// tokens quote one to one.
func (l *Liquidator) GetPrice(tokenIn, tokenOut common.Address, amountIn *uint256.Int) *uint256.Int {
	return l.GetPriceWithImpact(tokenIn, tokenOut, amountIn).AmountOut
}

// GetPriceWithImpact is GetPrice with the compounded price impact.
func (l *Liquidator) GetPriceWithImpact(tokenIn, tokenOut common.Address, amountIn *uint256.Int) swapper.Quote {
	if amountIn == nil {
		return swapper.ZeroQuote()
	}
	if tokenIn == tokenOut {
		return swapper.Quote{AmountOut: new(uint256.Int).Set(amountIn)}
	}
	r, err := l.BuildRoute(tokenIn, tokenOut)
	if err != nil {
		return swapper.ZeroQuote()
	}
	return l.evaluator.GetPriceWithImpactForRoute(l.ledger, r, amountIn)
}

// GetPriceForRoute quotes a caller supplied route, or zero.
func (l *Liquidator) GetPriceForRoute(r route.Route, amountIn *uint256.Int) *uint256.Int {
	return l.evaluator.GetPriceForRoute(l.ledger, r, amountIn)
}

// GetPriceWithImpactForRoute quotes a caller supplied route with its
// compounded price impact, or a zero quote.
func (l *Liquidator) GetPriceWithImpactForRoute(r route.Route, amountIn *uint256.Int) swapper.Quote {
	return l.evaluator.GetPriceWithImpactForRoute(l.ledger, r, amountIn)
}

// QuoteRoute quotes r and reports why it cannot be quoted.
func (l *Liquidator) QuoteRoute(r route.Route, amountIn *uint256.Int) (swapper.Quote, error) {
	return l.evaluator.QuoteRoute(l.ledger, r, amountIn)
}

// Liquidate converts amountIn of the caller's tokenIn into tokenOut along
// the resolved route and returns the amount delivered to the caller.
func (l *Liquidator) Liquidate(caller, tokenIn, tokenOut common.Address, amountIn *uint256.Int, slippageTolerance uint64) (*uint256.Int, error) {
	r, err := l.BuildRoute(tokenIn, tokenOut)
	if err != nil {
		l.metrics.observeLiquidation(time.Now(), err)
		return nil, err
	}
	return l.LiquidateWithRoute(caller, r, amountIn, slippageTolerance)
}

// LiquidateWithRoute executes a route obtained earlier from BuildRoute or
// built by the caller. Every hop's adapter enforces slippageTolerance
// against its own quote. On any error no balance changes.
func (l *Liquidator) LiquidateWithRoute(caller common.Address, r route.Route, amountIn *uint256.Int, slippageTolerance uint64) (out *uint256.Int, err error) {
	start := time.Now()
	defer func() {
		l.metrics.observeLiquidation(start, err)
	}()

	if len(r) == 0 {
		return nil, route.ErrZeroRouteLength
	}
	if err := r.Validate(common.Address{}, common.Address{}); err != nil {
		return nil, err
	}
	if amountIn == nil {
		return nil, swapper.ErrZeroAmount
	}

	l.execMu.Lock()
	defer l.execMu.Unlock()

	tx := l.ledger.Begin()
	defer tx.Abort()

	out, err = l.execute(tx, caller, r, amountIn, slippageTolerance)
	if err != nil {
		l.logger.Warn("Liquidation reverted", "caller", caller, "route", r.String(), "amount_in", amountIn.Dec(), "error", err)
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit liquidation: %w", err)
	}

	l.logger.Info("Liquidated",
		"caller", caller,
		"token_in", r.TokenIn(),
		"token_out", r.TokenOut(),
		"hops", len(r),
		"amount_in", amountIn.Dec(),
		"amount_out", out.Dec(),
	)
	return out, nil
}

// execute replays r inside tx.
func (l *Liquidator) execute(tx *ledger.Tx, caller common.Address, r route.Route, amountIn *uint256.Int, slippageTolerance uint64) (*uint256.Int, error) {
	if err := tx.Transfer(r.TokenIn(), caller, l.account, amountIn); err != nil {
		return nil, fmt.Errorf("pull %s: %w", r.TokenIn().Hex(), err)
	}

	var out *uint256.Int
	for i, hop := range r {
		s, err := l.swappers.Lookup(hop.Swapper)
		if err != nil {
			return nil, &route.HopError{Index: i, Hop: hop, Err: err}
		}

		balance, err := tx.BalanceOf(hop.TokenIn, l.account)
		if err != nil {
			return nil, &route.HopError{Index: i, Hop: hop, Err: err}
		}
		if err := tx.Transfer(hop.TokenIn, l.account, s.Account(), balance); err != nil {
			return nil, &route.HopError{Index: i, Hop: hop, Err: err}
		}

		recipient := l.account
		if i == len(r)-1 {
			recipient = caller
		}
		out, err = s.Swap(tx, hop.Pool, hop.TokenIn, hop.TokenOut, recipient, slippageTolerance)
		if err != nil {
			return nil, &route.HopError{Index: i, Hop: hop, Err: err}
		}
		l.logger.Debug("Hop executed", "index", i, "pool", hop.Pool.String(), "amount_in", balance.Dec(), "amount_out", out.Dec())
	}
	return out, nil
}
