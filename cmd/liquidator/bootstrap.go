package main

import (
	"fmt"
	"log/slog"

	"github.com/defistate/liquidator-go/cmd/liquidator/config"
	"github.com/defistate/liquidator-go/ledger"
	"github.com/defistate/liquidator-go/liquidator"
	"github.com/defistate/liquidator-go/protocols/poolregistry"
	"github.com/defistate/liquidator-go/protocols/token"
	"github.com/defistate/liquidator-go/protocols/uniswapv2"
	"github.com/defistate/liquidator-go/route"
	"github.com/defistate/liquidator-go/swapper"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

// App is everything a command needs, built from one configuration.
type App struct {
	Liquidator *liquidator.Liquidator
	Pools      *poolregistry.Registry
	Ledger     *ledger.Ledger
	Tokens     *token.IndexableTokenSystem
}

// bootstrap seeds the ledger with pool reserves and balances, registers the
// adapters, loads the registry edges as the owner and assembles the
// liquidator. reg may be nil, in which case no metrics are exported.
func bootstrap(cfg *config.LiquidatorConfig, logger *slog.Logger, reg prometheus.Registerer) (*App, error) {
	tokens, err := token.New().Index(cfg.Tokens)
	if err != nil {
		return nil, fmt.Errorf("index tokens: %w", err)
	}

	l := ledger.NewMemory()
	swappers := swapper.NewRegistry()
	for _, sc := range cfg.Swappers {
		s, err := newUniswapV2(l, sc, logger)
		if err != nil {
			return nil, fmt.Errorf("swapper %s: %w", sc.ID.Hex(), err)
		}
		if err := swappers.Register(sc.ID, s); err != nil {
			return nil, err
		}
	}
	for _, b := range cfg.Balances {
		amount, err := config.ParseAmount(b.Amount)
		if err != nil {
			return nil, err
		}
		if err := l.Mint(b.Token, b.Account, amount); err != nil {
			return nil, fmt.Errorf("mint %s to %s: %w", tokens.Label(b.Token), b.Account.Hex(), err)
		}
	}

	var policy poolregistry.AccessPolicy = poolregistry.OwnerPolicy{Owner: cfg.Owner}
	if len(cfg.Operators) > 0 {
		policy = poolregistry.NewAllowListPolicy(append([]common.Address{cfg.Owner}, cfg.Operators...)...)
	}
	pools, err := poolregistry.NewRegistry(poolregistry.Config{
		Store:  poolregistry.NewMemoryStore(),
		Policy: policy,
		Logger: logger.With("component", "pool-registry"),
	})
	if err != nil {
		return nil, err
	}
	if len(cfg.Primary) > 0 {
		if err := pools.AddPrimaryEdges(cfg.Owner, cfg.Primary, false); err != nil {
			return nil, fmt.Errorf("primary edges: %w", err)
		}
	}
	if len(cfg.Hub) > 0 {
		if err := pools.AddHubEdges(cfg.Owner, cfg.Hub, false); err != nil {
			return nil, fmt.Errorf("hub edges: %w", err)
		}
	}

	traversal, err := route.ParseHubTraversal(cfg.Resolver.HubTraversal)
	if err != nil {
		return nil, err
	}
	resolver, err := route.NewResolver(route.WithLimits(cfg.Limits()), route.WithHubTraversal(traversal))
	if err != nil {
		return nil, err
	}

	var metrics *liquidator.Metrics
	if reg != nil {
		metrics = liquidator.NewMetrics(reg)
	}
	liq, err := liquidator.New(liquidator.Config{
		Account:  cfg.Router,
		Pools:    pools,
		Swappers: swappers,
		Ledger:   l,
		Resolver: resolver,
		Metrics:  metrics,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Liquidator assembled",
		"swappers", len(cfg.Swappers),
		"primary_edges", len(cfg.Primary),
		"hub_edges", len(cfg.Hub),
		"hub_traversal", traversal,
	)
	return &App{Liquidator: liq, Pools: pools, Ledger: l, Tokens: tokens}, nil
}

func newUniswapV2(l *ledger.Ledger, sc config.SwapperConfig, logger *slog.Logger) (*uniswapv2.Swapper, error) {
	s := uniswapv2.NewSwapper(sc.Account, logger.With("component", "uniswapv2", "swapper", sc.ID))
	for _, p := range sc.Pools {
		if err := s.AddPair(uniswapv2.Pair{Address: p.Address, Token0: p.Token0, Token1: p.Token1}); err != nil {
			return nil, err
		}
		if p.Fee != nil {
			if err := s.SetFee(p.Address, *p.Fee); err != nil {
				return nil, fmt.Errorf("pool %s: %w", p.Address.Hex(), err)
			}
		}
		for _, r := range []struct {
			token  common.Address
			amount string
		}{{p.Token0, p.Reserve0}, {p.Token1, p.Reserve1}} {
			amount, err := config.ParseAmount(r.amount)
			if err != nil {
				return nil, err
			}
			if amount.IsZero() {
				continue
			}
			if err := l.Mint(r.token, p.Address, amount); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}
