// Package jsonrpc exposes the read-only side of the liquidator over
// go-ethereum's JSON-RPC server.
package jsonrpc

import (
	"github.com/defistate/liquidator-go/liquidator"
	"github.com/defistate/liquidator-go/route"
	"github.com/defistate/liquidator-go/swapper"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
)

// Namespace is the namespace under which the service is registered, so
// methods are called as liquidator_buildRoute and so on.
const Namespace = "liquidator"

// Liquidator is the subset of *liquidator.Liquidator the service reads.
type Liquidator interface {
	IsRouteExist(tokenIn, tokenOut common.Address) bool
	BuildRoute(tokenIn, tokenOut common.Address) (route.Route, error)
	GetPrice(tokenIn, tokenOut common.Address, amountIn *uint256.Int) *uint256.Int
	GetPriceWithImpact(tokenIn, tokenOut common.Address, amountIn *uint256.Int) swapper.Quote
	GetPriceForRoute(r route.Route, amountIn *uint256.Int) *uint256.Int
	GetPriceWithImpactForRoute(r route.Route, amountIn *uint256.Int) swapper.Quote
}

var _ Liquidator = (*liquidator.Liquidator)(nil)

// BuildRouteResult carries either a route or the reason none exists.
// ErrorMessage is empty on success.
type BuildRouteResult struct {
	Route        route.Route `json:"route"`
	ErrorMessage string      `json:"errorMessage"`
}

// Service implements the liquidator_* methods. Quotes never fail: a missing
// route or a failing hop is reported as zero.
type Service struct {
	liq    Liquidator
	logger Logger
}

// NewService creates a Service.
func NewService(liq Liquidator, logger Logger) *Service {
	return &Service{liq: liq, logger: logger}
}

// NewServer creates an RPC server with the service registered under
// Namespace.
func NewServer(svc *Service) (*rpc.Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName(Namespace, svc); err != nil {
		srv.Stop()
		return nil, err
	}
	return srv, nil
}

func (s *Service) IsRouteExist(tokenIn, tokenOut common.Address) bool {
	return s.liq.IsRouteExist(tokenIn, tokenOut)
}

func (s *Service) BuildRoute(tokenIn, tokenOut common.Address) BuildRouteResult {
	r, err := s.liq.BuildRoute(tokenIn, tokenOut)
	if err != nil {
		msg := route.Message(err)
		if msg == "" {
			msg = err.Error()
		}
		s.logger.Debug("Route not found", "token_in", tokenIn, "token_out", tokenOut, "reason", msg)
		return BuildRouteResult{Route: route.Route{}, ErrorMessage: msg}
	}
	return BuildRouteResult{Route: r}
}

func (s *Service) GetPrice(tokenIn, tokenOut common.Address, amountIn *uint256.Int) *uint256.Int {
	return s.liq.GetPrice(tokenIn, tokenOut, orZero(amountIn))
}

func (s *Service) GetPriceWithImpact(tokenIn, tokenOut common.Address, amountIn *uint256.Int) swapper.Quote {
	return s.liq.GetPriceWithImpact(tokenIn, tokenOut, orZero(amountIn))
}

func (s *Service) GetPriceForRoute(r route.Route, amountIn *uint256.Int) *uint256.Int {
	return s.liq.GetPriceForRoute(r, orZero(amountIn))
}

func (s *Service) GetPriceWithImpactForRoute(r route.Route, amountIn *uint256.Int) swapper.Quote {
	return s.liq.GetPriceWithImpactForRoute(r, orZero(amountIn))
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
