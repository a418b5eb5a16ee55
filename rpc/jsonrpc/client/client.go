package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/defistate/liquidator-go/route"
	"github.com/defistate/liquidator-go/rpc/jsonrpc"
	"github.com/defistate/liquidator-go/swapper"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
)

// Constants for reconnection logic
const (
	initialReconnectDelay = 1 * time.Second
	maxReconnectDelay     = 30 * time.Second
)

// ErrNoRoute is returned by BuildRoute when the server reports no route.
var ErrNoRoute = errors.New("no route")

// Config holds the configuration for the client.
type Config struct {
	URL    string
	Logger jsonrpc.Logger
	// MaxAttempts bounds dial attempts; 0 retries until ctx is done.
	MaxAttempts int
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.URL == "" {
		return errors.New("config: URL is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.MaxAttempts < 0 {
		return errors.New("config: MaxAttempts must not be negative")
	}
	return nil
}

// Client calls the liquidator_* methods of a remote router.
type Client struct {
	rpc    *rpc.Client
	logger jsonrpc.Logger
}

// Dial connects to cfg.URL, retrying with exponential backoff.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	reconnectDelay := initialReconnectDelay
	for attempt := 1; ; attempt++ {
		cfg.Logger.Info("Attempting to connect to RPC server", "url", cfg.URL, "attempt", attempt)
		rpcClient, err := rpc.DialContext(ctx, cfg.URL)
		if err == nil {
			cfg.Logger.Info("Successfully connected to RPC server.")
			return New(rpcClient, cfg.Logger), nil
		}
		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts {
			return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
		}

		cfg.Logger.Error("Failed to connect to RPC server, will retry...", "error", err, "delay", reconnectDelay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(reconnectDelay):
		}
		reconnectDelay = min(reconnectDelay*2, maxReconnectDelay)
	}
}

// New wraps an established connection.
func New(rpcClient *rpc.Client, logger jsonrpc.Logger) *Client {
	return &Client{rpc: rpcClient, logger: logger}
}

// Close closes the underlying connection.
func (c *Client) Close() {
	c.rpc.Close()
}

func (c *Client) call(ctx context.Context, result any, method string, args ...any) error {
	if err := c.rpc.CallContext(ctx, result, jsonrpc.Namespace+"_"+method, args...); err != nil {
		c.logger.Debug("RPC call failed", "method", method, "error", err)
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func (c *Client) IsRouteExist(ctx context.Context, tokenIn, tokenOut common.Address) (bool, error) {
	var ok bool
	err := c.call(ctx, &ok, "isRouteExist", tokenIn, tokenOut)
	return ok, err
}

// BuildRoute returns the route, or an error wrapping ErrNoRoute whose text
// is the server's reason.
func (c *Client) BuildRoute(ctx context.Context, tokenIn, tokenOut common.Address) (route.Route, error) {
	var res jsonrpc.BuildRouteResult
	if err := c.call(ctx, &res, "buildRoute", tokenIn, tokenOut); err != nil {
		return nil, err
	}
	if res.ErrorMessage != "" {
		return nil, fmt.Errorf("%w: %s", ErrNoRoute, res.ErrorMessage)
	}
	return res.Route, nil
}

func (c *Client) GetPrice(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	out := new(uint256.Int)
	err := c.call(ctx, out, "getPrice", tokenIn, tokenOut, amountIn)
	return out, err
}

func (c *Client) GetPriceWithImpact(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *uint256.Int) (swapper.Quote, error) {
	var q swapper.Quote
	err := c.call(ctx, &q, "getPriceWithImpact", tokenIn, tokenOut, amountIn)
	return q, err
}

func (c *Client) GetPriceForRoute(ctx context.Context, r route.Route, amountIn *uint256.Int) (*uint256.Int, error) {
	out := new(uint256.Int)
	err := c.call(ctx, out, "getPriceForRoute", r, amountIn)
	return out, err
}

func (c *Client) GetPriceWithImpactForRoute(ctx context.Context, r route.Route, amountIn *uint256.Int) (swapper.Quote, error) {
	var q swapper.Quote
	err := c.call(ctx, &q, "getPriceWithImpactForRoute", r, amountIn)
	return q, err
}
