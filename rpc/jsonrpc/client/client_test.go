package client

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/defistate/liquidator-go/ledger"
	"github.com/defistate/liquidator-go/liquidator"
	"github.com/defistate/liquidator-go/protocols/poolregistry"
	"github.com/defistate/liquidator-go/protocols/uniswapv2"
	"github.com/defistate/liquidator-go/route"
	"github.com/defistate/liquidator-go/rpc/jsonrpc"
	"github.com/defistate/liquidator-go/swapper"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	owner   = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	router  = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	v2ID    = common.HexToAddress("0x00000000000000000000000000000000000000e0")
	tetu    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	usdc    = common.HexToAddress("0x0000000000000000000000000000000000000002")
	matic   = common.HexToAddress("0x0000000000000000000000000000000000000003")
	pairTU  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	million = uint256.NewInt(1_000_000)
)

func newTestLiquidator(t *testing.T) *liquidator.Liquidator {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	l := ledger.NewMemory()
	require.NoError(t, l.Mint(usdc, pairTU, million))
	require.NoError(t, l.Mint(tetu, pairTU, uint256.NewInt(2_000_000_000_000_000_000)))

	v2 := uniswapv2.NewSwapper(common.HexToAddress("0xe1"), logger)
	require.NoError(t, v2.AddPair(uniswapv2.Pair{Address: pairTU, Token0: usdc, Token1: tetu}))
	require.NoError(t, v2.SetFee(pairTU, 300))
	swappers := swapper.NewRegistry()
	require.NoError(t, swappers.Register(v2ID, v2))

	reg, err := poolregistry.NewRegistry(poolregistry.Config{
		Store:  poolregistry.NewMemoryStore(),
		Policy: poolregistry.OwnerPolicy{Owner: owner},
		Logger: logger,
	})
	require.NoError(t, err)
	require.NoError(t, reg.AddPrimaryEdges(owner, []poolregistry.PoolEdge{{
		Pool:     poolregistry.AddressToPoolKey(pairTU),
		Swapper:  v2ID,
		TokenIn:  tetu,
		TokenOut: usdc,
	}}, false))

	resolver, err := route.NewResolver()
	require.NoError(t, err)
	liq, err := liquidator.New(liquidator.Config{
		Account:  router,
		Pools:    reg,
		Swappers: swappers,
		Ledger:   l,
		Resolver: resolver,
		Logger:   logger,
	})
	require.NoError(t, err)
	return liq
}

func newInprocClient(t *testing.T) *Client {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	srv, err := jsonrpc.NewServer(jsonrpc.NewService(newTestLiquidator(t), logger))
	require.NoError(t, err)
	c := New(rpc.DialInProc(srv), logger)
	t.Cleanup(func() {
		c.Close()
		srv.Stop()
	})
	return c
}

func TestClient_Calls(t *testing.T) {
	c := newInprocClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tenthTetu := uint256.NewInt(100_000_000_000_000_000)

	t.Run("IsRouteExist", func(t *testing.T) {
		ok, err := c.IsRouteExist(ctx, tetu, usdc)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = c.IsRouteExist(ctx, matic, usdc)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("BuildRoute", func(t *testing.T) {
		r, err := c.BuildRoute(ctx, tetu, usdc)
		require.NoError(t, err)
		require.Len(t, r, 1)
		assert.Equal(t, poolregistry.AddressToPoolKey(pairTU), r[0].Pool)
		assert.Equal(t, v2ID, r[0].Swapper)

		_, err = c.BuildRoute(ctx, matic, usdc)
		assert.ErrorIs(t, err, ErrNoRoute)
		assert.ErrorContains(t, err, "L: Not found pool for tokenIn")
	})

	t.Run("GetPrice", func(t *testing.T) {
		out, err := c.GetPrice(ctx, tetu, usdc, tenthTetu)
		require.NoError(t, err)
		assert.Equal(t, "47482", out.Dec())

		out, err = c.GetPrice(ctx, matic, usdc, tenthTetu)
		require.NoError(t, err)
		assert.True(t, out.IsZero())
	})

	t.Run("GetPriceWithImpact", func(t *testing.T) {
		q, err := c.GetPriceWithImpact(ctx, tetu, usdc, tenthTetu)
		require.NoError(t, err)
		assert.Equal(t, "47482", q.AmountOut.Dec())
		assert.Equal(t, uint64(5036), q.PriceImpact)
	})

	t.Run("ForRoute", func(t *testing.T) {
		r, err := c.BuildRoute(ctx, tetu, usdc)
		require.NoError(t, err)

		out, err := c.GetPriceForRoute(ctx, r, tenthTetu)
		require.NoError(t, err)
		assert.Equal(t, "47482", out.Dec())

		q, err := c.GetPriceWithImpactForRoute(ctx, r, tenthTetu)
		require.NoError(t, err)
		assert.Equal(t, uint64(5036), q.PriceImpact)

		out, err = c.GetPriceForRoute(ctx, route.Route{}, tenthTetu)
		require.NoError(t, err)
		assert.True(t, out.IsZero())
	})
}

func TestClient_AddressFormPool(t *testing.T) {
	c := newInprocClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Pools named by their 20-byte address, as a hand-written request would.
	raw := []map[string]any{{
		"pool":     pairTU.Hex(),
		"swapper":  v2ID.Hex(),
		"tokenIn":  tetu.Hex(),
		"tokenOut": usdc.Hex(),
	}}
	tenthTetu := uint256.NewInt(100_000_000_000_000_000)

	out := new(uint256.Int)
	require.NoError(t, c.rpc.CallContext(ctx, out, jsonrpc.Namespace+"_getPriceForRoute", raw, tenthTetu))
	assert.Equal(t, "47482", out.Dec())

	var q swapper.Quote
	require.NoError(t, c.rpc.CallContext(ctx, &q, jsonrpc.Namespace+"_getPriceWithImpactForRoute", raw, tenthTetu))
	assert.Equal(t, "47482", q.AmountOut.Dec())
	assert.Equal(t, uint64(5036), q.PriceImpact)
}

func TestDial_Validation(t *testing.T) {
	_, err := Dial(context.Background(), Config{Logger: slog.New(slog.DiscardHandler)})
	assert.Error(t, err)
	_, err = Dial(context.Background(), Config{URL: "http://localhost:1"})
	assert.Error(t, err)
}

func TestDial_GivesUp(t *testing.T) {
	_, err := Dial(context.Background(), Config{
		URL:         "unsupported://nowhere",
		Logger:      slog.New(slog.DiscardHandler),
		MaxAttempts: 1,
	})
	assert.Error(t, err)
}
