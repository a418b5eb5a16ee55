package route

import (
	"errors"
	"testing"

	"github.com/defistate/liquidator-go/protocols/poolregistry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	bc1 = common.HexToAddress("0x0000000000000000000000000000000000000001")
	bc2 = common.HexToAddress("0x0000000000000000000000000000000000000002")
	t3  = common.HexToAddress("0x0000000000000000000000000000000000000003")
	t4  = common.HexToAddress("0x0000000000000000000000000000000000000004")
	t5  = common.HexToAddress("0x0000000000000000000000000000000000000005")
	t6  = common.HexToAddress("0x0000000000000000000000000000000000000006")
	t7  = common.HexToAddress("0x0000000000000000000000000000000000000007")
	bc8 = common.HexToAddress("0x0000000000000000000000000000000000000008")

	p12 = pairKey(1, 2)
	p13 = pairKey(1, 3)
	p16 = pairKey(1, 6)
	p17 = pairKey(1, 7)
	p23 = pairKey(2, 3)
	p26 = pairKey(2, 6)
	p27 = pairKey(2, 7)
	p28 = pairKey(2, 8)
	p34 = pairKey(3, 4)
	p35 = pairKey(3, 5)
	p36 = pairKey(3, 6)
	p37 = pairKey(3, 7)
	p45 = pairKey(4, 5)
	p46 = pairKey(4, 6)
	p56 = pairKey(5, 6)
	p57 = pairKey(5, 7)
)

func pairKey(a, b byte) poolregistry.PoolKey {
	return poolregistry.AddressToPoolKey(common.BytesToAddress([]byte{0xaa, a, b}))
}

func edge(p poolregistry.PoolKey, in, out common.Address) poolregistry.PoolEdge {
	return poolregistry.PoolEdge{Pool: p, TokenIn: in, TokenOut: out}
}

// graph collects primary and hub edges in registration order.
type graph struct {
	primary []poolregistry.PoolEdge
	hub     []poolregistry.PoolEdge
}

func (g *graph) pool(p poolregistry.PoolKey, in, out common.Address) *graph {
	g.primary = append(g.primary, edge(p, in, out))
	return g
}

func (g *graph) bc(p poolregistry.PoolKey, in, out common.Address) *graph {
	g.hub = append(g.hub, edge(p, in, out))
	return g
}

func (g *graph) snapshot() *poolregistry.Snapshot {
	return poolregistry.NewSnapshot(g.primary, g.hub)
}

func newGraph() *graph {
	return &graph{}
}

func defaultResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver()
	require.NoError(t, err)
	return r
}

func requireRoute(t *testing.T, r Route, in, out common.Address, length int) {
	t.Helper()
	require.Len(t, r, length, "route: %s", r)
	require.NoError(t, r.Validate(in, out))
}

func TestResolver_Shapes(t *testing.T) {
	testCases := []struct {
		name   string
		g      *graph
		in     common.Address
		out    common.Address
		length int
	}{
		{"SimpleHub", newGraph().bc(p12, bc1, bc2), bc1, bc2, 1},
		{"SimpleHubReversed", newGraph().bc(p12, bc1, bc2), bc2, bc1, 1},
		{"SinglePrimary", newGraph().pool(p46, t4, t6), t4, t6, 1},
		{"PrimaryInThenHub", newGraph().bc(p12, bc1, bc2).pool(p16, t6, bc1), t6, bc2, 2},
		{"PrimaryInThenPrimaryOut", newGraph().pool(p34, t3, t4).pool(p46, t6, t4), t3, t6, 2},
		{"ReversedPrimaryOut", newGraph().pool(p34, t3, t4).pool(p36, t6, t3), t3, t6, 1},
		{"InHubOut", newGraph().bc(p12, bc1, bc2).pool(p13, t3, bc1).pool(p26, t6, bc2), t3, t6, 3},
		{"InIn2", newGraph().pool(p12, bc1, bc2).pool(p23, bc2, t3).pool(p34, t3, t4), bc1, t3, 2},
		{"InIn2Out", newGraph().pool(p12, bc1, bc2).pool(p23, bc2, t3).pool(p34, t4, t3), bc1, t4, 3},
		{"InIn2HubOut",
			newGraph().bc(p12, bc2, bc1).pool(p46, t4, t6).pool(p26, t6, bc2).pool(p12, bc2, bc1).pool(p13, bc1, t3),
			t4, bc1, 3},
		{"InOut2Out", newGraph().pool(p37, t7, t3).pool(p17, bc1, t7).pool(p57, t5, t7).pool(p56, t6, t5), bc1, t6, 3},
		{"InIn2Out2Out", newGraph().pool(p17, bc1, t7).pool(p37, t7, t3).pool(p35, t5, t3).pool(p56, t6, t5), bc1, t6, 4},
		{"InIn2HubOut2Out",
			newGraph().pool(p17, bc1, t7).pool(p37, t7, t3).bc(p34, t3, t4).pool(p45, t5, t4).pool(p56, t6, t5),
			bc1, t6, 5},
		{"InHubOut2Out",
			newGraph().pool(p27, t7, bc2).pool(p17, bc1, t7).bc(p37, t7, t3).pool(p35, t5, t3).pool(p56, t6, t5),
			bc1, t6, 4},
		{"HubFromInOut2Out",
			newGraph().pool(p27, t7, bc2).pool(p12, bc2, bc1).bc(p37, t7, t3).pool(p35, t5, t3).pool(p56, t6, t5),
			t7, t6, 3},
	}

	r := defaultResolver(t)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.Resolve(tc.g.snapshot(), tc.in, tc.out)
			require.NoError(t, err)
			requireRoute(t, got, tc.in, tc.out, tc.length)
		})
	}
}

func TestResolver_Errors(t *testing.T) {
	testCases := []struct {
		name string
		g    *graph
		want error
		msg  string
	}{
		{"InNotFound", newGraph(), ErrNoPoolForTokenIn, "L: Not found pool for tokenIn"},
		{"OutNotFound", newGraph().pool(p35, t4, t3), ErrNoPoolForTokenOut, "L: Not found pool for tokenOut"},
		{"In2NotFound", newGraph().pool(p35, t4, t3).pool(p16, t6, bc1), ErrNoPoolForTokenIn2, "L: Not found pool for tokenIn2"},
		{"Out2NotFound",
			newGraph().pool(p35, t4, t3).pool(p35, t3, t5).pool(p16, t6, bc1),
			ErrNoPoolForTokenOut2, "L: Not found pool for tokenOut2"},
		{"PathNotFound",
			newGraph().pool(p35, t4, t3).pool(p35, t3, t5).pool(p16, t6, bc1).pool(p16, bc1, bc2),
			ErrPathNotFound, "L: Liquidation path not found"},
	}

	r := defaultResolver(t)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.Resolve(tc.g.snapshot(), t4, t6)
			require.Error(t, err)
			assert.Empty(t, got)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, tc.msg, Message(err))

			var re *ResolveError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, t4, re.TokenIn)
			assert.Equal(t, t6, re.TokenOut)
		})
	}

	t.Run("SameToken", func(t *testing.T) {
		_, err := r.Resolve(newGraph().pool(p46, t4, t6).snapshot(), t4, t4)
		assert.ErrorIs(t, err, ErrSameToken)
	})
}

func someRoutes() *graph {
	return newGraph().
		bc(p12, bc1, bc2).
		bc(p28, bc8, bc2).
		pool(p12, bc1, bc2).
		pool(p12, bc2, bc1).
		pool(p28, bc8, bc2).
		pool(p13, t3, bc1).
		pool(p16, t6, bc1).
		pool(p46, t4, t6).
		pool(p56, t5, t6).
		pool(p57, t7, t5)
}

func TestResolver_SomeRoutes(t *testing.T) {
	snap := someRoutes().snapshot()
	r := defaultResolver(t)

	testCases := []struct {
		in, out common.Address
		want    Route
	}{
		{bc1, bc2, Route{edge(p12, bc1, bc2)}},
		{bc1, t3, Route{edge(p13, bc1, t3)}},
		{bc2, t3, Route{edge(p12, bc2, bc1), edge(p13, bc1, t3)}},
		{t4, t6, Route{edge(p46, t4, t6)}},
		{bc1, t6, Route{edge(p16, bc1, t6)}},
		{t3, t6, Route{edge(p13, t3, bc1), edge(p16, bc1, t6)}},
		{bc2, t6, Route{edge(p12, bc2, bc1), edge(p16, bc1, t6)}},
		{t6, bc2, Route{edge(p16, t6, bc1), edge(p12, bc1, bc2)}},
		{t5, bc2, Route{edge(p56, t5, t6), edge(p16, t6, bc1), edge(p12, bc1, bc2)}},
		{t7, t4, Route{edge(p57, t7, t5), edge(p56, t5, t6), edge(p46, t6, t4)}},
		{t6, bc8, Route{edge(p16, t6, bc1), edge(p12, bc1, bc2), edge(p28, bc2, bc8)}},
		{t4, bc1, Route{edge(p46, t4, t6), edge(p16, t6, bc1)}},
	}

	for _, tc := range testCases {
		t.Run(tc.in.Hex()[38:]+"_"+tc.out.Hex()[38:], func(t *testing.T) {
			got, err := r.Resolve(snap, tc.in, tc.out)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolver_Deterministic(t *testing.T) {
	r := defaultResolver(t)
	first, err := r.Resolve(someRoutes().snapshot(), t5, bc8)
	require.NoError(t, err)
	for range 20 {
		again, err := r.Resolve(someRoutes().snapshot(), t5, bc8)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResolver_HubOrderBreaksTies(t *testing.T) {
	// Two hub pools join bc1 and bc2; the one registered first wins.
	alt := pairKey(0x12, 0x99)
	g := newGraph().bc(alt, bc1, bc2).bc(p12, bc1, bc2).pool(p13, t3, bc1).pool(p26, t6, bc2)

	got, err := defaultResolver(t).Resolve(g.snapshot(), t3, t6)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, alt, got[1].Pool)
}

func TestResolver_ForwardOnly(t *testing.T) {
	r, err := NewResolver(WithHubTraversal(HubForwardOnly))
	require.NoError(t, err)
	assert.Equal(t, HubForwardOnly, r.HubTraversal())

	g := newGraph().bc(p12, bc1, bc2)
	got, err := r.Resolve(g.snapshot(), bc1, bc2)
	require.NoError(t, err)
	requireRoute(t, got, bc1, bc2, 1)

	_, err = r.Resolve(g.snapshot(), bc2, bc1)
	assert.ErrorIs(t, err, ErrNoPoolForTokenIn, "a hub edge is not walked backwards")

	// t6 -> bc1 -> bc2 works forward, the reverse direction needs bc2 -> bc1.
	g = newGraph().bc(p12, bc1, bc2).pool(p16, t6, bc1).pool(p26, t3, bc2)
	_, err = r.Resolve(g.snapshot(), t3, t6)
	assert.ErrorIs(t, err, ErrNoPoolForTokenIn2, "bc2 only has an incoming hub edge")

	bidi := defaultResolver(t)
	got, err = bidi.Resolve(g.snapshot(), t3, t6)
	require.NoError(t, err)
	assert.Equal(t, Route{edge(p26, t3, bc2), edge(p12, bc2, bc1), edge(p16, bc1, t6)}, got)
}

func TestResolver_Limits(t *testing.T) {
	five := newGraph().pool(p17, bc1, t7).pool(p37, t7, t3).bc(p34, t3, t4).pool(p45, t5, t4).pool(p56, t6, t5)

	t.Run("RouteLength", func(t *testing.T) {
		l := DefaultLimits()
		l.MaxRouteLength = 4
		r, err := NewResolver(WithLimits(l))
		require.NoError(t, err)
		_, err = r.Resolve(five.snapshot(), bc1, t6)
		assert.ErrorIs(t, err, ErrPathNotFound)
	})

	t.Run("HubHops", func(t *testing.T) {
		l := DefaultLimits()
		l.MaxHubHops = 0
		r, err := NewResolver(WithLimits(l))
		require.NoError(t, err)
		_, err = r.Resolve(five.snapshot(), bc1, t6)
		assert.ErrorIs(t, err, ErrPathNotFound)
	})

	t.Run("PrimaryHops", func(t *testing.T) {
		l := DefaultLimits()
		l.MaxPrimaryHops = 1
		r, err := NewResolver(WithLimits(l))
		require.NoError(t, err)
		_, err = r.Resolve(five.snapshot(), bc1, t6)
		assert.ErrorIs(t, err, ErrPathNotFound)
	})

	t.Run("Expansions", func(t *testing.T) {
		l := DefaultLimits()
		l.MaxExpansions = 1
		r, err := NewResolver(WithLimits(l))
		require.NoError(t, err)
		_, stats, err := r.ResolveWithStats(five.snapshot(), bc1, t6)
		assert.ErrorIs(t, err, ErrPathNotFound)
		assert.Equal(t, 1, stats.Expansions)
	})

	t.Run("Branching", func(t *testing.T) {
		// A hub token with many dead-end spokes registered before the useful one.
		g := newGraph().pool(p13, t3, bc1).pool(p26, t6, bc2)
		for i := byte(0); i < 4; i++ {
			g.bc(pairKey(0x10, i), bc1, common.BytesToAddress([]byte{0xdd, i}))
		}
		g.bc(p12, bc1, bc2)

		l := DefaultLimits()
		l.MaxBranching = 4
		r, err := NewResolver(WithLimits(l))
		require.NoError(t, err)
		_, err = r.Resolve(g.snapshot(), t3, t6)
		assert.ErrorIs(t, err, ErrPathNotFound)

		got, err := defaultResolver(t).Resolve(g.snapshot(), t3, t6)
		require.NoError(t, err)
		requireRoute(t, got, t3, t6, 3)
	})

	t.Run("SearchIsBounded", func(t *testing.T) {
		// A dense hub mesh with no way out.
		g := newGraph().pool(p13, t3, bc1).pool(p26, t6, bc2)
		for i := byte(0); i < 30; i++ {
			for j := byte(0); j < 4; j++ {
				from := common.BytesToAddress([]byte{0xee, i})
				to := common.BytesToAddress([]byte{0xee, (i + j + 1) % 30})
				g.bc(pairKey(0x20+i, j), from, to)
			}
		}
		g.bc(pairKey(0x60, 0), bc1, common.BytesToAddress([]byte{0xee, 0}))

		_, stats, err := defaultResolver(t).ResolveWithStats(g.snapshot(), t3, t6)
		assert.ErrorIs(t, err, ErrNoPoolForTokenOut2)
		assert.True(t, stats.Searched)
		assert.LessOrEqual(t, stats.Expansions, DefaultMaxExpansions)
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := NewResolver(WithLimits(Limits{}))
		assert.ErrorIs(t, err, ErrInvalidLimits)
		_, err = NewResolver(WithHubTraversal(HubTraversal(7)))
		assert.Error(t, err)
	})
}

func TestResolver_ShortcutsSkipSearch(t *testing.T) {
	_, stats, err := defaultResolver(t).ResolveWithStats(newGraph().pool(p46, t4, t6).snapshot(), t4, t6)
	require.NoError(t, err)
	assert.False(t, stats.Searched)
	assert.Zero(t, stats.Expansions)
}

func TestParseHubTraversal(t *testing.T) {
	for _, h := range []HubTraversal{HubBidirectional, HubForwardOnly} {
		got, err := ParseHubTraversal(h.String())
		require.NoError(t, err)
		assert.Equal(t, h, got)
	}
	got, err := ParseHubTraversal("")
	require.NoError(t, err)
	assert.Equal(t, HubBidirectional, got)
	_, err = ParseHubTraversal("sideways")
	assert.Error(t, err)
}

func TestRoute_Validate(t *testing.T) {
	r := Route{edge(p12, bc2, bc1), edge(p13, bc1, t3)}
	assert.NoError(t, r.Validate(bc2, t3))
	assert.NoError(t, r.Validate(common.Address{}, common.Address{}))
	assert.ErrorIs(t, r.Validate(bc1, t3), ErrBrokenRoute)
	assert.ErrorIs(t, r.Validate(bc2, t4), ErrBrokenRoute)
	assert.ErrorIs(t, Route{edge(p12, bc2, bc1), edge(p34, t3, t4)}.Validate(bc2, t4), ErrBrokenRoute)
	assert.ErrorIs(t, Route{}.Validate(bc1, bc2), ErrZeroRouteLength)

	assert.Equal(t, bc2, r.TokenIn())
	assert.Equal(t, t3, r.TokenOut())
	assert.Equal(t, common.Address{}, Route{}.TokenIn())
	assert.Equal(t, "[]", Route{}.String())
	assert.Contains(t, r.String(), p12.String())
}
