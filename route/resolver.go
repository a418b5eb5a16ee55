package route

import (
	"errors"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/defistate/liquidator-go/protocols/poolregistry"
	"github.com/ethereum/go-ethereum/common"
)

// Default search limits.
const (
	DefaultMaxPrimaryHops = 2
	DefaultMaxHubHops     = 3
	DefaultMaxRouteLength = 5
	DefaultMaxBranching   = 8
	DefaultMaxExpansions  = 64
)

var ErrInvalidLimits = errors.New("invalid resolver limits")

// Graph is the read side of the pool registry a resolution runs against.
// poolregistry.Snapshot implements it.
type Graph interface {
	Primary(token common.Address) (poolregistry.PoolEdge, bool)
	HubEdgesFrom(token common.Address) []poolregistry.PoolEdge
	HubEdgesTo(token common.Address) []poolregistry.PoolEdge
}

var _ Graph = (*poolregistry.Snapshot)(nil)

// HubTraversal selects whether hub edges may be walked against their
// registered direction.
type HubTraversal int

const (
	HubBidirectional HubTraversal = iota
	HubForwardOnly
)

func (h HubTraversal) String() string {
	switch h {
	case HubBidirectional:
		return "bidirectional"
	case HubForwardOnly:
		return "forward"
	default:
		return fmt.Sprintf("HubTraversal(%d)", int(h))
	}
}

// ParseHubTraversal accepts the names produced by HubTraversal.String.
func ParseHubTraversal(s string) (HubTraversal, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bidirectional":
		return HubBidirectional, nil
	case "forward":
		return HubForwardOnly, nil
	}
	return 0, fmt.Errorf("unknown hub traversal %q", s)
}

// Limits bound the work of a single resolution.
type Limits struct {
	// MaxPrimaryHops is how many primary edges are chained from each
	// endpoint.
	MaxPrimaryHops int `yaml:"max_primary_hops"`
	// MaxHubHops caps hub edges on one route.
	MaxHubHops     int `yaml:"max_hub_hops"`
	MaxRouteLength int `yaml:"max_route_length"`
	// MaxBranching caps hub edges examined per token.
	MaxBranching int `yaml:"max_branching"`
	// MaxExpansions caps tokens dequeued by the search.
	MaxExpansions int `yaml:"max_expansions"`
}

// DefaultLimits returns the default search limits.
func DefaultLimits() Limits {
	return Limits{
		MaxPrimaryHops: DefaultMaxPrimaryHops,
		MaxHubHops:     DefaultMaxHubHops,
		MaxRouteLength: DefaultMaxRouteLength,
		MaxBranching:   DefaultMaxBranching,
		MaxExpansions:  DefaultMaxExpansions,
	}
}

// Validate reports the first limit that cannot bound a search.
func (l Limits) Validate() error {
	switch {
	case l.MaxPrimaryHops < 1:
		return fmt.Errorf("%w: MaxPrimaryHops must be positive", ErrInvalidLimits)
	case l.MaxHubHops < 0:
		return fmt.Errorf("%w: MaxHubHops must not be negative", ErrInvalidLimits)
	case l.MaxRouteLength < 1:
		return fmt.Errorf("%w: MaxRouteLength must be positive", ErrInvalidLimits)
	case l.MaxBranching < 1:
		return fmt.Errorf("%w: MaxBranching must be positive", ErrInvalidLimits)
	case l.MaxExpansions < 1:
		return fmt.Errorf("%w: MaxExpansions must be positive", ErrInvalidLimits)
	}
	return nil
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLimits replaces the default search limits.
func WithLimits(l Limits) Option {
	return func(r *Resolver) { r.limits = l }
}

// WithHubTraversal sets the hub traversal policy.
func WithHubTraversal(h HubTraversal) Option {
	return func(r *Resolver) { r.traversal = h }
}

// Resolver finds routes. It holds no registry state and is safe for
// concurrent use.
type Resolver struct {
	limits    Limits
	traversal HubTraversal
}

// NewResolver creates a Resolver with the default limits and bidirectional
// hub traversal unless overridden.
func NewResolver(opts ...Option) (*Resolver, error) {
	r := &Resolver{limits: DefaultLimits(), traversal: HubBidirectional}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.limits.Validate(); err != nil {
		return nil, err
	}
	if r.traversal != HubBidirectional && r.traversal != HubForwardOnly {
		return nil, fmt.Errorf("unknown hub traversal %d", int(r.traversal))
	}
	return r, nil
}

func (r *Resolver) Limits() Limits {
	return r.limits
}

func (r *Resolver) HubTraversal() HubTraversal {
	return r.traversal
}

// Stats describes the work done by one resolution.
type Stats struct {
	// Searched is false when one of the shortcut checks answered.
	Searched   bool
	Expansions int
	Enqueued   int
}

// Resolve returns a route from tokenIn to tokenOut. Failures are
// *ResolveError values wrapping one of the ErrNoPool*/ErrPathNotFound
// sentinels.
func (r *Resolver) Resolve(g Graph, tokenIn, tokenOut common.Address) (Route, error) {
	route, _, err := r.ResolveWithStats(g, tokenIn, tokenOut)
	return route, err
}

// ResolveWithStats is Resolve that also reports search statistics.
func (r *Resolver) ResolveWithStats(g Graph, tokenIn, tokenOut common.Address) (Route, Stats, error) {
	var stats Stats
	fail := func(reason error) (Route, Stats, error) {
		return nil, stats, &ResolveError{TokenIn: tokenIn, TokenOut: tokenOut, Reason: reason}
	}

	if tokenIn == tokenOut {
		return fail(ErrSameToken)
	}

	if e, ok := r.directHub(g, tokenIn, tokenOut); ok {
		return Route{e}, stats, nil
	}

	edgeIn, ok := g.Primary(tokenIn)
	if !ok {
		return fail(ErrNoPoolForTokenIn)
	}
	if edgeIn.TokenOut == tokenOut {
		return Route{edgeIn}, stats, nil
	}

	edgeOut, hasOut := g.Primary(tokenOut)
	if hasOut {
		if edgeOut.TokenOut == tokenIn {
			return Route{edgeOut.Reverse()}, stats, nil
		}
		if edgeIn.TokenOut == edgeOut.TokenOut {
			return Route{edgeIn, edgeOut.Reverse()}, stats, nil
		}
	}

	stats.Searched = true
	w := r.newWalker(g, tokenIn, tokenOut, &stats)
	if found := w.run(); found != nil {
		return found, stats, nil
	}

	switch {
	case !hasOut:
		return fail(ErrNoPoolForTokenOut)
	case r.deadEnd(g, edgeIn.TokenOut):
		return fail(ErrNoPoolForTokenIn2)
	case r.deadEnd(g, edgeOut.TokenOut):
		return fail(ErrNoPoolForTokenOut2)
	default:
		return fail(ErrPathNotFound)
	}
}

// directHub looks for a single hub edge joining the two tokens.
func (r *Resolver) directHub(g Graph, tokenIn, tokenOut common.Address) (poolregistry.PoolEdge, bool) {
	for _, e := range g.HubEdgesFrom(tokenIn) {
		if e.TokenOut == tokenOut {
			return e, true
		}
	}
	if r.traversal == HubBidirectional {
		for _, e := range g.HubEdgesTo(tokenIn) {
			if e.TokenIn == tokenOut {
				return e.Reverse(), true
			}
		}
	}
	return poolregistry.PoolEdge{}, false
}

// deadEnd reports whether token has neither a primary edge nor a usable hub
// edge.
func (r *Resolver) deadEnd(g Graph, token common.Address) bool {
	if _, ok := g.Primary(token); ok {
		return false
	}
	if len(g.HubEdgesFrom(token)) > 0 {
		return false
	}
	return r.traversal == HubForwardOnly || len(g.HubEdgesTo(token)) == 0
}

// primaryChain follows primary edges from token, stopping at hops edges or
// when a token repeats.
func primaryChain(g Graph, token common.Address, hops int) []poolregistry.PoolEdge {
	var chain []poolregistry.PoolEdge
	seen := mapset.NewThreadUnsafeSet(token)
	for range hops {
		e, ok := g.Primary(token)
		if !ok {
			break
		}
		chain = append(chain, e)
		if !seen.Add(e.TokenOut) {
			break
		}
		token = e.TokenOut
	}
	return chain
}

// queueItem is a token waiting to be expanded with the route length and
// hub edge count of the path that reached it.
type queueItem struct {
	token   common.Address
	depth   int
	hubHops int
}

type step struct {
	edge poolregistry.PoolEdge
	hub  bool
}

// walker runs one breadth-first search. Edges come from three sources: the
// primary chain of tokenIn walked forward, hub edges, and the primary chain
// of tokenOut walked backwards.
type walker struct {
	limits    Limits
	traversal HubTraversal
	g         Graph
	start     common.Address
	target    common.Address

	inChain  map[common.Address]poolregistry.PoolEdge
	outChain map[common.Address]poolregistry.PoolEdge

	queue   []queueItem
	visited mapset.Set[common.Address]
	parent  map[common.Address]poolregistry.PoolEdge
	stats   *Stats
}

func (r *Resolver) newWalker(g Graph, tokenIn, tokenOut common.Address, stats *Stats) *walker {
	w := &walker{
		limits:    r.limits,
		traversal: r.traversal,
		g:         g,
		start:     tokenIn,
		target:    tokenOut,
		inChain:   make(map[common.Address]poolregistry.PoolEdge),
		outChain:  make(map[common.Address]poolregistry.PoolEdge),
		visited:   mapset.NewThreadUnsafeSet[common.Address](),
		parent:    make(map[common.Address]poolregistry.PoolEdge),
		stats:     stats,
	}
	for _, e := range primaryChain(g, tokenIn, r.limits.MaxPrimaryHops) {
		w.inChain[e.TokenIn] = e
	}
	for _, e := range primaryChain(g, tokenOut, r.limits.MaxPrimaryHops) {
		rev := e.Reverse()
		w.outChain[rev.TokenIn] = rev
	}
	return w
}

func (w *walker) enqueue(item queueItem) {
	w.visited.Add(item.token)
	w.stats.Enqueued++
	w.queue = append(w.queue, item)
}

func (w *walker) dequeue() queueItem {
	item := w.queue[0]
	w.queue = w.queue[1:]
	return item
}

// run returns the first route found, which has the fewest hops among the
// routes reachable within the limits.
func (w *walker) run() Route {
	w.enqueue(queueItem{token: w.start})

	for len(w.queue) > 0 {
		if w.stats.Expansions >= w.limits.MaxExpansions {
			return nil
		}
		item := w.dequeue()
		w.stats.Expansions++
		if item.depth >= w.limits.MaxRouteLength {
			continue
		}

		for _, s := range w.neighbours(item) {
			next := s.edge.TokenOut
			if w.visited.Contains(next) {
				continue
			}
			w.parent[next] = s.edge
			if next == w.target {
				return w.path()
			}
			hubHops := item.hubHops
			if s.hub {
				hubHops++
			}
			w.enqueue(queueItem{token: next, depth: item.depth + 1, hubHops: hubHops})
		}
	}
	return nil
}

// neighbours lists outgoing edges of item in a fixed order: in-chain edge,
// forward hub edges, reversed hub edges, out-chain edge.
func (w *walker) neighbours(item queueItem) []step {
	var steps []step
	if e, ok := w.inChain[item.token]; ok {
		steps = append(steps, step{edge: e})
	}

	if item.hubHops < w.limits.MaxHubHops {
		budget := w.limits.MaxBranching
		for _, e := range w.g.HubEdgesFrom(item.token) {
			if budget == 0 {
				break
			}
			steps = append(steps, step{edge: e, hub: true})
			budget--
		}
		if w.traversal == HubBidirectional {
			for _, e := range w.g.HubEdgesTo(item.token) {
				if budget == 0 {
					break
				}
				steps = append(steps, step{edge: e.Reverse(), hub: true})
				budget--
			}
		}
	}

	if e, ok := w.outChain[item.token]; ok {
		steps = append(steps, step{edge: e})
	}
	return steps
}

// path rebuilds the route to target from parent edges.
func (w *walker) path() Route {
	var rev Route
	for t := w.target; t != w.start; {
		e := w.parent[t]
		rev = append(rev, e)
		t = e.TokenIn
	}
	out := make(Route, len(rev))
	for i, e := range rev {
		out[len(rev)-1-i] = e
	}
	return out
}
