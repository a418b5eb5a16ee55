package poolregistry

import (
	"github.com/ethereum/go-ethereum/common"
)

// Indexer builds Snapshots from raw edge slices.
type Indexer struct{}

// New creates a new Indexer.
func New() *Indexer {
	return &Indexer{}
}

// Index creates an indexed snapshot from primary and hub edges given in
// registration order.
func (i *Indexer) Index(primary, hub []PoolEdge) *Snapshot {
	return NewSnapshot(primary, hub)
}

// Snapshot is an immutable, indexed view of both edge collections. A route
// is always resolved against a single Snapshot.
type Snapshot struct {
	primary map[common.Address]PoolEdge
	hubFrom map[common.Address][]PoolEdge
	hubTo   map[common.Address][]PoolEdge

	allPrimary []PoolEdge
	allHub     []PoolEdge
}

// NewSnapshot indexes the given edges. Hub edges are indexed both by
// TokenIn and by TokenOut so reverse traversal stays a lookup.
func NewSnapshot(primary, hub []PoolEdge) *Snapshot {
	s := &Snapshot{
		primary:    make(map[common.Address]PoolEdge, len(primary)),
		hubFrom:    make(map[common.Address][]PoolEdge),
		hubTo:      make(map[common.Address][]PoolEdge),
		allPrimary: make([]PoolEdge, len(primary)),
		allHub:     make([]PoolEdge, len(hub)),
	}
	copy(s.allPrimary, primary)
	copy(s.allHub, hub)

	for _, e := range primary {
		s.primary[e.TokenIn] = e
	}
	for _, e := range hub {
		s.hubFrom[e.TokenIn] = append(s.hubFrom[e.TokenIn], e)
		s.hubTo[e.TokenOut] = append(s.hubTo[e.TokenOut], e)
	}
	return s
}

// Primary returns the primary edge registered for token.
func (s *Snapshot) Primary(token common.Address) (PoolEdge, bool) {
	e, ok := s.primary[token]
	return e, ok
}

// HubEdgesFrom returns hub edges whose TokenIn is token, in registration
// order. The returned slice must not be modified.
func (s *Snapshot) HubEdgesFrom(token common.Address) []PoolEdge {
	return s.hubFrom[token]
}

// HubEdgesTo returns hub edges whose TokenOut is token, in registration
// order. The returned slice must not be modified.
func (s *Snapshot) HubEdgesTo(token common.Address) []PoolEdge {
	return s.hubTo[token]
}

// PrimaryEdges returns a defensive copy of all primary edges.
func (s *Snapshot) PrimaryEdges() []PoolEdge {
	out := make([]PoolEdge, len(s.allPrimary))
	copy(out, s.allPrimary)
	return out
}

// HubEdges returns a defensive copy of all hub edges.
func (s *Snapshot) HubEdges() []PoolEdge {
	out := make([]PoolEdge, len(s.allHub))
	copy(out, s.allHub)
	return out
}
