package poolregistry

import (
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

// Store persists the two edge collections. Implementations are not required
// to be safe for concurrent use; Registry serializes every access.
//
// Iteration must follow registration order, since route resolution breaks
// ties by the order in which hub edges were added.
type Store interface {
	GetPrimary(token common.Address) (PoolEdge, bool)
	SetPrimary(edge PoolEdge)
	DeletePrimary(token common.Address) bool

	HubEdges(token common.Address) []PoolEdge
	// PutHubEdge replaces an edge with the same leg in place, or appends.
	PutHubEdge(edge PoolEdge) (replaced bool)
	DeleteHubEdge(edge PoolEdge) bool

	IteratePrimary(fn func(PoolEdge) bool)
	IterateHub(fn func(PoolEdge) bool)
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	primary      map[common.Address]PoolEdge
	primaryOrder []common.Address

	hub      map[common.Address][]PoolEdge
	hubOrder []PoolEdge
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		primary: make(map[common.Address]PoolEdge),
		hub:     make(map[common.Address][]PoolEdge),
	}
}

func (s *MemoryStore) GetPrimary(token common.Address) (PoolEdge, bool) {
	e, ok := s.primary[token]
	return e, ok
}

func (s *MemoryStore) SetPrimary(edge PoolEdge) {
	if _, ok := s.primary[edge.TokenIn]; !ok {
		s.primaryOrder = append(s.primaryOrder, edge.TokenIn)
	}
	s.primary[edge.TokenIn] = edge
}

func (s *MemoryStore) DeletePrimary(token common.Address) bool {
	if _, ok := s.primary[token]; !ok {
		return false
	}
	delete(s.primary, token)
	s.primaryOrder = slices.DeleteFunc(s.primaryOrder, func(t common.Address) bool { return t == token })
	return true
}

// HubEdges returns a copy of the hub edges keyed by token.
func (s *MemoryStore) HubEdges(token common.Address) []PoolEdge {
	return slices.Clone(s.hub[token])
}

func (s *MemoryStore) PutHubEdge(edge PoolEdge) bool {
	edges := s.hub[edge.TokenIn]
	if i := slices.IndexFunc(edges, edge.SameLeg); i >= 0 {
		edges[i] = edge
		j := slices.IndexFunc(s.hubOrder, edge.SameLeg)
		s.hubOrder[j] = edge
		return true
	}
	s.hub[edge.TokenIn] = append(edges, edge)
	s.hubOrder = append(s.hubOrder, edge)
	return false
}

func (s *MemoryStore) DeleteHubEdge(edge PoolEdge) bool {
	edges := s.hub[edge.TokenIn]
	i := slices.IndexFunc(edges, edge.SameLeg)
	if i < 0 {
		return false
	}
	edges = slices.Delete(edges, i, i+1)
	if len(edges) == 0 {
		delete(s.hub, edge.TokenIn)
	} else {
		s.hub[edge.TokenIn] = edges
	}
	s.hubOrder = slices.DeleteFunc(s.hubOrder, edge.SameLeg)
	return true
}

func (s *MemoryStore) IteratePrimary(fn func(PoolEdge) bool) {
	for _, token := range s.primaryOrder {
		if !fn(s.primary[token]) {
			return
		}
	}
}

func (s *MemoryStore) IterateHub(fn func(PoolEdge) bool) {
	for _, e := range s.hubOrder {
		if !fn(e) {
			return
		}
	}
}
