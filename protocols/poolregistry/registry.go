package poolregistry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrAlreadyExists = errors.New("L: Exist")
	ErrNotFound      = errors.New("edge not found")
)

// Config holds the dependencies of a Registry.
type Config struct {
	Store  Store
	Policy AccessPolicy
	Logger *slog.Logger
}

func (c *Config) validate() error {
	if c.Store == nil {
		return errors.New("config: Store is required")
	}
	if c.Policy == nil {
		return errors.New("config: Policy is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	return nil
}

// Registry owns the primary and hub edge collections. Mutators are
// privileged and atomic per call; readers get immutable Snapshots.
type Registry struct {
	mu     sync.RWMutex
	store  Store
	policy AccessPolicy
	logger *slog.Logger

	snapshot *Snapshot // nil after a mutation until the next read
	version  uint64
}

// NewRegistry creates a Registry over the configured store.
func NewRegistry(cfg Config) (*Registry, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Registry{
		store:  cfg.Store,
		policy: cfg.Policy,
		logger: cfg.Logger,
	}, nil
}

// AddPrimaryEdges registers the designated route for each edge's TokenIn.
// An occupied key fails with ErrAlreadyExists unless overwrite is set.
func (r *Registry) AddPrimaryEdges(caller common.Address, edges []PoolEdge, overwrite bool) error {
	if err := r.policy.Authorize(caller); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[common.Address]struct{}, len(edges))
	for _, e := range edges {
		if err := e.Validate(); err != nil {
			return err
		}
		_, inBatch := seen[e.TokenIn]
		_, stored := r.store.GetPrimary(e.TokenIn)
		if !overwrite && (inBatch || stored) {
			return fmt.Errorf("%w: primary %s", ErrAlreadyExists, e)
		}
		seen[e.TokenIn] = struct{}{}
	}

	for _, e := range edges {
		r.store.SetPrimary(e)
	}
	r.invalidate()
	r.logger.Info("Primary edges added", "count", len(edges), "overwrite", overwrite, "caller", caller, "version", r.version)
	return nil
}

// AddHubEdges registers bridging edges among hub tokens. Several edges may
// share a TokenIn; an identical leg fails with ErrAlreadyExists unless
// overwrite is set, in which case it is replaced in place.
func (r *Registry) AddHubEdges(caller common.Address, edges []PoolEdge, overwrite bool) error {
	if err := r.policy.Authorize(caller); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range edges {
		if err := e.Validate(); err != nil {
			return err
		}
		if overwrite {
			continue
		}
		for _, prev := range edges[:i] {
			if prev.SameLeg(e) {
				return fmt.Errorf("%w: hub %s", ErrAlreadyExists, e)
			}
		}
		for _, stored := range r.store.HubEdges(e.TokenIn) {
			if stored.SameLeg(e) {
				return fmt.Errorf("%w: hub %s", ErrAlreadyExists, e)
			}
		}
	}

	for _, e := range edges {
		r.store.PutHubEdge(e)
	}
	r.invalidate()
	r.logger.Info("Hub edges added", "count", len(edges), "overwrite", overwrite, "caller", caller, "version", r.version)
	return nil
}

// RemovePrimaryEdge drops the primary edge registered for token.
func (r *Registry) RemovePrimaryEdge(caller, token common.Address) error {
	if err := r.policy.Authorize(caller); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.store.DeletePrimary(token) {
		return fmt.Errorf("%w: primary for %s", ErrNotFound, token.Hex())
	}
	r.invalidate()
	r.logger.Info("Primary edge removed", "token", token, "caller", caller, "version", r.version)
	return nil
}

// RemoveHubEdge drops the hub edge with the same leg as edge.
func (r *Registry) RemoveHubEdge(caller common.Address, edge PoolEdge) error {
	if err := r.policy.Authorize(caller); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.store.DeleteHubEdge(edge) {
		return fmt.Errorf("%w: hub %s", ErrNotFound, edge)
	}
	r.invalidate()
	r.logger.Info("Hub edge removed", "edge", edge.String(), "caller", caller, "version", r.version)
	return nil
}

// Snapshot returns a consistent view of both collections. The same value is
// returned until the next mutation.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.RLock()
	snap := r.snapshot
	r.mu.RUnlock()
	if snap != nil {
		return snap
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snapshot == nil {
		var primary, hub []PoolEdge
		r.store.IteratePrimary(func(e PoolEdge) bool {
			primary = append(primary, e)
			return true
		})
		r.store.IterateHub(func(e PoolEdge) bool {
			hub = append(hub, e)
			return true
		})
		r.snapshot = New().Index(primary, hub)
	}
	return r.snapshot
}

// Version increases with every successful mutation.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

func (r *Registry) invalidate() {
	r.snapshot = nil
	r.version++
}
