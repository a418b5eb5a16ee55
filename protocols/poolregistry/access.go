package poolregistry

import (
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
)

var ErrPermissionDenied = errors.New("DENIED")

// AccessPolicy decides whether a caller may mutate the registry.
type AccessPolicy interface {
	Authorize(caller common.Address) error
}

// OwnerPolicy admits a single governance account.
type OwnerPolicy struct {
	Owner common.Address
}

func (p OwnerPolicy) Authorize(caller common.Address) error {
	if caller != p.Owner || caller == (common.Address{}) {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, caller.Hex())
	}
	return nil
}

// AllowListPolicy admits any account in a fixed set of operators.
type AllowListPolicy struct {
	operators mapset.Set[common.Address]
}

// NewAllowListPolicy creates a policy admitting the given operators.
func NewAllowListPolicy(operators ...common.Address) *AllowListPolicy {
	return &AllowListPolicy{operators: mapset.NewSet(operators...)}
}

func (p *AllowListPolicy) Authorize(caller common.Address) error {
	if !p.operators.Contains(caller) {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, caller.Hex())
	}
	return nil
}
