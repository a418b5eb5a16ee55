package token

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Indexer builds token systems from configuration.
type Indexer struct{}

// New creates a new Indexer.
func New() *Indexer {
	return &Indexer{}
}

// Index creates an indexed token system from a raw slice of tokens. The
// first occurrence of an address wins.
func (i *Indexer) Index(tokens []TokenView) (*IndexableTokenSystem, error) {
	for _, t := range tokens {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return NewIndexableTokenSystem(tokens), nil
}

// IndexableTokenSystem provides fast, indexed access to token data.
type IndexableTokenSystem struct {
	byAddress map[common.Address]TokenView
	bySymbol  map[string]TokenView
	all       []TokenView
}

// NewIndexableTokenSystem creates a new indexed token system from a raw slice.
func NewIndexableTokenSystem(tokens []TokenView) *IndexableTokenSystem {
	byAddress := make(map[common.Address]TokenView, len(tokens))
	bySymbol := make(map[string]TokenView, len(tokens))
	all := make([]TokenView, 0, len(tokens))

	for _, t := range tokens {
		if _, ok := byAddress[t.Address]; ok {
			continue
		}
		byAddress[t.Address] = t
		if _, ok := bySymbol[t.Symbol]; !ok && t.Symbol != "" {
			bySymbol[t.Symbol] = t
		}
		all = append(all, t)
	}

	return &IndexableTokenSystem{
		byAddress: byAddress,
		bySymbol:  bySymbol,
		all:       all,
	}
}

// GetByAddress retrieves a token by its contract address.
func (its *IndexableTokenSystem) GetByAddress(address common.Address) (TokenView, bool) {
	t, ok := its.byAddress[address]
	return t, ok
}

// GetBySymbol retrieves a token by its symbol.
func (its *IndexableTokenSystem) GetBySymbol(symbol string) (TokenView, bool) {
	t, ok := its.bySymbol[symbol]
	return t, ok
}

// Resolve accepts either a hex address or a known symbol. Unknown addresses
// are returned with 18 decimals.
func (its *IndexableTokenSystem) Resolve(s string) (TokenView, error) {
	if t, ok := its.bySymbol[s]; ok {
		return t, nil
	}
	if !common.IsHexAddress(s) {
		return TokenView{}, fmt.Errorf("%w: %q", ErrUnknownToken, s)
	}
	addr := common.HexToAddress(s)
	if t, ok := its.byAddress[addr]; ok {
		return t, nil
	}
	return TokenView{Address: addr, Decimals: 18}, nil
}

// Label returns the symbol of a known token, or its hex address.
func (its *IndexableTokenSystem) Label(address common.Address) string {
	if t, ok := its.byAddress[address]; ok && t.Symbol != "" {
		return t.Symbol
	}
	return address.Hex()
}

// All returns a defensive copy of the slice of all tokens in the system.
func (its *IndexableTokenSystem) All() []TokenView {
	allCopy := make([]TokenView, len(its.all))
	copy(allCopy, its.all)
	return allCopy
}
