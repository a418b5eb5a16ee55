package swapper

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	id := common.HexToAddress("0x00000000000000000000000000000000000000e0")
	r := NewRegistry()

	_, ok := r.Get(id)
	assert.False(t, ok)
	_, err := r.Lookup(id)
	assert.ErrorIs(t, err, ErrUnknownSwapper)

	var s Swapper
	require.NoError(t, r.Register(id, s))
	assert.ErrorIs(t, r.Register(id, s), ErrSwapperExists)

	_, err = r.Lookup(id)
	assert.NoError(t, err)
}

func TestZeroQuote(t *testing.T) {
	q := ZeroQuote()
	require.NotNil(t, q.AmountOut)
	assert.True(t, q.AmountOut.IsZero())
	assert.Zero(t, q.PriceImpact)
}
