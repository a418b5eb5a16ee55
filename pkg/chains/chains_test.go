package chains

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	n, err := Name(Polygon)
	require.NoError(t, err)
	assert.Equal(t, "polygon", n)

	_, err = Name(999)
	assert.Error(t, err)
	assert.True(t, IsSupported(Local))
	assert.False(t, IsSupported(0))
}
