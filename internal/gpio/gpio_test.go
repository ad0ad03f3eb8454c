package gpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet(t *testing.T) {
	pin := &Dumb{Name: "test"}

	require.NoError(t, Set(pin, true))
	high, err := pin.IsHigh()
	require.NoError(t, err)
	assert.True(t, high)

	require.NoError(t, Set(pin, false))
	high, err = pin.IsHigh()
	require.NoError(t, err)
	assert.False(t, high)
}
