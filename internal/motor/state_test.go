package motor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectionStatus(t *testing.T) {
	// Opening moves the step counter down while the percentage rises.
	assert.Equal(t, StatusDecreasing, Backward.status())
	assert.Equal(t, -1, Backward.delta())
	assert.Equal(t, StatusIncreasing, Forward.status())
	assert.Equal(t, 1, Forward.delta())

	assert.Equal(t, 0, int(StatusDecreasing))
	assert.Equal(t, 1, int(StatusIncreasing))
	assert.Equal(t, 2, int(StatusStopped))
}
