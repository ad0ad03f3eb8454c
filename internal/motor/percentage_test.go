package motor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentageForPosition(t *testing.T) {
	tests := []struct {
		position, maxSteps, want int
	}{
		{0, 2200, 100},
		{2200, 2200, 0},
		{1100, 2200, 50},
		{10, 2200, 100},
		{12, 2200, 99},
		{1, 3, 67},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PercentageForPosition(tt.position, tt.maxSteps), "position %d of %d", tt.position, tt.maxSteps)
	}
}

func TestPositionForPercentage(t *testing.T) {
	assert.Equal(t, 2200, PositionForPercentage(0, 2200))
	assert.Equal(t, 0, PositionForPercentage(100, 2200))
	assert.Equal(t, 1100, PositionForPercentage(50, 2200))
	assert.Equal(t, 22, PositionForPercentage(99, 2200))
}

func TestPercentageRoundTrip(t *testing.T) {
	for _, maxSteps := range []int{1, 3, 7, 100, 199, 2200, 5000} {
		tolerance := maxSteps/200 + 1
		for position := 0; position <= maxSteps; position++ {
			back := PositionForPercentage(PercentageForPosition(position, maxSteps), maxSteps)
			assert.InDelta(t, position, back, float64(tolerance), "position %d of %d", position, maxSteps)
		}
	}
}
