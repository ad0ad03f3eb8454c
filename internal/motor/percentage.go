package motor

import "math"

// PercentageForPosition maps an absolute step count to the protocol percentage.
// Position 0 is 100%, maxSteps is 0%.
func PercentageForPosition(position, maxSteps int) int {
	return 100 - int(math.Round(float64(position)/float64(maxSteps)*100))
}

// PositionForPercentage is the inverse of PercentageForPosition.
func PositionForPercentage(percentage, maxSteps int) int {
	return int(math.Round(float64(100-percentage) * float64(maxSteps) / 100))
}
