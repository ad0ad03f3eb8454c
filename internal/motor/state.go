package motor

import "fmt"

// Status is the position state reported to controllers.
// Values are the ones sent on the wire.
//
// Increasing and decreasing refer to the step position, not the percentage:
// StatusDecreasing is reported while the covering opens towards 100%.
type Status int

const (
	StatusDecreasing Status = iota
	StatusIncreasing
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusDecreasing:
		return "decreasing"
	case StatusIncreasing:
		return "increasing"
	case StatusStopped:
		return "stopped"
	}

	return fmt.Sprintf("status(%d)", int(s))
}

// Direction of the step counter. Its value is the direction pin level.
type Direction int

const (
	Backward Direction = iota
	Forward
)

func (d Direction) String() string {
	if d == Forward {
		return "forward"
	}

	return "backward"
}

func (d Direction) delta() int {
	if d == Forward {
		return 1
	}

	return -1
}

func (d Direction) status() Status {
	if d == Forward {
		return StatusIncreasing
	}

	return StatusDecreasing
}

// State is a point in time view of a motor. Current and Target are percentages.
type State struct {
	Name   string
	Status Status

	Current int
	Target  int

	Position    int
	TargetSteps int
}

// UpdateHandler receives motor state changes.
type UpdateHandler func(State) error
