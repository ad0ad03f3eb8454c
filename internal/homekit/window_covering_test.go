package homekit

import (
	"testing"

	"github.com/brutella/hc/accessory"
	"github.com/jkaflik/autohome/internal/motor"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type fakeActuator struct {
	advanced   []int
	advanceErr error
	current    int
	target     int
	status     motor.Status
}

func (a *fakeActuator) Name() string { return "salon" }

func (a *fakeActuator) Advance(percentage int) error {
	a.advanced = append(a.advanced, percentage)
	return a.advanceErr
}

func (a *fakeActuator) CurrentPercentage() int { return a.current }
func (a *fakeActuator) TargetPercentage() int  { return a.target }
func (a *fakeActuator) Status() motor.Status   { return a.status }

func TestWindowCoveringCallbacks(t *testing.T) {
	a := &fakeActuator{current: 100, target: 100, status: motor.StatusStopped}
	w := NewWindowCovering(a)

	t.Run("initial values mirror the actuator", func(t *testing.T) {
		assert.Equal(t, 100, w.service.CurrentPosition.GetValue())
		assert.Equal(t, 100, w.service.TargetPosition.GetValue())
		assert.Equal(t, int(motor.StatusStopped), w.service.PositionState.GetValue())
	})

	t.Run("reads go to the actuator", func(t *testing.T) {
		a.current, a.target, a.status = 40, 20, motor.StatusIncreasing

		assert.Equal(t, 40, w.service.CurrentPosition.GetValue())
		assert.Equal(t, 20, w.service.TargetPosition.GetValue())
		assert.Equal(t, int(motor.StatusIncreasing), w.service.PositionState.GetValue())
	})

	t.Run("target writes advance the actuator", func(t *testing.T) {
		w.setTarget(30)
		assert.Equal(t, []int{30}, a.advanced)
	})

	t.Run("failing advance is swallowed", func(t *testing.T) {
		a.advanceErr = errors.New("out of range")
		assert.NotPanics(t, func() { w.setTarget(300) })
	})
}

func TestWindowCoveringNotify(t *testing.T) {
	a := &fakeActuator{current: 100, target: 100, status: motor.StatusStopped}
	w := NewWindowCovering(a)

	blinds := NewBlinds(accessory.Info{Name: "Blinds"})
	w.Attach(blinds)

	state := motor.State{Name: "salon", Status: motor.StatusIncreasing, Current: 100, Target: 0}
	assert.Len(t, w.update(state), 3, "first notification carries every characteristic")
	assert.Empty(t, w.update(state), "unchanged state carries nothing")

	state.Current = 90
	assert.Len(t, w.update(state), 1)

	state.Current, state.Status = 0, motor.StatusStopped
	assert.Len(t, w.update(state), 2)

	assert.NoError(t, w.Notify(state))
}

type fakeSwitch struct {
	on bool
}

func (s *fakeSwitch) Set(on bool) error {
	s.on = on
	return nil
}

func (s *fakeSwitch) IsOn() bool { return s.on }

func TestLightReadsSwitch(t *testing.T) {
	s := &fakeSwitch{}
	acc := NewLight(accessory.Info{Name: "Light"}, s)

	assert.False(t, acc.Lightbulb.On.GetValue())
	s.on = true
	assert.True(t, acc.Lightbulb.On.GetValue())
}
