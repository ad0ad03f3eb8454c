package homekit

import (
	"fmt"
	"sync"

	"github.com/brutella/hc/accessory"
	"github.com/brutella/hc/characteristic"
	"github.com/brutella/hc/service"
	"github.com/jkaflik/autohome/internal/motor"
	"github.com/sirupsen/logrus"
)

// Actuator is what a window covering service controls.
type Actuator interface {
	Name() string
	Advance(percentage int) error
	CurrentPercentage() int
	TargetPercentage() int
	Status() motor.Status
}

// WindowCovering exposes one actuator as a HomeKit window covering service.
type WindowCovering struct {
	actuator Actuator
	service  *service.WindowCovering

	mu        sync.Mutex
	accessory *accessory.Accessory
	last      motor.State
	notified  bool
}

func NewWindowCovering(a Actuator) *WindowCovering {
	w := &WindowCovering{actuator: a, service: service.NewWindowCovering()}

	name := characteristic.NewName()
	name.SetValue(a.Name())
	w.service.AddCharacteristic(name.Characteristic)

	w.service.TargetPosition.SetValue(a.TargetPercentage())
	w.service.CurrentPosition.SetValue(a.CurrentPercentage())
	w.service.PositionState.SetValue(int(a.Status()))

	w.service.TargetPosition.OnValueRemoteUpdate(w.setTarget)
	w.service.TargetPosition.OnValueRemoteGet(a.TargetPercentage)
	w.service.CurrentPosition.OnValueRemoteGet(a.CurrentPercentage)
	w.service.PositionState.OnValueRemoteGet(func() int {
		return int(a.Status())
	})

	return w
}

// NewBlinds returns the accessory grouping all window covering services.
func NewBlinds(info accessory.Info) *accessory.Accessory {
	return accessory.New(info, accessory.TypeWindowCovering)
}

// Attach adds the service to acc, which then identifies it on the wire.
func (w *WindowCovering) Attach(acc *accessory.Accessory) {
	w.mu.Lock()
	defer w.mu.Unlock()

	acc.AddService(w.service.Service)
	w.accessory = acc
}

func (w *WindowCovering) setTarget(percentage int) {
	logrus.Infof("%s: HomeKit target set to %d", w.actuator.Name(), percentage)

	if err := w.actuator.Advance(percentage); err != nil {
		logrus.Errorf("%s: HomeKit target failed: %s", w.actuator.Name(), err)
	}
}

// Notify pushes changed values to paired controllers in one batch.
func (w *WindowCovering) Notify(state motor.State) error {
	changed := w.update(state)
	if len(changed) > 0 {
		logrus.Debugf("%s: HomeKit notified %v", state.Name, changed)
	}

	return nil
}

func (w *WindowCovering) update(state motor.State) (changed []string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var aid uint64
	if w.accessory != nil {
		aid = w.accessory.ID
	}
	ref := func(c *characteristic.Characteristic) string {
		return fmt.Sprintf("%d.%d", aid, c.ID)
	}

	if !w.notified || w.last.Target != state.Target {
		w.service.TargetPosition.SetValue(state.Target)
		changed = append(changed, ref(w.service.TargetPosition.Characteristic))
	}
	if !w.notified || w.last.Current != state.Current {
		w.service.CurrentPosition.SetValue(state.Current)
		changed = append(changed, ref(w.service.CurrentPosition.Characteristic))
	}
	if !w.notified || w.last.Status != state.Status {
		w.service.PositionState.SetValue(int(state.Status))
		changed = append(changed, ref(w.service.PositionState.Characteristic))
	}

	w.last = state
	w.notified = true

	return changed
}
