package homekit

import (
	"github.com/brutella/hc/accessory"
	"github.com/sirupsen/logrus"
)

type Switch interface {
	Set(on bool) error
	IsOn() bool
}

// NewLight exposes s as a lightbulb accessory.
func NewLight(info accessory.Info, s Switch) *accessory.Lightbulb {
	acc := accessory.NewLightbulb(info)
	acc.Lightbulb.On.SetValue(s.IsOn())

	acc.Lightbulb.On.OnValueRemoteUpdate(func(on bool) {
		if err := s.Set(on); err != nil {
			logrus.Errorf("light: HomeKit switch failed: %s", err)
		}
	})
	acc.Lightbulb.On.OnValueRemoteGet(s.IsOn)

	return acc
}
