package gpio

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stianeikeland/go-rpio/v4"
)

// OpenRpio maps the Raspberry Pi GPIO memory. It must be called before any RpioPin is used.
func OpenRpio() error {
	if err := rpio.Open(); err != nil {
		return errors.Wrap(err, "rpio: open failed (are you running on a Raspberry Pi?)")
	}

	logrus.Debug("rpio: GPIO memory mapped")
	return nil
}

// CloseRpio unmaps the GPIO memory.
func CloseRpio() error {
	return rpio.Close()
}

// RpioPin is a BCM numbered output on the Raspberry Pi header.
type RpioPin struct {
	pin rpio.Pin
}

func NewRpioPin(pin uint8) *RpioPin {
	p := &RpioPin{pin: rpio.Pin(pin)}
	p.pin.Output()

	return p
}

func (p *RpioPin) High() error {
	p.pin.High()
	return nil
}

func (p *RpioPin) Low() error {
	p.pin.Low()
	return nil
}

func (p *RpioPin) IsHigh() (bool, error) {
	return p.pin.Read() == rpio.High, nil
}
