package gpio

import (
	"github.com/pkg/errors"
	"github.com/racerxdl/go-mcp23017"
)

type Mcp23017Pin struct {
	device *mcp23017.Device
	pin    uint8
}

func NewMcp23017Pin(device *mcp23017.Device, pin uint8) (*Mcp23017Pin, error) {
	p := &Mcp23017Pin{device: device, pin: pin}
	if err := p.device.PinMode(pin, mcp23017.OUTPUT); err != nil {
		return nil, errors.Wrapf(err, "mcp23017: pin %d output mode failed", pin)
	}

	return p, nil
}

func (m *Mcp23017Pin) High() error {
	return m.device.DigitalWrite(m.pin, mcp23017.HIGH)
}

func (m *Mcp23017Pin) Low() error {
	return m.device.DigitalWrite(m.pin, mcp23017.LOW)
}

func (m *Mcp23017Pin) IsHigh() (bool, error) {
	level, err := m.device.DigitalRead(m.pin)
	if err != nil {
		return false, err
	}

	return level == mcp23017.HIGH, nil
}
