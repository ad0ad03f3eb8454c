package relay

import (
	"github.com/jkaflik/autohome/internal/gpio"
	"github.com/sirupsen/logrus"
)

// Wired is a relay driven by a single output pin.
// NormalClosed inverts the pin level: the relay conducts while the pin is low.
type Wired struct {
	Pin          gpio.Pin
	NormalClosed bool
}

func (p *Wired) Enable() error {
	return gpio.Set(p.Pin, !p.NormalClosed)
}

func (p *Wired) Disable() error {
	return gpio.Set(p.Pin, p.NormalClosed)
}

func (p *Wired) IsEnabled() bool {
	high, err := p.Pin.IsHigh()
	if err != nil {
		logrus.Errorf("wired relay: read failed: %s", err)
		return false
	}

	return high != p.NormalClosed
}
