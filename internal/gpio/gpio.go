package gpio

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Pin is a single digital output.
type Pin interface {
	High() error
	Low() error
	IsHigh() (bool, error)
}

// Set drives p to the given level.
func Set(p Pin, high bool) error {
	if high {
		return p.High()
	}

	return p.Low()
}

// Dumb keeps the level in memory. Useful when running without the hardware.
type Dumb struct {
	Name string

	mu   sync.Mutex
	high bool
}

func (d *Dumb) High() error {
	d.set(true)
	return nil
}

func (d *Dumb) Low() error {
	d.set(false)
	return nil
}

func (d *Dumb) IsHigh() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.high, nil
}

func (d *Dumb) set(high bool) {
	d.mu.Lock()
	d.high = high
	d.mu.Unlock()

	logrus.Tracef("%s: dumb pin set to %t", d.Name, high)
}
