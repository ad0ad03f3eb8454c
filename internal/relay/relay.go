package relay

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type Relay interface {
	Enable() error
	Disable() error
	IsEnabled() bool
}

type Dumb struct {
	Name string

	mu        sync.Mutex
	isEnabled bool
}

func (r *Dumb) Enable() error {
	r.set(true)
	logrus.Warnf("%s: dumb relay enabled", r.Name)
	return nil
}

func (r *Dumb) Disable() error {
	r.set(false)
	logrus.Warnf("%s: dumb relay disabled", r.Name)
	return nil
}

func (r *Dumb) IsEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.isEnabled
}

func (r *Dumb) set(enabled bool) {
	r.mu.Lock()
	r.isEnabled = enabled
	r.mu.Unlock()
}
