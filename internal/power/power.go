// Package power gates the supply rail shared by all motor drivers.
package power

import (
	"sync"
	"time"

	"github.com/jkaflik/autohome/internal/relay"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const DefaultSettleDelay = 500 * time.Millisecond

type Option func(*Controller)

// WithSettleDelay overrides how long Use blocks after switching the rail on.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.settleDelay = d
	}
}

// Controller keeps the rail on while at least one user holds it.
type Controller struct {
	relay       relay.Relay
	settleDelay time.Duration

	mu       sync.Mutex
	useCount int
	enabled  bool
}

// New returns a Controller with the rail switched off.
func New(r relay.Relay, opts ...Option) (*Controller, error) {
	c := &Controller{relay: r, settleDelay: DefaultSettleDelay}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.relay.Disable(); err != nil {
		return nil, errors.Wrap(err, "power: initial turn off failed")
	}

	return c, nil
}

// Use takes a reference on the rail. The first user switches it on and waits
// for the settle delay, so the rail is live once Use returns.
func (c *Controller) Use() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.useCount++
	logrus.Debugf("power: in use by %d", c.useCount)

	if c.enabled {
		return nil
	}

	if err := c.relay.Enable(); err != nil {
		c.useCount--
		return errors.Wrap(err, "power: turn on failed")
	}
	c.enabled = true
	logrus.Info("power: turned on")

	time.Sleep(c.settleDelay)

	return nil
}

// Release drops a reference. The last one switches the rail off.
// Releasing an unused rail does nothing.
func (c *Controller) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.useCount == 0 {
		return nil
	}

	c.useCount--
	logrus.Debugf("power: in use by %d", c.useCount)

	if c.useCount > 0 || !c.enabled {
		return nil
	}

	if err := c.relay.Disable(); err != nil {
		return errors.Wrap(err, "power: turn off failed")
	}
	c.enabled = false
	logrus.Info("power: turned off")

	return nil
}

func (c *Controller) InUse() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.useCount
}

func (c *Controller) IsEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.enabled
}

// Close switches the rail off regardless of outstanding users.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.useCount > 0 {
		logrus.Warnf("power: closing while in use by %d", c.useCount)
	}
	c.useCount = 0
	c.enabled = false

	return errors.Wrap(c.relay.Disable(), "power: turn off failed")
}
