package light

import (
	"github.com/jkaflik/autohome/internal/relay"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Light struct {
	relay relay.Relay
}

// New returns a Light switched off.
func New(r relay.Relay) (*Light, error) {
	l := &Light{relay: r}
	if err := l.Set(false); err != nil {
		return nil, err
	}

	logrus.Info("light: initialized")
	return l, nil
}

func (l *Light) Set(on bool) error {
	logrus.Infof("light: set to %t", on)

	if on {
		return errors.Wrap(l.relay.Enable(), "light: turn on failed")
	}

	return errors.Wrap(l.relay.Disable(), "light: turn off failed")
}

func (l *Light) IsOn() bool {
	return l.relay.IsEnabled()
}
