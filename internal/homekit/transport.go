package homekit

import (
	"context"

	"github.com/brutella/hc"
	"github.com/brutella/hc/accessory"
	hclog "github.com/brutella/hc/log"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Pin         string
	StoragePath string
	Port        string
}

// Serve publishes the accessories and blocks until ctx is done.
func Serve(ctx context.Context, cfg Config, first *accessory.Accessory, rest ...*accessory.Accessory) error {
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		hclog.Debug.Enable()
	}

	t, err := hc.NewIPTransport(hc.Config{
		Pin:         cfg.Pin,
		StoragePath: cfg.StoragePath,
		Port:        cfg.Port,
	}, first, rest...)
	if err != nil {
		return errors.Wrap(err, "homekit: transport setup failed")
	}

	go func() {
		<-ctx.Done()
		logrus.Info("homekit: unpublishing")
		<-t.Stop()
	}()

	logrus.Infof("homekit: publishing %d accessories", len(rest)+1)
	t.Start()

	return nil
}
