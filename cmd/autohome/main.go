package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/brutella/hc/accessory"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/jkaflik/autohome/internal/homekit"
	"github.com/jkaflik/autohome/internal/light"
	"github.com/jkaflik/autohome/internal/motor"
	"github.com/jkaflik/autohome/internal/mqtt"
	"github.com/jkaflik/autohome/internal/power"
	"github.com/jkaflik/autohome/internal/store"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableColors: false,
		FullTimestamp: true,
	})

	configPath := flag.String("config", "/etc/autohome/config.yaml", "config.yaml file path")
	flag.Parse()

	if err := configLoader.Load(); err != nil {
		logrus.Fatal(err)
	}
	loadConfigFromYamlFile(*configPath)

	level, err := logrus.ParseLevel(Cfg.LogLevel)
	if err != nil {
		logrus.Fatal(err)
	}
	logrus.SetLevel(level)
	logrus.Info("starting")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := store.Open(Cfg.StateFile)
	if err != nil {
		logrus.Fatal(err)
	}

	rail, err := power.New(relayFromConfig(Cfg.Relay.Power), power.WithSettleDelay(Cfg.Motion.PowerSettle))
	if err != nil {
		logrus.Fatal(err)
	}

	l, err := light.New(relayFromConfig(Cfg.Relay.Light))
	if err != nil {
		logrus.Fatal(err)
	}

	motors := motorsFromConfig(rail, st)

	blinds := homekit.NewBlinds(accessory.Info{
		Name:         Cfg.HomeKit.Name,
		Manufacturer: "autohome",
		Model:        "Blinds",
		SerialNumber: "0001",
	})
	for _, m := range motors {
		w := homekit.NewWindowCovering(m)
		w.Attach(blinds)
		m.OnUpdate(w.Notify)
	}

	if Cfg.MQTT.Enabled {
		startMQTT(ctx, motors)
	}

	faulted := make(chan error, 1)
	for _, m := range motors {
		go watchFaults(ctx, m, faulted)
	}

	lightbulb := homekit.NewLight(accessory.Info{
		Name:         "Light",
		Manufacturer: "autohome",
		Model:        "Light",
		SerialNumber: "0001",
	}, l)

	served := make(chan struct{})
	go func() {
		defer close(served)

		err := homekit.Serve(ctx, homekit.Config{
			Pin:         Cfg.HomeKit.Pin,
			StoragePath: Cfg.HomeKit.StoragePath,
			Port:        Cfg.HomeKit.Port,
		}, lightbulb.Accessory, blinds)
		if err != nil {
			logrus.Error(err)
			cancel()
		}
	}()

	var fault error
	select {
	case <-ctx.Done():
		logrus.Info("shutting down")
	case fault = <-faulted:
		logrus.Errorf("hardware fault, shutting down: %s", fault)
		cancel()
	}
	<-served

	if err := shutdown(motors, rail, st); err != nil {
		logrus.Error(err)
	}

	if fault != nil {
		os.Exit(1)
	}
}

func watchFaults(ctx context.Context, m *motor.Motor, faulted chan<- error) {
	select {
	case err := <-m.Faults():
		select {
		case faulted <- err:
		default:
			logrus.Error(err)
		}
	case <-ctx.Done():
	}
}

func startMQTT(ctx context.Context, motors []*motor.Motor) {
	var bridges []*mqtt.Bridge

	opts := pahoOptsFromConfig()
	opts.OnConnect = func(c paho.Client) {
		logrus.Info("MQTT broker connected")
		subscribe(ctx, c, bridges)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		logrus.Errorf("MQTT broker connection lost: %s", err.Error())
	}

	client := paho.NewClient(opts)
	for _, m := range motors {
		bridge := mqtt.NewBridge(client, m, Cfg.MQTT.TopicPrefix)
		m.OnUpdate(bridge.Notify)
		bridges = append(bridges, bridge)
	}

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		logrus.Errorf("MQTT broker connect failed: %s", token.Error())
	}

	go func() {
		<-ctx.Done()
		client.Disconnect(250)
	}()
}

func subscribe(ctx context.Context, c paho.Client, bridges []*mqtt.Bridge) {
	for i, bridge := range bridges {
		if Cfg.HASS.Enabled {
			if err := mqtt.PublishHAAutoDiscovery(c, Cfg.HASS.TopicPrefix, mqtt.NewHACover(bridge)); err != nil {
				logrus.Error(err)
			}
		}

		if md := Cfg.Motors[i].Metadata; md != nil {
			if err := bridge.SetMetadata(md); err != nil {
				logrus.Error(err)
			}
		}

		if err := bridge.Subscribe(ctx); err != nil {
			logrus.Error(err)
		}
	}
}

// shutdown drains motion, persists positions and leaves the hardware switched off.
func shutdown(motors []*motor.Motor, rail *power.Controller, st *store.Store) error {
	ctx, cancel := context.WithTimeout(context.Background(), Cfg.Motion.DrainTimeout)
	defer cancel()

	var err error
	for _, m := range motors {
		err = multierr.Append(err, m.Close(ctx))
	}
	for _, m := range motors {
		err = multierr.Append(err, m.Store())
	}

	err = multierr.Append(err, rail.Close())
	err = multierr.Append(err, st.Close())
	for _, c := range closers {
		err = multierr.Append(err, c())
	}

	logrus.Info("stopped")
	return err
}
