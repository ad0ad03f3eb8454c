package main

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/jkaflik/autohome/internal/gpio"
	"github.com/jkaflik/autohome/internal/motor"
	"github.com/jkaflik/autohome/internal/relay"
	"github.com/pkg/errors"
	"github.com/racerxdl/go-mcp23017"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

type cfgPin struct {
	Kind string `yaml:"kind" default:"rpio"`

	Pin uint8 `yaml:"pin"`

	Mcp23017 int `yaml:"mcp23017"`
}

type cfgRelay struct {
	Pin          cfgPin `yaml:"pin"`
	NormalClosed bool   `yaml:"normal_closed"`
}

type cfgRelays struct {
	Light cfgRelay `yaml:"light"`
	Power cfgRelay `yaml:"power"`
}

type cfgMotor struct {
	Name string `yaml:"name"`

	DirPin  cfgPin `yaml:"dir_pin"`
	StepPin cfgPin `yaml:"step_pin"`

	MaxPosition int `yaml:"max_position"`

	Metadata map[string]interface{} `yaml:"metadata"`
}

type cfgMotion struct {
	StepDelay    time.Duration `yaml:"step_delay" default:"5ms" env:"STEP_DELAY"`
	PowerSettle  time.Duration `yaml:"power_settle" default:"500ms" env:"POWER_SETTLE"`
	DrainTimeout time.Duration `yaml:"drain_timeout" default:"30s" env:"DRAIN_TIMEOUT"`
	Pool         int           `yaml:"pool" default:"0" env:"POOL"`
}

type cfgDrivers struct {
	Mcp23017 map[int]struct {
		Bus          uint8 `yaml:"bus" default:"1"`
		DeviceNumber uint8 `yaml:"device_number" default:"0"`
	} `yaml:"mcp23017"`
}

type cfgHomeKit struct {
	Name        string `yaml:"name" default:"Blinds" env:"NAME"`
	Pin         string `yaml:"pin" default:"00102003" env:"PIN"`
	StoragePath string `yaml:"storage_path" default:"/var/lib/autohome/homekit" env:"STORAGE_PATH"`
	Port        string `yaml:"port" env:"PORT"`
}

type cfgMQTT struct {
	Enabled     bool   `yaml:"enabled" default:"false" env:"ENABLED"`
	ClientID    string `yaml:"client_id" default:"autohome" env:"CLIENT_ID"`
	Broker      string `yaml:"broker" default:"127.0.0.1:1883" env:"BROKER"`
	Username    string `yaml:"username" env:"USERNAME"`
	Password    string `yaml:"password" env:"PASSWORD"`
	TopicPrefix string `yaml:"topic_prefix" default:"autohome" env:"TOPIC_PREFIX"`
}

type cfgHASS struct {
	Enabled     bool   `yaml:"enabled" default:"true" env:"ENABLED"`
	TopicPrefix string `yaml:"topic_prefix" default:"homeassistant" env:"TOPIC_PREFIX"`
}

var Cfg struct {
	LogLevel  string `yaml:"log_level" default:"info" env:"LOG_LEVEL"`
	StateFile string `yaml:"state_file" default:"/var/lib/autohome/state.db" env:"STATE_FILE"`

	HomeKit cfgHomeKit `yaml:"homekit" env:"HOMEKIT"`
	MQTT    cfgMQTT    `yaml:"mqtt" env:"MQTT"`
	HASS    cfgHASS    `yaml:"hass" env:"HASS"`

	Relay  cfgRelays  `yaml:"relay"`
	Motors []cfgMotor `yaml:"motors"`
	Motion cfgMotion  `yaml:"motion" env:"MOTION"`

	Drivers cfgDrivers `yaml:"drivers"`
}

var configLoader = aconfig.LoaderFor(&Cfg, aconfig.Config{
	EnvPrefix: "AUTOHOME",
	SkipFlags: true,
	SkipFiles: true,
})

var motionPool chan struct{}

func loadConfigFromYamlFile(filename string) {
	f, err := os.Open(filename)
	if err != nil {
		logrus.Error(err)
		return
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&Cfg); err != nil {
		logrus.Fatal(err)
		return
	}

	for i := range Cfg.Motors {
		if Cfg.Motors[i].MaxPosition == 0 {
			Cfg.Motors[i].MaxPosition = motor.DefaultMaxSteps
		}
	}

	if Cfg.Motion.Pool > 0 {
		motionPool = make(chan struct{}, Cfg.Motion.Pool)
	}
}

func pahoOptsFromConfig() *paho.ClientOptions {
	return paho.NewClientOptions().
		SetClientID(Cfg.MQTT.ClientID).
		AddBroker(Cfg.MQTT.Broker).
		SetUsername(Cfg.MQTT.Username).
		SetPassword(Cfg.MQTT.Password).
		SetConnectTimeout(time.Second).
		SetPingTimeout(time.Second).
		SetWriteTimeout(time.Second).
		SetAutoReconnect(true)
}

func motorsFromConfig(power motor.PowerSource, store motor.PositionStore) (motors []*motor.Motor) {
	var opts []motor.Option
	if motionPool != nil {
		opts = append(opts, motor.WithSchedulerOptions(motor.WithPool(motionPool)))
	}

	for _, cfg := range Cfg.Motors {
		m, err := motor.New(
			motor.Config{
				Name:      cfg.Name,
				MaxSteps:  cfg.MaxPosition,
				StepDelay: Cfg.Motion.StepDelay,
			},
			pinFromConfig(cfg.DirPin),
			pinFromConfig(cfg.StepPin),
			power,
			store,
			opts...,
		)
		if err != nil {
			logrus.Fatal(err)
		}

		motors = append(motors, m)
	}

	return motors
}

func relayFromConfig(cfg cfgRelay) relay.Relay {
	if cfg.Pin.Kind == "dumb" {
		return &relay.Dumb{Name: "dumb"}
	}

	return &relay.Wired{
		Pin:          pinFromConfig(cfg.Pin),
		NormalClosed: cfg.NormalClosed,
	}
}

func pinFromConfig(cfg cfgPin) gpio.Pin {
	switch cfg.Kind {
	case "rpio", "":
		openRpio()
		return gpio.NewRpioPin(cfg.Pin)
	case "mcp23017":
		p, err := gpio.NewMcp23017Pin(mcp23017DeviceFromConfigByID(cfg.Mcp23017), cfg.Pin)
		if err != nil {
			logrus.Fatal(err)
		}
		return p
	case "dumb":
		return &gpio.Dumb{Name: "dumb"}
	}

	logrus.Fatalf("%s is not supported pin kind", cfg.Kind)
	return nil
}

// closers release GPIO drivers after the last pin write.
var closers []func() error

var rpioOpened bool

func openRpio() {
	if rpioOpened {
		return
	}

	if err := gpio.OpenRpio(); err != nil {
		logrus.Fatal(err)
	}
	rpioOpened = true
	closers = append(closers, func() error {
		return errors.Wrap(gpio.CloseRpio(), "rpio: close failed")
	})
}

var mcpDevices = map[int]*mcp23017.Device{}

func mcp23017DeviceFromConfigByID(id int) *mcp23017.Device {
	if Cfg.Drivers.Mcp23017 == nil {
		logrus.Fatal("drivers.mcp23017 not defined")
	}

	cfg, found := Cfg.Drivers.Mcp23017[id]
	if !found {
		logrus.Fatalf("%d is not valid defined drivers.mcp23017", id)
		return nil
	}

	dev := mcpDevices[id]
	if dev == nil {
		var err error
		dev, err = mcp23017.Open(cfg.Bus, cfg.DeviceNumber)
		if err != nil {
			logrus.Fatal(err)
		}
		closers = append(closers, func() error {
			if err := dev.Close(); err != nil {
				return errors.Wrap(err, "mcp23017: close failed")
			}

			logrus.Infof("mcp23017: close")
			return nil
		})
		if err := dev.Reset(); err != nil {
			logrus.Fatal(err)
		}

		mcpDevices[id] = dev
	}

	return dev
}
