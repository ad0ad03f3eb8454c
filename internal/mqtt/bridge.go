package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/jkaflik/autohome/internal/motor"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	mqttOpenCmd  = "open"
	mqttCloseCmd = "close"
	mqttStopCmd  = "stop"
)

const (
	coverOpenState    = "open"
	coverClosedState  = "closed"
	coverOpeningState = "opening"
	coverClosingState = "closing"
)

// Percentages published for fully open and fully closed covers.
const (
	PositionOpen   = 100
	PositionClosed = 0
)

// Actuator is what a bridge controls.
type Actuator interface {
	Name() string
	Advance(percentage int) error
}

type Bridge struct {
	mqtt     mqtt.Client
	actuator Actuator

	StateTopic    string
	PositionTopic string
	TargetTopic   string
	MetadataTopic string

	CommandTopic        string
	PositionChangeTopic string
}

func NewBridge(client mqtt.Client, actuator Actuator, prefix string) *Bridge {
	base := fmt.Sprintf("%s/%s", prefix, actuator.Name())

	return &Bridge{
		mqtt:                client,
		actuator:            actuator,
		StateTopic:          base + "/state",
		PositionTopic:       base + "/position",
		TargetTopic:         base + "/target",
		MetadataTopic:       base + "/metadata",
		CommandTopic:        base + "/set",
		PositionChangeTopic: base + "/position/set",
	}
}

func (b *Bridge) Name() string {
	return b.actuator.Name()
}

func (b *Bridge) SetMetadata(value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if token := b.mqtt.Publish(b.MetadataTopic, 0, true, payload); token.Wait() && token.Error() != nil {
		return errors.Wrapf(token.Error(), "%s: MQTT metadata publish failed", b.Name())
	}

	return nil
}

// Notify publishes the retained cover state, position and target.
func (b *Bridge) Notify(state motor.State) error {
	if token := b.mqtt.Publish(b.StateTopic, 0, true, coverState(state)); token.Wait() && token.Error() != nil {
		return errors.Wrapf(token.Error(), "%s: MQTT state publish failed", b.Name())
	}
	if token := b.mqtt.Publish(b.PositionTopic, 0, true, strconv.Itoa(state.Current)); token.Wait() && token.Error() != nil {
		return errors.Wrapf(token.Error(), "%s: MQTT position publish failed", b.Name())
	}
	if token := b.mqtt.Publish(b.TargetTopic, 0, true, strconv.Itoa(state.Target)); token.Wait() && token.Error() != nil {
		return errors.Wrapf(token.Error(), "%s: MQTT target publish failed", b.Name())
	}

	return nil
}

func coverState(state motor.State) string {
	switch state.Status {
	case motor.StatusIncreasing:
		return coverClosingState
	case motor.StatusDecreasing:
		return coverOpeningState
	}

	if state.Current == PositionClosed {
		return coverClosedState
	}

	return coverOpenState
}

func (b *Bridge) Subscribe(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		if token := b.mqtt.Unsubscribe(b.PositionChangeTopic, b.CommandTopic); token.Wait() && token.Error() != nil {
			logrus.Errorf("%s: MQTT topics unsubscribe failed: %s", b.Name(), token.Error())
		}
	}()

	if token := b.mqtt.Subscribe(b.CommandTopic, 0, b.onCommandHandler()); token.Wait() && token.Error() != nil {
		return errors.Wrapf(token.Error(), "%s: MQTT command topic subscription failed", b.Name())
	}
	logrus.Infof("%s: MQTT command topic subscribed", b.Name())

	if token := b.mqtt.Subscribe(b.PositionChangeTopic, 0, b.onPositionChangeHandler()); token.Wait() && token.Error() != nil {
		return errors.Wrapf(token.Error(), "%s: MQTT position change topic subscription failed", b.Name())
	}
	logrus.Infof("%s: MQTT position change topic subscribed", b.Name())

	return nil
}

func (b *Bridge) onCommandHandler() mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		b.handleCommand(string(msg.Payload()))
	}
}

func (b *Bridge) handleCommand(cmd string) {
	var err error
	switch strings.TrimSpace(cmd) {
	case mqttOpenCmd:
		err = b.actuator.Advance(PositionOpen)
	case mqttCloseCmd:
		err = b.actuator.Advance(PositionClosed)
	case mqttStopCmd:
		logrus.Warnf("%s: MQTT stop is not supported, motion runs to completion", b.Name())
	default:
		logrus.Errorf("%s: MQTT unsupported %s command received", b.Name(), cmd)
	}

	if err != nil {
		logrus.Error(err)
	}
}

func (b *Bridge) onPositionChangeHandler() mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		b.handlePositionChange(string(msg.Payload()))
	}
}

func (b *Bridge) handlePositionChange(payload string) {
	pos, err := strconv.Atoi(strings.TrimSpace(payload))
	if err != nil {
		logrus.Errorf("%s: MQTT invalid position %q: %s", b.Name(), payload, err)
		return
	}

	if err := b.actuator.Advance(pos); err != nil {
		logrus.Error(err)
	}
}
