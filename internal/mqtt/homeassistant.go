package mqtt

import (
	"encoding/json"
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type haDevice struct {
	Identifiers  []string `json:"ids,omitempty"`
	Manufacturer string   `json:"mf,omitempty"`
	Model        string   `json:"mdl,omitempty"`
	Name         string   `json:"name,omitempty"`
	SWVersion    string   `json:"sw,omitempty"`
}

type haEntity struct {
	AvailabilityTopic string `json:"avty_t,omitempty"`
	UniqueID          string `json:"uniq_id,omitempty"`
	Name              string `json:"name,omitempty"`
	DeviceClass       string `json:"device_class,omitempty"`

	Device haDevice `json:"device,omitempty"`
}

type haCover struct {
	haEntity
	StateTopic       string `json:"stat_t"`
	CommandTopic     string `json:"cmd_t"`
	PositionTopic    string `json:"pos_t"`
	SetPositionTopic string `json:"set_pos_t"`
	PositionOpen     int    `json:"pos_open"`
	PositionClosed   int    `json:"pos_clsd"`
	PayloadOpen      string `json:"pl_open"`
	PayloadClose     string `json:"pl_cls"`
	PayloadStop      string `json:"pl_stop,omitempty"`
	StateOpen        string `json:"stat_open"`
	StateOpening     string `json:"stat_opening"`
	StateClosed      string `json:"stat_clsd"`
	StateClosing     string `json:"stat_closing"`
}

func NewHACover(bridge *Bridge) haCover {
	return haCover{
		haEntity: haEntity{
			UniqueID:    "autohome_" + bridge.Name(),
			Name:        bridge.Name(),
			DeviceClass: "blind",

			Device: haDevice{
				Identifiers:  []string{"autohome"},
				Manufacturer: "autohome",
				Model:        "Stepper blind",
				Name:         bridge.Name(),
				SWVersion:    "autohome",
			},
		},
		StateTopic:       bridge.StateTopic,
		CommandTopic:     bridge.CommandTopic,
		PositionTopic:    bridge.PositionTopic,
		SetPositionTopic: bridge.PositionChangeTopic,
		PositionOpen:     PositionOpen,
		PositionClosed:   PositionClosed,
		PayloadOpen:      mqttOpenCmd,
		PayloadClose:     mqttCloseCmd,
		StateOpen:        coverOpenState,
		StateOpening:     coverOpeningState,
		StateClosed:      coverClosedState,
		StateClosing:     coverClosingState,
	}
}

func discoveryTopic(prefix string, cover haCover) string {
	return fmt.Sprintf("%s/cover/autohome/%s/config", prefix, cover.Name)
}

func PublishHAAutoDiscovery(client paho.Client, homeAssistantDiscoveryTopicPrefix string, cover haCover) error {
	payload, err := json.Marshal(cover)
	if err != nil {
		return err
	}

	if token := client.Publish(discoveryTopic(homeAssistantDiscoveryTopicPrefix, cover), 0, true, payload); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	return nil
}
