package mqtt

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/jkaflik/autohome/internal/motor"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

// fakeClient records retained publishes. Other paho.Client methods are not used.
type fakeClient struct {
	paho.Client

	mu         sync.Mutex
	published  map[string]string
	publishErr error
}

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.published == nil {
		c.published = map[string]string{}
	}
	switch p := payload.(type) {
	case string:
		c.published[topic] = p
	case []byte:
		c.published[topic] = string(p)
	}

	return newFakeToken(c.publishErr)
}

type fakeActuator struct {
	advanced   []int
	advanceErr error
}

func (a *fakeActuator) Name() string { return "salon" }

func (a *fakeActuator) Advance(percentage int) error {
	a.advanced = append(a.advanced, percentage)
	return a.advanceErr
}

func TestBridgeTopics(t *testing.T) {
	b := NewBridge(&fakeClient{}, &fakeActuator{}, "autohome")

	assert.Equal(t, "autohome/salon/state", b.StateTopic)
	assert.Equal(t, "autohome/salon/position", b.PositionTopic)
	assert.Equal(t, "autohome/salon/target", b.TargetTopic)
	assert.Equal(t, "autohome/salon/set", b.CommandTopic)
	assert.Equal(t, "autohome/salon/position/set", b.PositionChangeTopic)
}

func TestBridgeNotify(t *testing.T) {
	client := &fakeClient{}
	b := NewBridge(client, &fakeActuator{}, "autohome")

	tests := []struct {
		state     motor.State
		wantState string
	}{
		{motor.State{Status: motor.StatusIncreasing, Current: 80, Target: 0}, "closing"},
		{motor.State{Status: motor.StatusDecreasing, Current: 20, Target: 100}, "opening"},
		{motor.State{Status: motor.StatusStopped, Current: 0, Target: 0}, "closed"},
		{motor.State{Status: motor.StatusStopped, Current: 50, Target: 50}, "open"},
	}

	for _, tt := range tests {
		require.NoError(t, b.Notify(tt.state))
		assert.Equal(t, tt.wantState, client.published[b.StateTopic])
	}
	assert.Equal(t, "50", client.published[b.PositionTopic])
	assert.Equal(t, "50", client.published[b.TargetTopic])

	client.publishErr = errors.New("broker unreachable")
	assert.Error(t, b.Notify(motor.State{}))
}

func TestBridgeCommands(t *testing.T) {
	a := &fakeActuator{}
	b := NewBridge(&fakeClient{}, a, "autohome")

	b.handleCommand("open")
	b.handleCommand("close\n")
	b.handleCommand("stop")
	b.handleCommand("dance")
	assert.Equal(t, []int{PositionOpen, PositionClosed}, a.advanced)

	b.handlePositionChange("42")
	b.handlePositionChange("not a number")
	assert.Equal(t, []int{PositionOpen, PositionClosed, 42}, a.advanced)

	a.advanceErr = errors.New("out of range")
	assert.NotPanics(t, func() { b.handlePositionChange("420") })
}

func TestPublishHAAutoDiscovery(t *testing.T) {
	client := &fakeClient{}
	b := NewBridge(client, &fakeActuator{}, "autohome")

	require.NoError(t, PublishHAAutoDiscovery(client, "homeassistant", NewHACover(b)))

	payload, ok := client.published["homeassistant/cover/autohome/salon/config"]
	require.True(t, ok)

	var cover map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(payload), &cover))
	assert.Equal(t, "autohome/salon/position/set", cover["set_pos_t"])
	assert.Equal(t, float64(100), cover["pos_open"])
	assert.Equal(t, float64(0), cover["pos_clsd"])
	assert.Equal(t, "blind", cover["device_class"])
}
