package ekfweb

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

type fakeClient struct {
	mqtt.Client
	topics       []string
	payloads     [][]byte
	err          error
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, payload.([]byte))
	return &fakeToken{err: c.err}
}

func (c *fakeClient) IsConnected() bool        { return true }
func (c *fakeClient) Disconnect(quiesce uint) { c.disconnected = true }

func TestMQTTPublisher(t *testing.T) {
	fc := &fakeClient{}
	p := NewMQTTPublisherWithClient(fc, "ekf/orientation", nil)

	require.NoError(t, p.Consume(testSnapshot()))
	require.Len(t, fc.payloads, 1)
	assert.Equal(t, "ekf/orientation", fc.topics[0])

	var d OrientationData
	require.NoError(t, json.Unmarshal(fc.payloads[0], &d))
	assert.Equal(t, 7, d.Step)
	assert.InDelta(t, 30, d.Roll, 1e-9)

	p.Close()
	assert.True(t, fc.disconnected)
}

func TestMQTTPublisherError(t *testing.T) {
	fc := &fakeClient{err: errors.New("not connected")}
	p := NewMQTTPublisherWithClient(fc, "ekf/orientation", nil)
	assert.Error(t, p.Consume(testSnapshot()))
}
