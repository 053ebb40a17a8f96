package ekfweb

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/babetCode/IMU-gait-analysis/logging"
	"github.com/babetCode/IMU-gait-analysis/sim"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttPublishTimeout = 5 * time.Second
)

// MQTTPublisher publishes each snapshot as OrientationData JSON on a topic.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
	qos    byte
	logger *zap.SugaredLogger
}

// NewMQTTPublisher connects to broker (e.g. tcp://localhost:1883) and
// publishes to topic.
func NewMQTTPublisher(broker, topic string, logger *zap.SugaredLogger) (*MQTTPublisher, error) {
	logger = logging.OrNop(logger)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(fmt.Sprintf("ekf-publisher-%d", time.Now().Unix()))
	opts.SetConnectTimeout(mqttConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warnw("mqtt connection lost, will auto-reconnect", "error", err)
	}

	c := mqtt.NewClient(opts)
	logger.Infow("connecting to mqtt broker", "broker", broker)
	token := c.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, errors.Errorf("ekfweb: mqtt connect to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "ekfweb: mqtt connect to %s", broker)
	}
	return NewMQTTPublisherWithClient(c, topic, logger), nil
}

// NewMQTTPublisherWithClient publishes through an already connected client.
func NewMQTTPublisherWithClient(c mqtt.Client, topic string, logger *zap.SugaredLogger) *MQTTPublisher {
	return &MQTTPublisher{client: c, topic: topic, logger: logging.OrNop(logger)}
}

func (m *MQTTPublisher) Consume(s sim.Snapshot) error {
	msg, err := json.Marshal(NewOrientationData(s))
	if err != nil {
		return errors.Wrap(err, "ekfweb: marshalling orientation")
	}
	token := m.client.Publish(m.topic, m.qos, false, msg)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return errors.Errorf("ekfweb: mqtt publish to %s timed out", m.topic)
	}
	return errors.Wrapf(token.Error(), "ekfweb: mqtt publish to %s", m.topic)
}

// Close disconnects from the broker.
func (m *MQTTPublisher) Close() {
	if m.client.IsConnected() {
		m.client.Disconnect(250)
	}
}
