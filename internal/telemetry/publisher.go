// Package telemetry publishes decoded samples and derived metrics to an
// MQTT broker so external dashboards can follow the live stream.
package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/gaitworks/plantar.report/internal/gait"
	"github.com/gaitworks/plantar.report/internal/insole"
	"github.com/gaitworks/plantar.report/internal/monitoring"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 2 * time.Second
	disconnectMs   = 250
)

// Publisher sends samples and CoP readings to topics under a common
// prefix. Publishes are QoS 0 and non-retained except the CoP topic,
// which is retained so a dashboard gets the last position on connect.
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
}

// New connects to the broker and returns a Publisher. The clientID must
// be unique per broker connection.
func New(broker, clientID, topicPrefix string) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			monitoring.Logf("telemetry: connection lost: %v", err)
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("timed out connecting to broker %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to broker %s: %w", broker, err)
	}

	return &Publisher{client: client, topicPrefix: topicPrefix}, nil
}

// PublishSample sends the full decoded sample to {prefix}/sample.
func (p *Publisher) PublishSample(sample insole.PressureSample) error {
	return p.publishJSON(p.topicPrefix+"/sample", false, sample)
}

// PublishCoP sends the derived centre of pressure to {prefix}/cop.
func (p *Publisher) PublishCoP(side insole.FootSide, cop gait.CenterOfPressure) error {
	return p.publishJSON(p.topicPrefix+"/cop", true, map[string]any{
		"foot_side": side.String(),
		"x":         cop.X,
		"y":         cop.Y,
		"pressure":  cop.Pressure,
	})
}

func (p *Publisher) publishJSON(topic string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for %s: %w", topic, err)
	}

	token := p.client.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timed out publishing to %s", topic)
	}
	return token.Error()
}

// Close disconnects from the broker, allowing in-flight messages a short
// window to drain.
func (p *Publisher) Close() {
	p.client.Disconnect(disconnectMs)
}
