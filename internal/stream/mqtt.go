package stream

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/inconshreveable/log15"
)

// MQTTPublisher mirrors JSON messages to a single MQTT topic.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
	log    log.Logger
}

// NewMQTTPublisher connects to broker (tcp://host:port) and publishes to
// topic.
func NewMQTTPublisher(broker, topic string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(fmt.Sprintf("ecg-simulator-%d", rand.Int31())).
		SetAutoReconnect(true).
		SetConnectTimeout(3 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	return &MQTTPublisher{
		client: client,
		topic:  topic,
		log:    log.New("component", "mqtt", "broker", broker, "topic", topic),
	}, nil
}

// Publish marshals v to JSON and sends it with QoS 0.
func (p *MQTTPublisher) Publish(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	p.log.Debug("sending", "payload", string(data))
	token := p.client.Publish(p.topic, 0, false, data)
	token.Wait()
	return token.Error()
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
