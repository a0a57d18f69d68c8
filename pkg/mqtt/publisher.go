package mqtt

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IPublisher publishes messages on a fixed topic.
type IPublisher interface {
	PublishMessage(payload []byte) error
	Close()
}

// Publisher writes payloads to one MQTT topic on the shared client.
type Publisher struct {
	client mqtt.Client
	topic  string
	qos    byte
}

func NewPublisher(client mqtt.Client, topic string, qos byte) *Publisher {
	return &Publisher{client: client, topic: topic, qos: qos}
}

// PublishMessage publishes one payload and waits for the token.
func (p *Publisher) PublishMessage(payload []byte) error {
	token := p.client.Publish(p.topic, p.qos, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("publish to %s failed: %w", p.topic, token.Error())
	}
	return nil
}

// Close disconnects the underlying client.
func (p *Publisher) Close() {
	CloseConn(p.client)
}
