package mqtt

import (
	"context"
	"log"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// subscribeBackOff paces subscribe retries. Unlimited: a broker that keeps
// refusing the subscription is retried until ctx cancels.
var subscribeBackOff = func() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0
	return bo
}

// IConsumer is the subscriber side of the transport: one fixed topic, one
// handler per delivered message.
type IConsumer interface {
	ConsumeMessage(ctx context.Context)
	SetHandler(handler func(topic string, message mqtt.Message) error)
}

// Consumer subscribes to a single topic and dispatches every delivered
// message to its handler, in delivery order.
type Consumer struct {
	client  mqtt.Client
	topic   string
	qos     byte
	handler func(topic string, message mqtt.Message) error
}

// NewConsumer creates a Consumer on the shared client. Sensor data is
// consumed at QoS 1 (at-least-once); duplicates from redelivery are the
// handler's concern.
func NewConsumer(client mqtt.Client, topic string, qos byte, handler func(topic string, message mqtt.Message) error) *Consumer {
	return &Consumer{
		client:  client,
		topic:   topic,
		qos:     qos,
		handler: handler,
	}
}

func (c *Consumer) SetHandler(handler func(topic string, message mqtt.Message) error) {
	c.handler = handler
}

// ConsumeMessage subscribes to the topic and processes messages with the
// handler. A failed subscribe is retried with backoff rather than ending
// ingestion. It blocks until ctx is cancelled, then unsubscribes.
func (c *Consumer) ConsumeMessage(ctx context.Context) {
	subscribe := func() error {
		token := c.client.Subscribe(
			c.topic,
			c.qos,
			func(_ mqtt.Client, message mqtt.Message) {
				if c.handler == nil {
					log.Printf("mqtt: no handler set for topic %s", c.topic)
					return
				}
				if err := c.handler(c.topic, message); err != nil {
					log.Printf("mqtt: handler error on %s: %v", c.topic, err)
				}
			},
		)
		if token.Wait() && token.Error() != nil {
			log.Printf("mqtt: subscribe to %s failed: %v (retrying)", c.topic, token.Error())
			return token.Error()
		}
		return nil
	}

	if err := backoff.Retry(subscribe, backoff.WithContext(subscribeBackOff(), ctx)); err != nil {
		log.Printf("mqtt: subscribe to %s abandoned: %v", c.topic, err)
		return
	}
	log.Printf("mqtt: subscribed to %s (qos=%d)", c.topic, c.qos)

	<-ctx.Done()

	unsubToken := c.client.Unsubscribe(c.topic)
	unsubToken.Wait()
	log.Printf("mqtt: unsubscribed from %s", c.topic)
}
