package notification

import (
	"context"
	"encoding/json"
	"fmt"
)

// Exchange is the topic exchange notifications are published to.
const Exchange = "trustride.events"

// Publisher publishes a JSON body to an exchange.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// AMQPNotifier publishes notifications to RabbitMQ with routing key
// "notification.<kind>".
type AMQPNotifier struct {
	publisher Publisher
	exchange  string
}

// NewAMQPNotifier builds a notifier publishing to Exchange.
func NewAMQPNotifier(publisher Publisher) *AMQPNotifier {
	return &AMQPNotifier{publisher: publisher, exchange: Exchange}
}

// Send encodes the message and publishes it.
func (n *AMQPNotifier) Send(ctx context.Context, message Message) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := n.publisher.Publish(ctx, n.exchange, "notification."+message.Kind, body); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
