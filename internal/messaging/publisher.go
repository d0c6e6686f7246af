package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"burger-pos/internal/logger"
	"burger-pos/internal/models"
)

// Publisher emits order lifecycle events to the orders exchange.
type Publisher struct {
	conn   *Connection
	logger *logger.Logger
}

// NewPublisher creates a new event publisher.
func NewPublisher(conn *Connection, log *logger.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: log,
	}
}

// PublishOrderCreated announces a freshly created order.
func (p *Publisher) PublishOrderCreated(ctx context.Context, event models.OrderCreatedEvent) error {
	return p.publish(ctx, "order.created", event)
}

// PublishStatusChanged announces an order status transition.
func (p *Publisher) PublishStatusChanged(ctx context.Context, event models.OrderStatusChangedEvent) error {
	return p.publish(ctx, "order.status_changed", event)
}

func (p *Publisher) publish(ctx context.Context, routingKey string, message interface{}) error {
	if p.conn.IsClosed() {
		if err := p.conn.Reconnect(); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = p.conn.Channel().PublishWithContext(
		ctx,
		OrdersExchange, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		publishing,
	)
	if err != nil {
		p.logger.Error("message_publish_failed",
			fmt.Sprintf("Failed to publish %s event", routingKey),
			"", err, map[string]interface{}{
				"routing_key": routingKey,
			})
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.logger.Debug("message_published",
		fmt.Sprintf("Published %s event", routingKey),
		"", map[string]interface{}{
			"routing_key":  routingKey,
			"message_size": len(body),
		})

	return nil
}

// Close closes the publisher's connection.
func (p *Publisher) Close() error {
	return p.conn.Close()
}
