package events

import (
	"context"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// StartConsumer binds the storefront queue for routingKey and hands every
// delivery to handler on a background goroutine until ctx is done. Failed
// deliveries are rejected without requeue and land in the dead letter queue.
// The returned channel is closed once the goroutine has stopped.
func StartConsumer(ctx context.Context, conn *amqp.Connection, routingKey string, handler HandlerFunc, logger *log.Logger) (<-chan struct{}, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	queue := storefrontQueueName(routingKey)
	if err := declareQueueWithDLQ(ch, queue, routingKey); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare %s: %w", queue, err)
	}

	if err := ch.Qos(10, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("qos: %w", err)
	}

	msgs, err := ch.Consume(
		queue,
		storefrontServiceName, // consumer tag
		false,                 // autoAck
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("consume %s: %w", queue, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				logger.Printf("stopping %s consumer", queue)
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Printf("%s: deliveries channel closed", queue)
					return
				}
				if err := handler(ctx, msg.Body); err != nil {
					logger.Printf("%s: reject message id=%s: %v", queue, msg.MessageId, err)
					_ = msg.Nack(false, false)
					continue
				}
				_ = msg.Ack(false)
			}
		}
	}()

	return done, nil
}
