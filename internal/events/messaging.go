package events

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange               = "ecommerce.events"
	DeadLetterExchange           = "ecommerce.events.dlx"
	OrderCreatedRoutingKey       = "order.created.v1"
	OrderStatusChangedRoutingKey = "order.status-changed.v1"
	storefrontServiceName        = "storefront-service-go"
)

func serviceQueue(serviceName, routingKey string) string {
	return serviceName + "." + routingKey
}

func storefrontQueueName(routingKey string) string {
	return serviceQueue(storefrontServiceName, routingKey)
}

func deadLetterQueueName(queue string) string {
	return queue + ".dlq"
}

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}

// declareQueueWithDLQ declares queue bound to routingKey on the events
// exchange. Rejected messages are routed to "<queue>.dlq".
func declareQueueWithDLQ(ch *amqp.Channel, queue, routingKey string) error {
	if err := declareEventsExchange(ch); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(DeadLetterExchange, "direct", true, false, false, false, nil); err != nil {
		return err
	}

	dlq := deadLetterQueueName(queue)
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(dlq, queue, DeadLetterExchange, false, nil); err != nil {
		return err
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    DeadLetterExchange,
		"x-dead-letter-routing-key": queue,
	}); err != nil {
		return err
	}
	return ch.QueueBind(queue, routingKey, EventsExchange, false, nil)
}
