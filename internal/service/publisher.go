package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/iliyamo/table-allocation/internal/queue"
)

// Publisher sends assignment events downstream.
type Publisher interface {
	PublishTablesAssigned(ctx context.Context, event q.TablesAssignedEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

// PublishTablesAssigned implements Publisher.
func (NopPublisher) PublishTablesAssigned(context.Context, q.TablesAssignedEvent) error { return nil }

// AMQPPublisher publishes to RabbitMQ, dialling per message. Errors are
// logged and returned so callers may ignore them.
type AMQPPublisher struct {
	URL string
}

// NewAMQPPublisher returns a publisher for the broker at url.
func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{URL: url}
}

// PublishTablesAssigned sends event to the durable tables.assigned queue as
// a persistent JSON message.
func (p *AMQPPublisher) PublishTablesAssigned(ctx context.Context, event q.TablesAssignedEvent) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		q.TablesAssignedQueue, // name
		true,                  // durable
		false,                 // autoDelete
		false,                 // exclusive
		false,                 // noWait
		nil,                   // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", q.TablesAssignedQueue, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
