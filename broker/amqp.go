package broker

import (
	"context"
	"encoding/json"

	"github.com/quayside/bazaar/spec/broker"

	extErrors "github.com/pkg/errors"
	"github.com/streadway/amqp"
)

var _ broker.Producer = &AMQPBroker{}
var _ broker.Consumer = &AMQPBroker{}

const (
	notificationExchange string = "notification_events"
	notificationKey             = "notifications"
	notificationQueue           = "notification_store"
)

// AMQPBroker describes a message broker via RabbitMQ
type AMQPBroker struct {
	connection *amqp.Connection
	channel    *amqp.Channel
}

// NewAMQPBroker returns a Message Broker over RabbitMQ
func NewAMQPBroker(amqpURI string) (*AMQPBroker, error) {
	amqpConn, err := amqp.Dial(amqpURI)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot connect to Message Broker")
	}
	amqpChan, err := amqpConn.Channel()
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot create broker channel")
	}
	broker := &AMQPBroker{
		connection: amqpConn,
		channel:    amqpChan,
	}
	if err := broker.setupNotificationExchange(); err != nil {
		return nil, extErrors.Wrap(err, "Cannot declare exchange for notification events")
	}

	return broker, nil
}

func (a *AMQPBroker) setupNotificationExchange() error {
	return a.channel.ExchangeDeclare(
		notificationExchange, // name
		"direct",             // type
		true,                 // durable
		false,                // auto-deleted
		false,                // internal
		false,                // no-wait
		nil,                  // arguments
	)
}

// Close will close the channel and connection to release resources
func (a *AMQPBroker) Close() {
	a.channel.Close()
	a.connection.Close()
}

// PublishEvent will publish a notification event to the broker. Delivery is
// best-effort; callers treat a publish failure as a logged non-fatal error.
func (a *AMQPBroker) PublishEvent(e *broker.Event) error {
	jsonBytes, err := json.Marshal(e)
	if err != nil {
		return extErrors.Wrap(err, "Cannot encode event into bytes")
	}
	if err := a.channel.Publish(
		notificationExchange,
		notificationKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        jsonBytes,
		},
	); err != nil {
		return extErrors.Wrap(err, "Cannot publish notification event")
	}
	return nil
}

func (a *AMQPBroker) setupQueue(qName string) error {
	_, err := a.channel.QueueDeclare(
		qName,
		true,
		false,
		false,
		false,
		nil,
	)
	return err
}

func (a *AMQPBroker) bindAndGetMsgChan(qName, exchange, routingKey string) (<-chan amqp.Delivery, error) {
	if err := a.channel.QueueBind(
		qName,
		routingKey,
		exchange,
		false,
		nil,
	); err != nil {
		return nil, err
	}
	msgChan, err := a.channel.Consume(
		qName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	return msgChan, err
}

// ReceiveEvents returns a channel of notification events published by the API
func (a *AMQPBroker) ReceiveEvents(ctx context.Context) (<-chan *broker.Event, error) {
	if err := a.setupQueue(notificationQueue); err != nil {
		return nil, extErrors.Wrap(err, "Cannot setup queue")
	}
	msgChan, err := a.bindAndGetMsgChan(notificationQueue, notificationExchange, notificationKey)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot setup consumer")
	}
	eChan := make(chan *broker.Event)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d := <-msgChan:
				var evt broker.Event
				if err := json.Unmarshal(d.Body, &evt); err != nil {
					d.Nack(false, false)
					continue
				}
				eChan <- &evt
				d.Ack(false)
			}
		}
	}()
	return eChan, nil
}
