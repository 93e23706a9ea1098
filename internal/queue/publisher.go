package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher sends booking events.  Implementations must not block the
// request for long; callers treat a failed publish as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, ev BookingEvent) error
}

// AMQPPublisher publishes to a durable topic exchange, dialing per message.
type AMQPPublisher struct {
	url      string
	exchange string
	logger   logrus.FieldLogger
}

// NewAMQPPublisher returns a publisher for the given broker and exchange.
func NewAMQPPublisher(url, exchange string, logger logrus.FieldLogger) *AMQPPublisher {
	return &AMQPPublisher{url: url, exchange: exchange, logger: logger.WithField("component", "publisher")}
}

// Publish marks messages persistent and fills ID and OccurredAt when unset.
// Errors are logged and returned so the caller can choose to ignore them.
func (p *AMQPPublisher) Publish(ctx context.Context, ev BookingEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	log := p.logger.WithFields(logrus.Fields{"event": ev.Type, "booking_id": ev.BookingID})

	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.WithError(err).Warn("rabbitmq dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Warn("rabbitmq channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		log.WithError(err).Warn("rabbitmq exchange declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, p.exchange, ev.Type, false, false, pub); err != nil {
		log.WithError(err).Warn("rabbitmq publish failed")
		return err
	}
	log.Debug("event published")
	return nil
}

// LogPublisher only logs events.  It stands in when RabbitMQ is disabled.
type LogPublisher struct {
	Logger logrus.FieldLogger
}

func (p LogPublisher) Publish(ctx context.Context, ev BookingEvent) error {
	p.Logger.WithFields(logrus.Fields{"event": ev.Type, "booking_id": ev.BookingID}).Info("booking event (broker disabled)")
	return nil
}
