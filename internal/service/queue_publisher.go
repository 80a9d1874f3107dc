// Package queue_publisher publishes domain events to RabbitMQ.  Errors are
// logged and returned so callers can fall back without interrupting the
// request flow.
package queue_publisher

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/movie-explorer/internal/identity"
	q "github.com/iliyamo/movie-explorer/internal/queue"
)

// Publisher dials the broker for each message.
type Publisher struct {
	URL string
	Log zerolog.Logger
}

func New(url string, log zerolog.Logger) *Publisher {
	return &Publisher{URL: url, Log: log}
}

// PublishSearchRecorded enqueues a counted search on search.recorded.
func (p *Publisher) PublishSearchRecorded(ctx context.Context, ev q.SearchRecordedEvent) error {
	if ev.RecordedAt.IsZero() {
		ev.RecordedAt = time.Now().UTC()
	}
	return p.publish(ctx, q.SearchRecordedQueue, ev)
}

// SendEmailToken hands a login code to the delivery worker through
// auth.email_token.  It satisfies identity.Mailer.
func (p *Publisher) SendEmailToken(ctx context.Context, msg identity.EmailToken) error {
	return p.publish(ctx, q.EmailTokenQueue, q.EmailTokenEvent{
		UserID:   msg.UserID,
		Email:    msg.Email,
		Code:     msg.Code,
		MagicURL: msg.MagicURL,
		Expire:   msg.Expire,
	})
}

func (p *Publisher) publish(ctx context.Context, queue string, event any) error {
	log := p.Log.With().Str("queue", queue).Logger()

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Error().Err(err).Msg("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Error().Err(err).Msg("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		log.Error().Err(err).Msg("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("rabbitmq: marshal event failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		log.Error().Err(err).Msg("rabbitmq: publish failed")
		return err
	}
	return nil
}
