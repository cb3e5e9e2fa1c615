package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/warp/shift-calendar/calendar"
)

const DefaultQueueName = "weekly_submissions"

// Publisher is the part of *amqp.Channel the sender needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSender publishes the submission payload to a durable queue. A
// successful publish counts as delivered; the consumer owns the backend
// call from there.
type AMQPSender struct {
	Channel        Publisher
	Queue          string
	ClientVersion  string
	PublishTimeout time.Duration
}

// DeclareQueue declares the durable queue the sender publishes to.
func DeclareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,
		false,
		false,
		false,
		nil,
	)
	return err
}

func (s *AMQPSender) Send(ctx context.Context, sub calendar.WeeklySubmission) error {
	body, err := json.Marshal(NewPayload(sub, s.ClientVersion))
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	if s.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.PublishTimeout)
		defer cancel()
	}

	queue := s.Queue
	if queue == "" {
		queue = DefaultQueueName
	}
	if err := s.Channel.PublishWithContext(
		ctx,
		"",
		queue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    sub.ID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("publish submission: %w", err)
	}
	return nil
}
