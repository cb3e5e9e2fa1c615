package submission_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/shift-calendar/submission"
)

type fakePublisher struct {
	key      string
	msg      amqp.Publishing
	deadline bool
	err      error
}

func (p *fakePublisher) PublishWithContext(ctx context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	p.key, p.msg = key, msg
	_, p.deadline = ctx.Deadline()
	return p.err
}

func TestAMQPSender_PublishesPersistentMessage(t *testing.T) {
	pub := &fakePublisher{}
	sender := &submission.AMQPSender{Channel: pub, PublishTimeout: time.Second}

	require.NoError(t, sender.Send(context.Background(), sampleSubmission()))

	assert.Equal(t, submission.DefaultQueueName, pub.key)
	assert.Equal(t, "sub-42", pub.msg.MessageId)
	assert.Equal(t, uint8(amqp.Persistent), pub.msg.DeliveryMode)
	assert.Equal(t, "application/json", pub.msg.ContentType)
	assert.True(t, pub.deadline)

	var payload submission.Payload
	require.NoError(t, json.Unmarshal(pub.msg.Body, &payload))
	assert.Equal(t, 2375, payload.TrackedMinutes)
}

func TestAMQPSender_PublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	sender := &submission.AMQPSender{Channel: pub, Queue: "timesheets"}

	err := sender.Send(context.Background(), sampleSubmission())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel closed")
	assert.Equal(t, "timesheets", pub.key)
	assert.False(t, pub.deadline)
}
