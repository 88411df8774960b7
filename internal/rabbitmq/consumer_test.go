package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

type recordingAcknowledger struct {
	acks    int
	requeue []bool
}

func (a *recordingAcknowledger) Ack(uint64, bool) error {
	a.acks++
	return nil
}

func (a *recordingAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *recordingAcknowledger) Reject(_ uint64, requeue bool) error {
	a.requeue = append(a.requeue, requeue)
	return nil
}

func TestConsumerDispatchSettlesDeliveries(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		redelivered bool
		acks        int
		requeue     []bool
	}{
		{name: "handled", acks: 1},
		{name: "transient", err: fmt.Errorf("store down: %w", ErrRetry), requeue: []bool{true}},
		{name: "transient twice", err: ErrRetry, redelivered: true, requeue: []bool{false}},
		{name: "malformed", err: errors.New("bad payload"), requeue: []bool{false}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ack := &recordingAcknowledger{}
			var gotKey string
			var gotBody []byte
			c := NewConsumer(ConsumerConfig{Queue: "circles.activity"}, func(_ context.Context, routingKey string, body []byte) error {
				gotKey, gotBody = routingKey, body
				return tc.err
			})

			c.dispatch(context.Background(), amqp.Delivery{
				Acknowledger: ack,
				DeliveryTag:  7,
				RoutingKey:   "activity.movie_rated",
				Redelivered:  tc.redelivered,
				Body:         []byte(`{"group_id":1}`),
			})

			assert.Equal(t, "activity.movie_rated", gotKey)
			assert.JSONEq(t, `{"group_id":1}`, string(gotBody))
			assert.Equal(t, tc.acks, ack.acks)
			assert.Equal(t, tc.requeue, ack.requeue)
		})
	}
}

func TestConsumerRunWithoutURLReturns(t *testing.T) {
	c := NewConsumer(ConsumerConfig{Queue: "circles.activity"}, func(context.Context, string, []byte) error { return nil })
	assert.Equal(t, 16, c.cfg.Prefetch)

	done := make(chan struct{})
	go func() {
		c.Run(context.Background())
		close(done)
	}()
	<-done
}
