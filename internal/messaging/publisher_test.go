package messaging_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/shortbox/shortbox/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockPublisher struct {
	messages   []*message.Message
	topic      string
	publishErr error
	closeErr   error
}

func (m *mockPublisher) Publish(topic string, msgs ...*message.Message) error {
	if m.publishErr != nil {
		return m.publishErr
	}

	m.topic = topic
	m.messages = append(m.messages, msgs...)

	return nil
}

func (m *mockPublisher) Close() error {
	return m.closeErr
}

type publishTestEvent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestNewPublishFunc(t *testing.T) {
	t.Run("publishes event successfully", func(t *testing.T) {
		mock := &mockPublisher{}
		publish := messaging.NewPublishFunc[publishTestEvent](mock, "test.topic")

		event := &publishTestEvent{ID: "123", Name: "test"}

		err := publish(event)

		require.NoError(t, err)
		assert.Equal(t, "test.topic", mock.topic)
		assert.Len(t, mock.messages, 1)
		assert.Contains(t, string(mock.messages[0].Payload), `"id":"123"`)
	})

	t.Run("returns error when publish fails", func(t *testing.T) {
		mock := &mockPublisher{publishErr: errors.New("publish error")}
		publish := messaging.NewPublishFunc[publishTestEvent](mock, "test.topic")

		event := &publishTestEvent{ID: "123"}

		err := publish(event)

		assert.Error(t, err)
	})
}

func TestBroker(t *testing.T) {
	t.Run("round trips an event from publisher to consumer", func(t *testing.T) {
		broker := messaging.NewBroker(8, zap.NewNop())
		defer func() { _ = broker.Shutdown() }()

		received := make(chan *publishTestEvent, 1)

		consumer := messaging.NewConsumer(
			broker.Subscriber(),
			"test.topic",
			func(_ context.Context, event *publishTestEvent) error {
				received <- event

				return nil
			},
			zap.NewNop(),
		)

		require.NoError(t, consumer.Start(context.Background()))
		defer func() { _ = consumer.Shutdown() }()

		publish := messaging.NewPublishFunc[publishTestEvent](broker.Publisher(), "test.topic")
		require.NoError(t, publish(&publishTestEvent{ID: "42", Name: "answer"}))

		select {
		case event := <-received:
			assert.Equal(t, "42", event.ID)
			assert.Equal(t, "answer", event.Name)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for event")
		}
	})

	t.Run("shutdown closes the transport", func(t *testing.T) {
		broker := messaging.NewBroker(8, zap.NewNop())

		require.NoError(t, broker.Shutdown())
	})
}
