package messaging

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/garsue/watermillzap"
	"go.uber.org/zap"
)

// Broker owns the in-process pub/sub transport. Messages are not
// persisted: an entry published with no subscriber listening is dropped,
// which is the contract the delivery pipeline wants.
type Broker struct {
	pubsub *gochannel.GoChannel
}

// NewBroker creates an in-process broker. outputBuffer sets how many
// undelivered messages each subscription can hold before publishing
// blocks; sized so bursts of log entries never stall the caller.
func NewBroker(outputBuffer int64, logger *zap.Logger) *Broker {
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: outputBuffer},
		watermillzap.NewLogger(logger),
	)

	return &Broker{pubsub: pubsub}
}

// Publisher returns the transport's publisher side.
func (b *Broker) Publisher() message.Publisher {
	return b.pubsub
}

// Subscriber returns the transport's subscriber side.
func (b *Broker) Subscriber() message.Subscriber {
	return b.pubsub
}

// Shutdown closes the transport; open subscriptions see their channels
// closed.
func (b *Broker) Shutdown() error {
	return b.pubsub.Close()
}
