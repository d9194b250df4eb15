package logbuf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"

	"github.com/shortbox/shortbox/internal/messaging"
)

// FailureSink receives notice of delivery attempts that did not reach the
// collector. The Buffer satisfies it.
type FailureSink interface {
	RecordDeliveryFailure(original Entry, cause error)
}

// RelayConfig carries the relay's dependencies.
type RelayConfig struct {
	Subscriber message.Subscriber

	// Client posts entries to the collector; defaults to a client with a
	// ten second timeout.
	Client *http.Client

	// Endpoint is the collector URL. Empty disables delivery entirely.
	Endpoint string

	// Sink records failed attempts. Must not be nil.
	Sink FailureSink

	// OnDelivery, when non-nil, observes the outcome of every attempt.
	OnDelivery func(delivered bool)

	Logger *zap.Logger
}

// Relay consumes published entries and posts each one to the collector in
// its own goroutine. An attempt that fails is reported to the sink and
// never retried; an attempt still in flight at shutdown is abandoned.
type Relay struct {
	client     *http.Client
	endpoint   atomic.Value
	sink       FailureSink
	onDelivery func(delivered bool)
	consumer   *messaging.Consumer[Entry]
	logger     *zap.Logger
}

// NewRelay builds a Relay subscribed to TopicEntry.
func NewRelay(cfg RelayConfig) *Relay {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	relay := &Relay{
		client:     cfg.Client,
		sink:       cfg.Sink,
		onDelivery: cfg.OnDelivery,
		logger:     cfg.Logger,
	}
	relay.endpoint.Store(cfg.Endpoint)
	relay.consumer = messaging.NewConsumer(cfg.Subscriber, TopicEntry, relay.handle, cfg.Logger)

	return relay
}

// Start begins consuming entries.
func (r *Relay) Start(ctx context.Context) error {
	return r.consumer.Start(ctx)
}

// Shutdown stops consuming. In-flight posts are not awaited.
func (r *Relay) Shutdown() error {
	return r.consumer.Shutdown()
}

// SetEndpoint changes the collector URL for subsequent entries. An empty
// URL disables delivery.
func (r *Relay) SetEndpoint(url string) {
	r.endpoint.Store(url)
}

// Endpoint returns the current collector URL.
func (r *Relay) Endpoint() string {
	return r.endpoint.Load().(string)
}

func (r *Relay) handle(_ context.Context, entry *Entry) error {
	endpoint := r.Endpoint()
	if endpoint == "" {
		r.logger.Debug("no collector endpoint, dropping log entry")
		return nil
	}

	go r.post(endpoint, *entry)

	return nil
}

// post performs one delivery attempt. The request deliberately carries no
// context: shutdown abandons in-flight attempts rather than canceling them.
func (r *Relay) post(endpoint string, entry Entry) {
	payload, err := json.Marshal(entry)
	if err != nil {
		r.fail(entry, err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		r.fail(entry, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.fail(entry, err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.fail(entry, fmt.Errorf("collector returned %s", resp.Status))
		return
	}

	if r.onDelivery != nil {
		r.onDelivery(true)
	}

	r.logger.Debug("delivered log entry",
		zap.String("endpoint", endpoint),
		zap.String("level", string(entry.Level)))
}

func (r *Relay) fail(entry Entry, cause error) {
	if r.onDelivery != nil {
		r.onDelivery(false)
	}

	r.sink.RecordDeliveryFailure(entry, cause)
}
