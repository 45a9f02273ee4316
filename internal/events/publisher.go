// Package events streams mint notifications to Kafka. Publishing is
// fail-open: the mint itself has already committed, so a broker outage is
// logged and counted, never surfaced to the minter.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"mintgate/internal/collection/models"
	"mintgate/internal/platform/config"
	"mintgate/internal/platform/metrics"
)

// Publisher emits mint events. Implementations must not block the mint path
// beyond a buffered enqueue.
type Publisher interface {
	PublishMinted(ctx context.Context, event models.MintedEvent)
}

// Noop drops every event. Used when Kafka is not configured.
type Noop struct{}

func (Noop) PublishMinted(context.Context, models.MintedEvent) {}

// KafkaPublisher buffers events in memory and produces them from a single
// worker goroutine. The buffer bounds memory; when it is full the event is
// dropped and counted, keeping mints unaffected.
type KafkaPublisher struct {
	client  *kgo.Client
	topic   string
	logger  *slog.Logger
	metrics *metrics.Metrics
	queue   chan models.MintedEvent
}

const publishBuffer = 1024

// NewKafkaPublisher connects to the brokers and ensures the topic exists.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *slog.Logger, m *metrics.Metrics) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopics(context.Background(), 1, 1, nil, cfg.Topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure topic %s: %w", cfg.Topic, err)
	}
	for _, res := range resp.Sorted() {
		// Already-exists is fine; anything else is logged but not fatal, the
		// broker may auto-create on first produce.
		if res.Err != nil {
			logger.Warn("create topic", "topic", res.Topic, "error", res.Err)
		}
	}

	return &KafkaPublisher{
		client:  client,
		topic:   cfg.Topic,
		logger:  logger,
		metrics: m,
		queue:   make(chan models.MintedEvent, publishBuffer),
	}, nil
}

// PublishMinted enqueues the event for the worker. Never blocks.
func (p *KafkaPublisher) PublishMinted(ctx context.Context, event models.MintedEvent) {
	select {
	case p.queue <- event:
	default:
		p.metrics.EventPublishFails.Inc()
		p.logger.WarnContext(ctx, "mint event queue full, dropping event",
			"receipt_id", event.ReceiptID,
		)
	}
}

// Run drains the queue until ctx is canceled, then flushes and closes the
// client. Intended to run under the process errgroup.
func (p *KafkaPublisher) Run(ctx context.Context) error {
	defer p.client.Close()

	for {
		select {
		case <-ctx.Done():
			p.drain()
			return nil
		case event := <-p.queue:
			p.produce(event)
		}
	}
}

func (p *KafkaPublisher) drain() {
	for {
		select {
		case event := <-p.queue:
			p.produce(event)
		default:
			return
		}
	}
}

func (p *KafkaPublisher) produce(event models.MintedEvent) {
	value, err := json.Marshal(event)
	if err != nil {
		p.metrics.EventPublishFails.Inc()
		p.logger.Error("encode mint event", "receipt_id", event.ReceiptID, "error", err)
		return
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Caller),
		Value: value,
	}
	if err := p.client.ProduceSync(context.Background(), record).FirstErr(); err != nil {
		p.metrics.EventPublishFails.Inc()
		p.logger.Error("produce mint event",
			"receipt_id", event.ReceiptID,
			"error", err,
		)
		return
	}
	p.metrics.EventsPublished.Inc()
}
