// Package events publishes watchlist changes to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/bobmcallan/niftyscope/internal/common"
	"github.com/bobmcallan/niftyscope/internal/config"
	"github.com/bobmcallan/niftyscope/internal/watchlist"
)

const (
	EventSymbolAdded   = "WATCHLIST_SYMBOL_ADDED"
	EventSymbolRemoved = "WATCHLIST_SYMBOL_REMOVED"
)

const (
	// publishTimeout bounds one write to the broker.
	publishTimeout = 5 * time.Second
	// queueSize is how many events may wait for the broker before new ones are dropped.
	queueSize = 256
)

// WatchlistEvent is the JSON message value. The message key is the symbol.
type WatchlistEvent struct {
	EventType string    `json:"event_type"`
	Symbol    string    `json:"symbol"`
	Symbols   []string  `json:"symbols"`
	Timestamp time.Time `json:"timestamp"`
}

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes watchlist events to a Kafka topic. Events are queued and
// written in order by a single worker, so watchlist mutations never wait on the broker.
type Publisher struct {
	writer messageWriter
	topic  string
	logger *common.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan WatchlistEvent
	done   chan struct{}
}

// NewPublisher creates a publisher for cfg.Brokers and cfg.Topic.
func NewPublisher(cfg config.KafkaConfig, logger *common.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return newPublisher(writer, cfg.Topic, logger, queueSize)
}

func newPublisher(w messageWriter, topic string, logger *common.Logger, size int) *Publisher {
	p := &Publisher{
		writer: w,
		topic:  topic,
		logger: logger,
		queue:  make(chan WatchlistEvent, size),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Publisher) run() {
	defer close(p.done)
	for event := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := p.Publish(ctx, event)
		cancel()
		if err != nil {
			p.logger.Warn().Err(err).Str("topic", p.topic).Str("symbol", event.Symbol).Msg("Failed to publish watchlist event")
			continue
		}
		p.logger.Debug().Str("topic", p.topic).Str("event", event.EventType).Str("symbol", event.Symbol).Msg("Watchlist event published")
	}
}

// Publish writes one event keyed by its symbol.
func (p *Publisher) Publish(ctx context.Context, event WatchlistEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Symbol),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// OnWatchlistChange queues change for publishing. It is registered with
// watchlist.Store.Subscribe and returns without waiting for the broker; a full
// queue or a closed publisher drops the event with a warning.
func (p *Publisher) OnWatchlistChange(_ context.Context, change watchlist.Change) {
	event := WatchlistEvent{
		EventType: eventType(change.Kind),
		Symbol:    change.Symbol,
		Symbols:   change.Symbols,
		Timestamp: time.Now().UTC(),
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.Warn().Str("symbol", change.Symbol).Msg("Event publisher closed, dropping watchlist event")
		return
	}
	select {
	case p.queue <- event:
	default:
		p.logger.Warn().Str("topic", p.topic).Str("symbol", change.Symbol).Int("queued", len(p.queue)).Msg("Event queue full, dropping watchlist event")
	}
}

// Close publishes the queued events, then closes the writer.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	<-p.done
	return p.writer.Close()
}

func eventType(kind watchlist.ChangeKind) string {
	if kind == watchlist.Removed {
		return EventSymbolRemoved
	}
	return EventSymbolAdded
}
