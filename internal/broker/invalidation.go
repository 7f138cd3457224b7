package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Event announces that a cached query is stale.
type Event struct {
	Key       string    `json:"key"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Invalidator is the local cache the subscriber forwards events to.
type Invalidator interface {
	Invalidate(ctx context.Context, key string) error
}

// Publisher sends invalidation events so other calswitch instances refetch.
type Publisher struct {
	writer  messageWriter
	source  string
	topic   string
	timeout time.Duration
}

// publishTimeout bounds one publish; callers invalidate with a context
// that is never cancelled.
const publishTimeout = 3 * time.Second

func NewPublisher(brokers []string, topic string) *Publisher {
	return newPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: publishTimeout,
		MaxAttempts:  2,
	}, topic)
}

func newPublisher(w messageWriter, topic string) *Publisher {
	return &Publisher{writer: w, source: uuid.New().String(), topic: topic, timeout: publishTimeout}
}

// Source identifies this process in published events.
func (p *Publisher) Source() string {
	return p.source
}

// Invalidate publishes an event for key.
func (p *Publisher) Invalidate(ctx context.Context, key string) error {
	payload, err := json.Marshal(Event{Key: key, Source: p.source, Timestamp: time.Now().UTC()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: payload}); err != nil {
		slog.Warn("kafka publish error", slog.String("topic", p.topic), slog.String("key", key), slog.Any("error", err))
		return fmt.Errorf("publish invalidation: %w", err)
	}
	slog.Debug("kafka invalidation published", slog.String("topic", p.topic), slog.String("key", key))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Subscriber applies invalidation events published by other instances.
type Subscriber struct {
	reader messageReader
	ignore string
}

// NewSubscriber reads topic. Events whose source equals ignore are skipped.
func NewSubscriber(brokers []string, groupID, topic, ignore string) *Subscriber {
	return &Subscriber{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}),
		ignore: ignore,
	}
}

// Consume blocks until ctx is done, invalidating target for every event.
func (s *Subscriber) Consume(ctx context.Context, target Invalidator) error {
	for {
		m, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			slog.Warn("kafka read error", slog.Any("error", err))
			continue
		}

		event, ok := decodeEvent(m)
		if !ok || event.Source == s.ignore {
			continue
		}
		slog.Debug("kafka invalidation consumed",
			slog.String("topic", m.Topic),
			slog.Int64("offset", m.Offset),
			slog.String("key", event.Key),
			slog.String("source", event.Source),
		)
		if err := target.Invalidate(ctx, event.Key); err != nil {
			slog.Warn("invalidation handler error", slog.Any("error", err))
		}
	}
}

func (s *Subscriber) Close() error {
	return s.reader.Close()
}

func decodeEvent(m kafka.Message) (Event, bool) {
	var event Event
	if err := json.Unmarshal(m.Value, &event); err != nil {
		// Plain payloads carry the key in the message key.
		event.Key = strings.TrimSpace(string(m.Key))
	}
	if event.Key == "" {
		return Event{}, false
	}
	return event, true
}
