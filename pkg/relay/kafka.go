// Package relay moves already-encoded gateway events across instances through
// kafka. Every gateway publishes what it delivered locally; every other
// gateway consumes the stream with its own group id and fans the payload out
// to its local subscribers. The archiver consumes the same stream durably.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event is the wire record on the relay topic. Payload is the exact envelope
// that was delivered to local connections, so consumers forward it verbatim.
type Event struct {
	Origin    string          `json:"origin"`
	Event     string          `json:"event"`
	ChannelID string          `json:"channelId"`
	Payload   json.RawMessage `json:"payload"`
}

type Publisher struct {
	writer *kafka.Writer
	origin string
}

func NewPublisher(brokers []string, topic, origin string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		origin: origin,
	}
}

func (p *Publisher) Publish(ctx context.Context, event, channelID string, payload []byte) error {
	value, err := json.Marshal(Event{
		Origin:    p.origin,
		Event:     event,
		ChannelID: channelID,
		Payload:   payload,
	})
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(channelID),
		Value: value,
		Time:  time.Now(),
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Consumer reads relay events. A non-empty origin filters out events this
// instance published itself; the archiver leaves it empty to see everything.
type Consumer struct {
	reader *kafka.Reader
	origin string
	log    *slog.Logger
}

func NewConsumer(brokers []string, topic, groupID, origin string, log *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
		MinBytes:    10e3,
		MaxBytes:    10e6,
	})
	return &Consumer{reader: reader, origin: origin, log: log}
}

// Run hands each event to handle until the context is cancelled. Transient
// read errors are retried with a short backoff.
func (c *Consumer) Run(ctx context.Context, handle func(Event)) error {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("read relay event", "error", err)
			time.Sleep(time.Second)
			continue
		}

		var evt Event
		if err := json.Unmarshal(m.Value, &evt); err != nil {
			c.log.Error("unmarshal relay event", "error", err)
			continue
		}
		if c.origin != "" && evt.Origin == c.origin {
			continue
		}
		handle(evt)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
