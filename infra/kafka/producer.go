// Package kafka is the low-latency broker path for execution reports.
// It is best-effort: the outbox replayer is the delivery guarantee,
// this writer just gets reports out fast when the broker is healthy.
package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{}, // same symbol, same partition
			RequiredAcks: kafka.RequireOne,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Send publishes one encoded report keyed by symbol so per-instrument
// ordering survives partitioning.
func (p *Producer) Send(ctx context.Context, symbol string, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(symbol),
		Value: value,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
