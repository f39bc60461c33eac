// Package broadcaster replays outbox entries to Kafka until they are
// acknowledged. It is the at-least-once backstop behind the fast
// best-effort producer: anything the fast path dropped gets re-sent
// here, with durable state transitions around every attempt.
package broadcaster

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"fenrir/infra/outbox"
)

const maxRetries = 10

type Broadcaster struct {
	outbox   *outbox.Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      *zap.Logger
}

func New(ob *outbox.Outbox, brokers []string, topic string, interval time.Duration, log *zap.Logger) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &Broadcaster{
		outbox:   ob,
		producer: producer,
		topic:    topic,
		interval: interval,
		log:      log,
	}, nil
}

// Start runs the replay ticker until ctx is canceled.
func (b *Broadcaster) Start(ctx context.Context) {
	b.log.Info("broadcaster started", zap.Duration("interval", b.interval))

	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.replayOnce()
			}
		}
	}()
}

// replayOnce walks pending entries: mark SENT before the attempt so a
// crash mid-send re-delivers rather than loses, then ACK and delete on
// broker confirmation.
func (b *Broadcaster) replayOnce() {
	err := b.outbox.ScanPending(func(rec *outbox.Record) error {
		if rec.Retries >= maxRetries {
			b.log.Warn("outbox entry exhausted retries",
				zap.Uint64("seq", rec.Seq), zap.Uint32("retries", rec.Retries))
			return b.outbox.MarkFailed(rec.Seq)
		}

		if err := b.outbox.MarkSent(rec.Seq); err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Value: sarama.ByteEncoder(rec.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			// Left in SENT; the next tick retries it.
			return nil
		}

		if err := b.outbox.MarkAcked(rec.Seq); err != nil {
			return err
		}
		return b.outbox.Delete(rec.Seq)
	})
	if err != nil {
		b.log.Error("outbox replay failed", zap.Error(err))
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
