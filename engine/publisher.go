package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"fenrir/infra/journal"
	"fenrir/infra/kafka"
	"fenrir/infra/outbox"
	"fenrir/infra/sequence"
)

// ReportSink receives every published report plus its wire encoding.
// The WebSocket hub implements it.
type ReportSink interface {
	Publish(r Report, encoded []byte)
}

// Publisher drains every shard's egress ring on a single goroutine and
// fans each report out to the configured sinks. Any sink may be nil.
// The journal and outbox writes are the durable path; Kafka here is
// best-effort and the broadcaster replays what it misses.
type Publisher struct {
	shards   []*Shard
	journal  *journal.Journal
	outbox   *outbox.Outbox
	producer *kafka.Producer
	sink     ReportSink
	seq      *sequence.Sequencer
	log      *zap.Logger

	idleSleep time.Duration
	sendWait  time.Duration
}

func NewPublisher(shards []*Shard, j *journal.Journal, ob *outbox.Outbox, p *kafka.Producer, sink ReportSink, log *zap.Logger) *Publisher {
	return &Publisher{
		shards:    shards,
		journal:   j,
		outbox:    ob,
		producer:  p,
		sink:      sink,
		seq:       sequence.New(0),
		log:       log,
		idleSleep: 100 * time.Microsecond,
		sendWait:  50 * time.Millisecond,
	}
}

// Run drains until ctx is canceled, then performs one final sweep so
// reports emitted during shutdown still reach the durable sinks.
func (p *Publisher) Run(ctx context.Context) {
	for {
		if p.sweep(ctx) == 0 {
			select {
			case <-ctx.Done():
				for p.sweep(context.Background()) > 0 {
				}
				p.flush()
				return
			case <-time.After(p.idleSleep):
			}
		}
	}
}

// sweep pops at most one report per shard per pass, keeping egress
// consumption fair across shards.
func (p *Publisher) sweep(ctx context.Context) int {
	drained := 0
	for _, s := range p.shards {
		r, ok := s.Egress().TryPop()
		if !ok {
			continue
		}
		drained++
		p.dispatch(ctx, r)
		if s.Overflow() {
			p.log.Warn("shard egress overflowed, reports dropped",
				zap.Int("shard", s.ID()),
				zap.Uint64("total_drops", s.Stats().EgressDrops))
		}
	}
	return drained
}

func (p *Publisher) dispatch(ctx context.Context, r Report) {
	encoded, err := r.MarshalBinary()
	if err != nil {
		p.log.Error("report encode failed", zap.Error(err))
		return
	}
	seq := p.seq.Next()

	if p.journal != nil {
		rec := journal.NewRecord(recordKind(r.Kind), seq, encoded)
		if err := p.journal.Append(rec); err != nil {
			p.log.Error("journal append failed", zap.Uint64("seq", seq), zap.Error(err))
		}
	}
	if p.outbox != nil {
		if err := p.outbox.PutNew(seq, encoded); err != nil {
			p.log.Error("outbox put failed", zap.Uint64("seq", seq), zap.Error(err))
		}
	}
	if p.producer != nil {
		sendCtx, cancel := context.WithTimeout(ctx, p.sendWait)
		if err := p.producer.Send(sendCtx, r.Symbol, encoded); err != nil {
			// The broadcaster re-delivers from the outbox.
			p.log.Debug("fast-path kafka send failed", zap.Uint64("seq", seq), zap.Error(err))
		}
		cancel()
	}
	if p.sink != nil {
		p.sink.Publish(r, encoded)
	}
}

func (p *Publisher) flush() {
	if p.journal != nil {
		if err := p.journal.Sync(); err != nil {
			p.log.Error("journal sync failed", zap.Error(err))
		}
	}
}

func recordKind(k ReportKind) journal.RecordKind {
	switch k {
	case ReportTrade:
		return journal.RecordTrade
	case ReportCancelAck, ReportCancelNoop:
		return journal.RecordCancel
	default:
		return journal.RecordReject
	}
}
