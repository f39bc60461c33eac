package engine

import (
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"fenrir/domain/orderbook"
	"fenrir/infra/affinity"
	"fenrir/infra/memory"
	"fenrir/infra/queue"
	"fenrir/infra/sequence"
	"fenrir/snapshot"
)

// ShardConfig fixes one shard's identity, placement and capacities at
// startup. Nothing here changes at runtime.
type ShardConfig struct {
	ID      int
	Core    int // logical CPU to pin to; <0 runs unpinned
	Symbols []string

	IngressCapacity int
	EgressCapacity  int
	RetireCapacity  uint64
	SpinBudget      int

	Book orderbook.Config
}

// Shard owns a partition of instruments. Exactly one goroutine, locked
// to one OS thread, mutates its books; the two rings at its boundary
// are the only structures other threads touch.
type Shard struct {
	id   int
	core int
	log  *zap.Logger

	ingress *queue.Ring[Event]
	egress  *queue.SPSC[Report]
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	ready   chan struct{}

	symbols []string
	bookCfg orderbook.Config
	books   map[string]*orderbook.OrderBook

	pool       *memory.Pool[orderbook.Order]
	retire     *memory.RetireRing
	retireCap  uint64
	arrivalSeq *sequence.Sequencer
	tradeSeq   *sequence.Sequencer
	reportSeq  *sequence.Sequencer
	spinBudget int
	res        orderbook.MatchResult

	snapWriter *snapshot.Writer // nil disables snapshots
	snapDir    string

	processed   atomic.Uint64
	trades      atomic.Uint64
	egressDrops atomic.Uint64
	overflow    atomic.Bool
	halted      atomic.Bool
}

// NewShard builds the shard shell. Book and pool storage is allocated
// inside Run, on the pinned thread, so first-touch lands the pages on
// the local NUMA node.
func NewShard(cfg ShardConfig, log *zap.Logger, snapDir string) *Shard {
	s := &Shard{
		id:         cfg.ID,
		core:       cfg.Core,
		log:        log,
		ingress:    queue.NewRing[Event](cfg.IngressCapacity),
		egress:     queue.NewSPSC[Report](cfg.EgressCapacity),
		wake:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		ready:      make(chan struct{}),
		symbols:    cfg.Symbols,
		bookCfg:    cfg.Book,
		retireCap:  cfg.RetireCapacity,
		spinBudget: cfg.SpinBudget,
		snapDir:    snapDir,
	}
	if snapDir != "" {
		s.snapWriter = &snapshot.Writer{Dir: snapDir}
	}
	return s
}

func (s *Shard) ID() int { return s.id }

// Egress exposes the shard's output ring to the publisher.
func (s *Shard) Egress() *queue.SPSC[Report] { return s.egress }

// Wake nudges a parked shard. Non-blocking; a single pending signal is
// enough because the shard drains exhaustively on wakeup.
func (s *Shard) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Halted reports whether the shard stopped on a book invariant
// violation.
func (s *Shard) Halted() bool { return s.halted.Load() }

// Stats is a point-in-time counter sample.
type Stats struct {
	Shard       int    `json:"shard"`
	Processed   uint64 `json:"processed"`
	Trades      uint64 `json:"trades"`
	EgressDrops uint64 `json:"egress_drops"`
	Halted      bool   `json:"halted"`
}

func (s *Shard) Stats() Stats {
	return Stats{
		Shard:       s.id,
		Processed:   s.processed.Load(),
		Trades:      s.trades.Load(),
		EgressDrops: s.egressDrops.Load(),
		Halted:      s.halted.Load(),
	}
}

// Run is the shard loop. It must be the goroutine's first and only
// job: it locks the OS thread, pins it, builds the shard's storage,
// restores any snapshot, then serves until Stop.
func (s *Shard) Run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.done)

	if s.core >= 0 {
		if err := affinity.Pin(s.core); err != nil {
			// Degraded placement, not a startup failure.
			s.log.Warn("shard placement degraded, running unpinned",
				zap.Int("shard", s.id),
				zap.Int("core", s.core),
				zap.Error(err))
		} else {
			s.log.Info("shard pinned",
				zap.Int("shard", s.id),
				zap.Int("core", s.core))
		}
	}

	// Allocate everything the shard owns on this thread.
	s.pool = memory.NewPool(func() *orderbook.Order { return &orderbook.Order{} })
	s.retire = memory.NewRetireRing(s.retireCap)
	s.arrivalSeq = sequence.New(0)
	s.tradeSeq = sequence.New(0)
	s.reportSeq = sequence.New(0)
	s.books = make(map[string]*orderbook.OrderBook, len(s.symbols))
	for _, sym := range s.symbols {
		s.books[sym] = orderbook.New(s.bookCfg)
	}

	if err := s.restore(); err != nil {
		s.log.Error("snapshot restore failed, starting empty",
			zap.Int("shard", s.id), zap.Error(err))
	}
	close(s.ready)

	idle := 0
	for {
		select {
		case <-s.stop:
			s.drain()
			return
		default:
		}

		ev, ok := s.ingress.TryPop()
		if ok {
			s.process(ev)
			if s.halted.Load() {
				return
			}
			idle = 0
			continue
		}

		if idle++; idle < s.spinBudget {
			// Hot spin: the queue is expected to refill fast. Yield so
			// a co-scheduled producer still gets the core.
			runtime.Gosched()
			continue
		}

		select {
		case <-s.wake:
		case <-s.stop:
			s.drain()
			return
		}
		idle = 0
	}
}

// Stop asks the shard to drain and exit, then waits for it.
func (s *Shard) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Shard) drain() {
	for {
		ev, ok := s.ingress.TryPop()
		if !ok {
			return
		}
		s.process(ev)
		if s.halted.Load() {
			return
		}
	}
}

func (s *Shard) restore() error {
	if s.snapDir == "" {
		return nil
	}
	snap, err := snapshot.Load(s.snapDir, s.id)
	if err != nil || snap == nil {
		return err
	}
	for i := range snap.Books {
		bs := &snap.Books[i]
		b, ok := s.books[bs.Symbol]
		if !ok {
			// Assignment changed since the snapshot; this shard no
			// longer owns the symbol.
			s.log.Warn("snapshot symbol not assigned to shard, skipped",
				zap.Int("shard", s.id), zap.String("symbol", bs.Symbol))
			continue
		}
		if err := snapshot.Restore(b, bs, s.pool); err != nil {
			return err
		}
	}
	s.arrivalSeq.Reset(snap.LastArrival)
	s.tradeSeq.Reset(snap.LastTrade)
	s.log.Info("shard restored from snapshot",
		zap.Int("shard", s.id),
		zap.Uint64("last_arrival", snap.LastArrival))
	return nil
}

func (s *Shard) process(ev Event) {
	s.processed.Add(1)

	switch ev.Kind {
	case KindCancel:
		s.processCancel(ev)
	case KindSnapshot:
		s.writeSnapshot()
	default:
		s.processNew(ev)
	}

	// Recycle everything the pass removed, now that its reports are on
	// the egress ring.
	s.retire.Drain(s.pool)
}

func (s *Shard) processNew(ev Event) {
	book := s.books[ev.Symbol]
	if book == nil || ev.Qty <= 0 || (ev.Kind == KindNewLimit && ev.Price <= 0) {
		s.emitReject(ev, ErrInvalidOrder.Error())
		return
	}

	o := s.pool.Get()
	*o = orderbook.Order{
		ID:     ev.OrderID,
		Owner:  ev.Owner,
		Price:  ev.Price,
		Qty:    ev.Qty,
		Orig:   ev.Qty,
		SeqID:  s.arrivalSeq.Next(),
		Side:   ev.Side,
		Type:   orderbook.Limit,
		Status: orderbook.Active,
	}
	if ev.Kind == KindNewMarket {
		o.Type = orderbook.Market
	}

	s.res.Reset()
	err := book.Place(o, &s.res, s.retire)
	if err == orderbook.ErrDuplicateOrder {
		// Place refused the order before touching the book.
		o.Reset()
		s.pool.Put(o)
		s.emitReject(ev, err.Error())
		return
	}

	now := time.Now().UnixNano()
	for _, tr := range s.res.Trades {
		s.trades.Add(1)
		s.emit(Report{
			Kind:      ReportTrade,
			TradeID:   uint64(s.id)<<48 | s.tradeSeq.Next(),
			MakerID:   tr.MakerID,
			TakerID:   tr.TakerID,
			Symbol:    ev.Symbol,
			Price:     tr.Price,
			Qty:       tr.Qty,
			Timestamp: now,
		})
	}
	for _, makerID := range s.res.SelfCanceled {
		s.emit(Report{
			Kind:      ReportCancelAck,
			TakerID:   makerID,
			Symbol:    ev.Symbol,
			Timestamp: now,
		})
	}
	if err == orderbook.ErrSelfTrade {
		s.emitReject(ev, err.Error())
	}

	if book.Crossed() {
		// The one condition that halts a shard. Scoped to this shard
		// only; the rest of the process keeps matching.
		s.halted.Store(true)
		s.log.Error("crossed book detected, halting shard",
			zap.Int("shard", s.id),
			zap.String("symbol", ev.Symbol),
			zap.Uint64("order", ev.OrderID))
	}
}

func (s *Shard) processCancel(ev Event) {
	kind := ReportCancelNoop
	if book := s.books[ev.Symbol]; book != nil && book.Cancel(ev.OrderID, s.retire) {
		kind = ReportCancelAck
	}
	// A miss means the order was already filled or canceled; cancel is
	// idempotent and acknowledged either way.
	s.emit(Report{
		Kind:      kind,
		TakerID:   ev.OrderID,
		Symbol:    ev.Symbol,
		Timestamp: time.Now().UnixNano(),
	})
}

func (s *Shard) writeSnapshot() {
	if s.snapWriter == nil {
		return
	}
	snap := snapshot.ShardSnapshot{
		Shard:       s.id,
		LastArrival: s.arrivalSeq.Current(),
		LastTrade:   s.tradeSeq.Current(),
		Created:     time.Now(),
	}
	for _, sym := range s.symbols {
		snap.Books = append(snap.Books, snapshot.Capture(sym, s.books[sym]))
	}
	if err := s.snapWriter.Write(&snap); err != nil {
		s.log.Error("snapshot write failed",
			zap.Int("shard", s.id), zap.Error(err))
		return
	}
	s.log.Info("snapshot written",
		zap.Int("shard", s.id),
		zap.Uint64("last_arrival", snap.LastArrival))
}

func (s *Shard) emitReject(ev Event, reason string) {
	s.emit(Report{
		Kind:      ReportReject,
		TakerID:   ev.OrderID,
		Symbol:    ev.Symbol,
		Timestamp: time.Now().UnixNano(),
		Reason:    reason,
	})
}

// emit pushes a report onto the egress ring. A full ring never blocks
// the shard: the report is dropped and counted, and the overflow flag
// tells the publisher its consumer fell behind.
func (s *Shard) emit(r Report) {
	r.ShardSeq = s.reportSeq.Next()
	if !s.egress.TryPush(r) {
		s.egressDrops.Add(1)
		s.overflow.Store(true)
	}
}

// Overflow reports and clears the egress overflow flag.
func (s *Shard) Overflow() bool {
	return s.overflow.Swap(false)
}
