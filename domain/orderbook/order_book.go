package orderbook

import (
	"errors"

	"fenrir/infra/memory"
)

var (
	// ErrDuplicateOrder is returned when an order id is already resting.
	ErrDuplicateOrder = errors.New("orderbook: order id already resting")
	// ErrSelfTrade is returned under SelfTradeRejectTaker when the taker
	// would cross its own resting order. Trades already made stand.
	ErrSelfTrade = errors.New("orderbook: taker crosses own resting order")
)

// SelfTradePolicy decides what happens when an incoming order would
// trade against a resting order with the same owner.
type SelfTradePolicy int

const (
	SelfTradeAllow SelfTradePolicy = iota
	SelfTradeCancelResting
	SelfTradeRejectTaker
)

// Allocation selects how quantity at a crossed price level is split
// across its resting orders.
type Allocation int

const (
	AllocFIFO Allocation = iota
	AllocProRata
	AllocHybrid
)

type Config struct {
	SelfTrade SelfTradePolicy
	Alloc     Allocation
	// FIFOShare is the percentage of each matched level filled in
	// arrival order before the pro-rata pass under AllocHybrid.
	// Zero means 50.
	FIFOShare int64
}

// Trade is one execution produced by a matching pass.
type Trade struct {
	MakerID uint64
	TakerID uint64
	Price   int64
	Qty     int64
}

// MatchResult collects the output of one Place call. Reused across
// events to keep the hot path allocation-free.
type MatchResult struct {
	Trades       []Trade
	SelfCanceled []uint64 // makers removed under SelfTradeCancelResting
}

func (r *MatchResult) Reset() {
	r.Trades = r.Trades[:0]
	r.SelfCanceled = r.SelfCanceled[:0]
}

// OrderBook is single-writer and deterministic.
type OrderBook struct {
	Bids *RBTree
	Asks *RBTree

	index   map[uint64]*Order
	cfg     Config
	LastSeq uint64

	scratch []int64 // pro-rata allocation buffer
}

func New(cfg Config) *OrderBook {
	return &OrderBook{
		Bids:  NewRBTree(),
		Asks:  NewRBTree(),
		index: make(map[uint64]*Order, 1024),
		cfg:   cfg,
	}
}

// Len returns the number of resting orders.
func (b *OrderBook) Len() int { return len(b.index) }

// BestBid returns the highest bid price, if any.
func (b *OrderBook) BestBid() (int64, bool) {
	lvl := b.Bids.MaxLevel()
	if lvl == nil {
		return 0, false
	}
	return lvl.Price, true
}

// BestAsk returns the lowest ask price, if any.
func (b *OrderBook) BestAsk() (int64, bool) {
	lvl := b.Asks.MinLevel()
	if lvl == nil {
		return 0, false
	}
	return lvl.Price, true
}

// Crossed reports whether best bid >= best ask. It must be false after
// every completed matching pass; a true return is the invariant
// violation that halts the owning shard.
func (b *OrderBook) Crossed() bool {
	bid := b.Bids.MaxLevel()
	ask := b.Asks.MinLevel()
	return bid != nil && ask != nil && bid.Price >= ask.Price
}

// Place matches the incoming taker o against the book and rests any
// limit remainder. Trades and self-trade cancels are appended to res.
// Fully filled makers and a non-resting taker are pushed onto rq for
// recycling by the owner.
func (b *OrderBook) Place(o *Order, res *MatchResult, rq *memory.RetireRing) error {
	if _, dup := b.index[o.ID]; dup {
		return ErrDuplicateOrder
	}
	b.LastSeq = o.SeqID

	err := b.match(o, res, rq)

	if err == nil && o.Type == Limit && o.Qty > 0 {
		b.enqueue(o)
		return nil
	}
	// Market remainder is discarded, never rested; a rejected taker is
	// discarded the same way. A full ring is not fatal: the order is
	// already off the book, so it falls to the GC instead of the pool.
	o.Status = Inactive
	rq.Enqueue(o)
	return err
}

func (b *OrderBook) match(o *Order, res *MatchResult, rq *memory.RetireRing) error {
	if o.Side == Bid {
		for o.Qty > 0 {
			best := b.Asks.MinLevel()
			if best == nil || (o.Type != Market && best.Price > o.Price) {
				break
			}
			if err := b.matchLevel(o, best, Ask, res, rq); err != nil {
				return err
			}
		}
	} else {
		for o.Qty > 0 {
			best := b.Bids.MaxLevel()
			if best == nil || (o.Type != Market && best.Price < o.Price) {
				break
			}
			if err := b.matchLevel(o, best, Bid, res, rq); err != nil {
				return err
			}
		}
	}
	return nil
}

// matchLevel consumes as much of o as the level allows. The level may be
// emptied and removed; the caller re-reads the best level afterwards.
func (b *OrderBook) matchLevel(o *Order, lvl *PriceLevel, side Side, res *MatchResult, rq *memory.RetireRing) error {
	if err := b.applySelfTrade(o, lvl, side, res, rq); err != nil {
		return err
	}
	if lvl.Empty() {
		return nil // self-trade pass emptied the level
	}
	switch b.cfg.Alloc {
	case AllocProRata:
		b.allocProRata(o, lvl, side, res, rq)
	case AllocHybrid:
		b.allocHybrid(o, lvl, side, res, rq)
	default:
		b.fillFIFO(o, lvl, side, res, rq, o.Qty)
	}
	return nil
}

// fillFIFO fills up to budget quantity from the level head in arrival
// order.
func (b *OrderBook) fillFIFO(o *Order, lvl *PriceLevel, side Side, res *MatchResult, rq *memory.RetireRing, budget int64) {
	for budget > 0 && o.Qty > 0 && !lvl.Empty() {
		maker := lvl.Head()
		qty := min64(min64(o.Qty, maker.Qty), budget)
		o.Qty -= qty
		maker.Qty -= qty
		budget -= qty
		lvl.Reduce(qty)
		res.Trades = append(res.Trades, Trade{
			MakerID: maker.ID,
			TakerID: o.ID,
			Price:   lvl.Price,
			Qty:     qty,
		})
		if maker.Qty == 0 {
			b.removeResting(maker, side, rq)
		}
	}
}

// allocHybrid fills the FIFO share of the matchable quantity in arrival
// order, then splits whatever is left pro-rata across the survivors.
func (b *OrderBook) allocHybrid(o *Order, lvl *PriceLevel, side Side, res *MatchResult, rq *memory.RetireRing) {
	share := b.cfg.FIFOShare
	if share <= 0 {
		share = 50
	}
	if share > 100 {
		share = 100
	}
	take := min64(o.Qty, lvl.TotalQty)
	b.fillFIFO(o, lvl, side, res, rq, take*share/100)
	if o.Qty > 0 && !lvl.Empty() {
		b.allocProRata(o, lvl, side, res, rq)
	}
}

// applySelfTrade enforces the configured policy before any fill at lvl.
// Owner 0 is anonymous and never triggers the policy.
func (b *OrderBook) applySelfTrade(o *Order, lvl *PriceLevel, side Side, res *MatchResult, rq *memory.RetireRing) error {
	if b.cfg.SelfTrade == SelfTradeAllow || o.Owner == 0 {
		return nil
	}
	for maker := lvl.Head(); maker != nil; {
		next := maker.Next()
		if maker.Owner == o.Owner {
			if b.cfg.SelfTrade == SelfTradeRejectTaker {
				return ErrSelfTrade
			}
			res.SelfCanceled = append(res.SelfCanceled, maker.ID)
			b.removeResting(maker, side, rq)
		}
		maker = next
	}
	return nil
}

// allocProRata splits min(taker, level) across every maker at the level
// in proportion to remaining size: integer floor first, then one extra
// unit each in arrival order until the remainder is gone. When the taker
// takes less than the whole level, every maker keeps at least one unit
// of headroom, so a single top-up pass always suffices.
func (b *OrderBook) allocProRata(o *Order, lvl *PriceLevel, side Side, res *MatchResult, rq *memory.RetireRing) {
	total := lvl.TotalQty
	avail := min64(o.Qty, total)
	if avail <= 0 {
		return
	}

	b.scratch = b.scratch[:0]
	for m := lvl.Head(); m != nil; m = m.Next() {
		b.scratch = append(b.scratch, avail*m.Qty/total)
	}

	allocated := int64(0)
	for _, a := range b.scratch {
		allocated += a
	}
	rem := avail - allocated
	for i, m := 0, lvl.Head(); rem > 0 && m != nil; i, m = i+1, m.Next() {
		if b.scratch[i] < m.Qty {
			b.scratch[i]++
			rem--
		}
	}

	i := 0
	for maker := lvl.Head(); maker != nil; i++ {
		next := maker.Next()
		qty := b.scratch[i]
		if qty > 0 {
			o.Qty -= qty
			maker.Qty -= qty
			lvl.Reduce(qty)
			res.Trades = append(res.Trades, Trade{
				MakerID: maker.ID,
				TakerID: o.ID,
				Price:   lvl.Price,
				Qty:     qty,
			})
			if maker.Qty == 0 {
				b.removeResting(maker, side, rq)
			}
		}
		maker = next
	}
}

// Cancel removes the resting order with the given id. Returns false if
// the id is unknown (already filled or canceled); cancel is idempotent
// and that case is not an error.
func (b *OrderBook) Cancel(id uint64, rq *memory.RetireRing) bool {
	o, ok := b.index[id]
	if !ok {
		return false
	}
	b.removeResting(o, o.Side, rq)
	return true
}

func (b *OrderBook) enqueue(o *Order) {
	var lvl *PriceLevel
	if o.Side == Bid {
		lvl = b.Bids.UpsertLevel(o.Price)
	} else {
		lvl = b.Asks.UpsertLevel(o.Price)
	}
	lvl.Enqueue(o)
	b.index[o.ID] = o
}

// removeResting unlinks o from its level, collapses the level if it
// emptied, and hands o to the retire ring.
func (b *OrderBook) removeResting(o *Order, side Side, rq *memory.RetireRing) {
	ladder := b.Asks
	if side == Bid {
		ladder = b.Bids
	}
	lvl := ladder.FindLevel(o.Price)
	if lvl != nil {
		lvl.Unlink(o)
		if lvl.Empty() {
			ladder.DeleteLevel(o.Price)
		}
	}
	delete(b.index, o.ID)
	o.Status = Inactive
	// Recycling is best-effort: a sweep can remove more makers than the
	// ring holds, and the overflow goes to the GC rather than halting
	// the pass.
	rq.Enqueue(o)
}

// SnapshotIter visits every resting order: bids best to worst, then asks
// best to worst, orders within a level in arrival order. The visit order
// is the canonical snapshot order.
func (b *OrderBook) SnapshotIter(visit func(lvl *PriceLevel, o *Order)) {
	b.Bids.ForEachDescending(func(lvl *PriceLevel) bool {
		for o := lvl.Head(); o != nil; o = o.Next() {
			visit(lvl, o)
		}
		return true
	})
	b.Asks.ForEachAscending(func(lvl *PriceLevel) bool {
		for o := lvl.Head(); o != nil; o = o.Next() {
			visit(lvl, o)
		}
		return true
	})
}

// RestoreResting re-enters a snapshot order directly into its level,
// bypassing matching. Snapshot entries must be replayed in snapshot
// order so FIFO position is preserved.
func (b *OrderBook) RestoreResting(o *Order) error {
	if _, dup := b.index[o.ID]; dup {
		return ErrDuplicateOrder
	}
	if o.SeqID > b.LastSeq {
		b.LastSeq = o.SeqID
	}
	b.enqueue(o)
	return nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
