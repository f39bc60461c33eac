package orderbook

import (
	"math/rand"
	"testing"

	"fenrir/infra/memory"
)

func newTestBook(cfg Config) (*OrderBook, *MatchResult, *memory.RetireRing) {
	return New(cfg), &MatchResult{}, memory.NewRetireRing(256)
}

func limit(id uint64, side Side, price, qty int64, seq uint64) *Order {
	return &Order{
		ID: id, Price: price, Qty: qty, Orig: qty,
		SeqID: seq, Side: side, Type: Limit, Status: Active,
	}
}

func market(id uint64, side Side, qty int64, seq uint64) *Order {
	return &Order{
		ID: id, Qty: qty, Orig: qty,
		SeqID: seq, Side: side, Type: Market, Status: Active,
	}
}

func mustPlace(t *testing.T, b *OrderBook, o *Order, res *MatchResult, rq *memory.RetireRing) {
	t.Helper()
	res.Reset()
	if err := b.Place(o, res, rq); err != nil {
		t.Fatalf("place order %d: %v", o.ID, err)
	}
}

func TestLimitOrdersMatchAndEmptyBook(t *testing.T) {
	b, res, rq := newTestBook(Config{})
	mustPlace(t, b, limit(1, Bid, 100, 5, 1), res, rq)
	mustPlace(t, b, limit(2, Ask, 100, 5, 2), res, rq)

	if b.Len() != 0 {
		t.Errorf("book should be empty after full cross, %d resting", b.Len())
	}
	if len(res.Trades) != 1 || res.Trades[0].Qty != 5 || res.Trades[0].Price != 100 {
		t.Errorf("want one trade 5@100, got %+v", res.Trades)
	}
}

func TestPriceTimePriority(t *testing.T) {
	b, res, rq := newTestBook(Config{})
	mustPlace(t, b, limit(1, Bid, 100, 5, 1), res, rq)
	mustPlace(t, b, limit(2, Bid, 100, 3, 2), res, rq)

	mustPlace(t, b, market(3, Ask, 6, 3), res, rq)

	if len(res.Trades) != 2 {
		t.Fatalf("want 2 trades, got %d", len(res.Trades))
	}
	first, second := res.Trades[0], res.Trades[1]
	if first.MakerID != 1 || first.Qty != 5 || first.Price != 100 {
		t.Errorf("first fill should exhaust the older order: %+v", first)
	}
	if second.MakerID != 2 || second.Qty != 1 || second.Price != 100 {
		t.Errorf("second fill should hit the newer order: %+v", second)
	}

	rest := b.Bids.FindLevel(100)
	if rest == nil || rest.TotalQty != 2 || rest.Head().ID != 2 {
		t.Errorf("order 2 should rest with qty 2")
	}
}

func TestBetterPriceMatchesFirst(t *testing.T) {
	b, res, rq := newTestBook(Config{})
	mustPlace(t, b, limit(1, Ask, 105, 4, 1), res, rq)
	mustPlace(t, b, limit(2, Ask, 101, 4, 2), res, rq)

	mustPlace(t, b, limit(3, Bid, 105, 6, 3), res, rq)

	if len(res.Trades) != 2 {
		t.Fatalf("want 2 trades, got %d", len(res.Trades))
	}
	if res.Trades[0].MakerID != 2 || res.Trades[0].Price != 101 {
		t.Errorf("cheapest ask should fill first at its own price: %+v", res.Trades[0])
	}
	if res.Trades[1].MakerID != 1 || res.Trades[1].Price != 105 || res.Trades[1].Qty != 2 {
		t.Errorf("remainder should walk up to 105: %+v", res.Trades[1])
	}
}

func TestLimitRemainderRests(t *testing.T) {
	b, res, rq := newTestBook(Config{})
	mustPlace(t, b, limit(1, Ask, 100, 3, 1), res, rq)
	mustPlace(t, b, limit(2, Bid, 100, 10, 2), res, rq)

	lvl := b.Bids.FindLevel(100)
	if lvl == nil || lvl.TotalQty != 7 {
		t.Fatalf("taker remainder of 7 should rest at 100")
	}
	if b.Crossed() {
		t.Error("book must not be crossed after matching")
	}
}

func TestMarketRemainderDiscarded(t *testing.T) {
	b, res, rq := newTestBook(Config{})
	mustPlace(t, b, limit(1, Ask, 100, 3, 1), res, rq)
	mustPlace(t, b, market(2, Bid, 10, 2), res, rq)

	if b.Len() != 0 {
		t.Errorf("market remainder must not rest, %d resting", b.Len())
	}
	if len(res.Trades) != 1 || res.Trades[0].Qty != 3 {
		t.Errorf("want single 3-lot fill, got %+v", res.Trades)
	}
	// Both the filled maker and the spent taker end up retired.
	if rq.Len() != 2 {
		t.Errorf("want 2 retired orders, got %d", rq.Len())
	}
}

func TestQuantityConservation(t *testing.T) {
	b, res, rq := newTestBook(Config{})
	makers := []*Order{
		limit(1, Ask, 100, 4, 1),
		limit(2, Ask, 100, 6, 2),
		limit(3, Ask, 102, 5, 3),
	}
	for _, m := range makers {
		mustPlace(t, b, m, res, rq)
	}

	taker := limit(4, Bid, 102, 12, 4)
	mustPlace(t, b, taker, res, rq)

	var traded int64
	for _, tr := range res.Trades {
		traded += tr.Qty
	}
	if traded != 12 {
		t.Errorf("taker of 12 against 15 available should fill 12, got %d", traded)
	}
	if taker.Filled() != traded {
		t.Errorf("taker filled %d but trades sum to %d", taker.Filled(), traded)
	}
	var restingFilled int64
	for _, m := range makers {
		restingFilled += m.Filled()
	}
	if restingFilled != traded {
		t.Errorf("maker fills %d != taker fills %d", restingFilled, traded)
	}
}

func TestCancelIdempotent(t *testing.T) {
	b, res, rq := newTestBook(Config{})
	mustPlace(t, b, limit(1, Bid, 100, 5, 1), res, rq)

	if !b.Cancel(1, rq) {
		t.Fatal("first cancel should succeed")
	}
	if b.Cancel(1, rq) {
		t.Error("second cancel of the same id should be a no-op")
	}
	if b.Cancel(99, rq) {
		t.Error("cancel of an unknown id should be a no-op")
	}
	if b.Len() != 0 {
		t.Error("canceled order should be gone")
	}
}

func TestDuplicateIDRejected(t *testing.T) {
	b, res, rq := newTestBook(Config{})
	mustPlace(t, b, limit(1, Bid, 100, 5, 1), res, rq)

	dup := limit(1, Bid, 101, 5, 2)
	res.Reset()
	if err := b.Place(dup, res, rq); err != ErrDuplicateOrder {
		t.Fatalf("want ErrDuplicateOrder, got %v", err)
	}
	if rq.Len() != 0 {
		t.Error("rejected duplicate must not be retired by the book")
	}
	if lvl := b.Bids.FindLevel(100); lvl == nil || lvl.Head().Qty != 5 {
		t.Error("original order must be untouched")
	}
}

func TestNonoverlappingSidesRest(t *testing.T) {
	b, res, rq := newTestBook(Config{})
	mustPlace(t, b, limit(1, Bid, 99, 5, 1), res, rq)
	mustPlace(t, b, limit(2, Ask, 101, 5, 2), res, rq)

	if len(res.Trades) != 0 {
		t.Error("non-crossing orders must not trade")
	}
	bid, _ := b.BestBid()
	ask, _ := b.BestAsk()
	if bid != 99 || ask != 101 {
		t.Errorf("want 99/101, got %d/%d", bid, ask)
	}
	if b.Crossed() {
		t.Error("99 bid under 101 ask is not crossed")
	}
}

func TestProRataAllocation(t *testing.T) {
	b, res, rq := newTestBook(Config{Alloc: AllocProRata})
	mustPlace(t, b, limit(1, Ask, 100, 60, 1), res, rq)
	mustPlace(t, b, limit(2, Ask, 100, 30, 2), res, rq)
	mustPlace(t, b, limit(3, Ask, 100, 10, 3), res, rq)

	mustPlace(t, b, limit(4, Bid, 100, 50, 4), res, rq)

	got := map[uint64]int64{}
	var total int64
	for _, tr := range res.Trades {
		got[tr.MakerID] += tr.Qty
		total += tr.Qty
	}
	if total != 50 {
		t.Fatalf("want 50 allocated, got %d", total)
	}
	if got[1] != 30 || got[2] != 15 || got[3] != 5 {
		t.Errorf("want 30/15/5 split, got %d/%d/%d", got[1], got[2], got[3])
	}
}

func TestProRataRemainderTopUp(t *testing.T) {
	b, res, rq := newTestBook(Config{Alloc: AllocProRata})
	mustPlace(t, b, limit(1, Ask, 100, 3, 1), res, rq)
	mustPlace(t, b, limit(2, Ask, 100, 3, 2), res, rq)
	mustPlace(t, b, limit(3, Ask, 100, 3, 3), res, rq)

	// 7 of 9: floors are 2/2/2, the extra unit goes to arrival order.
	mustPlace(t, b, limit(4, Bid, 100, 7, 4), res, rq)

	got := map[uint64]int64{}
	var total int64
	for _, tr := range res.Trades {
		got[tr.MakerID] += tr.Qty
		total += tr.Qty
	}
	if total != 7 {
		t.Fatalf("want 7 allocated, got %d", total)
	}
	if got[1] != 3 || got[2] != 2 || got[3] != 2 {
		t.Errorf("want 3/2/2 split, got %d/%d/%d", got[1], got[2], got[3])
	}
}

func TestSelfTradeCancelResting(t *testing.T) {
	b, res, rq := newTestBook(Config{SelfTrade: SelfTradeCancelResting})
	own := limit(1, Ask, 100, 5, 1)
	own.Owner = 7
	other := limit(2, Ask, 100, 5, 2)
	other.Owner = 8
	mustPlace(t, b, own, res, rq)
	mustPlace(t, b, other, res, rq)

	taker := limit(3, Bid, 100, 5, 3)
	taker.Owner = 7
	mustPlace(t, b, taker, res, rq)

	if len(res.SelfCanceled) != 1 || res.SelfCanceled[0] != 1 {
		t.Fatalf("own resting order should be canceled, got %v", res.SelfCanceled)
	}
	if len(res.Trades) != 1 || res.Trades[0].MakerID != 2 {
		t.Errorf("fill should come from the other owner, got %+v", res.Trades)
	}
}

func TestSelfTradeRejectTaker(t *testing.T) {
	b, res, rq := newTestBook(Config{SelfTrade: SelfTradeRejectTaker})
	own := limit(1, Ask, 100, 5, 1)
	own.Owner = 7
	mustPlace(t, b, own, res, rq)

	taker := limit(2, Bid, 100, 5, 2)
	taker.Owner = 7
	res.Reset()
	if err := b.Place(taker, res, rq); err != ErrSelfTrade {
		t.Fatalf("want ErrSelfTrade, got %v", err)
	}
	if lvl := b.Asks.FindLevel(100); lvl == nil || lvl.Head().Qty != 5 {
		t.Error("resting order must survive a rejected taker")
	}
}

func TestSelfTradeAnonymousOwnersAlwaysMatch(t *testing.T) {
	b, res, rq := newTestBook(Config{SelfTrade: SelfTradeRejectTaker})
	mustPlace(t, b, limit(1, Ask, 100, 5, 1), res, rq)
	mustPlace(t, b, limit(2, Bid, 100, 5, 2), res, rq)

	if len(res.Trades) != 1 {
		t.Error("owner 0 must be exempt from self-trade policy")
	}
}

func TestSnapshotIterOrder(t *testing.T) {
	b, res, rq := newTestBook(Config{})
	mustPlace(t, b, limit(1, Bid, 99, 1, 1), res, rq)
	mustPlace(t, b, limit(2, Bid, 100, 1, 2), res, rq)
	mustPlace(t, b, limit(3, Bid, 100, 1, 3), res, rq)
	mustPlace(t, b, limit(4, Ask, 101, 1, 4), res, rq)
	mustPlace(t, b, limit(5, Ask, 102, 1, 5), res, rq)

	var ids []uint64
	b.SnapshotIter(func(_ *PriceLevel, o *Order) {
		ids = append(ids, o.ID)
	})
	want := []uint64{2, 3, 1, 4, 5}
	if len(ids) != len(want) {
		t.Fatalf("want %d orders, got %d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("visit order %v, want %v", ids, want)
		}
	}
}

func TestRestoreRestingPreservesFIFO(t *testing.T) {
	b, res, rq := newTestBook(Config{})
	if err := b.RestoreResting(limit(1, Bid, 100, 5, 1)); err != nil {
		t.Fatal(err)
	}
	if err := b.RestoreResting(limit(2, Bid, 100, 3, 2)); err != nil {
		t.Fatal(err)
	}

	mustPlace(t, b, market(3, Ask, 5, 3), res, rq)
	if len(res.Trades) != 1 || res.Trades[0].MakerID != 1 {
		t.Errorf("restored order 1 should keep time priority, got %+v", res.Trades)
	}
	if err := b.RestoreResting(limit(2, Bid, 100, 3, 4)); err != ErrDuplicateOrder {
		t.Errorf("restoring a live id should fail, got %v", err)
	}
}

func TestSweepLargerThanRetireRing(t *testing.T) {
	b := New(Config{})
	res := &MatchResult{}
	rq := memory.NewRetireRing(256)

	for i := 1; i <= 300; i++ {
		mustPlace(t, b, limit(uint64(i), Ask, 100, 1, uint64(i)), res, rq)
	}

	// One valid taker removes more makers than the ring holds; the
	// sweep must complete, not die.
	mustPlace(t, b, market(1000, Bid, 300, 301), res, rq)

	if len(res.Trades) != 300 {
		t.Fatalf("want 300 fills, got %d", len(res.Trades))
	}
	if b.Len() != 0 {
		t.Errorf("book should be swept clean, %d resting", b.Len())
	}
	if rq.Len() != 256 {
		t.Errorf("ring should hold its capacity, got %d", rq.Len())
	}
}

func TestHybridAllocation(t *testing.T) {
	b, res, rq := newTestBook(Config{Alloc: AllocHybrid})
	mustPlace(t, b, limit(1, Ask, 100, 10, 1), res, rq)
	mustPlace(t, b, limit(2, Ask, 100, 10, 2), res, rq)

	mustPlace(t, b, limit(3, Bid, 100, 10, 3), res, rq)

	got := map[uint64]int64{}
	var total int64
	for _, tr := range res.Trades {
		got[tr.MakerID] += tr.Qty
		total += tr.Qty
	}
	if total != 10 {
		t.Fatalf("want 10 allocated, got %d", total)
	}
	// Default 50% FIFO share: 5 to the head, then 5 pro-rata over the
	// remaining 5/10 split.
	if got[1] != 7 || got[2] != 3 {
		t.Errorf("want 7/3 split, got %d/%d", got[1], got[2])
	}
}

func TestHybridFullFIFOShare(t *testing.T) {
	b, res, rq := newTestBook(Config{Alloc: AllocHybrid, FIFOShare: 100})
	mustPlace(t, b, limit(1, Ask, 100, 10, 1), res, rq)
	mustPlace(t, b, limit(2, Ask, 100, 10, 2), res, rq)

	mustPlace(t, b, limit(3, Bid, 100, 10, 3), res, rq)

	got := map[uint64]int64{}
	for _, tr := range res.Trades {
		got[tr.MakerID] += tr.Qty
	}
	if got[1] != 10 || got[2] != 0 {
		t.Errorf("full FIFO share should behave like FIFO, got %d/%d", got[1], got[2])
	}
}

func TestRandomizedConservation(t *testing.T) {
	b, res, rq := newTestBook(Config{})
	pool := memory.NewPool(func() *Order { return &Order{} })
	rng := rand.New(rand.NewSource(7))

	orig := map[uint64]int64{}
	fills := map[uint64]int64{}
	var nextID uint64

	for i := 0; i < 5000; i++ {
		if nextID > 0 && rng.Intn(10) == 0 {
			b.Cancel(uint64(rng.Intn(int(nextID)))+1, rq)
		} else {
			nextID++
			side := Bid
			if rng.Intn(2) == 0 {
				side = Ask
			}
			qty := int64(1 + rng.Intn(20))
			var o *Order
			if rng.Intn(10) == 0 {
				o = market(nextID, side, qty, nextID)
			} else {
				o = limit(nextID, side, int64(90+rng.Intn(21)), qty, nextID)
			}
			orig[o.ID] = qty

			res.Reset()
			if err := b.Place(o, res, rq); err != nil {
				t.Fatalf("event %d: %v", i, err)
			}
			var sum int64
			for _, tr := range res.Trades {
				if tr.Qty <= 0 {
					t.Fatalf("event %d: non-positive fill %+v", i, tr)
				}
				fills[tr.MakerID] += tr.Qty
				fills[tr.TakerID] += tr.Qty
				sum += tr.Qty
			}
			if sum != o.Filled() {
				t.Fatalf("event %d: trades sum %d but taker filled %d", i, sum, o.Filled())
			}
		}
		if b.Crossed() {
			t.Fatalf("book crossed after event %d", i)
		}
		rq.Drain(pool)
	}

	b.SnapshotIter(func(_ *PriceLevel, o *Order) {
		if o.Qty <= 0 {
			t.Errorf("order %d resting with qty %d", o.ID, o.Qty)
		}
		if o.Qty != orig[o.ID]-fills[o.ID] {
			t.Errorf("order %d: resting %d, placed %d, filled %d",
				o.ID, o.Qty, orig[o.ID], fills[o.ID])
		}
	})
}
