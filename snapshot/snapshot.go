package snapshot

import "time"

// OrderEntry is one resting order in canonical snapshot order (bids
// best to worst, asks best to worst, FIFO within a level). Replaying
// entries in this order rebuilds a book whose matching behavior is
// identical to the original's.
type OrderEntry struct {
	ID    uint64
	Owner uint64
	Side  int
	Price int64
	Qty   int64
	Orig  int64
	Seq   uint64
}

// BookSnapshot is one instrument's dump.
type BookSnapshot struct {
	Symbol string
	Orders []OrderEntry
}

// ShardSnapshot is everything one shard owns: its books plus the
// sequencer positions needed to resume assignment after reload.
type ShardSnapshot struct {
	Shard       int
	LastArrival uint64
	LastTrade   uint64
	Created     time.Time
	Books       []BookSnapshot
}
