package snapshot

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"fenrir/domain/orderbook"
	"fenrir/infra/memory"
)

// Load reads a shard's snapshot. A missing file is a fresh start, not
// an error.
func Load(dir string, shard int) (*ShardSnapshot, error) {
	path := filepath.Join(dir, fmt.Sprintf("shard-%03d.snap", shard))
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var s ShardSnapshot
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return nil, fmt.Errorf("snapshot: decode %s: %w", path, err)
	}
	return &s, nil
}

// Restore replays a book snapshot into an empty book. Entries are
// re-entered directly, bypassing matching, in snapshot order so FIFO
// position at each level is preserved.
func Restore(b *orderbook.OrderBook, s *BookSnapshot, pool *memory.Pool[orderbook.Order]) error {
	for _, e := range s.Orders {
		o := pool.Get()
		*o = orderbook.Order{
			ID:     e.ID,
			Owner:  e.Owner,
			Side:   orderbook.Side(e.Side),
			Type:   orderbook.Limit,
			Price:  e.Price,
			Qty:    e.Qty,
			Orig:   e.Orig,
			SeqID:  e.Seq,
			Status: orderbook.Active,
		}
		if err := b.RestoreResting(o); err != nil {
			return fmt.Errorf("snapshot: restore order %d: %w", e.ID, err)
		}
	}
	return nil
}
