package snapshot

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"fenrir/domain/orderbook"
)

// Writer persists shard snapshots, one file per shard, written to a
// temp file and renamed so a crash mid-write never clobbers the last
// good snapshot.
type Writer struct {
	Dir string
}

// Capture dumps a book in canonical snapshot order.
func Capture(symbol string, b *orderbook.OrderBook) BookSnapshot {
	s := BookSnapshot{
		Symbol: symbol,
		Orders: make([]OrderEntry, 0, b.Len()),
	}
	b.SnapshotIter(func(lvl *orderbook.PriceLevel, o *orderbook.Order) {
		s.Orders = append(s.Orders, OrderEntry{
			ID:    o.ID,
			Owner: o.Owner,
			Side:  int(o.Side),
			Price: lvl.Price,
			Qty:   o.Qty,
			Orig:  o.Orig,
			Seq:   o.SeqID,
		})
	})
	return s
}

func (w *Writer) Write(s *ShardSnapshot) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return err
	}

	final := filepath.Join(w.Dir, fmt.Sprintf("shard-%03d.snap", s.Shard))
	tmp := final + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(s); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, final)
}
