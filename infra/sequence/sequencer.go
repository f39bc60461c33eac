package sequence

import "sync/atomic"

// Sequencer generates strictly monotonic sequence IDs. Each shard owns
// two: one for arrival sequencing, one for trade IDs. Sequences are
// per-shard only; no global order across shards exists.
type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer that will issue start+1 first.
// On a fresh start use 0; after a snapshot reload use the restored seq.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next sequence ID.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued sequence.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

// Reset sets the sequencer to a specific value. Only used after a
// snapshot reload.
func (s *Sequencer) Reset(v uint64) {
	s.next.Store(v)
}
