package queue

import "sync/atomic"

// SPSC is a bounded single-producer/single-consumer ring. The producer
// owns tail, the consumer owns head; each side only loads the other's
// counter atomically. Slots carry the same sequence stamps as Ring so the
// consumer never reads a half-written value.
type SPSC[T any] struct {
	_    [64]byte
	tail atomic.Uint64 // producer-owned, Len loads it from the consumer
	_    [56]byte
	head atomic.Uint64 // consumer-owned, Len loads it from the producer
	_    [56]byte
	mask uint64
	buf  []slot[T]
}

// NewSPSC allocates an SPSC ring; capacity must be a power of two.
func NewSPSC[T any](capacity int) *SPSC[T] {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("queue: capacity must be >0 and a power of two")
	}
	q := &SPSC[T]{
		mask: uint64(capacity - 1),
		buf:  make([]slot[T], capacity),
	}
	for i := range q.buf {
		q.buf[i].seq.Store(uint64(i))
	}
	return q
}

// TryPush enqueues v, returning false if the ring is full. Wait-free:
// one stamp load, one write, one stamp store.
func (q *SPSC[T]) TryPush(v T) bool {
	t := q.tail.Load()
	s := &q.buf[t&q.mask]
	if s.seq.Load() != t {
		return false // consumer has not reclaimed the slot: full
	}
	s.val = v
	s.seq.Store(t + 1)
	q.tail.Store(t + 1)
	return true
}

// TryPop dequeues the next item, returning false if the ring is empty.
func (q *SPSC[T]) TryPop() (T, bool) {
	var zero T
	h := q.head.Load()
	s := &q.buf[h&q.mask]
	if s.seq.Load() != h+1 {
		return zero, false
	}
	v := s.val
	s.val = zero
	s.seq.Store(h + uint64(len(q.buf)))
	q.head.Store(h + 1)
	return v, true
}

// Len reports the number of buffered items; approximate while the other
// side is active.
func (q *SPSC[T]) Len() int {
	t := q.tail.Load()
	h := q.head.Load()
	if t < h {
		return 0
	}
	return int(t - h)
}

// Cap returns the fixed capacity.
func (q *SPSC[T]) Cap() int { return len(q.buf) }
