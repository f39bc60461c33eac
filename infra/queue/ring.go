package queue

import "sync/atomic"

// slot couples a payload with its sequence stamp. The stamp is the
// publication protocol: a producer claims position pos by advancing the
// tail, writes the value, then stores pos+1; the consumer reads a slot
// only once the stamp shows the write is complete.
type slot[T any] struct {
	seq atomic.Uint64
	val T
}

// Ring is a bounded multi-producer/single-consumer ring buffer.
// Capacity is fixed at construction (power of two) and never resized.
// Producers hand off through TryPush without ever taking a lock; the
// single consumer owns head exclusively.
type Ring[T any] struct {
	_    [64]byte // keep tail on its own cache line
	tail atomic.Uint64
	_    [56]byte
	head atomic.Uint64 // consumer-owned, but Len loads it from any goroutine
	_    [56]byte
	mask uint64
	buf  []slot[T]
}

// NewRing allocates a ring of the given capacity. Capacity must be a
// power of two so index arithmetic stays a single mask.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("queue: capacity must be >0 and a power of two")
	}
	r := &Ring[T]{
		mask: uint64(capacity - 1),
		buf:  make([]slot[T], capacity),
	}
	for i := range r.buf {
		r.buf[i].seq.Store(uint64(i))
	}
	return r
}

// TryPush enqueues v, returning false if the ring is full. Multiple
// producers may call it concurrently; each push completes in a bounded
// number of steps unless another producer claims the same slot first.
func (r *Ring[T]) TryPush(v T) bool {
	for {
		t := r.tail.Load()
		s := &r.buf[t&r.mask]
		seq := s.seq.Load()
		switch {
		case seq == t:
			if r.tail.CompareAndSwap(t, t+1) {
				s.val = v
				s.seq.Store(t + 1)
				return true
			}
			// lost the slot to another producer, retry
		case seq < t:
			return false // consumer has not reclaimed the slot: full
		default:
			// another producer already advanced past t, reload tail
		}
	}
}

// TryPop dequeues the next item, returning false if the ring is empty.
// Only the single consumer may call it.
func (r *Ring[T]) TryPop() (T, bool) {
	var zero T
	h := r.head.Load()
	s := &r.buf[h&r.mask]
	if s.seq.Load() != h+1 {
		return zero, false // producer has not published this slot yet
	}
	v := s.val
	s.val = zero
	s.seq.Store(h + uint64(len(r.buf)))
	r.head.Store(h + 1)
	return v, true
}

// Len reports the number of items currently buffered. Approximate under
// concurrent pushes; exact when producers are quiescent.
func (r *Ring[T]) Len() int {
	t := r.tail.Load()
	h := r.head.Load()
	if t < h {
		return 0
	}
	return int(t - h)
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }
