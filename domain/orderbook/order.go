package orderbook

type Side int
type OrderType int
type Status int

const (
	Bid Side = iota
	Ask
)

const (
	Limit OrderType = iota
	Market
)

const (
	Active Status = iota
	Inactive
)

// Order is a resting or incoming order. Qty is the remaining quantity,
// Orig the originally submitted one. SeqID is the arrival sequence
// assigned by the owning shard at dequeue time; time priority is defined
// over it, not over wall-clock arrival.
type Order struct {
	ID    uint64
	Price int64
	Qty   int64
	Orig  int64
	SeqID uint64
	Owner uint64

	Side   Side
	Type   OrderType
	Status Status

	next *Order
	prev *Order
}

// Reset zeroes the order for pool reuse.
func (o *Order) Reset() { *o = Order{} }

// Filled returns the quantity traded away so far.
func (o *Order) Filled() int64 { return o.Orig - o.Qty }

// Next returns the order queued behind o at its price level.
func (o *Order) Next() *Order { return o.next }
