package orderbook

// PriceLevel is a FIFO queue of resting orders at a single price.
// TotalQty aggregates remaining quantity for depth queries.
type PriceLevel struct {
	Price int64

	head *Order
	tail *Order

	TotalQty   int64
	OrderCount int
}

// Enqueue appends o at the tail. Later arrivals always queue behind
// earlier ones; that is the whole of time priority.
func (p *PriceLevel) Enqueue(o *Order) {
	if p.head == nil {
		p.head = o
		p.tail = o
	} else {
		p.tail.next = o
		o.prev = p.tail
		p.tail = o
	}
	p.TotalQty += o.Qty
	p.OrderCount++
}

// Unlink removes o from anywhere in the level. o.Qty must already hold
// the remaining quantity to subtract from the aggregate.
func (p *PriceLevel) Unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		p.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		p.tail = o.prev
	}
	o.next = nil
	o.prev = nil
	p.TotalQty -= o.Qty
	p.OrderCount--
}

// Reduce subtracts traded quantity from the aggregate without touching
// the links. Called once per fill against a resting maker.
func (p *PriceLevel) Reduce(qty int64) {
	p.TotalQty -= qty
}

// Empty reports whether no orders rest at this price.
func (p *PriceLevel) Empty() bool { return p.head == nil }

// Head returns the earliest-arrived resting order.
func (p *PriceLevel) Head() *Order { return p.head }
