package engine

// Router maps instruments to shards. The assignment table is built
// once at startup and never changes, so lookups are a plain map read
// from any goroutine.
type Router struct {
	bySymbol map[string]*Shard
	shards   []*Shard
}

// NewRouter builds the routing table from each shard's symbol list.
func NewRouter(shards []*Shard, assignment map[int][]string) *Router {
	r := &Router{
		bySymbol: make(map[string]*Shard),
		shards:   shards,
	}
	for _, s := range shards {
		for _, sym := range assignment[s.ID()] {
			r.bySymbol[sym] = s
		}
	}
	return r
}

// Route resolves the owning shard for a symbol.
func (r *Router) Route(symbol string) (*Shard, error) {
	s, ok := r.bySymbol[symbol]
	if !ok {
		return nil, ErrUnknownInstrument
	}
	return s, nil
}

// Forward hands an event to its shard's ingress ring. Backpressure is
// the caller's problem: a full ring surfaces as ErrQueueFull instead
// of blocking the submitting goroutine.
func (r *Router) Forward(ev Event) error {
	s, err := r.Route(ev.Symbol)
	if err != nil {
		return err
	}
	if s.Halted() {
		return ErrHalted
	}
	if !s.ingress.TryPush(ev) {
		return ErrQueueFull
	}
	s.Wake()
	return nil
}

// Shards returns the fixed shard set, in ID order.
func (r *Router) Shards() []*Shard { return r.shards }
