package engine

import (
	"fmt"

	"go.uber.org/zap"

	"fenrir/domain/orderbook"
)

// FabricConfig shapes the whole matching fabric: how many shards, which
// symbols and cores each one gets, and the per-shard capacities.
type FabricConfig struct {
	// Assignment maps shard ID to the symbols it owns. Every shard in
	// [0, len(Assignment)) must be present.
	Assignment map[int][]string

	// Cores maps shard ID to the logical CPU it pins to. Missing or
	// negative entries run unpinned.
	Cores map[int]int

	IngressCapacity int
	EgressCapacity  int
	RetireCapacity  uint64
	SpinBudget      int

	SnapshotDir string

	Book orderbook.Config
}

// Fabric is the assembled matching core: the shard set plus the router
// in front of it.
type Fabric struct {
	router *Router
	shards []*Shard
	log    *zap.Logger
}

// NewFabric builds shards and routing from the assignment table. The
// shards are not running yet; call Start.
func NewFabric(cfg FabricConfig, log *zap.Logger) (*Fabric, error) {
	if len(cfg.Assignment) == 0 {
		return nil, fmt.Errorf("fabric: empty shard assignment")
	}
	seen := make(map[string]int)
	shards := make([]*Shard, 0, len(cfg.Assignment))
	for id := 0; id < len(cfg.Assignment); id++ {
		syms, ok := cfg.Assignment[id]
		if !ok {
			return nil, fmt.Errorf("fabric: shard %d missing from assignment", id)
		}
		for _, sym := range syms {
			if prev, dup := seen[sym]; dup {
				return nil, fmt.Errorf("fabric: symbol %s assigned to shards %d and %d", sym, prev, id)
			}
			seen[sym] = id
		}
		core := -1
		if c, ok := cfg.Cores[id]; ok {
			core = c
		}
		shards = append(shards, NewShard(ShardConfig{
			ID:              id,
			Core:            core,
			Symbols:         syms,
			IngressCapacity: cfg.IngressCapacity,
			EgressCapacity:  cfg.EgressCapacity,
			RetireCapacity:  cfg.RetireCapacity,
			SpinBudget:      cfg.SpinBudget,
			Book:            cfg.Book,
		}, log, cfg.SnapshotDir))
	}
	return &Fabric{
		router: NewRouter(shards, cfg.Assignment),
		shards: shards,
		log:    log,
	}, nil
}

// Start spawns every shard loop and waits until each one has built its
// books and finished snapshot restore.
func (f *Fabric) Start() {
	for _, s := range f.shards {
		go s.Run()
	}
	for _, s := range f.shards {
		<-s.ready
	}
	f.log.Info("fabric started", zap.Int("shards", len(f.shards)))
}

// Stop drains and joins every shard.
func (f *Fabric) Stop() {
	for _, s := range f.shards {
		s.Stop()
	}
	f.log.Info("fabric stopped")
}

// Submit validates an event and forwards it to the owning shard.
func (f *Fabric) Submit(ev Event) error {
	switch ev.Kind {
	case KindNewLimit:
		if ev.Qty <= 0 || ev.Price <= 0 {
			return ErrInvalidOrder
		}
	case KindNewMarket:
		if ev.Qty <= 0 {
			return ErrInvalidOrder
		}
	case KindCancel:
	default:
		return ErrInvalidOrder
	}
	if ev.OrderID == 0 && ev.Kind != KindCancel {
		return ErrInvalidOrder
	}
	return f.router.Forward(ev)
}

// SnapshotAll asks every shard to dump its books. The dump runs on the
// shard thread between events, so each shard's snapshot is internally
// consistent.
func (f *Fabric) SnapshotAll() {
	for _, s := range f.shards {
		if !s.ingress.TryPush(Event{Kind: KindSnapshot}) {
			f.log.Warn("snapshot request dropped, shard ingress full",
				zap.Int("shard", s.ID()))
			continue
		}
		s.Wake()
	}
}

// Stats samples every shard's counters.
func (f *Fabric) Stats() []Stats {
	out := make([]Stats, len(f.shards))
	for i, s := range f.shards {
		out[i] = s.Stats()
	}
	return out
}

// Router exposes routing for callers that resolve shards directly.
func (f *Fabric) Router() *Router { return f.router }

// Shards returns the shard set, in ID order.
func (f *Fabric) Shards() []*Shard { return f.shards }
