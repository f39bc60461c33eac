package engine

import "fenrir/domain/orderbook"

// EventKind discriminates ingress events.
type EventKind uint8

const (
	KindNewLimit EventKind = iota
	KindNewMarket
	KindCancel
	// KindSnapshot is a control event: the owning shard serializes a
	// dump of its books. Routing it through ingress serializes the dump
	// against matching without any lock.
	KindSnapshot
)

// Event is the normalized ingress message. It is a plain value so queue
// hand-off copies it; no event memory is shared across threads.
type Event struct {
	Symbol    string
	OrderID   uint64
	Owner     uint64
	Price     int64
	Qty       int64
	ClientSeq uint64
	Side      orderbook.Side
	Kind      EventKind
}

// ReportKind discriminates egress reports.
type ReportKind uint8

const (
	ReportTrade ReportKind = iota
	ReportCancelAck
	ReportCancelNoop
	ReportReject
)

func (k ReportKind) String() string {
	switch k {
	case ReportTrade:
		return "trade"
	case ReportCancelAck:
		return "cancel_ack"
	case ReportCancelNoop:
		return "cancel_noop"
	case ReportReject:
		return "reject"
	default:
		return "unknown"
	}
}

// Report is the egress execution report. ShardSeq is monotonic within
// the emitting shard only. TradeID embeds the shard id in the top bits
// so ids never collide across shards.
type Report struct {
	Kind      ReportKind
	TradeID   uint64
	MakerID   uint64
	TakerID   uint64
	Symbol    string
	Price     int64
	Qty       int64
	ShardSeq  uint64
	Timestamp int64
	Reason    string // set on rejects only
}
