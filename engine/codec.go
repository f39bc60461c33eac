package engine

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrCorruptReport is returned when a serialized report cannot be
// decoded.
var ErrCorruptReport = errors.New("engine: corrupt report payload")

// Report wire format: a protobuf message encoded field by field with
// protowire. Field numbers are part of the journal/outbox format and
// must not be renumbered.
const (
	fieldKind      = 1
	fieldTradeID   = 2
	fieldMakerID   = 3
	fieldTakerID   = 4
	fieldSymbol    = 5
	fieldPrice     = 6
	fieldQty       = 7
	fieldShardSeq  = 8
	fieldTimestamp = 9
	fieldReason    = 10
)

// MarshalBinary encodes the report for the journal, outbox and Kafka.
func (r *Report) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 64+len(r.Symbol)+len(r.Reason))
	buf = protowire.AppendTag(buf, fieldKind, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(r.Kind))
	buf = protowire.AppendTag(buf, fieldTradeID, protowire.VarintType)
	buf = protowire.AppendVarint(buf, r.TradeID)
	buf = protowire.AppendTag(buf, fieldMakerID, protowire.VarintType)
	buf = protowire.AppendVarint(buf, r.MakerID)
	buf = protowire.AppendTag(buf, fieldTakerID, protowire.VarintType)
	buf = protowire.AppendVarint(buf, r.TakerID)
	buf = protowire.AppendTag(buf, fieldSymbol, protowire.BytesType)
	buf = protowire.AppendString(buf, r.Symbol)
	buf = protowire.AppendTag(buf, fieldPrice, protowire.VarintType)
	buf = protowire.AppendVarint(buf, protowire.EncodeZigZag(r.Price))
	buf = protowire.AppendTag(buf, fieldQty, protowire.VarintType)
	buf = protowire.AppendVarint(buf, protowire.EncodeZigZag(r.Qty))
	buf = protowire.AppendTag(buf, fieldShardSeq, protowire.VarintType)
	buf = protowire.AppendVarint(buf, r.ShardSeq)
	buf = protowire.AppendTag(buf, fieldTimestamp, protowire.VarintType)
	buf = protowire.AppendVarint(buf, protowire.EncodeZigZag(r.Timestamp))
	if r.Reason != "" {
		buf = protowire.AppendTag(buf, fieldReason, protowire.BytesType)
		buf = protowire.AppendString(buf, r.Reason)
	}
	return buf, nil
}

// UnmarshalBinary decodes a report produced by MarshalBinary. Unknown
// fields are skipped so the format can grow.
func (r *Report) UnmarshalBinary(data []byte) error {
	*r = Report{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return ErrCorruptReport
		}
		data = data[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return ErrCorruptReport
			}
			data = data[n:]
			switch num {
			case fieldKind:
				r.Kind = ReportKind(v)
			case fieldTradeID:
				r.TradeID = v
			case fieldMakerID:
				r.MakerID = v
			case fieldTakerID:
				r.TakerID = v
			case fieldPrice:
				r.Price = protowire.DecodeZigZag(v)
			case fieldQty:
				r.Qty = protowire.DecodeZigZag(v)
			case fieldShardSeq:
				r.ShardSeq = v
			case fieldTimestamp:
				r.Timestamp = protowire.DecodeZigZag(v)
			}
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return ErrCorruptReport
			}
			data = data[n:]
			switch num {
			case fieldSymbol:
				r.Symbol = string(v)
			case fieldReason:
				r.Reason = string(v)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return ErrCorruptReport
			}
			data = data[n:]
		}
	}
	return nil
}
