package journal

import "time"

type RecordKind uint8

const (
	RecordTrade RecordKind = iota
	RecordCancel
	RecordReject
)

// Record is one framed journal entry. Data carries the wire-encoded
// execution report; Seq is the publisher's global write sequence.
type Record struct {
	Kind RecordKind
	Seq  uint64
	Time int64
	Data []byte
}

func NewRecord(kind RecordKind, seq uint64, data []byte) *Record {
	return &Record{
		Kind: kind,
		Seq:  seq,
		Time: time.Now().UnixNano(),
		Data: data,
	}
}
