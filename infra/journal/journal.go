// Package journal is the append-only durability log for execution
// reports. Records are framed with a CRC trailer and written to
// size-rotated segment files; Scan replays them in write order on
// recovery.
package journal

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"os"
)

const headerSize = 1 + 8 + 8 + 4

// ErrCorruptRecord marks a frame whose CRC does not match its bytes.
// Scan stops at the first corrupt frame; everything before it is good.
var ErrCorruptRecord = errors.New("journal: corrupt record")

type Config struct {
	Dir         string
	SegmentSize int64
}

type Journal struct {
	dir      string
	segSize  int64
	current  *segment
	segIndex int
}

// Open creates the directory if needed and resumes appending to the
// newest segment.
func Open(cfg Config) (*Journal, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	idx, err := lastSegmentIndex(cfg.Dir)
	if err != nil {
		return nil, err
	}
	seg, err := openSegment(cfg.Dir, idx)
	if err != nil {
		return nil, err
	}
	return &Journal{
		dir:      cfg.Dir,
		segSize:  cfg.SegmentSize,
		current:  seg,
		segIndex: idx,
	}, nil
}

// Append frames and writes one record:
//
//	[kind:1][seq:8][time:8][len:4][payload][crc:4]
func (j *Journal) Append(r *Record) error {
	payloadLen := uint32(len(r.Data))
	buf := make([]byte, headerSize+int(payloadLen)+4)

	buf[0] = byte(r.Kind)
	binary.BigEndian.PutUint64(buf[1:9], r.Seq)
	binary.BigEndian.PutUint64(buf[9:17], uint64(r.Time))
	binary.BigEndian.PutUint32(buf[17:21], payloadLen)
	copy(buf[headerSize:], r.Data)

	crc := crc32.ChecksumIEEE(buf[:headerSize+int(payloadLen)])
	binary.BigEndian.PutUint32(buf[headerSize+int(payloadLen):], crc)

	if err := j.current.append(buf); err != nil {
		return err
	}
	if j.current.offset >= j.segSize {
		return j.rotate()
	}
	return nil
}

func (j *Journal) rotate() error {
	if err := j.current.sync(); err != nil {
		return err
	}
	_ = j.current.close()
	j.segIndex++

	seg, err := openSegment(j.dir, j.segIndex)
	if err != nil {
		return err
	}
	j.current = seg
	return nil
}

// Sync flushes the current segment to stable storage.
func (j *Journal) Sync() error {
	return j.current.sync()
}

func (j *Journal) Close() error {
	if err := j.current.sync(); err != nil {
		_ = j.current.close()
		return err
	}
	return j.current.close()
}

// TruncateBefore removes whole segments whose highest sequence is at
// or below seq. Called after a snapshot makes older reports redundant.
func (j *Journal) TruncateBefore(seq uint64) error {
	files, err := segmentPaths(j.dir)
	if err != nil {
		return err
	}
	for _, path := range files {
		maxSeq, err := maxSeqInSegment(path)
		if err != nil {
			continue
		}
		if maxSeq > 0 && maxSeq <= seq {
			_ = os.Remove(path)
		}
	}
	return nil
}
