package journal

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"
)

type ScanHandler func(*Record) error

// Scan replays every record in the directory, segments in index order,
// and returns the last sequence seen. A torn or corrupt tail frame
// ends the scan cleanly; records before it are delivered.
func Scan(dir string, fn ScanHandler) (lastSeq uint64, err error) {
	files, err := segmentPaths(dir)
	if err != nil {
		return 0, err
	}
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return lastSeq, err
		}
		for {
			rec, err := readRecord(f)
			if err != nil {
				f.Close()
				if err == io.EOF || err == io.ErrUnexpectedEOF || err == ErrCorruptRecord {
					return lastSeq, nil
				}
				return lastSeq, err
			}
			lastSeq = rec.Seq
			if err := fn(rec); err != nil {
				f.Close()
				return lastSeq, err
			}
		}
	}
	return lastSeq, nil
}

func readRecord(r io.Reader) (*Record, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	l := binary.BigEndian.Uint32(header[17:21])
	body := make([]byte, l+4)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	payload := body[:l]
	sum := binary.BigEndian.Uint32(body[l:])
	if crc32.ChecksumIEEE(append(header, payload...)) != sum {
		return nil, ErrCorruptRecord
	}

	return &Record{
		Kind: RecordKind(header[0]),
		Seq:  binary.BigEndian.Uint64(header[1:9]),
		Time: int64(binary.BigEndian.Uint64(header[9:17])),
		Data: payload,
	}, nil
}

// maxSeqInSegment scans one segment for its highest sequence. Used
// only by TruncateBefore.
func maxSeqInSegment(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var max uint64
	for {
		header := make([]byte, headerSize)
		if _, err := io.ReadFull(f, header); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return max, nil
			}
			return max, err
		}
		if seq := binary.BigEndian.Uint64(header[1:9]); seq > max {
			max = seq
		}
		payloadLen := binary.BigEndian.Uint32(header[17:21])
		if _, err := f.Seek(int64(payloadLen+4), io.SeekCurrent); err != nil {
			return max, err
		}
	}
}
