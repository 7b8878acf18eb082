package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/ssargent/binstruct/pkg/binstruct"
)

// ErrCorruptRecord is returned when stored bytes fail validation
var ErrCorruptRecord = errors.New("corrupt record")

// Stored values are framed as
//
//	[CRC32(4)][Size(4)][Timestamp(8)][Data]
//
// all little-endian. The CRC covers everything after the CRC field.
var envelopeHeader = binstruct.Must(binstruct.RawDefinition{
	"V", binstruct.Sym("crc"),
	"V", binstruct.Sym("size"),
	"Q<", binstruct.Sym("timestamp"),
})

var envelopeHeaderSize = envelopeHeader.Size()

// envelope is one stored record with its integrity metadata
type envelope struct {
	CRC32     uint32
	Timestamp uint64 // Unix nanoseconds of the last write
	Data      []byte
}

func newEnvelope(data []byte) *envelope {
	return &envelope{
		Timestamp: uint64(time.Now().UnixNano()),
		Data:      data,
	}
}

// marshal frames the data and fills in the checksum
func (e *envelope) marshal() ([]byte, error) {
	if uint64(len(e.Data)) > uint64(^uint32(0)) {
		return nil, fmt.Errorf("record of %d bytes is too large", len(e.Data))
	}
	buf := make([]byte, 0, envelopeHeaderSize+len(e.Data))
	buf, err := envelopeHeader.AppendEncode(buf, binstruct.Record{
		binstruct.Sym("crc"):       uint32(0),
		binstruct.Sym("size"):      uint32(len(e.Data)),
		binstruct.Sym("timestamp"): e.Timestamp,
	})
	if err != nil {
		return nil, err
	}
	buf = append(buf, e.Data...)

	e.CRC32 = crc32.ChecksumIEEE(buf[4:])
	binary.LittleEndian.PutUint32(buf, e.CRC32)
	return buf, nil
}

// unmarshalEnvelope parses and validates a stored value. Data aliases b.
func unmarshalEnvelope(b []byte) (*envelope, error) {
	if len(b) < envelopeHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorruptRecord, len(b))
	}
	hdr, err := envelopeHeader.Decode(b)
	if err != nil {
		return nil, err
	}

	e := &envelope{
		CRC32:     uint32(hdr[binstruct.Sym("crc")].(uint64)),
		Timestamp: hdr[binstruct.Sym("timestamp")].(uint64),
		Data:      b[envelopeHeaderSize:],
	}
	if size := hdr[binstruct.Sym("size")].(uint64); size != uint64(len(e.Data)) {
		return nil, fmt.Errorf("%w: size mismatch: %d != %d", ErrCorruptRecord, size, len(e.Data))
	}
	if sum := crc32.ChecksumIEEE(b[4:]); sum != e.CRC32 {
		return nil, fmt.Errorf("%w: CRC32 mismatch: %d != %d", ErrCorruptRecord, e.CRC32, sum)
	}
	return e, nil
}
