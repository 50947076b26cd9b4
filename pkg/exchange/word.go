package exchange

import (
	"errors"

	"github.com/robotalks/safeio/pkg/telegram"
)

// Tag identifies the message kind carried by a Word.
type Tag byte

// Tags.
const (
	TagIOData Tag = iota
	TagTimeCoord

	numTags
)

// IsValid checks the tag is known.
func (t Tag) IsValid() bool {
	return t < numTags
}

// String implements fmt.Stringer.
func (t Tag) String() string {
	switch t {
	case TagIOData:
		return "io-data"
	case TagTimeCoord:
		return "time-coord"
	}
	return "tag?"
}

// PayloadSize is large enough for both message kinds.
const PayloadSize = telegram.IODataPayloadSize

// WordSize is the encoded size: tag, sync counter, payload, CRC-16.
const WordSize = 2 + PayloadSize + telegram.CRCSize

// Word is one channel's half of a jointly produced value.
type Word struct {
	Tag     Tag
	Sync    byte
	Payload [PayloadSize]byte
}

var (
	// ErrBadWord indicates a received word failed size or CRC checks.
	ErrBadWord = errors.New("bad exchange word")
)

// EncodeWord encodes w into b, which must hold WordSize bytes.
func EncodeWord(b []byte, w *Word) {
	b[0], b[1] = byte(w.Tag), w.Sync
	copy(b[2:2+PayloadSize], w.Payload[:])
	crc := telegram.Checksum(b[:2+PayloadSize])
	b[2+PayloadSize], b[3+PayloadSize] = byte(crc), byte(crc>>8)
}

// DecodeWord decodes and checks b.
func DecodeWord(b []byte) (w Word, err error) {
	if len(b) != WordSize {
		return w, ErrBadWord
	}
	crc := uint16(b[2+PayloadSize]) | uint16(b[3+PayloadSize])<<8
	if crc != telegram.Checksum(b[:2+PayloadSize]) {
		return w, ErrBadWord
	}
	if w.Tag = Tag(b[0]); !w.Tag.IsValid() {
		return w, ErrBadWord
	}
	w.Sync = b[1]
	copy(w.Payload[:], b[2:2+PayloadSize])
	return w, nil
}
