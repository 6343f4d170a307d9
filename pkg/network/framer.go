package network

import (
	"bytes"
	"encoding/binary"

	"go.uber.org/zap"

	"github.com/blaesus/ctbc/pkg/wire"
)

// Framer turns a raw, possibly-fragmented TCP byte stream into discrete,
// checksum-verified messages. It owns a single fixed-capacity buffer per
// peer and never allocates per message: bytes are shifted down in place as
// frames are consumed, the same way the original libuv implementation
// reused one stack buffer per connection.
//
// A header is only parsed once all HeaderSize bytes of it are present in
// the buffer; a partial header is left untouched until more data arrives,
// even if enough bytes exist to read a shorter prefix of it. This matters
// at connection start and after any resync: reading ahead of a complete
// header risks interpreting padding or a still-incoming magic as a length
// field.
type Framer struct {
	buf       []byte
	len       int
	magic     wire.Magic
	magicLE   [4]byte
	log       *zap.Logger
}

// NewFramer creates a Framer with the given buffer capacity, the largest
// single frame (header + payload) it will ever accept.
func NewFramer(capacity int, magic wire.Magic, log *zap.Logger) *Framer {
	var magicLE [4]byte
	binary.LittleEndian.PutUint32(magicLE[:], uint32(magic))
	return &Framer{
		buf:     make([]byte, capacity),
		magic:   magic,
		magicLE: magicLE,
		log:     log,
	}
}

// Capacity returns the framer's fixed buffer size.
func (f *Framer) Capacity() int { return len(f.buf) }

// Buffered returns how many bytes are currently held, awaiting a complete
// frame.
func (f *Framer) Buffered() int { return f.len }

// Feed appends a freshly-read TCP segment to the buffer and extracts every
// complete message it can. onMessage is invoked once per successfully
// decoded message, in arrival order. Feed returns ErrFrameOverflow if
// segment would not fit in the remaining capacity, and ErrOversizeFrame if
// a header declares a frame larger than the buffer can ever hold; both
// indicate the caller should close and replace the connection, since the
// buffer can no longer be trusted to resynchronize on its own.
func (f *Framer) Feed(segment []byte, onMessage func(*wire.Message)) error {
	if f.len+len(segment) > len(f.buf) {
		return ErrFrameOverflow
	}
	copy(f.buf[f.len:], segment)
	f.len += len(segment)

	for {
		offset := f.findMagic()
		if offset < 0 {
			return nil
		}
		if offset > 0 {
			f.log.Debug("framer resynced past non-magic bytes", zap.Int("skipped", offset))
			f.shift(offset)
		}

		if f.len < wire.HeaderSize {
			return nil
		}
		header := wire.ParseHeader(f.buf[:wire.HeaderSize])
		frameSize := wire.HeaderSize + int(header.Length)
		if frameSize > len(f.buf) {
			return ErrOversizeFrame
		}
		if f.len < frameSize {
			return nil
		}

		body := f.buf[wire.HeaderSize:frameSize]
		if !wire.VerifyChecksum(header, body) {
			f.log.Warn("framer discarding checksum-mismatched frame",
				zap.String("command", header.CommandString()))
			f.shift(frameSize)
			continue
		}
		// Decode copies everything it keeps, so the frame can be shifted
		// out of the buffer as soon as it returns.
		msg, err := wire.Decode(header, body)
		f.shift(frameSize)
		if err != nil {
			f.log.Warn("framer discarding undecodable frame",
				zap.String("command", header.CommandString()), zap.Error(err))
			continue
		}
		onMessage(msg)
	}
}

// findMagic returns the offset of the next occurrence of the network magic
// in the buffered bytes, or -1 if none is present yet.
func (f *Framer) findMagic() int {
	return bytes.Index(f.buf[:f.len], f.magicLE[:])
}

// shift discards the first n bytes, compacting the remainder to the front
// of the buffer. This is the in-place equivalent of the original's memmove.
func (f *Framer) shift(n int) {
	copy(f.buf, f.buf[n:f.len])
	f.len -= n
}
