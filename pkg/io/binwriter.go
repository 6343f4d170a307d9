package io

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"reflect"
)

// errDrained marks a BufBinWriter whose buffer has already been read out via
// Bytes(); writing or reading it again is a programming error.
var errDrained = errors.New("io: buffer already drained")

// Serializable is implemented by anything that can write and read itself
// through a BinWriter/BinReader pair.
type Serializable interface {
	EncodeBinary(w *BinWriter)
	DecodeBinary(r *BinReader)
}

// BinWriter wraps an io.Writer, remembering the first error encountered so
// that callers can chain writes without checking after every call.
type BinWriter struct {
	w   io.Writer
	Err error
}

// NewBinWriterFromIO creates a BinWriter around an arbitrary io.Writer.
func NewBinWriterFromIO(iow io.Writer) *BinWriter {
	return &BinWriter{w: iow}
}

// WriteLE writes v to the underlying stream in little-endian order.
func (w *BinWriter) WriteLE(v interface{}) {
	if w.Err != nil {
		return
	}
	w.Err = binary.Write(w.w, binary.LittleEndian, v)
}

// WriteBE writes v to the underlying stream in big-endian order.
func (w *BinWriter) WriteBE(v interface{}) {
	if w.Err != nil {
		return
	}
	w.Err = binary.Write(w.w, binary.BigEndian, v)
}

// WriteB writes a single byte.
func (w *BinWriter) WriteB(v byte) {
	w.WriteLE(v)
}

// WriteBytes writes a raw slice with no length prefix.
func (w *BinWriter) WriteBytes(b []byte) {
	if w.Err != nil {
		return
	}
	_, w.Err = w.w.Write(b)
}

// WriteVarUint writes val using Bitcoin-style variable-length encoding:
// values below 0xfd are a single byte, larger values are prefixed by a
// marker byte (0xfd/0xfe/0xff) selecting a 16/32/64-bit little-endian field.
func (w *BinWriter) WriteVarUint(val uint64) {
	if w.Err != nil {
		return
	}
	switch {
	case val < 0xfd:
		w.WriteLE(uint8(val))
	case val <= 0xffff:
		w.WriteLE(uint8(0xfd))
		w.WriteLE(uint16(val))
	case val <= 0xffffffff:
		w.WriteLE(uint8(0xfe))
		w.WriteLE(uint32(val))
	default:
		w.WriteLE(uint8(0xff))
		w.WriteLE(val)
	}
}

// WriteVarBytes writes b prefixed with its varuint-encoded length.
func (w *BinWriter) WriteVarBytes(b []byte) {
	w.WriteVarUint(uint64(len(b)))
	w.WriteBytes(b)
}

// WriteString writes s prefixed with its varuint-encoded length.
func (w *BinWriter) WriteString(s string) {
	w.WriteVarBytes([]byte(s))
}

// encodable is the write half of Serializable; WriteArray only needs that.
type encodable interface {
	EncodeBinary(w *BinWriter)
}

// WriteArray writes a slice or fixed-size array, prefixed by its
// varuint-encoded length, encoding every element through its EncodeBinary
// method.
func (w *BinWriter) WriteArray(arr interface{}) {
	switch val := reflect.ValueOf(arr); val.Kind() {
	case reflect.Slice, reflect.Array:
		w.WriteVarUint(uint64(val.Len()))
		if w.Err != nil {
			return
		}
		for i := 0; i < val.Len(); i++ {
			item := val.Index(i)
			ser, ok := item.Interface().(encodable)
			if !ok && item.CanAddr() {
				ser, ok = item.Addr().Interface().(encodable)
			}
			if !ok {
				panic("io: WriteArray: element does not implement EncodeBinary")
			}
			ser.EncodeBinary(w)
			if w.Err != nil {
				return
			}
		}
	default:
		panic("io: WriteArray: argument is not a slice or array")
	}
}

// BufBinWriter is a BinWriter backed by its own growable buffer, matching
// the neo-go convention of "allocate, encode, drain, reuse".
type BufBinWriter struct {
	*BinWriter
	buf *bytes.Buffer
}

// NewBufBinWriter creates a BufBinWriter with a fresh backing buffer.
func NewBufBinWriter() *BufBinWriter {
	b := new(bytes.Buffer)
	return &BufBinWriter{BinWriter: NewBinWriterFromIO(b), buf: b}
}

// Len returns the number of bytes written so far.
func (bw *BufBinWriter) Len() int {
	return bw.buf.Len()
}

// Bytes returns a copy of the written bytes and drains the writer: any
// error already recorded makes it return nil, and a successful call marks
// the writer drained so it cannot be silently reused without Reset.
func (bw *BufBinWriter) Bytes() []byte {
	if bw.Err != nil {
		return nil
	}
	b := bw.buf.Bytes()
	res := make([]byte, len(b))
	copy(res, b)
	bw.Err = errDrained
	return res
}

// Reset clears the writer's error and buffer so it can be reused.
func (bw *BufBinWriter) Reset() {
	bw.Err = nil
	bw.buf.Reset()
}
