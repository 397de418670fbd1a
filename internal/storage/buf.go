package storage

import (
	"encoding/binary"
	"math"
)

// ByteView is a consume-oriented cursor over a byte slice. Every method
// that advances the cursor panics on underflow: callers are expected to
// have parsed a length prefix first that guarantees sufficiency, exactly
// like the rest of this package's cell and record decoders.
type ByteView struct {
	data []byte
}

// NewByteView wraps data for sequential consumption. It does not copy.
func NewByteView(data []byte) *ByteView {
	return &ByteView{data: data}
}

// Len reports the number of unconsumed bytes remaining.
func (v *ByteView) Len() int { return len(v.data) }

// Remaining returns the unconsumed tail without advancing the cursor.
func (v *ByteView) Remaining() []byte { return v.data }

// ConsumeBytes advances the cursor by n and returns the consumed slice.
func (v *ByteView) ConsumeBytes(n int) []byte {
	if n < 0 || n > len(v.data) {
		panic("storage: byte view underflow")
	}
	out := v.data[:n]
	v.data = v.data[n:]
	return out
}

// Truncate caps the view's length to n bytes, discarding everything past
// that point.
func (v *ByteView) Truncate(n int) {
	if n < 0 || n > len(v.data) {
		panic("storage: truncate beyond view length")
	}
	v.data = v.data[:n]
}

// ConsumeVarint reads and advances past a varint.
func (v *ByteView) ConsumeVarint() int64 {
	val, n := ReadVarint(v.data)
	v.ConsumeBytes(n)
	return val
}

func (v *ByteView) ConsumeUint8() uint8 {
	return v.ConsumeBytes(1)[0]
}

func (v *ByteView) ConsumeUint16() uint16 {
	return binary.BigEndian.Uint16(v.ConsumeBytes(2))
}

func (v *ByteView) ConsumeUint32() uint32 {
	return binary.BigEndian.Uint32(v.ConsumeBytes(4))
}

func (v *ByteView) ConsumeUint64() uint64 {
	return binary.BigEndian.Uint64(v.ConsumeBytes(8))
}

func (v *ByteView) ConsumeFloat64() float64 {
	return math.Float64frombits(v.ConsumeUint64())
}

// BufBuilder is an append-oriented counterpart to ByteView.
type BufBuilder struct {
	buf []byte
}

// NewBufBuilder returns an empty builder.
func NewBufBuilder() *BufBuilder {
	return &BufBuilder{}
}

// Bytes returns the accumulated byte slice. The caller must not retain
// and mutate it across further writes to the builder.
func (b *BufBuilder) Bytes() []byte { return b.buf }

func (b *BufBuilder) Len() int { return len(b.buf) }

func (b *BufBuilder) WriteVarint(v int64) {
	b.buf = WriteVarint(b.buf, v)
}

func (b *BufBuilder) WriteBytes(data []byte) {
	b.buf = append(b.buf, data...)
}

func (b *BufBuilder) WriteUint8(v uint8) {
	b.buf = append(b.buf, v)
}

func (b *BufBuilder) WriteUint16(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

func (b *BufBuilder) WriteUint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

func (b *BufBuilder) WriteUint64(v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

func (b *BufBuilder) WriteFloat64(v float64) {
	b.WriteUint64(math.Float64bits(v))
}
