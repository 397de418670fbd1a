package storage

import (
	"encoding/binary"
	"math"
	"math/bits"
)

// ValueKind discriminates the five storage shapes a record column can
// take (§3): null, integer, float, blob, text.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindInt
	KindFloat
	KindBlob
	KindText
)

// Value is a decoded (or to-be-encoded) record column. Only the field
// matching Kind is meaningful.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Bytes []byte
}

func NullValue() Value            { return Value{Kind: KindNull} }
func IntValue(v int64) Value      { return Value{Kind: KindInt, Int: v} }
func FloatValue(v float64) Value  { return Value{Kind: KindFloat, Float: v} }
func BlobValue(b []byte) Value    { return Value{Kind: KindBlob, Bytes: b} }
func TextValue(s string) Value    { return Value{Kind: KindText, Bytes: []byte(s)} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

func (v Value) AsInt() (int64, bool) {
	if v.Kind != KindInt {
		return 0, false
	}
	return v.Int, true
}

func (v Value) AsFloat() (float64, bool) {
	if v.Kind != KindFloat {
		return 0, false
	}
	return v.Float, true
}

func (v Value) AsBlob() ([]byte, bool) {
	if v.Kind != KindBlob {
		return nil, false
	}
	return v.Bytes, true
}

func (v Value) AsText() (string, bool) {
	if v.Kind != KindText {
		return "", false
	}
	return string(v.Bytes), true
}

// DecodeRecord parses a cell payload as a record: a varint header
// length (counting itself), a run of varint serial-type codes bounded
// by that length, then the packed values in the same order (§3, §4.8).
func DecodeRecord(payload []byte) (values []Value, err error) {
	// ReadVarint panics on an empty or truncated varint; report that as a
	// DecodeError rather than letting the panic escape.
	defer func() {
		if recover() != nil {
			values, err = nil, newDecodeError("truncated varint in record header", nil)
		}
	}()

	headerLen, n := ReadVarint(payload)
	if headerLen < int64(n) {
		return nil, newFormatError("record header length is smaller than its own varint", nil)
	}
	if int(headerLen) > len(payload) {
		return nil, newDecodeError("record header length exceeds payload length", nil)
	}

	codeCursor := payload[n:headerLen]
	valueCursor := payload[headerLen:]

	for len(codeCursor) > 0 {
		code, cn := ReadVarint(codeCursor)
		codeCursor = codeCursor[cn:]

		val, consumed, err := decodeSerialValue(code, valueCursor)
		if err != nil {
			return nil, err
		}
		if consumed > len(valueCursor) {
			return nil, newDecodeError("record value runs past the end of the payload", nil)
		}
		valueCursor = valueCursor[consumed:]
		values = append(values, val)
	}
	return values, nil
}

func decodeSerialValue(code int64, buf []byte) (Value, int, error) {
	switch {
	case code == 0:
		return NullValue(), 0, nil
	case code == 1:
		if len(buf) < 1 {
			return Value{}, 0, newDecodeError("truncated i8 value", nil)
		}
		return IntValue(int64(int8(buf[0]))), 1, nil
	case code == 2:
		if len(buf) < 2 {
			return Value{}, 0, newDecodeError("truncated i16 value", nil)
		}
		return IntValue(int64(int16(binary.BigEndian.Uint16(buf[:2])))), 2, nil
	case code == 3:
		if len(buf) < 3 {
			return Value{}, 0, newDecodeError("truncated i24 value", nil)
		}
		v := int32(buf[0])<<16 | int32(buf[1])<<8 | int32(buf[2])
		if buf[0]&0x80 != 0 {
			v |= ^int32(0xffffff)
		}
		return IntValue(int64(v)), 3, nil
	case code == 4:
		if len(buf) < 4 {
			return Value{}, 0, newDecodeError("truncated i32 value", nil)
		}
		return IntValue(int64(int32(binary.BigEndian.Uint32(buf[:4])))), 4, nil
	case code == 5:
		if len(buf) < 6 {
			return Value{}, 0, newDecodeError("truncated i48 value", nil)
		}
		var v int64
		for i := 0; i < 6; i++ {
			v = v<<8 | int64(buf[i])
		}
		if buf[0]&0x80 != 0 {
			v |= ^int64(0) << 48
		}
		return IntValue(v), 6, nil
	case code == 6:
		if len(buf) < 8 {
			return Value{}, 0, newDecodeError("truncated i64 value", nil)
		}
		return IntValue(int64(binary.BigEndian.Uint64(buf[:8]))), 8, nil
	case code == 7:
		if len(buf) < 8 {
			return Value{}, 0, newDecodeError("truncated f64 value", nil)
		}
		return FloatValue(math.Float64frombits(binary.BigEndian.Uint64(buf[:8]))), 8, nil
	case code == 8:
		return IntValue(0), 0, nil
	case code == 9:
		return IntValue(1), 0, nil
	case code == 10 || code == 11:
		return Value{}, 0, newFormatError("serial type code 10/11 is reserved", nil)
	case code >= 12 && code%2 == 0:
		n := int((code - 12) / 2)
		if n > len(buf) {
			return Value{}, 0, newDecodeError("truncated blob value", nil)
		}
		return BlobValue(buf[:n]), n, nil
	case code >= 13:
		n := int((code - 13) / 2)
		if n > len(buf) {
			return Value{}, 0, newDecodeError("truncated text value", nil)
		}
		return TextValue(string(buf[:n])), n, nil
	default:
		return Value{}, 0, newFormatError("negative or invalid serial type code", nil)
	}
}

// EncodeRecord builds the wire form of values: codes first, then a
// header-length varint sized to cover itself and the codes, then the
// packed values (§4.8). Each integer is encoded with the narrowest code
// that fits.
func EncodeRecord(values []Value) []byte {
	codes := make([]int64, len(values))
	var valueBuf BufBuilder
	for i, v := range values {
		code, encoded := encodeSerialValue(v)
		codes[i] = code
		valueBuf.WriteBytes(encoded)
	}

	var codesBuf BufBuilder
	for _, c := range codes {
		codesBuf.WriteVarint(c)
	}
	codesLen := codesBuf.Len()

	// The header length is self-referential: it must count its own
	// varint encoding. Fix the point by encoding once, checking whether
	// that changed the varint's own length, and re-encoding if so — this
	// converges in at most two iterations (§4.8).
	header := codesLen + 1
	headerVarint := WriteVarint(nil, int64(header))
	if len(headerVarint) != 1 {
		header = codesLen + len(headerVarint)
		headerVarint = WriteVarint(nil, int64(header))
	}

	var out BufBuilder
	out.WriteBytes(headerVarint)
	out.WriteBytes(codesBuf.Bytes())
	out.WriteBytes(valueBuf.Bytes())
	return out.Bytes()
}

func encodeSerialValue(v Value) (int64, []byte) {
	switch v.Kind {
	case KindNull:
		return 0, nil
	case KindInt:
		return encodeInt(v.Int)
	case KindFloat:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, math.Float64bits(v.Float))
		return 7, buf
	case KindBlob:
		return int64(len(v.Bytes)*2 + 12), v.Bytes
	case KindText:
		return int64(len(v.Bytes)*2 + 13), v.Bytes
	default:
		panic("storage: unknown value kind")
	}
}

func encodeInt(n int64) (int64, []byte) {
	if n == 0 {
		return 8, nil
	}
	if n == 1 {
		return 9, nil
	}

	bitsNeeded := 65 - bits.LeadingZeros64(absMagnitude(n))
	switch {
	case bitsNeeded <= 8:
		return 1, []byte{byte(n)}
	case bitsNeeded <= 16:
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, uint16(n))
		return 2, buf
	case bitsNeeded <= 24:
		return 3, []byte{byte(n >> 16), byte(n >> 8), byte(n)}
	case bitsNeeded <= 32:
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(n))
		return 4, buf
	case bitsNeeded <= 48:
		return 5, []byte{byte(n >> 40), byte(n >> 32), byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	default:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(n))
		return 6, buf
	}
}
