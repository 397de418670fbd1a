package storage

import "math/bits"

// ReadVarint decodes the SQLite variable-length integer at the start of
// buf, returning the decoded value and the number of bytes consumed
// (always between 1 and 9). buf must be non-empty and must contain a
// complete varint; ReadVarint panics otherwise, since every call site
// first parses a length prefix that guarantees sufficiency.
//
// The wire format is big-endian: each of the first eight bytes
// contributes its low seven bits, with the high bit set on every byte
// but the last to signal continuation. If all eight of those bytes set
// the continuation bit, a ninth byte contributes all eight of its bits.
// Unless the full nine bytes were read, the accumulated value occupies
// fewer than 64 bits and must be sign-extended from that width before
// being reinterpreted as a two's complement int64 — this is what lets a
// single byte like 0x7f decode back to -1.
func ReadVarint(buf []byte) (value int64, consumed int) {
	if len(buf) == 0 {
		panic("storage: ReadVarint called on empty slice")
	}

	var acc uint64
	for i := 0; i < 8; i++ {
		if i >= len(buf) {
			panic("storage: truncated varint")
		}
		b := buf[i]
		acc = (acc << 7) | uint64(b&0x7f)
		if b&0x80 == 0 {
			return signExtend(acc, 7*(i+1)), i + 1
		}
	}

	// Eight continuation bytes consumed without termination: the ninth
	// byte contributes all eight of its bits, filling the accumulator to
	// exactly 64 bits, so no further sign extension is needed.
	if len(buf) < 9 {
		panic("storage: truncated varint")
	}
	acc = (acc << 8) | uint64(buf[8])
	return int64(acc), 9
}

// signExtend reinterprets the low `width` bits of acc as a two's
// complement integer of that width, sign-extended to a full int64.
func signExtend(acc uint64, width int) int64 {
	if width >= 64 {
		return int64(acc)
	}
	signBit := uint64(1) << (width - 1)
	if acc&signBit != 0 {
		acc |= ^uint64(0) << width
	}
	return int64(acc)
}

// WriteVarint appends the SQLite varint encoding of v to out and returns
// the extended slice. The byte length is chosen as the narrowest that
// round-trips v: the magnitude of v determines how many 7-bit groups are
// needed (with one bit of headroom so the continuation scheme's own top
// bit of the final byte cannot be mistaken for the value's sign bit);
// magnitudes needing 57 bits or more fall back to the fixed 9-byte form
// that packs the full 64-bit two's complement pattern instead.
func WriteVarint(out []byte, v int64) []byte {
	uv := uint64(v)
	n := varintLen(v)

	if n >= 9 {
		var buf [9]byte
		for i := 0; i < 9; i++ {
			j := 8 - i
			if j == 0 {
				buf[i] = byte(uv)
			} else {
				buf[i] = byte((uv>>(7*uint(j)+1))&0x7f) | 0x80
			}
		}
		return append(out, buf[:]...)
	}

	var buf [8]byte
	for i := 0; i < n; i++ {
		j := n - i - 1
		if j == 0 {
			buf[i] = byte(uv & 0x7f)
		} else {
			buf[i] = byte((uv>>(7*uint(j)))&0x7f) | 0x80
		}
	}
	return append(out, buf[:n]...)
}

// varintLen returns the number of bytes WriteVarint will emit for v; a
// result of 9 or more means "use the fixed 9-byte form".
func varintLen(v int64) int {
	bitsNeeded := 65 - bits.LeadingZeros64(absMagnitude(v))
	n := bitsNeeded / 7
	if bitsNeeded%7 != 0 {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}

// absMagnitude returns |v| as a uint64, handling math.MinInt64 (whose
// magnitude does not fit in an int64) by wrapping to its two's
// complement absolute value, exactly as the reference encoder does.
func absMagnitude(v int64) uint64 {
	if v >= 0 {
		return uint64(v)
	}
	return -uint64(v)
}
