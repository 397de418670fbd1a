package storage

import (
	"testing"

	"github.com/kr/pretty"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRecord_RoundTrip(t *testing.T) {
	r := require.New(t)
	values := []Value{
		NullValue(),
		IntValue(0),
		IntValue(1),
		IntValue(-1),
		IntValue(127),
		IntValue(128),
		IntValue(1 << 40),
		FloatValue(3.25),
		BlobValue([]byte{0xde, 0xad, 0xbe, 0xef}),
		TextValue("hello, world"),
	}

	encoded := EncodeRecord(values)
	decoded, err := DecodeRecord(encoded)
	r.NoError(err)

	if diff := pretty.Diff(values, decoded); len(diff) != 0 {
		t.Fatalf("record round trip mismatch: %v", diff)
	}
}

func TestEncodeInt_ChoosesNarrowestEncoding(t *testing.T) {
	cases := []struct {
		n            int64
		wantCode     int64
		wantEncLen   int
	}{
		{0, 8, 0},
		{1, 9, 0},
		{42, 1, 1},
		{-42, 1, 1},
		{300, 2, 2},
		{1 << 20, 3, 3},
		{1 << 30, 4, 4},
		{1 << 40, 5, 6},
		{1 << 60, 6, 8},
	}
	for _, c := range cases {
		code, enc := encodeInt(c.n)
		require.Equal(t, c.wantCode, code, "n=%d", c.n)
		require.Len(t, enc, c.wantEncLen, "n=%d", c.n)
	}
}

func TestDecodeRecord_RejectsTruncatedHeader(t *testing.T) {
	_, err := DecodeRecord([]byte{200})
	require.Error(t, err)
}

func TestDecodeRecord_RejectsReservedSerialType(t *testing.T) {
	// header length 2, one serial-type code byte: 10 (reserved).
	_, err := DecodeRecord([]byte{2, 10})
	require.Error(t, err)
}

func TestDecodeRecord_EmptyRecordIsEmptyValues(t *testing.T) {
	r := require.New(t)
	encoded := EncodeRecord(nil)
	values, err := DecodeRecord(encoded)
	r.NoError(err)
	r.Empty(values)
}

func TestValue_AccessorsRejectWrongKind(t *testing.T) {
	r := require.New(t)
	v := IntValue(5)
	_, ok := v.AsText()
	r.False(ok)
	_, ok = v.AsFloat()
	r.False(ok)
	_, ok = v.AsBlob()
	r.False(ok)
	n, ok := v.AsInt()
	r.True(ok)
	r.Equal(int64(5), n)
}
