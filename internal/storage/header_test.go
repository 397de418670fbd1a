package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileHeader_RoundTrip(t *testing.T) {
	r := require.New(t)
	h := NewFileHeader(4096)

	var buf [headerSize]byte
	h.WriteTo(buf[:])

	got, err := ParseFileHeader(buf[:])
	r.NoError(err)
	r.Equal(h, got)
}

func TestFileHeader_65536PageSizeSpecialCase(t *testing.T) {
	r := require.New(t)
	h := NewFileHeader(1 << 16)

	var buf [headerSize]byte
	h.WriteTo(buf[:])
	r.Equal(byte(0), buf[16])
	r.Equal(byte(1), buf[17])

	got, err := ParseFileHeader(buf[:])
	r.NoError(err)
	r.Equal(uint32(1<<16), got.PageSize)
}

func TestParseFileHeader_RejectsShortBuffer(t *testing.T) {
	_, err := ParseFileHeader(make([]byte, 50))
	require.Error(t, err)
}

func TestParseFileHeader_RejectsBadMagic(t *testing.T) {
	var buf [headerSize]byte
	h := NewFileHeader(4096)
	h.WriteTo(buf[:])
	buf[0] = 'X'

	_, err := ParseFileHeader(buf[:])
	require.Error(t, err)
}

func TestParseFileHeader_RejectsNonPowerOfTwoPageSize(t *testing.T) {
	var buf [headerSize]byte
	h := NewFileHeader(4096)
	h.WriteTo(buf[:])
	buf[16], buf[17] = 0, 100 // 100 is not a power of two

	_, err := ParseFileHeader(buf[:])
	require.Error(t, err)
}

func TestParseFileHeader_RejectsAutoVacuum(t *testing.T) {
	var buf [headerSize]byte
	h := NewFileHeader(4096)
	h.LargestRootBTreePage = 5
	h.WriteTo(buf[:])

	_, err := ParseFileHeader(buf[:])
	require.Error(t, err)
}

func TestParseFileHeader_RejectsNonZeroReservedSpace(t *testing.T) {
	var buf [headerSize]byte
	h := NewFileHeader(4096)
	h.WriteTo(buf[:])
	buf[20] = 8

	_, err := ParseFileHeader(buf[:])
	require.Error(t, err)
}
