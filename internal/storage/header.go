package storage

import "encoding/binary"

const headerSize = 100

var magicHeaderString = [16]byte{
	'S', 'Q', 'L', 'i', 't', 'e', ' ', 'f', 'o', 'r', 'm', 'a', 't', ' ', '3', 0,
}

// sqliteVersionNumber is the "version-valid-for" reference version this
// engine claims compatibility with when it formats a fresh database.
const sqliteVersionNumber = 3042000

// FileHeader is the fixed 100-byte database file header that opens every
// SQLite file (and, on page 1, precedes the B-tree page header at offset
// 100 rather than offset 0).
type FileHeader struct {
	PageSize             uint32
	WriteVersion         byte
	ReadVersion          byte
	ReservedSpace        byte
	MaxPayloadFraction   byte
	MinPayloadFraction   byte
	LeafPayloadFraction  byte
	FileChangeCounter    uint32
	DatabaseSizePages    uint32
	FreelistHead         uint32
	FreelistCount        uint32
	SchemaCookie         uint32
	SchemaFormat         uint32
	PageCacheSize        uint32
	LargestRootBTreePage uint32
	TextEncoding         uint32
	UserVersion          uint32
	IncrementalVacuum    uint32
	ApplicationID        uint32
	VersionValidFor      uint32
	SqliteVersionNumber  uint32
}

// NewFileHeader returns the header for a freshly created, empty database
// with the given page size: database_size = 1 (just page 1, an empty
// schema table), no freelist, schema format 4, UTF-8 text encoding.
func NewFileHeader(pageSize uint32) FileHeader {
	return FileHeader{
		PageSize:            pageSize,
		WriteVersion:        1,
		ReadVersion:         1,
		ReservedSpace:       0,
		MaxPayloadFraction:  64,
		MinPayloadFraction:  32,
		LeafPayloadFraction: 32,
		FileChangeCounter:   0,
		DatabaseSizePages:   1,
		FreelistHead:        0,
		FreelistCount:       0,
		SchemaCookie:        0,
		SchemaFormat:        4,
		TextEncoding:        1,
		VersionValidFor:     sqliteVersionNumber,
		SqliteVersionNumber: sqliteVersionNumber,
	}
}

// WriteTo encodes h into a 100-byte buffer.
func (h FileHeader) WriteTo(buf []byte) {
	if len(buf) != headerSize {
		panic("storage: file header buffer must be exactly 100 bytes")
	}
	copy(buf, magicHeaderString[:])

	// page_size is stored little-endian as page_size/256, except the
	// historical 65536 special case where the on-disk value 1 means
	// 65536 (see the reference format's own note on this field).
	if h.PageSize == 1<<16 {
		binary.BigEndian.PutUint16(buf[16:18], 1)
	} else {
		binary.BigEndian.PutUint16(buf[16:18], uint16(h.PageSize))
	}

	buf[18] = h.WriteVersion
	buf[19] = h.ReadVersion
	buf[20] = h.ReservedSpace
	buf[21] = h.MaxPayloadFraction
	buf[22] = h.MinPayloadFraction
	buf[23] = h.LeafPayloadFraction
	binary.BigEndian.PutUint32(buf[24:28], h.FileChangeCounter)
	binary.BigEndian.PutUint32(buf[28:32], h.DatabaseSizePages)
	binary.BigEndian.PutUint32(buf[32:36], h.FreelistHead)
	binary.BigEndian.PutUint32(buf[36:40], h.FreelistCount)
	binary.BigEndian.PutUint32(buf[40:44], h.SchemaCookie)
	binary.BigEndian.PutUint32(buf[44:48], h.SchemaFormat)
	binary.BigEndian.PutUint32(buf[48:52], h.PageCacheSize)
	binary.BigEndian.PutUint32(buf[52:56], h.LargestRootBTreePage)
	binary.BigEndian.PutUint32(buf[56:60], h.TextEncoding)
	binary.BigEndian.PutUint32(buf[60:64], h.UserVersion)
	binary.BigEndian.PutUint32(buf[64:68], h.IncrementalVacuum)
	binary.BigEndian.PutUint32(buf[68:72], h.ApplicationID)
	// 72-91: reserved, must be zero.
	binary.BigEndian.PutUint32(buf[92:96], h.VersionValidFor)
	binary.BigEndian.PutUint32(buf[96:100], h.SqliteVersionNumber)
}

// ParseFileHeader decodes and validates the 100-byte header. Any
// violation of the required invariants (§3) is a FormatError.
func ParseFileHeader(buf []byte) (FileHeader, error) {
	if len(buf) != headerSize {
		return FileHeader{}, newFormatError("file header is not 100 bytes", nil)
	}
	if string(buf[0:16]) != string(magicHeaderString[:]) {
		return FileHeader{}, newFormatError("bad magic header string", nil)
	}

	rawPageSize := binary.BigEndian.Uint16(buf[16:18])
	var pageSize uint32
	if rawPageSize == 1 {
		pageSize = 1 << 16
	} else {
		pageSize = uint32(rawPageSize)
	}
	if pageSize < 512 || pageSize&(pageSize-1) != 0 {
		return FileHeader{}, newFormatError("page size is not a power of two between 512 and 65536", nil)
	}

	h := FileHeader{
		PageSize:             pageSize,
		WriteVersion:         buf[18],
		ReadVersion:          buf[19],
		ReservedSpace:        buf[20],
		MaxPayloadFraction:   buf[21],
		MinPayloadFraction:   buf[22],
		LeafPayloadFraction:  buf[23],
		FileChangeCounter:    binary.BigEndian.Uint32(buf[24:28]),
		DatabaseSizePages:    binary.BigEndian.Uint32(buf[28:32]),
		FreelistHead:         binary.BigEndian.Uint32(buf[32:36]),
		FreelistCount:        binary.BigEndian.Uint32(buf[36:40]),
		SchemaCookie:         binary.BigEndian.Uint32(buf[40:44]),
		SchemaFormat:         binary.BigEndian.Uint32(buf[44:48]),
		PageCacheSize:        binary.BigEndian.Uint32(buf[48:52]),
		LargestRootBTreePage: binary.BigEndian.Uint32(buf[52:56]),
		TextEncoding:         binary.BigEndian.Uint32(buf[56:60]),
		UserVersion:          binary.BigEndian.Uint32(buf[60:64]),
		IncrementalVacuum:    binary.BigEndian.Uint32(buf[64:68]),
		ApplicationID:        binary.BigEndian.Uint32(buf[68:72]),
		VersionValidFor:      binary.BigEndian.Uint32(buf[92:96]),
		SqliteVersionNumber:  binary.BigEndian.Uint32(buf[96:100]),
	}

	if h.WriteVersion != 1 || h.ReadVersion != 1 {
		return FileHeader{}, newFormatError("only legacy (non-WAL) write/read versions are supported", nil)
	}
	if h.ReservedSpace != 0 {
		return FileHeader{}, newFormatError("reserved space per page must be zero", nil)
	}
	if h.MaxPayloadFraction != 64 || h.MinPayloadFraction != 32 || h.LeafPayloadFraction != 32 {
		return FileHeader{}, newFormatError("payload fractions must be 64/32/32", nil)
	}
	if h.TextEncoding != 1 {
		return FileHeader{}, newFormatError("only UTF-8 text encoding is supported", nil)
	}
	if h.SchemaFormat != 4 {
		return FileHeader{}, newFormatError("only schema format 4 is supported", nil)
	}
	if h.LargestRootBTreePage != 0 {
		return FileHeader{}, newFormatError("auto-vacuum databases are not supported", nil)
	}
	if h.IncrementalVacuum != 0 {
		return FileHeader{}, newFormatError("incremental vacuum mode is not supported", nil)
	}

	return h, nil
}
