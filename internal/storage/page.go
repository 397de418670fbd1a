package storage

import "encoding/binary"

// PageType is the b-tree page flag byte (§3).
type PageType byte

const (
	InteriorIndex PageType = 0x02
	InteriorTable PageType = 0x05
	LeafIndex     PageType = 0x0a
	LeafTable     PageType = 0x0d
)

func (t PageType) String() string {
	switch t {
	case InteriorIndex:
		return "interior-index"
	case InteriorTable:
		return "interior-table"
	case LeafIndex:
		return "leaf-index"
	case LeafTable:
		return "leaf-table"
	default:
		return "unknown"
	}
}

func (t PageType) IsLeaf() bool {
	return t == LeafTable || t == LeafIndex
}

func (t PageType) IsInterior() bool {
	return t == InteriorTable || t == InteriorIndex
}

func (t PageType) IsTable() bool {
	return t == LeafTable || t == InteriorTable
}

const (
	leafHeaderLen     = 8
	interiorHeaderLen = 12
)

// headerOffsetFor returns the offset at which a page's b-tree header
// begins: 100 on page 1, to skip the file header prefix, 0 otherwise.
func headerOffsetFor(pageNumber int) int {
	if pageNumber == 1 {
		return headerSize
	}
	return 0
}

// BTreePage is a typed view over one page's raw bytes, exposing the
// cell-pointer array and the four cell-shape accessors (§4.5). It does
// not copy the underlying data; payload slices it returns borrow from
// the same backing array the page store (or a transaction's dirty map)
// owns.
type BTreePage struct {
	pageNumber  int
	reserved    int // header prefix: 100 on page 1, else 0
	usableSize  int // page size minus the reserved-per-page region
	data        []byte
	typ         PageType
	freeBlock   uint16
	numCells    uint16
	cellContent uint16
	fragFree    byte
	rightChild  uint32
}

// ParseBTreePage interprets data (the full page-sized buffer, including
// the 100-byte file-header prefix on page 1) as a b-tree page.
func ParseBTreePage(pageNumber int, data []byte, reservedSpace byte) (*BTreePage, error) {
	off := headerOffsetFor(pageNumber)
	if off+leafHeaderLen > len(data) {
		return nil, newFormatError("page too small for a b-tree header", nil)
	}

	typ := PageType(data[off])
	switch typ {
	case InteriorIndex, InteriorTable, LeafIndex, LeafTable:
	default:
		return nil, newFormatError("b-tree page flag is not one of the four known types", nil)
	}

	p := &BTreePage{
		pageNumber:  pageNumber,
		reserved:    off,
		usableSize:  len(data) - int(reservedSpace),
		data:        data,
		typ:         typ,
		freeBlock:   binary.BigEndian.Uint16(data[off+1 : off+3]),
		numCells:    binary.BigEndian.Uint16(data[off+3 : off+5]),
		cellContent: binary.BigEndian.Uint16(data[off+5 : off+7]),
		fragFree:    data[off+7],
	}
	if typ.IsInterior() {
		if off+interiorHeaderLen > len(data) {
			return nil, newFormatError("page too small for an interior b-tree header", nil)
		}
		p.rightChild = binary.BigEndian.Uint32(data[off+8 : off+12])
	}
	return p, nil
}

func (p *BTreePage) PageType() PageType     { return p.typ }
func (p *BTreePage) PageNumber() int        { return p.pageNumber }
func (p *BTreePage) CellCount() int         { return int(p.numCells) }
func (p *BTreePage) RightChild() uint32     { return p.rightChild }
func (p *BTreePage) FirstFreeblock() uint16 { return p.freeBlock }

func (p *BTreePage) headerLen() int {
	if p.typ.IsInterior() {
		return interiorHeaderLen
	}
	return leafHeaderLen
}

// cellOffset returns the absolute byte offset of cell i's content,
// following the cell-pointer array (§4.5 "Cell location").
func (p *BTreePage) cellOffset(i int) (int, error) {
	if i < 0 || i >= int(p.numCells) {
		return 0, newFormatError("cell index out of range", nil)
	}
	ptrOffset := p.reserved + p.headerLen() + 2*i
	if ptrOffset+2 > len(p.data) {
		return 0, newFormatError("cell pointer array exceeds page bounds", nil)
	}
	offset := int(binary.BigEndian.Uint16(p.data[ptrOffset : ptrOffset+2]))
	if offset < 0 || offset > len(p.data) {
		return 0, newFormatError("cell content offset out of bounds", nil)
	}
	return offset, nil
}

// maxEmbeddedPayload is the largest payload length a leaf cell may carry
// fully embedded before this engine must treat it as an overflow chain
// (out of scope, §4.5/§9): the reference format's own local-payload
// threshold, usable_size - 35.
func (p *BTreePage) maxEmbeddedPayload() int {
	n := p.usableSize - 35
	if n < 0 {
		return 0
	}
	return n
}

// LeafTableCell decodes cell i of a LeafTable page: varint payload-size,
// varint row-id, payload bytes.
func (p *BTreePage) LeafTableCell(i int) (rowID int64, payload []byte, err error) {
	if p.typ != LeafTable {
		return 0, nil, newFormatError("LeafTableCell called on a non-leaf-table page", nil)
	}
	off, err := p.cellOffset(i)
	if err != nil {
		return 0, nil, err
	}
	v := NewByteView(p.data[off:])
	payloadSize := v.ConsumeVarint()
	rowID = v.ConsumeVarint()
	if payloadSize < 0 || int(payloadSize) > p.maxEmbeddedPayload() {
		return 0, nil, newUnsupportedError("cell payload exceeds the single-page embedding limit (overflow pages are not supported)")
	}
	if int(payloadSize) > v.Len() {
		return 0, nil, newFormatError("cell payload runs past the end of the page", nil)
	}
	payload = v.ConsumeBytes(int(payloadSize))
	return rowID, payload, nil
}

// InteriorTableCell decodes cell i of an InteriorTable page: 4-byte
// big-endian left-child page number, then a varint row-id (the
// separator key: the largest row-id present in the left child's
// subtree).
func (p *BTreePage) InteriorTableCell(i int) (childPage uint32, key int64, err error) {
	if p.typ != InteriorTable {
		return 0, 0, newFormatError("InteriorTableCell called on a non-interior-table page", nil)
	}
	off, err := p.cellOffset(i)
	if err != nil {
		return 0, 0, err
	}
	v := NewByteView(p.data[off:])
	childPage = v.ConsumeUint32()
	key = v.ConsumeVarint()
	return childPage, key, nil
}

// LeafIndexCell decodes cell i of a LeafIndex page: varint payload-size,
// payload bytes (whose leading columns form the sort key).
func (p *BTreePage) LeafIndexCell(i int) (payload []byte, err error) {
	if p.typ != LeafIndex {
		return nil, newFormatError("LeafIndexCell called on a non-leaf-index page", nil)
	}
	off, err := p.cellOffset(i)
	if err != nil {
		return nil, err
	}
	v := NewByteView(p.data[off:])
	payloadSize := v.ConsumeVarint()
	if payloadSize < 0 || int(payloadSize) > p.maxEmbeddedPayload() {
		return nil, newUnsupportedError("cell payload exceeds the single-page embedding limit (overflow pages are not supported)")
	}
	if int(payloadSize) > v.Len() {
		return nil, newFormatError("cell payload runs past the end of the page", nil)
	}
	return v.ConsumeBytes(int(payloadSize)), nil
}

// InteriorIndexCell decodes cell i of an InteriorIndex page: 4-byte
// left-child, varint payload-size, payload bytes.
func (p *BTreePage) InteriorIndexCell(i int) (childPage uint32, payload []byte, err error) {
	if p.typ != InteriorIndex {
		return 0, nil, newFormatError("InteriorIndexCell called on a non-interior-index page", nil)
	}
	off, err := p.cellOffset(i)
	if err != nil {
		return 0, nil, err
	}
	v := NewByteView(p.data[off:])
	childPage = v.ConsumeUint32()
	payloadSize := v.ConsumeVarint()
	if payloadSize < 0 || int(payloadSize) > p.maxEmbeddedPayload() {
		return 0, nil, newUnsupportedError("cell payload exceeds the single-page embedding limit (overflow pages are not supported)")
	}
	if int(payloadSize) > v.Len() {
		return 0, nil, newFormatError("cell payload runs past the end of the page", nil)
	}
	payload = v.ConsumeBytes(int(payloadSize))
	return childPage, payload, nil
}

// FormatEmptyPage writes a fresh b-tree page header into data (§4.5
// "empty"): the requested page type, no freeblocks, zero cells, cell
// content starting at the end of the page, and (for interior types) a
// zeroed right-child pointer. data must already be page-sized.
func FormatEmptyPage(pageNumber int, pageType PageType, data []byte) (*BTreePage, error) {
	off := headerOffsetFor(pageNumber)
	hdrLen := leafHeaderLen
	if pageType.IsInterior() {
		hdrLen = interiorHeaderLen
	}
	if off+hdrLen > len(data) {
		return nil, newFormatError("page too small to format a b-tree header", nil)
	}

	for i := off; i < off+hdrLen; i++ {
		data[i] = 0
	}
	data[off] = byte(pageType)
	// §4.5 "empty": the first-freeblock pointer on a freshly formatted
	// page points at the byte right after the b-tree header, even though
	// no freeblock actually exists yet there — the freelist chain is
	// simply empty, and this is the value the format uses to express
	// that for an otherwise-full page.
	binary.BigEndian.PutUint16(data[off+1:off+3], uint16(off+hdrLen))
	binary.BigEndian.PutUint16(data[off+3:off+5], 0)
	binary.BigEndian.PutUint16(data[off+5:off+7], uint16(len(data)))
	data[off+7] = 0
	if pageType.IsInterior() {
		binary.BigEndian.PutUint32(data[off+8:off+12], 0)
	}

	return &BTreePage{
		pageNumber:  pageNumber,
		reserved:    off,
		usableSize:  len(data),
		data:        data,
		typ:         pageType,
		freeBlock:   uint16(off + hdrLen),
		cellContent: uint16(len(data)),
	}, nil
}

// InsertTableRecord prepends a leaf-table cell (row-id ‖ payload) to the
// cell-content area and appends its pointer to the cell-pointer array.
// Only leaf-table pages support insertion; interior-node splits and
// cell-ordering enforcement are future work (§4.5, §9), so inserting
// into any other page type is UnsupportedError.
func (p *BTreePage) InsertTableRecord(rowID int64, payload []byte) error {
	if p.typ != LeafTable {
		return newUnsupportedError("insertion is only supported on leaf-table pages")
	}

	var cell BufBuilder
	cell.WriteVarint(int64(len(payload)))
	cell.WriteVarint(rowID)
	cell.WriteBytes(payload)
	cellBytes := cell.Bytes()

	cellPtrOffset := p.reserved + p.headerLen() + 2*int(p.numCells)
	newCellContent := int(p.cellContent) - len(cellBytes)
	if cellPtrOffset+2 > newCellContent {
		return newUnsupportedError("page does not have room for this cell")
	}

	copy(p.data[newCellContent:], cellBytes)
	binary.BigEndian.PutUint16(p.data[cellPtrOffset:cellPtrOffset+2], uint16(newCellContent))

	p.cellContent = uint16(newCellContent)
	p.numCells++

	binary.BigEndian.PutUint16(p.data[p.reserved+5:p.reserved+7], p.cellContent)
	binary.BigEndian.PutUint16(p.data[p.reserved+3:p.reserved+5], p.numCells)

	return nil
}
