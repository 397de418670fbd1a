package storage

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func newLeafTablePageSource(t *testing.T, rowIDs []int64, payloads []string) singlePagePageSource {
	t.Helper()
	data := make([]byte, 4096)
	p, err := FormatEmptyPage(1, LeafTable, data)
	require.NoError(t, err)
	for i, id := range rowIDs {
		require.NoError(t, p.InsertTableRecord(id, []byte(payloads[i])))
	}
	return singlePagePageSource{page: p}
}

// multiPagePageSource backs a PageSource with several independently
// built pages, the way a real Database/Transaction resolves more than
// one page number; the single-page fixtures above can only ever
// exercise a leaf-only tree.
type multiPagePageSource map[int]*BTreePage

func (s multiPagePageSource) BTreePage(pageNumber int) (*BTreePage, error) {
	p, ok := s[pageNumber]
	if !ok {
		return nil, newFormatError("unknown page in test fixture", nil)
	}
	return p, nil
}

func newLeafTablePage(t *testing.T, pageNumber int, rowIDs []int64, payloads []string) *BTreePage {
	t.Helper()
	data := make([]byte, 4096)
	p, err := FormatEmptyPage(pageNumber, LeafTable, data)
	require.NoError(t, err)
	for i, id := range rowIDs {
		require.NoError(t, p.InsertTableRecord(id, []byte(payloads[i])))
	}
	return p
}

type interiorTableCellSpec struct {
	child uint32
	key   int64
}

// buildInteriorTablePage hand-writes an InteriorTable root page the same
// way insertIndexCell hand-writes leaf-index cells: FormatEmptyPage for
// the header, then direct cell-content/pointer-array placement for each
// separator, finishing with the right-most child pointer.
func buildInteriorTablePage(t *testing.T, pageNumber int, cells []interiorTableCellSpec, rightChild uint32) *BTreePage {
	t.Helper()
	data := make([]byte, 4096)
	p, err := FormatEmptyPage(pageNumber, InteriorTable, data)
	require.NoError(t, err)

	for _, c := range cells {
		var cell BufBuilder
		cell.WriteUint32(c.child)
		cell.WriteVarint(c.key)
		cellBytes := cell.Bytes()

		cellPtrOffset := p.reserved + p.headerLen() + 2*int(p.numCells)
		newCellContent := int(p.cellContent) - len(cellBytes)
		require.GreaterOrEqual(t, newCellContent, cellPtrOffset+2, "test fixture page too small for its cells")

		copy(data[newCellContent:], cellBytes)
		binary.BigEndian.PutUint16(data[cellPtrOffset:cellPtrOffset+2], uint16(newCellContent))

		p.cellContent = uint16(newCellContent)
		p.numCells++
		binary.BigEndian.PutUint16(data[p.reserved+5:p.reserved+7], p.cellContent)
		binary.BigEndian.PutUint16(data[p.reserved+3:p.reserved+5], p.numCells)
	}

	binary.BigEndian.PutUint32(data[p.reserved+8:p.reserved+12], rightChild)

	reparsed, err := ParseBTreePage(pageNumber, data, 0)
	require.NoError(t, err)
	return reparsed
}

// newMultiLevelTableSource builds a two-level tree: an InteriorTable root
// (page 1) with one separator cell routing to a left leaf (page 2,
// row-ids 1-5) and a right-most child (page 3, row-ids 10-14) — the
// shape childAt/seekTable/the InteriorTable branch of Next() all need to
// actually traverse.
func newMultiLevelTableSource(t *testing.T) (multiPagePageSource, int) {
	t.Helper()
	left := newLeafTablePage(t, 2, []int64{1, 2, 3, 4, 5}, []string{"a", "b", "c", "d", "e"})
	right := newLeafTablePage(t, 3, []int64{10, 11, 12, 13, 14}, []string{"j", "k", "l", "m", "n"})
	root := buildInteriorTablePage(t, 1, []interiorTableCellSpec{{child: 2, key: 5}}, 3)

	return multiPagePageSource{1: root, 2: left, 3: right}, 1
}

func TestTableIterator_YieldsInInsertOrder(t *testing.T) {
	r := require.New(t)
	src := newLeafTablePageSource(t, []int64{1, 2, 3}, []string{"a", "b", "c"})

	it, err := NewTableIterator(src, 1, nil, nil)
	r.NoError(err)

	var rowIDs []int64
	var payloads []string
	for e := it.Next(); e != nil; e = it.Next() {
		r.NoError(e.Err)
		rowIDs = append(rowIDs, e.RowID)
		payloads = append(payloads, string(e.Payload))
	}
	r.Equal([]int64{1, 2, 3}, rowIDs)
	r.Equal([]string{"a", "b", "c"}, payloads)
}

func TestTableIterator_EmptyLeafYieldsNothing(t *testing.T) {
	src := newLeafTablePageSource(t, nil, nil)
	it, err := NewTableIterator(src, 1, nil, nil)
	require.NoError(t, err)
	require.Nil(t, it.Next())
}

func TestTableIterator_StartBoundSkipsLowerRows(t *testing.T) {
	r := require.New(t)
	src := newLeafTablePageSource(t, []int64{1, 2, 3, 4}, []string{"a", "b", "c", "d"})

	start := int64(3)
	it, err := NewTableIterator(src, 1, &start, nil)
	r.NoError(err)

	var rowIDs []int64
	for e := it.Next(); e != nil; e = it.Next() {
		r.NoError(e.Err)
		rowIDs = append(rowIDs, e.RowID)
	}
	r.Equal([]int64{3, 4}, rowIDs)
}

func TestTableIterator_EndBoundIsExclusive(t *testing.T) {
	r := require.New(t)
	src := newLeafTablePageSource(t, []int64{1, 2, 3, 4}, []string{"a", "b", "c", "d"})

	end := int64(3)
	it, err := NewTableIterator(src, 1, nil, &end)
	r.NoError(err)

	var rowIDs []int64
	for e := it.Next(); e != nil; e = it.Next() {
		r.NoError(e.Err)
		rowIDs = append(rowIDs, e.RowID)
	}
	r.Equal([]int64{1, 2}, rowIDs)
}

func TestTableIterator_StartPastEndOfLeafYieldsNothing(t *testing.T) {
	src := newLeafTablePageSource(t, []int64{1, 2, 3}, []string{"a", "b", "c"})
	start := int64(10)
	it, err := NewTableIterator(src, 1, &start, nil)
	require.NoError(t, err)
	require.Nil(t, it.Next())
}

func TestTableIterator_MultiLevelTree_FullScanCrossesLeafBoundary(t *testing.T) {
	r := require.New(t)
	src, root := newMultiLevelTableSource(t)

	it, err := NewTableIterator(src, root, nil, nil)
	r.NoError(err)

	var rowIDs []int64
	for e := it.Next(); e != nil; e = it.Next() {
		r.NoError(e.Err)
		rowIDs = append(rowIDs, e.RowID)
	}
	r.Equal([]int64{1, 2, 3, 4, 5, 10, 11, 12, 13, 14}, rowIDs)
}

func TestTableIterator_MultiLevelTree_StartWithinLeftChildCrossesBoundary(t *testing.T) {
	r := require.New(t)
	src, root := newMultiLevelTableSource(t)

	start := int64(4)
	it, err := NewTableIterator(src, root, &start, nil)
	r.NoError(err)

	var rowIDs []int64
	for e := it.Next(); e != nil; e = it.Next() {
		r.NoError(e.Err)
		rowIDs = append(rowIDs, e.RowID)
	}
	r.Equal([]int64{4, 5, 10, 11, 12, 13, 14}, rowIDs)
}

func TestTableIterator_MultiLevelTree_StartPastLeftChildFallsToRightChild(t *testing.T) {
	r := require.New(t)
	src, root := newMultiLevelTableSource(t)

	start := int64(8)
	it, err := NewTableIterator(src, root, &start, nil)
	r.NoError(err)

	var rowIDs []int64
	for e := it.Next(); e != nil; e = it.Next() {
		r.NoError(e.Err)
		rowIDs = append(rowIDs, e.RowID)
	}
	r.Equal([]int64{10, 11, 12, 13, 14}, rowIDs)
}

func TestTableIterator_MultiLevelTree_EndBoundSpansLeafBoundary(t *testing.T) {
	r := require.New(t)
	src, root := newMultiLevelTableSource(t)

	end := int64(12)
	it, err := NewTableIterator(src, root, nil, &end)
	r.NoError(err)

	var rowIDs []int64
	for e := it.Next(); e != nil; e = it.Next() {
		r.NoError(e.Err)
		rowIDs = append(rowIDs, e.RowID)
	}
	r.Equal([]int64{1, 2, 3, 4, 5, 10, 11}, rowIDs)
}
