package storage

// PageSource resolves a page number to a parsed b-tree page view. Both
// *Database and *Transaction implement it, so iterators are agnostic to
// whether they are walking committed state or a transaction's
// dirty-shadowed view of it.
type PageSource interface {
	BTreePage(pageNumber int) (*BTreePage, error)
}

// TableEntry is one yielded (row-id, payload) pair, or the error
// encountered trying to produce it. Per §4.6/§7's propagation policy,
// errors are delivered in-band as the iteration's item type rather than
// aborting the loop.
type TableEntry struct {
	RowID   int64
	Payload []byte
	Err     error
}

type tableFrame struct {
	page *BTreePage
	idx  int // next child/cell index, 0..numChildren(page)
}

// TableIterator yields (row_id, payload) pairs from a table subtree in
// ascending row-id order, optionally bounded to [start, end). It carries
// an explicit stack of (page, next_cell_index) frames rather than using
// recursion or a goroutine, per §9 ("not coroutines").
type TableIterator struct {
	src      PageSource
	stack    []tableFrame
	cur      *BTreePage
	idx      int
	maxRowID *int64
	done     bool
	err      error
}

// numChildren returns the number of (child-page, optional-key) steps an
// interior page offers: one per cell, plus the right-most pointer.
func numChildren(p *BTreePage) int {
	return p.CellCount() + 1
}

// childAt returns the page number of the i-th child of an interior
// table page (i in [0, numChildren)), where i == CellCount() selects the
// right-most pointer.
func childAt(p *BTreePage, i int) (uint32, error) {
	if i < p.CellCount() {
		child, _, err := p.InteriorTableCell(i)
		return child, err
	}
	return p.RightChild(), nil
}

// NewTableIterator constructs an iterator rooted at rootPage, bounded to
// [start, end) when the respective pointer is non-nil.
func NewTableIterator(src PageSource, rootPage int, start, end *int64) (*TableIterator, error) {
	root, err := src.BTreePage(rootPage)
	if err != nil {
		return nil, err
	}

	it := &TableIterator{src: src, maxRowID: end}

	if start == nil {
		it.cur, it.stack, it.idx, err = descendLeftmost(src, root)
		if err != nil {
			return nil, err
		}
		return it, nil
	}

	it.cur, it.stack, it.idx, err = seekTable(src, root, *start)
	if err != nil {
		return nil, err
	}
	return it, nil
}

// descendLeftmost walks down the left-most child of each interior page
// starting at page, returning the resulting leaf, the parent-frame
// stack, and the leaf's starting cell index (always 0).
func descendLeftmost(src PageSource, page *BTreePage) (*BTreePage, []tableFrame, int, error) {
	var stack []tableFrame
	for page.PageType() == InteriorTable {
		child, err := childAt(page, 0)
		if err != nil {
			return nil, nil, 0, err
		}
		stack = append(stack, tableFrame{page: page, idx: 1})
		page, err = src.BTreePage(int(child))
		if err != nil {
			return nil, nil, 0, err
		}
	}
	return page, stack, 0, nil
}

// seekTable descends interior-table pages picking the first child whose
// separator key is >= start: an interior cell's key is the largest
// row-id present in its left child's subtree, so the first separator
// >= start identifies the left-most subtree that can still contain
// start; falling off the end of the cells means start lies in the
// right-most child's range. On the leaf, it positions the cursor at the
// first cell with key >= start (the exact key if present, otherwise the
// next one up), matching an inclusive lower bound.
func seekTable(src PageSource, page *BTreePage, start int64) (*BTreePage, []tableFrame, int, error) {
	var stack []tableFrame
	for page.PageType() == InteriorTable {
		n := page.CellCount()
		chosen := n // default: right-most child
		for i := 0; i < n; i++ {
			_, key, err := page.InteriorTableCell(i)
			if err != nil {
				return nil, nil, 0, err
			}
			if key >= start {
				chosen = i
				break
			}
		}
		child, err := childAt(page, chosen)
		if err != nil {
			return nil, nil, 0, err
		}
		stack = append(stack, tableFrame{page: page, idx: chosen + 1})
		page, err = src.BTreePage(int(child))
		if err != nil {
			return nil, nil, 0, err
		}
	}

	n := page.CellCount()
	leafIdx := n
	for i := 0; i < n; i++ {
		rowID, _, err := page.LeafTableCell(i)
		if err != nil {
			return nil, nil, 0, err
		}
		if rowID >= start {
			leafIdx = i
			break
		}
	}
	return page, stack, leafIdx, nil
}

// Next advances the iterator and returns the next entry, or nil once
// the scan is exhausted.
func (it *TableIterator) Next() *TableEntry {
	if it.done {
		return nil
	}
	for {
		if it.cur.PageType() == InteriorTable {
			if it.idx >= numChildren(it.cur) {
				if !it.pop() {
					it.done = true
					return nil
				}
				continue
			}
			child, err := childAt(it.cur, it.idx)
			it.idx++
			if err != nil {
				it.done = true
				return &TableEntry{Err: err}
			}
			it.stack = append(it.stack, tableFrame{page: it.cur, idx: it.idx})
			next, err := it.src.BTreePage(int(child))
			if err != nil {
				return &TableEntry{Err: err}
			}
			it.cur = next
			it.idx = 0
			continue
		}

		// Leaf table page.
		if it.idx >= it.cur.CellCount() {
			if !it.pop() {
				it.done = true
				return nil
			}
			continue
		}
		rowID, payload, err := it.cur.LeafTableCell(it.idx)
		it.idx++
		if err != nil {
			return &TableEntry{Err: err}
		}
		if it.maxRowID != nil && rowID >= *it.maxRowID {
			it.done = true
			return nil
		}
		return &TableEntry{RowID: rowID, Payload: payload}
	}
}

func (it *TableIterator) pop() bool {
	if len(it.stack) == 0 {
		return false
	}
	last := it.stack[len(it.stack)-1]
	it.stack = it.stack[:len(it.stack)-1]
	it.cur = last.page
	it.idx = last.idx
	return true
}
