package storage

// Ordering is a three-way comparison result.
type Ordering int

const (
	// Less means the candidate payload is past the range end.
	Less Ordering = -1
	// Equal means the candidate payload is inside the range.
	Equal Ordering = 0
	// Greater means the candidate payload precedes the range start.
	Greater Ordering = 1
)

// Comparator orders a candidate index payload against a fixed range
// (§4.7). Compare must return an error, rather than a sentinel
// Ordering, when the payload cannot be decoded — that is always an
// internal decode error for that cell, not a comparison outcome.
type Comparator interface {
	Compare(payload []byte) (Ordering, error)
}

// IndexEntry is one yielded payload, or the error encountered trying to
// produce it.
type IndexEntry struct {
	Payload []byte
	Err     error
}

// IndexIterator yields payloads from an index subtree in key order,
// restricted to a Comparator. Per §4.7's noted soundness gap, this
// iterator only ever yields leaf-resident payloads: an interior-index
// cell's own separator payload is used solely to route the descent and
// is never itself compared and yielded (semantics (b) of §4.7/§9 — see
// SPEC_FULL.md §3 for why this matches the shipped original rather than
// the aspirational fix).
type IndexIterator struct {
	src   PageSource
	cmp   Comparator
	stack []tableFrame
	cur   *BTreePage
	idx   int
	done  bool
}

// NewIndexIterator constructs an iterator rooted at rootPage, seeking to
// the first leaf cell the comparator does not consider Greater (i.e.
// the first cell that does not precede the range start).
func NewIndexIterator(src PageSource, rootPage int, cmp Comparator) (*IndexIterator, error) {
	root, err := src.BTreePage(rootPage)
	if err != nil {
		return nil, err
	}
	it := &IndexIterator{src: src, cmp: cmp}
	it.cur, it.stack, it.idx, err = seekIndex(src, root, cmp)
	if err != nil {
		return nil, err
	}
	return it, nil
}

// childAtIndex mirrors childAt but for index pages, whose cells carry a
// payload alongside the child pointer.
func childAtIndex(p *BTreePage, i int) (uint32, []byte, error) {
	if i < p.CellCount() {
		return p.InteriorIndexCell(i)
	}
	return p.RightChild(), nil, nil
}

// seekIndex descends interior-index pages, walking cells left to right
// while the comparator judges the separator Greater (entirely before
// the range start); the first separator that is Equal or Less
// identifies the child to descend into, and falling off the end
// descends the right-most child.
func seekIndex(src PageSource, page *BTreePage, cmp Comparator) (*BTreePage, []tableFrame, int, error) {
	var stack []tableFrame
	for page.PageType() == InteriorIndex {
		n := page.CellCount()
		chosen := n
		for i := 0; i < n; i++ {
			_, payload, err := page.InteriorIndexCell(i)
			if err != nil {
				return nil, nil, 0, err
			}
			ord, err := cmp.Compare(payload)
			if err != nil {
				return nil, nil, 0, newDecodeError("index separator comparison failed", err)
			}
			if ord != Greater {
				chosen = i
				break
			}
		}
		child, _, err := childAtIndex(page, chosen)
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
		payload, err := page.LeafIndexCell(i)
		if err != nil {
			return nil, nil, 0, err
		}
		ord, err := cmp.Compare(payload)
		if err != nil {
			return nil, nil, 0, newDecodeError("index leaf comparison failed", err)
		}
		if ord != Greater {
			leafIdx = i
			break
		}
	}
	return page, stack, leafIdx, nil
}

// Next advances the iterator and returns the next entry, or nil once
// the range is exhausted.
func (it *IndexIterator) Next() *IndexEntry {
	if it.done {
		return nil
	}
	for {
		if it.cur.PageType() == InteriorIndex {
			if it.idx >= numChildren(it.cur) {
				if !it.pop() {
					it.done = true
					return nil
				}
				continue
			}
			child, _, err := childAtIndex(it.cur, it.idx)
			it.idx++
			if err != nil {
				it.done = true
				return &IndexEntry{Err: err}
			}
			it.stack = append(it.stack, tableFrame{page: it.cur, idx: it.idx})
			next, err := it.src.BTreePage(int(child))
			if err != nil {
				return &IndexEntry{Err: err}
			}
			it.cur = next
			it.idx = 0
			continue
		}

		// Leaf index page.
		if it.idx >= it.cur.CellCount() {
			if !it.pop() {
				it.done = true
				return nil
			}
			continue
		}
		payload, err := it.cur.LeafIndexCell(it.idx)
		it.idx++
		if err != nil {
			return &IndexEntry{Err: err}
		}
		ord, err := it.cmp.Compare(payload)
		if err != nil {
			return &IndexEntry{Err: newDecodeError("index leaf comparison failed", err)}
		}
		switch ord {
		case Less:
			it.done = true
			return nil
		case Equal:
			return &IndexEntry{Payload: payload}
		default: // Greater: precedes the range start, skip.
			continue
		}
	}
}

func (it *IndexIterator) pop() bool {
	if len(it.stack) == 0 {
		return false
	}
	last := it.stack[len(it.stack)-1]
	it.stack = it.stack[:len(it.stack)-1]
	it.cur = last.page
	it.idx = last.idx
	return true
}
