package schema

import (
	"bytes"
	"fmt"

	"github.com/avylen/sqliteengine/internal/storage"
)

// compareValues orders two decoded column values of the same storage
// kind, returning a negative, zero, or positive int the way bytes.Compare
// and strings.Compare do. Comparing across kinds (other than the
// int/float numeric affinity) is a caller error, since a well-formed
// index never mixes column types across rows for the same key position.
func compareValues(a, b storage.Value) (int, error) {
	switch {
	case a.Kind == storage.KindNull && b.Kind == storage.KindNull:
		return 0, nil
	case a.Kind == storage.KindNull:
		return -1, nil
	case b.Kind == storage.KindNull:
		return 1, nil
	case a.Kind == storage.KindInt && b.Kind == storage.KindInt:
		ai, _ := a.AsInt()
		bi, _ := b.AsInt()
		switch {
		case ai < bi:
			return -1, nil
		case ai > bi:
			return 1, nil
		default:
			return 0, nil
		}
	case isNumeric(a) && isNumeric(b):
		af, bf := asFloat(a), asFloat(b)
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	case a.Kind == storage.KindText && b.Kind == storage.KindText:
		as, _ := a.AsText()
		bs, _ := b.AsText()
		return bytes.Compare([]byte(as), []byte(bs)), nil
	case a.Kind == storage.KindBlob && b.Kind == storage.KindBlob:
		ab, _ := a.AsBlob()
		bb, _ := b.AsBlob()
		return bytes.Compare(ab, bb), nil
	default:
		return 0, fmt.Errorf("schema: cannot compare value kinds %v and %v", a.Kind, b.Kind)
	}
}

func isNumeric(v storage.Value) bool {
	return v.Kind == storage.KindInt || v.Kind == storage.KindFloat
}

func asFloat(v storage.Value) float64 {
	if f, ok := v.AsFloat(); ok {
		return f
	}
	i, _ := v.AsInt()
	return float64(i)
}

// compareTuples lexicographically compares two sort-key tuples,
// matching prefixes of differing length as the shorter-is-less case (so
// a caller can bound a multi-column key by a prefix).
func compareTuples(a, b []storage.Value) (int, error) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		c, err := compareValues(a[i], b[i])
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return c, nil
		}
	}
	switch {
	case len(a) < len(b):
		return -1, nil
	case len(a) > len(b):
		return 1, nil
	default:
		return 0, nil
	}
}

// KeyRange bounds an index scan by its sort-key tuple, covering the five
// range shapes §4.9/§6 name (full range, inclusive/exclusive start,
// inclusive/exclusive end, and their combinations), mirroring Rust's
// RangeBounds the way a Go API idiomatically would: explicit optional
// bounds rather than five distinct range types.
type KeyRange struct {
	Lower     []storage.Value
	HasLower  bool
	LowerIncl bool
	Upper     []storage.Value
	HasUpper  bool
	UpperIncl bool
}

// KeyEqual bounds the scan to exactly one key (§6 "get(key)").
func KeyEqual(key ...storage.Value) KeyRange {
	return KeyRange{Lower: key, HasLower: true, LowerIncl: true, Upper: key, HasUpper: true, UpperIncl: true}
}

// KeyFrom bounds the scan to keys >= key (Rust's RangeFrom).
func KeyFrom(key ...storage.Value) KeyRange {
	return KeyRange{Lower: key, HasLower: true, LowerIncl: true}
}

// KeyTo bounds the scan to keys < key (Rust's RangeTo).
func KeyTo(key ...storage.Value) KeyRange {
	return KeyRange{Upper: key, HasUpper: true, UpperIncl: false}
}

// KeyToInclusive bounds the scan to keys <= key (Rust's RangeToInclusive).
func KeyToInclusive(key ...storage.Value) KeyRange {
	return KeyRange{Upper: key, HasUpper: true, UpperIncl: true}
}

// KeyBetween bounds the scan to [lower, upper) or [lower, upper] per
// upperIncl (Rust's Range / RangeInclusive).
func KeyBetween(lower, upper []storage.Value, upperIncl bool) KeyRange {
	return KeyRange{
		Lower: lower, HasLower: true, LowerIncl: true,
		Upper: upper, HasUpper: true, UpperIncl: upperIncl,
	}
}

// rangeComparator adapts a KeyRange plus a record type's sort-key
// decoder into storage.Comparator (§4.7): it decodes the candidate leaf
// payload's sort key and orders it against the bound, following exactly
// the same three-way logic as the original's range_cmp.
type rangeComparator struct {
	decodeKey func(payload []byte) ([]storage.Value, error)
	bound     KeyRange
}

func (c *rangeComparator) Compare(payload []byte) (storage.Ordering, error) {
	key, err := c.decodeKey(payload)
	if err != nil {
		return 0, err
	}

	if c.bound.HasLower {
		cmp, err := compareTuples(c.bound.Lower, key)
		if err != nil {
			return 0, err
		}
		if (c.bound.LowerIncl && cmp > 0) || (!c.bound.LowerIncl && cmp >= 0) {
			return storage.Greater, nil
		}
	}
	if c.bound.HasUpper {
		cmp, err := compareTuples(c.bound.Upper, key)
		if err != nil {
			return 0, err
		}
		if (c.bound.UpperIncl && cmp < 0) || (!c.bound.UpperIncl && cmp <= 0) {
			return storage.Less, nil
		}
	}
	return storage.Equal, nil
}

// equalComparator matches every leaf payload, backing an unbounded
// index scan (§4.9 "iter_without_row_id").
type equalComparator struct{}

func (equalComparator) Compare([]byte) (storage.Ordering, error) { return storage.Equal, nil }

// rowIDRange maps an i64 range's (start, end) bounds to the [start, end)
// form internal/storage.TableIterator expects, per §4.9's get(range)
// contract ("Included(x)" becomes start=x; an inclusive end "..=x"
// becomes end=x+1).
type rowIDRange struct {
	Start *int64
	End   *int64
}

// RowIDEqual bounds a table scan to exactly one row-id (§6 "get(row_id)").
func RowIDEqual(rowID int64) rowIDRange {
	end := rowID + 1
	return rowIDRange{Start: &rowID, End: &end}
}

// RowIDFrom bounds a table scan to row-ids >= start.
func RowIDFrom(start int64) rowIDRange {
	return rowIDRange{Start: &start}
}

// RowIDTo bounds a table scan to row-ids < end.
func RowIDTo(end int64) rowIDRange {
	return rowIDRange{End: &end}
}

// RowIDToInclusive bounds a table scan to row-ids <= end.
func RowIDToInclusive(end int64) rowIDRange {
	e := end + 1
	return rowIDRange{End: &e}
}

// RowIDBetween bounds a table scan to [start, end) or [start, end] per
// inclusive.
func RowIDBetween(start, end int64, inclusive bool) rowIDRange {
	if inclusive {
		end++
	}
	return rowIDRange{Start: &start, End: &end}
}
