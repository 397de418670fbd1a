package schema

import "github.com/avylen/sqliteengine/internal/storage"

// Source is satisfied by both *storage.Database and *storage.Transaction:
// anything that can serve page lookups and resolve a schema-table row.
// Handle construction (§4.9) never needs more than this.
type Source interface {
	storage.PageSource
	Schema(schemaType, name string) (storage.SchemaRow, error)
}

func lookupRoot(src Source, schemaType, name string) (int, error) {
	if schemaType == "table" && name == "sqlite_schema" {
		return 1, nil
	}
	row, err := src.Schema(schemaType, name)
	if err != nil {
		return 0, err
	}
	return row.RootPage, nil
}

// ptrOf pairs a generic value type T with the pointer-receiver interface
// its record methods are implemented on, the standard Go-generics
// stand-in for the "phantom record type" of §3: the interface
// constraint PT is instantiated against &T so metadata methods (which
// must not depend on field values) are reachable before any row exists.
type ptrOf[T any, PT interface {
	*T
	Metadata
}] struct{}

func (ptrOf[T, PT]) new() PT {
	var zero T
	return PT(&zero)
}

// TableHandle is a typed façade over a row-id table's root page (§4.9,
// §6 `table<T>()`).
type TableHandle[T any, PT interface {
	*T
	RowRecord
}] struct {
	src      Source
	rootPage int
}

// Table resolves T's root page (via the schema table, unless T names
// sqlite_schema itself) and returns a read handle.
func Table[T any, PT interface {
	*T
	RowRecord
}](src Source) (*TableHandle[T, PT], error) {
	pt := ptrOf[T, PT]{}.new()
	root, err := lookupRoot(src, pt.SchemaType(), pt.SchemaName())
	if err != nil {
		return nil, err
	}
	return &TableHandle[T, PT]{src: src, rootPage: root}, nil
}

// RootPage exposes the resolved root page number, mainly for diagnostics.
func (h *TableHandle[T, PT]) RootPage() int { return h.rootPage }

// RowEntry is one decoded row, or the error encountered producing it
// (§7's in-band iteration error policy).
type RowEntry[T any] struct {
	Row T
	Err error
}

// RowIter yields decoded rows in ascending row-id order.
type RowIter[T any, PT interface {
	*T
	RowRecord
}] struct {
	inner *storage.TableIterator
	err   error
}

func (it *RowIter[T, PT]) Next() *RowEntry[T] {
	if it.err != nil {
		err := it.err
		it.err = nil
		return &RowEntry[T]{Err: err}
	}
	if it.inner == nil {
		return nil
	}
	entry := it.inner.Next()
	if entry == nil {
		return nil
	}
	if entry.Err != nil {
		return &RowEntry[T]{Err: entry.Err}
	}
	row, err := decodeRow[T, PT](entry.Payload, entry.RowID)
	if err != nil {
		return &RowEntry[T]{Err: err}
	}
	return &RowEntry[T]{Row: row}
}

func decodeRow[T any, PT interface {
	*T
	RowRecord
}](payload []byte, rowID int64) (T, error) {
	var row T
	values, err := storage.DecodeRecord(payload)
	if err != nil {
		return row, err
	}
	pt := PT(&row)
	if err := pt.ScanRow(values); err != nil {
		return row, err
	}
	pt.SetRowID(rowID)
	return row, nil
}

func (h *TableHandle[T, PT]) tableIter(start, end *int64) *RowIter[T, PT] {
	inner, err := storage.NewTableIterator(h.src, h.rootPage, start, end)
	return &RowIter[T, PT]{inner: inner, err: err}
}

// Iter yields every row in ascending row-id order (§6 `iter`).
func (h *TableHandle[T, PT]) Iter() *RowIter[T, PT] {
	return h.tableIter(nil, nil)
}

// GetRange yields rows whose row-id falls in r (§6 `get(range)`).
func (h *TableHandle[T, PT]) GetRange(r rowIDRange) *RowIter[T, PT] {
	return h.tableIter(r.Start, r.End)
}

// Get returns the row with the given row-id, or (_, false, nil) if none
// exists (§6 `get(row_id)`).
func (h *TableHandle[T, PT]) Get(rowID int64) (T, bool, error) {
	it := h.GetRange(RowIDEqual(rowID))
	entry := it.Next()
	var zero T
	if entry == nil {
		return zero, false, nil
	}
	if entry.Err != nil {
		return zero, false, entry.Err
	}
	return entry.Row, true, nil
}

// IndexHandle is a typed façade over a without-row-id index's root page.
type IndexHandle[T any, PT interface {
	*T
	KeyRecord
}] struct {
	src      Source
	rootPage int
}

// Index resolves T's root page as an index object and returns a read
// handle.
func Index[T any, PT interface {
	*T
	KeyRecord
}](src Source) (*IndexHandle[T, PT], error) {
	pt := ptrOf[T, PT]{}.new()
	root, err := lookupRoot(src, pt.SchemaType(), pt.SchemaName())
	if err != nil {
		return nil, err
	}
	return &IndexHandle[T, PT]{src: src, rootPage: root}, nil
}

func (h *IndexHandle[T, PT]) RootPage() int { return h.rootPage }

func decodeKeyRow[T any, PT interface {
	*T
	KeyRecord
}](payload []byte) (T, error) {
	var row T
	values, err := storage.DecodeRecord(payload)
	if err != nil {
		return row, err
	}
	pt := PT(&row)
	if err := pt.ScanRow(values); err != nil {
		return row, err
	}
	return row, nil
}

func decodeSortKey[T any, PT interface {
	*T
	KeyRecord
}](payload []byte) ([]storage.Value, error) {
	row, err := decodeKeyRow[T, PT](payload)
	if err != nil {
		return nil, err
	}
	pt := PT(&row)
	return pt.SortKey(), nil
}

// IterWithoutRowID yields every index row in key order (§4.9/§6
// `iter_without_row_id`).
func (h *IndexHandle[T, PT]) IterWithoutRowID() *KeyIter[T, PT] {
	inner, err := storage.NewIndexIterator(h.src, h.rootPage, equalComparator{})
	return &KeyIter[T, PT]{inner: inner, err: err}
}

// GetRange yields index rows whose sort key falls in r (§6
// `get(range-of-key)`).
func (h *IndexHandle[T, PT]) GetRange(r KeyRange) *KeyIter[T, PT] {
	cmp := &rangeComparator{decodeKey: decodeSortKey[T, PT], bound: r}
	inner, err := storage.NewIndexIterator(h.src, h.rootPage, cmp)
	return &KeyIter[T, PT]{inner: inner, err: err}
}

// Get returns the index row matching key exactly, or (_, false, nil) if
// absent (§6 `get(key)`).
func (h *IndexHandle[T, PT]) Get(key ...storage.Value) (T, bool, error) {
	it := h.GetRange(KeyEqual(key...))
	entry := it.Next()
	var zero T
	if entry == nil {
		return zero, false, nil
	}
	if entry.Err != nil {
		return zero, false, entry.Err
	}
	return entry.Row, true, nil
}

// KeyIter yields decoded index rows in key order.
type KeyIter[T any, PT interface {
	*T
	KeyRecord
}] struct {
	inner *storage.IndexIterator
	err   error
}

func (it *KeyIter[T, PT]) Next() *RowEntry[T] {
	if it.err != nil {
		err := it.err
		it.err = nil
		return &RowEntry[T]{Err: err}
	}
	if it.inner == nil {
		return nil
	}
	entry := it.inner.Next()
	if entry == nil {
		return nil
	}
	if entry.Err != nil {
		return &RowEntry[T]{Err: entry.Err}
	}
	row, err := decodeKeyRow[T, PT](entry.Payload)
	if err != nil {
		return &RowEntry[T]{Err: err}
	}
	return &RowEntry[T]{Row: row}
}

// GetWithIndex resolves key through idx, then fetches the matching row
// from table (§4.9/§6 `get_with_index::<I>(key)`): the secondary-lookup
// shortcut of looking up a row-id via an index and fetching that row.
func GetWithIndex[T any, PT interface {
	*T
	RowRecord
}, K any, PK interface {
	*K
	KeyRecord
}](table *TableHandle[T, PT], idx *IndexHandle[K, PK], key ...storage.Value) (T, bool, error) {
	entry, found, err := idx.Get(key...)
	var zero T
	if err != nil || !found {
		return zero, false, err
	}
	pk := PK(&entry)
	return table.Get(pk.RowID())
}
