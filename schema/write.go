package schema

import "github.com/avylen/sqliteengine/internal/storage"

// WritableTableHandle is the write counterpart of TableHandle, always
// bound to a single in-progress *storage.Transaction (§4.10, §6
// `insert(row)`).
type WritableTableHandle[T any, PT interface {
	*T
	RowRecord
}] struct {
	tx       *storage.Transaction
	rootPage int
}

// TableForWrite resolves T's root page against tx's dirty-shadowed
// schema view and returns a write handle.
func TableForWrite[T any, PT interface {
	*T
	RowRecord
}](tx *storage.Transaction) (*WritableTableHandle[T, PT], error) {
	pt := ptrOf[T, PT]{}.new()
	root, err := lookupRoot(tx, pt.SchemaType(), pt.SchemaName())
	if err != nil {
		return nil, err
	}
	return &WritableTableHandle[T, PT]{tx: tx, rootPage: root}, nil
}

// Insert appends row to the table's leaf-table root page (§4.5/§4.10).
// Row-id allocation is the bootstrapping strategy §4.5 describes for a
// fresh leaf root: one past the current cell count; the writer does not
// balance or split, so this is only correct for the small, append-only
// leaf roots CreateTable produces (§9's open question on insertion).
func (h *WritableTableHandle[T, PT]) Insert(row T) (int64, error) {
	pt := PT(&row)

	view, err := h.tx.BTreePageMut(h.rootPage)
	if err != nil {
		return 0, err
	}

	rowID := int64(view.CellCount() + 1)
	pt.SetRowID(rowID)
	payload := storage.EncodeRecord(pt.RowValues())
	if err := view.InsertTableRecord(rowID, payload); err != nil {
		return 0, err
	}
	return rowID, nil
}

// CreateTable registers T's schema row (and, for extra index
// definitions supplied by the caller, one schema row per index),
// allocating a fresh root page for each and formatting it as an empty
// B-tree of the matching type (§4.10). sql is the CREATE TABLE text
// recorded in the schema row's sql column.
func CreateTable[T any, PT interface {
	*T
	RowRecord
}](tx *storage.Transaction, sql string, extraIndexes ...storage.SchemaDefinition) ([]storage.SchemaRow, error) {
	pt := ptrOf[T, PT]{}.new()
	defs := append([]storage.SchemaDefinition{{
		Type:     pt.SchemaType(),
		Name:     pt.SchemaName(),
		TblName:  pt.SchemaName(),
		SQL:      sql,
		PageType: storage.LeafTable,
	}}, extraIndexes...)
	return tx.CreateTable(defs)
}

// IndexDefinition builds the storage.SchemaDefinition for an auto-index
// schema row, to pass as one of CreateTable's extraIndexes: index root
// pages are always leaf-index B-trees (§3 "Schema table"; SQLite never
// creates an index with an interior-only tree at creation time).
func IndexDefinition(name, tblName, sql string) storage.SchemaDefinition {
	return storage.SchemaDefinition{
		Type:     "index",
		Name:     name,
		TblName:  tblName,
		SQL:      sql,
		PageType: storage.LeafIndex,
	}
}
