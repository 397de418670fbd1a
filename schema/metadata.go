// Package schema is the typed table surface of sqliteengine (§4.9): a
// generic façade over internal/storage that lets a caller work with
// ordinary Go structs instead of raw cell payloads. It consumes only
// the four capabilities spec §4.9 names — a schema-type tag, a schema
// name, row-id injection, and sort-key extraction — which in a full
// system a derive-like code generator produces from a struct
// declaration; here those capabilities are Go interfaces a generated
// (or hand-written) record type implements on its pointer receiver.
package schema

import "github.com/avylen/sqliteengine/internal/storage"

// Metadata is implemented by *T for every record type this package
// binds to a schema-table object: the schema-type tag ("table",
// "index", "view", "trigger") and the object's name, exactly the pair
// §4.9's handle construction looks up in the schema table.
type Metadata interface {
	SchemaType() string
	SchemaName() string
}

// RowRecord is implemented by *T for a row-id table's record type. A
// zero T is addressed to obtain a *T before any row has been read, so
// SchemaType/SchemaName must not depend on field values.
type RowRecord interface {
	Metadata
	// ScanRow populates the receiver's fields from a decoded record's
	// columns, in schema column order.
	ScanRow(values []storage.Value) error
	// RowValues produces the column values for an insert, in the same
	// order ScanRow expects them back.
	RowValues() []storage.Value
	// SetRowID injects the row-id carried alongside the leaf-table cell
	// into whichever field the record type designates for it.
	SetRowID(rowID int64)
}

// KeyRecord is implemented by *T for an index's record type: the
// payload of a leaf-index cell, whose leading columns are the sort key
// and whose trailing column is the indexed table's row-id (the shape
// SQLite's own auto-indexes use).
type KeyRecord interface {
	Metadata
	ScanRow(values []storage.Value) error
	// SortKey returns the indexed columns, in declaration order, used
	// both to decode an index row for display and to order it against a
	// requested key range.
	SortKey() []storage.Value
	// RowID returns the indexed table's row-id this index entry points
	// at, the hidden trailing column of an auto-index payload.
	RowID() int64
}
