package schema

import "github.com/avylen/sqliteengine/internal/storage"

// SchemaRecord is the typed record for the reserved sqlite_schema table
// itself (§3 "Schema table"), letting a caller do
// `schema.Table[schema.SchemaRecord](db)` the same way it would for any
// user table rather than reaching into internal/storage directly.
type SchemaRecord struct {
	RowID    int64
	Type     string
	Name     string
	TblName  string
	RootPage int
	SQL      string
}

func (*SchemaRecord) SchemaType() string { return "table" }
func (*SchemaRecord) SchemaName() string { return "sqlite_schema" }

func (r *SchemaRecord) SetRowID(id int64) { r.RowID = id }

func (r *SchemaRecord) RowValues() []storage.Value {
	return []storage.Value{
		storage.TextValue(r.Type),
		storage.TextValue(r.Name),
		storage.TextValue(r.TblName),
		storage.IntValue(int64(r.RootPage)),
		storage.TextValue(r.SQL),
	}
}

func (r *SchemaRecord) ScanRow(values []storage.Value) error {
	if len(values) < 4 {
		return newScanError("sqlite_schema row has fewer than 4 columns")
	}
	typ, ok := values[0].AsText()
	if !ok {
		return newScanError("sqlite_schema 'type' column is not text")
	}
	name, ok := values[1].AsText()
	if !ok {
		return newScanError("sqlite_schema 'name' column is not text")
	}
	tblName, ok := values[2].AsText()
	if !ok {
		return newScanError("sqlite_schema 'tbl_name' column is not text")
	}
	rootPage, ok := values[3].AsInt()
	if !ok {
		return newScanError("sqlite_schema 'rootpage' column is not an integer")
	}
	r.Type, r.Name, r.TblName, r.RootPage = typ, name, tblName, int(rootPage)
	if len(values) > 4 {
		r.SQL, _ = values[4].AsText()
	}
	return nil
}
