package storage

import (
	"sync"

	radix "github.com/armon/go-radix"
)

// SchemaRow is one decoded row of the sqlite_schema table (§3, §4.9).
type SchemaRow struct {
	Type     string // "table", "index", "view", "trigger"
	Name     string
	TblName  string
	RootPage int
	SQL      string
}

// schemaCache caches the result of a full sqlite_schema scan (§4.9:
// "Schema lookup during handle construction is the only place a full
// schema scan happens"), keyed by schema-type and name in a radix tree
// so repeated handle construction against the same Database does not
// re-scan. The cache offers only Lookup and Invalidate; the CLI's schema
// dump scans the schema table itself rather than reading this cache.
type schemaCache struct {
	mu      sync.Mutex
	tree    *radix.Tree
	scanned bool
}

func newSchemaCache() *schemaCache {
	return &schemaCache{tree: radix.New()}
}

func schemaKey(schemaType, name string) string {
	return schemaType + "\x00" + name
}

// Lookup returns the schema row for (schemaType, name), scanning the
// schema table on the first call against this cache.
func (c *schemaCache) Lookup(src PageSource, schemaType, name string) (SchemaRow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.scanned {
		if err := c.scan(src); err != nil {
			return SchemaRow{}, err
		}
		c.scanned = true
	}

	v, ok := c.tree.Get(schemaKey(schemaType, name))
	if !ok {
		return SchemaRow{}, &SchemaLookupError{SchemaType: schemaType, Name: name}
	}
	return v.(SchemaRow), nil
}

// Invalidate drops the cached scan, forcing the next Lookup to re-read
// the schema table. Called whenever a transaction commits a schema
// change or the backing database's cache is cleared.
func (c *schemaCache) Invalidate() {
	c.mu.Lock()
	c.tree = radix.New()
	c.scanned = false
	c.mu.Unlock()
}

func (c *schemaCache) scan(src PageSource) error {
	it, err := NewTableIterator(src, 1, nil, nil)
	if err != nil {
		return err
	}

	for entry := it.Next(); entry != nil; entry = it.Next() {
		if entry.Err != nil {
			return entry.Err
		}
		row, err := decodeSchemaRow(entry.Payload)
		if err != nil {
			return err
		}
		c.tree.Insert(schemaKey(row.Type, row.Name), row)
	}
	return nil
}

func decodeSchemaRow(payload []byte) (SchemaRow, error) {
	values, err := DecodeRecord(payload)
	if err != nil {
		return SchemaRow{}, err
	}
	if len(values) < 4 {
		return SchemaRow{}, newFormatError("schema row has fewer than 4 columns", nil)
	}

	typ, ok := values[0].AsText()
	if !ok {
		return SchemaRow{}, newFormatError("schema row 'type' column is not text", nil)
	}
	name, ok := values[1].AsText()
	if !ok {
		return SchemaRow{}, newFormatError("schema row 'name' column is not text", nil)
	}
	tblName, ok := values[2].AsText()
	if !ok {
		return SchemaRow{}, newFormatError("schema row 'tbl_name' column is not text", nil)
	}
	rootPage, ok := values[3].AsInt()
	if !ok || rootPage < 1 {
		return SchemaRow{}, newFormatError("schema row 'rootpage' is missing or less than 1", nil)
	}

	var sql string
	if len(values) > 4 {
		sql, _ = values[4].AsText()
	}

	return SchemaRow{
		Type:     typ,
		Name:     name,
		TblName:  tblName,
		RootPage: int(rootPage),
		SQL:      sql,
	}, nil
}
