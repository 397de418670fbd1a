package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransaction_CreateTableThenIterIsEmpty(t *testing.T) {
	db := New()

	tx, err := BeginTransaction(db)
	require.NoError(t, err)

	rows, err := tx.CreateTable([]SchemaDefinition{{
		Type:     "table",
		Name:     "widgets",
		TblName:  "widgets",
		SQL:      "CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)",
		PageType: LeafTable,
	}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 2, rows[0].RootPage)

	require.NoError(t, tx.Commit())

	it, err := NewTableIterator(db, rows[0].RootPage, nil, nil)
	require.NoError(t, err)
	require.Nil(t, it.Next())

	row, err := db.Schema("table", "widgets")
	require.NoError(t, err)
	require.Equal(t, "widgets", row.TblName)
	require.Equal(t, 2, row.RootPage)
}

func TestTransaction_InsertReadYourWrite(t *testing.T) {
	db := New()

	tx, err := BeginTransaction(db)
	require.NoError(t, err)

	rows, err := tx.CreateTable([]SchemaDefinition{{
		Type: "table", Name: "widgets", TblName: "widgets",
		SQL: "CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)", PageType: LeafTable,
	}})
	require.NoError(t, err)
	root := rows[0].RootPage

	payload := EncodeRecord([]Value{IntValue(1), TextValue("sprocket")})

	page, err := tx.PageMut(root)
	require.NoError(t, err)
	view, err := ParseBTreePage(root, page.Data, db.Header().ReservedSpace)
	require.NoError(t, err)
	require.NoError(t, view.InsertTableRecord(1, payload))

	// Read-your-writes: the iterator sourced from the uncommitted
	// transaction must see the insert before Commit is ever called.
	it, err := NewTableIterator(tx, root, nil, nil)
	require.NoError(t, err)
	entry := it.Next()
	require.NotNil(t, entry)
	require.NoError(t, entry.Err)
	require.Equal(t, int64(1), entry.RowID)
	values, err := DecodeRecord(entry.Payload)
	require.NoError(t, err)
	name, ok := values[1].AsText()
	require.True(t, ok)
	require.Equal(t, "sprocket", name)
	require.Nil(t, it.Next())

	// Before commit, the database's own committed view is still empty.
	dbIt, err := NewTableIterator(db, root, nil, nil)
	require.NoError(t, err)
	require.Nil(t, dbIt.Next())

	require.NoError(t, tx.Commit())

	dbIt2, err := NewTableIterator(db, root, nil, nil)
	require.NoError(t, err)
	committed := dbIt2.Next()
	require.NotNil(t, committed)
	require.Equal(t, int64(1), committed.RowID)
}

func TestTransaction_Abort(t *testing.T) {
	db := New()

	tx, err := BeginTransaction(db)
	require.NoError(t, err)

	_, err = tx.CreateTable([]SchemaDefinition{{
		Type: "table", Name: "widgets", TblName: "widgets",
		SQL: "CREATE TABLE widgets (id INTEGER PRIMARY KEY)", PageType: LeafTable,
	}})
	require.NoError(t, err)

	tx.Abort()

	require.Equal(t, uint32(1), db.Header().DatabaseSizePages)
	_, err = db.Schema("table", "widgets")
	require.Error(t, err)
	var lookupErr *SchemaLookupError
	require.ErrorAs(t, err, &lookupErr)
}

func TestTransaction_FreelistPopIsUnsupported(t *testing.T) {
	db := New()
	h := db.Header()
	h.FreelistCount = 1
	db.setHeader(h)

	tx, err := BeginTransaction(db)
	require.NoError(t, err)

	_, err = tx.NewPage()
	require.Error(t, err)
	var unsupported *UnsupportedError
	require.ErrorAs(t, err, &unsupported)
}
