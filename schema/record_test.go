package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avylen/sqliteengine/internal/storage"
)

func TestSchemaRecord_TableReadsSqliteSchemaItself(t *testing.T) {
	r := require.New(t)
	db := storage.New()

	tx, err := storage.BeginTransaction(db)
	r.NoError(err)
	_, err = CreateTable[Widget](tx, "CREATE TABLE widgets (name TEXT, count INTEGER)")
	r.NoError(err)
	r.NoError(tx.Commit())

	h, err := Table[SchemaRecord](db)
	r.NoError(err)
	r.Equal(1, h.RootPage())

	var rows []SchemaRecord
	it := h.Iter()
	for entry := it.Next(); entry != nil; entry = it.Next() {
		r.NoError(entry.Err)
		rows = append(rows, entry.Row)
	}
	r.Len(rows, 1)
	r.Equal("widgets", rows[0].Name)
	r.Equal("table", rows[0].Type)
}
