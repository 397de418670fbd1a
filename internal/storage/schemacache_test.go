package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// singlePagePageSource is a minimal PageSource backed by one pre-built
// b-tree page, enough to drive schemaCache.scan without a full Database.
type singlePagePageSource struct {
	page *BTreePage
}

func (s singlePagePageSource) BTreePage(pageNumber int) (*BTreePage, error) {
	if pageNumber != s.page.PageNumber() {
		return nil, newFormatError("unknown page", nil)
	}
	return s.page, nil
}

func newSchemaPageSource(t *testing.T, rows []SchemaRow) singlePagePageSource {
	t.Helper()
	data := make([]byte, 4096)
	p, err := FormatEmptyPage(1, LeafTable, data)
	require.NoError(t, err)

	for i, row := range rows {
		payload := EncodeRecord([]Value{
			TextValue(row.Type),
			TextValue(row.Name),
			TextValue(row.TblName),
			IntValue(int64(row.RootPage)),
			TextValue(row.SQL),
		})
		require.NoError(t, p.InsertTableRecord(int64(i+1), payload))
	}
	return singlePagePageSource{page: p}
}

func TestSchemaCache_LookupScansOnce(t *testing.T) {
	r := require.New(t)
	src := newSchemaPageSource(t, []SchemaRow{
		{Type: "table", Name: "widgets", TblName: "widgets", RootPage: 2, SQL: "CREATE TABLE widgets (x)"},
		{Type: "index", Name: "widgets_idx", TblName: "widgets", RootPage: 3, SQL: "CREATE INDEX widgets_idx ON widgets(x)"},
	})

	c := newSchemaCache()
	row, err := c.Lookup(src, "table", "widgets")
	r.NoError(err)
	r.Equal(2, row.RootPage)
	r.Equal("CREATE TABLE widgets (x)", row.SQL)

	row, err = c.Lookup(src, "index", "widgets_idx")
	r.NoError(err)
	r.Equal(3, row.RootPage)
}

func TestSchemaCache_LookupMissingReturnsSchemaLookupError(t *testing.T) {
	src := newSchemaPageSource(t, nil)
	c := newSchemaCache()

	_, err := c.Lookup(src, "table", "nonexistent")
	require.Error(t, err)
	var lookupErr *SchemaLookupError
	require.ErrorAs(t, err, &lookupErr)
	require.Equal(t, "nonexistent", lookupErr.Name)
}

func TestSchemaCache_InvalidateForcesRescan(t *testing.T) {
	r := require.New(t)
	src := newSchemaPageSource(t, []SchemaRow{
		{Type: "table", Name: "widgets", TblName: "widgets", RootPage: 2, SQL: "CREATE TABLE widgets (x)"},
	})

	c := newSchemaCache()
	_, err := c.Lookup(src, "table", "widgets")
	r.NoError(err)

	c.Invalidate()

	row, err := c.Lookup(src, "table", "widgets")
	r.NoError(err)
	r.Equal(2, row.RootPage)
}
