package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avylen/sqliteengine/internal/storage"
)

// Widget is a row-id table record type exercising RowRecord end to end.
type Widget struct {
	RowID int64
	Name  string
	Count int64
}

func (*Widget) SchemaType() string { return "table" }
func (*Widget) SchemaName() string { return "widgets" }

func (w *Widget) SetRowID(id int64) { w.RowID = id }

func (w *Widget) RowValues() []storage.Value {
	return []storage.Value{storage.TextValue(w.Name), storage.IntValue(w.Count)}
}

func (w *Widget) ScanRow(values []storage.Value) error {
	if len(values) < 2 {
		return newScanError("widget row has fewer than 2 columns")
	}
	name, ok := values[0].AsText()
	if !ok {
		return newScanError("widget 'name' column is not text")
	}
	count, ok := values[1].AsInt()
	if !ok {
		return newScanError("widget 'count' column is not an integer")
	}
	w.Name, w.Count = name, count
	return nil
}

func TestTable_CreateThenIterIsEmpty(t *testing.T) {
	db := storage.New()

	tx, err := storage.BeginTransaction(db)
	require.NoError(t, err)
	_, err = CreateTable[Widget](tx, "CREATE TABLE widgets (name TEXT, count INTEGER)")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	h, err := Table[Widget](db)
	require.NoError(t, err)

	entry := h.Iter().Next()
	require.Nil(t, entry)
}

func TestTable_InsertThenGetAndIter(t *testing.T) {
	db := storage.New()

	tx, err := storage.BeginTransaction(db)
	require.NoError(t, err)
	_, err = CreateTable[Widget](tx, "CREATE TABLE widgets (name TEXT, count INTEGER)")
	require.NoError(t, err)

	wh, err := TableForWrite[Widget](tx)
	require.NoError(t, err)

	id1, err := wh.Insert(Widget{Name: "sprocket", Count: 3})
	require.NoError(t, err)
	require.Equal(t, int64(1), id1)
	id2, err := wh.Insert(Widget{Name: "cog", Count: 7})
	require.NoError(t, err)
	require.Equal(t, int64(2), id2)

	require.NoError(t, tx.Commit())

	h, err := Table[Widget](db)
	require.NoError(t, err)

	row, found, err := h.Get(id2)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "cog", row.Name)
	require.Equal(t, int64(7), row.Count)

	it := h.Iter()
	var all []string
	for entry := it.Next(); entry != nil; entry = it.Next() {
		require.NoError(t, entry.Err)
		all = append(all, entry.Row.Name)
	}
	require.Equal(t, []string{"sprocket", "cog"}, all)

	_, found, err = h.Get(99)
	require.NoError(t, err)
	require.False(t, found)
}

func TestTable_GetRange(t *testing.T) {
	db := storage.New()

	tx, err := storage.BeginTransaction(db)
	require.NoError(t, err)
	_, err = CreateTable[Widget](tx, "CREATE TABLE widgets (name TEXT, count INTEGER)")
	require.NoError(t, err)
	wh, err := TableForWrite[Widget](tx)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := wh.Insert(Widget{Name: "w", Count: int64(i)})
		require.NoError(t, err)
	}
	require.NoError(t, tx.Commit())

	h, err := Table[Widget](db)
	require.NoError(t, err)

	it := h.GetRange(RowIDBetween(2, 4, true))
	var ids []int64
	for entry := it.Next(); entry != nil; entry = it.Next() {
		require.NoError(t, entry.Err)
		ids = append(ids, entry.Row.RowID)
	}
	require.Equal(t, []int64{2, 3, 4}, ids)
}
