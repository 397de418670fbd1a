package storage

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Transaction is a write session over a Database (§4.10). It snapshots
// the header's mutable counters and shadows reads through a map of dirty
// pages so that committed readers never observe partial writes. It holds
// no lock on the Database between BeginTransaction and Commit or Abort:
// nothing stops a second transaction from being begun on the same
// Database in the meantime.
type Transaction struct {
	db  *Database
	id  uuid.UUID
	log *logrus.Entry

	dirty map[int]*MemPage

	databaseSize  uint32
	freelistHead  uint32
	freelistCount uint32

	committed bool
	aborted   bool
}

// BeginTransaction starts a write session on db. If the database
// is file-backed, the header is re-read from disk; if its file-change
// counter advanced since it was last observed, the page cache and
// schema cache are invalidated before the new snapshot is taken (§4.10,
// and §3 of SPEC_FULL.md's note on `clear_cache` semantics).
func BeginTransaction(db *Database) (*Transaction, error) {
	db.fileMu.Lock()
	if db.file != nil {
		headerBytes := make([]byte, headerSize)
		if _, err := db.file.ReadAt(headerBytes, 0); err != nil {
			db.fileMu.Unlock()
			return nil, err
		}
		newHeader, err := ParseFileHeader(headerBytes)
		if err != nil {
			db.fileMu.Unlock()
			return nil, err
		}
		if newHeader.FileChangeCounter != db.Header().FileChangeCounter {
			db.store.Clear()
			db.schema.Invalidate()
		}
		db.setHeader(newHeader)
	}
	db.fileMu.Unlock()

	h := db.Header()
	id := uuid.New()
	tx := &Transaction{
		db:            db,
		id:            id,
		dirty:         make(map[int]*MemPage),
		databaseSize:  h.DatabaseSizePages,
		freelistHead:  h.FreelistHead,
		freelistCount: h.FreelistCount,
		log:           db.log.WithField("tx", id.String()),
	}
	tx.log.Info("began transaction")
	return tx, nil
}

// ID returns the transaction's identity, attached to every log line for
// its lifetime.
func (tx *Transaction) ID() uuid.UUID { return tx.id }

// Schema resolves a named schema-table row against the transaction's own
// dirty-shadowed view of page 1, so a handle opened against an
// in-progress transaction sees a table CreateTable staged but has not
// yet committed. Unlike Database.Schema this never caches: the scan is
// cheap (one page, typically) and the dirty map changes on every write.
func (tx *Transaction) Schema(schemaType, name string) (SchemaRow, error) {
	it, err := NewTableIterator(tx, 1, nil, nil)
	if err != nil {
		return SchemaRow{}, err
	}
	for entry := it.Next(); entry != nil; entry = it.Next() {
		if entry.Err != nil {
			return SchemaRow{}, entry.Err
		}
		row, err := decodeSchemaRow(entry.Payload)
		if err != nil {
			return SchemaRow{}, err
		}
		if row.Type == schemaType && row.Name == name {
			return row, nil
		}
	}
	return SchemaRow{}, &SchemaLookupError{SchemaType: schemaType, Name: name}
}

// Page returns the dirty copy of n if present, otherwise the database's
// committed bytes (read-your-writes consistency).
func (tx *Transaction) Page(n int) (*MemPage, error) {
	if p, ok := tx.dirty[n]; ok {
		return p, nil
	}
	return tx.db.Page(n)
}

// BTreePage satisfies PageSource over the transaction's dirty-shadowed
// view of the database.
func (tx *Transaction) BTreePage(n int) (*BTreePage, error) {
	mem, err := tx.Page(n)
	if err != nil {
		return nil, err
	}
	return ParseBTreePage(n, mem.Data, tx.db.Header().ReservedSpace)
}

// NewPage allocates a fresh page, marks it dirty, and advances the
// transaction's database-size snapshot. The freelist pop path remains a
// documented stub (§4.10/§9): it only ever succeeds trivially by
// falling through to fresh allocation when the freelist is empty; a
// non-empty freelist is UnsupportedError rather than a silent no-op.
func (tx *Transaction) NewPage() (*MemPage, error) {
	if tx.freelistCount != 0 {
		return nil, newUnsupportedError("freelist pop is not implemented")
	}

	pageSize := tx.db.Header().PageSize
	n := int(tx.databaseSize) + 1
	p := &MemPage{PageNumber: n, Data: make([]byte, pageSize)}
	tx.dirty[n] = p
	tx.databaseSize = uint32(n)
	return p, nil
}

// PageMut copies the committed page into the dirty map on first touch
// and returns mutable access to that copy.
func (tx *Transaction) PageMut(n int) (*MemPage, error) {
	if p, ok := tx.dirty[n]; ok {
		return p, nil
	}
	committed, err := tx.db.Page(n)
	if err != nil {
		return nil, err
	}
	data := make([]byte, len(committed.Data))
	copy(data, committed.Data)
	p := &MemPage{PageNumber: n, Data: data}
	tx.dirty[n] = p
	return p, nil
}

// BTreePageMut returns a mutable b-tree page view over the
// transaction's dirty copy of page n, via PageMut, for callers (schema
// package's WritableTableHandle.Insert, CreateTable below) that need to
// write cells rather than just read them.
func (tx *Transaction) BTreePageMut(n int) (*BTreePage, error) {
	mem, err := tx.PageMut(n)
	if err != nil {
		return nil, err
	}
	return ParseBTreePage(n, mem.Data, tx.db.Header().ReservedSpace)
}

// SchemaDefinition describes one row CreateTable must add to the schema
// table, and the page type to format its fresh root page as (LeafTable
// for the table itself, LeafIndex for any auto-index).
type SchemaDefinition struct {
	Type     string
	Name     string
	TblName  string
	SQL      string
	PageType PageType
}

// CreateTable allocates a fresh root page per schema definition, formats
// it as an empty B-tree of the requested type, and inserts the
// corresponding row(s) into the schema table's root page (§4.10).
func (tx *Transaction) CreateTable(defs []SchemaDefinition) ([]SchemaRow, error) {
	rows := make([]SchemaRow, 0, len(defs))
	for _, def := range defs {
		page, err := tx.NewPage()
		if err != nil {
			return nil, err
		}
		if _, err := FormatEmptyPage(page.PageNumber, def.PageType, page.Data); err != nil {
			return nil, err
		}

		row := SchemaRow{
			Type:     def.Type,
			Name:     def.Name,
			TblName:  def.TblName,
			RootPage: page.PageNumber,
			SQL:      def.SQL,
		}

		view, err := tx.BTreePageMut(1)
		if err != nil {
			return nil, err
		}

		payload := EncodeRecord([]Value{
			TextValue(row.Type),
			TextValue(row.Name),
			TextValue(row.TblName),
			IntValue(int64(row.RootPage)),
			TextValue(row.SQL),
		})
		rowID := int64(view.CellCount() + 1)
		if err := view.InsertTableRecord(rowID, payload); err != nil {
			return nil, err
		}

		rows = append(rows, row)
	}
	return rows, nil
}

// Commit publishes every dirty page into the database's page store,
// writes the transaction's advanced counters into the header, and
// persists that header into page 1's bytes. It is all-or-nothing in the
// sense that nothing here can partially fail without the whole call
// returning an error — there is no journal to roll back, so a failure
// midway (a logic error, not an I/O fault, since all writes here are
// in-memory) would leave the store in a mixed state; this matches
// spec's explicit non-goal of crash-safe durability.
func (tx *Transaction) Commit() error {
	page1 := tx.dirty[1]
	if page1 == nil {
		committed, err := tx.db.Page(1)
		if err != nil {
			return err
		}
		data := make([]byte, len(committed.Data))
		copy(data, committed.Data)
		page1 = &MemPage{PageNumber: 1, Data: data}
	}

	h := tx.db.Header()
	h.DatabaseSizePages = tx.databaseSize
	h.FreelistHead = tx.freelistHead
	h.FreelistCount = tx.freelistCount
	h.FileChangeCounter++
	h.WriteTo(page1.Data[:headerSize])

	for n, p := range tx.dirty {
		if n == 1 {
			continue
		}
		tx.db.store.InsertOrReplace(p)
	}
	tx.db.store.InsertOrReplace(page1)
	tx.db.setHeader(h)
	tx.db.schema.Invalidate()

	tx.committed = true
	tx.log.Info("committed transaction")
	return nil
}

// Abort discards the dirty map without touching committed state.
// Dropping a Transaction without calling Commit has the same effect;
// Abort exists for the idiomatic `defer tx.Abort()` pattern.
func (tx *Transaction) Abort() {
	if tx.committed {
		return
	}
	tx.aborted = true
	tx.dirty = nil
	tx.log.Info("aborted transaction")
}
