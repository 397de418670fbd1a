package storage

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Database owns an optional backing file handle, the parsed header, and
// the shared page store (§4.4). It is safe for concurrent use by many
// readers; only Transaction.Commit requires exclusive access.
type Database struct {
	fileMu sync.Mutex // serializes seek+read against the backing file (§5)
	file   *os.File

	headerMu sync.RWMutex
	header   FileHeader

	store  *pageStore
	schema *schemaCache
	log    *logrus.Entry
}

// Schema looks up a named schema-table row (table, index, view, or
// trigger), per §4.9.
func (db *Database) Schema(schemaType, name string) (SchemaRow, error) {
	return db.schema.Lookup(db, schemaType, name)
}

// New returns an in-memory database: no backing file, page store seeded
// with a freshly formatted page 1 holding the default header and an
// empty leaf-table B-tree (the schema table).
func New() *Database {
	const pageSize = 4096
	header := NewFileHeader(pageSize)

	data := make([]byte, pageSize)
	if _, err := FormatEmptyPage(1, LeafTable, data); err != nil {
		// FormatEmptyPage only fails if the buffer is too small for its
		// own header, which cannot happen for any page size >= 512.
		panic(err)
	}
	header.WriteTo(data[:headerSize])

	db := &Database{
		header: header,
		store:  newPageStore(),
		schema: newSchemaCache(),
		log:    logrus.NewEntry(logrus.StandardLogger()),
	}
	db.store.InsertOrReplace(&MemPage{PageNumber: 1, Data: data})
	return db
}

// Open opens path, reading bytes 0..100 as the header and validating
// it. An existing file must already hold at least one page.
func Open(path string) (*Database, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	headerBytes := make([]byte, headerSize)
	if _, err := file.ReadAt(headerBytes, 0); err != nil {
		file.Close()
		return nil, err
	}

	header, err := ParseFileHeader(headerBytes)
	if err != nil {
		file.Close()
		return nil, err
	}

	db := &Database{
		file:   file,
		header: header,
		store:  newPageStore(),
		schema: newSchemaCache(),
		log:    logrus.NewEntry(logrus.StandardLogger()),
	}
	db.log.WithFields(logrus.Fields{
		"path":      path,
		"page_size": header.PageSize,
		"pages":     header.DatabaseSizePages,
	}).Info("opened database")
	return db, nil
}

// WithLogger attaches a structured logger, returning the same Database
// for chaining.
func (db *Database) WithLogger(log *logrus.Entry) *Database {
	db.log = log
	return db
}

// Header returns a copy of the current in-memory header.
func (db *Database) Header() FileHeader {
	db.headerMu.RLock()
	defer db.headerMu.RUnlock()
	return db.header
}

func (db *Database) setHeader(h FileHeader) {
	db.headerMu.Lock()
	db.header = h
	db.headerMu.Unlock()
}

// Page returns the bytes of page n, reading them from the backing file
// on first access. Page numbers are 1-based and bounded by the header's
// database_size.
func (db *Database) Page(n int) (*MemPage, error) {
	h := db.Header()
	if n < 1 || n > int(h.DatabaseSizePages) {
		return nil, &BoundsError{Page: n, PageSize: int(h.DatabaseSizePages)}
	}

	return db.store.GetOrInsert(n, func() (*MemPage, error) {
		if db.file == nil {
			return nil, &BoundsError{Page: n, PageSize: int(h.DatabaseSizePages)}
		}

		db.fileMu.Lock()
		defer db.fileMu.Unlock()

		data := make([]byte, h.PageSize)
		offset := int64(n-1) * int64(h.PageSize)
		if _, err := db.file.ReadAt(data, offset); err != nil {
			return nil, err
		}
		db.log.WithField("page", n).Debug("loaded page from disk")
		return &MemPage{PageNumber: n, Data: data}, nil
	})
}

// BTreePage satisfies PageSource: it fetches the page and parses it as
// a b-tree page view.
func (db *Database) BTreePage(n int) (*BTreePage, error) {
	mem, err := db.Page(n)
	if err != nil {
		return nil, err
	}
	return ParseBTreePage(n, mem.Data, db.Header().ReservedSpace)
}

// SaveAs materialises every page 1..database_size, writes them in order
// to a new file, and adopts that file as the backing store.
func (db *Database) SaveAs(path string) error {
	h := db.Header()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	for n := 1; n <= int(h.DatabaseSizePages); n++ {
		mem, err := db.Page(n)
		if err != nil {
			f.Close()
			return err
		}
		offset := int64(n-1) * int64(h.PageSize)
		if _, err := f.WriteAt(mem.Data, offset); err != nil {
			f.Close()
			return err
		}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}

	db.fileMu.Lock()
	old := db.file
	db.file = f
	db.fileMu.Unlock()
	if old != nil {
		old.Close()
	}

	db.log.WithField("path", path).Info("saved database")
	return nil
}

// ClearCache drops cached pages so the next read re-materialises them
// from the backing file. Only legal when the database has a file
// backing, since an in-memory database has no other source of truth.
func (db *Database) ClearCache() error {
	if db.file == nil {
		return newUnsupportedError("clear_cache requires a file-backed database")
	}
	db.store.Clear()
	db.schema.Invalidate()
	return nil
}
