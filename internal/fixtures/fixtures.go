// Package fixtures builds real SQLite database files through the cgo
// reference driver so tests can assert this engine reads byte-for-byte
// what the reference implementation actually wrote (§6 "must read files
// produced by the reference SQLite implementation"). It is test-only
// and must never be imported by non-test code.
package fixtures

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Build creates a fresh database file in dir, runs statements against it
// through the reference engine, and returns its path. The caller is
// responsible for removing dir (typically via t.TempDir(), which
// already does so).
func Build(dir, name string, statements ...string) (string, error) {
	path := filepath.Join(dir, name)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return "", fmt.Errorf("fixtures: open %s: %w", path, err)
	}
	defer db.Close()

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return "", fmt.Errorf("fixtures: exec %q: %w", stmt, err)
		}
	}

	// mattn/go-sqlite3 keeps its own connection pool; force every page
	// to disk before handers outside this process (our engine's Open)
	// read the file.
	if err := db.Close(); err != nil {
		return "", fmt.Errorf("fixtures: close: %w", err)
	}
	// sql.DB.Close is idempotent; the deferred Close above is a no-op
	// once this has already succeeded.

	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("fixtures: stat %s: %w", path, err)
	}
	return path, nil
}

// EmptyTable returns the single CREATE TABLE statement for spec §8
// scenario 1: a table with no rows, one integer primary key column.
func EmptyTable(name string) string {
	return fmt.Sprintf("CREATE TABLE %s (id INTEGER NOT NULL PRIMARY KEY)", name)
}

// StringsTable returns the statements for spec §8 scenario 2/3: a
// TEXT PRIMARY KEY table (which SQLite backs with an implicit
// sqlite_autoindex_<table>_1 index) populated with the given values.
func StringsTable(tableName string, values ...string) []string {
	stmts := []string{
		fmt.Sprintf("CREATE TABLE %s (string TEXT PRIMARY KEY)", tableName),
	}
	for _, v := range values {
		stmts = append(stmts, fmt.Sprintf("INSERT INTO %s (string) VALUES (%q)", tableName, v))
	}
	return stmts
}

// RowCountTable returns the statements for spec §8 scenario 4: a table
// with n sequential integer-keyed rows and a text payload column. It
// forces the reference engine down to the smallest legal page size
// (512 bytes, set before the table exists — SQLite only honors
// page_size on an empty database) so that even a modest row count
// splits into a genuine multi-level b-tree instead of fitting on one
// leaf: each row is ~15 bytes, and a 512-byte usable leaf holds roughly
// 30 of them, so 120 rows reliably spans several leaves under one or
// more interior pages.
func RowCountTable(tableName string, n int) []string {
	stmts := []string{
		"PRAGMA page_size=512",
		fmt.Sprintf("CREATE TABLE %s (id INTEGER PRIMARY KEY, payload TEXT)", tableName),
	}
	for i := 1; i <= n; i++ {
		stmts = append(stmts, fmt.Sprintf("INSERT INTO %s (id, payload) VALUES (%d, 'row-%d')", tableName, i, i))
	}
	return stmts
}
