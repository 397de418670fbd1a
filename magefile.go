//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test runs the full test suite verbosely.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Vet runs go vet across the module.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Build compiles the sqlitekit binary into ./bin.
func Build() error {
	mg.Deps(Vet)
	return sh.RunV("go", "build", "-o", "bin/sqlitekit", "./cmd/sqlitekit")
}

// Fixtures runs only the internal/fixtures-backed integration tests,
// which require cgo (mattn/go-sqlite3) to be enabled.
func Fixtures() error {
	return sh.RunWith(map[string]string{"CGO_ENABLED": "1"}, "go", "test", "./internal/storage/...", "./schema/...", "-run", "Fixture|^TestIndex_|^TestTable_GetWithIndex$")
}

// Default is the target `mage` runs with no arguments.
var Default = Build
