// Package storetest provides an in-memory SQLite database with the service
// schema for storage tests.
package storetest

import (
	_ "embed"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// New returns a fresh database that is closed when the test ends.
// A single connection keeps every query on the same in-memory database.
func New(t testing.TB) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("apply schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}
