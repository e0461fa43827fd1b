// Package db is the SQLite layer behind the routing core. It stores the
// camera and angle-range configuration the mapper reads, and it is the
// storage sink that finalized pipeline events are handed to.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// NewDB opens (creating if necessary) a SQLite database at the given path
// and applies any pending schema migrations.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// modernc sqlite allows one writer; serialize access instead of
	// returning SQLITE_BUSY to concurrent subscribers
	sqlDB.SetMaxOpenConns(1)

	db := &DB{sqlDB}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}
