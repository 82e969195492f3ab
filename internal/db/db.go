package db

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

const (
	// Both option sets use WAL mode so reads and writes don't block each
	// other, enforce foreign keys and wait up to 5 seconds for locks.
	// The write options additionally use immediate transactions, so a
	// transaction takes its write lock at BEGIN instead of at the first
	// write. The auth core relies on this: check-then-write sequences such
	// as the first-admin count and the reset token cooldown check are
	// serialized by the database.
	writeOptions = "?_foreign_keys=on&_journal_mode=wal&_busy_timeout=5000&_txlock=immediate"
	readOptions  = "?mode=ro&_foreign_keys=on&_journal_mode=wal&_busy_timeout=5000"
)

// OpenSQLite opens a pool of SQLite3 connections. Different settings are
// appropriate for reading and writing, so this function needs to know what
// the sql.DB will be used for.
func OpenSQLite(dbFile string, write bool) (*sql.DB, error) {
	optsPostfix := readOptions
	if write {
		optsPostfix = writeOptions
	}

	db, err := sql.Open("sqlite3", dbFile+optsPostfix)
	if err != nil {
		return nil, err
	}

	if write {
		// use only a single connection for writing.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		// don't close this connection.
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	return db, nil
}
