package utils

import (
	"fmt"

	"warden/model"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// OpenDB opens the shared sqlite handle. WAL keeps the background workers
// and command handlers from starving each other, and immediate transactions
// serialize the tally read-modify-write.
func OpenDB(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate&_fk=1", path)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to %s: %v", model.ErrStoreUnavailable, path, err)
	}
	return db, nil
}
