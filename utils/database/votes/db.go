package votes

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Init ensures the voting tables exist on the shared database handle.
func Init(db *sqlx.DB) error {
	talliesSchema := `CREATE TABLE IF NOT EXISTS vote_tallies (
	          message_id TEXT NOT NULL PRIMARY KEY,
	          guild_id TEXT NOT NULL,
	          channel_id TEXT NOT NULL,
	          user_id TEXT NOT NULL,
	          current_tally INTEGER NOT NULL DEFAULT 0,
	          total_tally INTEGER NOT NULL DEFAULT 0,
	          voters TEXT NOT NULL DEFAULT '[]',
	          job_status TEXT NOT NULL DEFAULT 'created',
	          claimed_by TEXT NOT NULL DEFAULT '',
	          claimed_at INTEGER NOT NULL DEFAULT 0
	      );`
	if _, err := db.Exec(talliesSchema); err != nil {
		return fmt.Errorf("failed to create vote_tallies table: %w", err)
	}

	requestsSchema := `CREATE TABLE IF NOT EXISTS vote_requests (
	          request_id INTEGER PRIMARY KEY AUTOINCREMENT,
	          requester_id TEXT NOT NULL,
	          user_id TEXT NOT NULL,
	          guild_id TEXT NOT NULL,
	          role_id TEXT NOT NULL,
	          message_id TEXT NOT NULL,
	          channel_id TEXT NOT NULL,
	          processed INTEGER NOT NULL DEFAULT 0,
	          created_at INTEGER NOT NULL,
	          claimed_by TEXT NOT NULL DEFAULT '',
	          claimed_at INTEGER NOT NULL DEFAULT 0
	      );`
	if _, err := db.Exec(requestsSchema); err != nil {
		return fmt.Errorf("failed to create vote_requests table: %w", err)
	}

	return nil
}
