package sentences

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Init ensures the sentencing tables exist on the shared database handle.
func Init(db *sqlx.DB) error {
	schema := `CREATE TABLE IF NOT EXISTS sentences (
	          sentence_id INTEGER PRIMARY KEY AUTOINCREMENT,
	          user_id TEXT NOT NULL,
	          guild_id TEXT NOT NULL,
	          role_id TEXT NOT NULL,
	          channel_id TEXT NOT NULL DEFAULT '',
	          message_id TEXT NOT NULL DEFAULT '',
	          active INTEGER NOT NULL DEFAULT 1,
	          duration_secs INTEGER NOT NULL,
	          created_at INTEGER NOT NULL,
	          release_at INTEGER NOT NULL,
	          remoderated INTEGER NOT NULL DEFAULT 0,
	          claimed_by TEXT NOT NULL DEFAULT '',
	          claimed_at INTEGER NOT NULL DEFAULT 0
	      );`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create sentences table: %w", err)
	}

	// One active sentence per subject per guild; concurrent first offenses
	// lose the insert race and fall back to extending.
	activeIndex := `CREATE UNIQUE INDEX IF NOT EXISTS idx_sentences_active_subject
	          ON sentences(user_id, guild_id) WHERE active = 1;`
	if _, err := db.Exec(activeIndex); err != nil {
		return fmt.Errorf("failed to create active sentence index: %w", err)
	}

	countersSchema := `CREATE TABLE IF NOT EXISTS offense_counters (
	          user_id TEXT NOT NULL,
	          guild_id TEXT NOT NULL,
	          usage_count INTEGER NOT NULL DEFAULT 0,
	          PRIMARY KEY (user_id, guild_id)
	      );`
	if _, err := db.Exec(countersSchema); err != nil {
		return fmt.Errorf("failed to create offense_counters table: %w", err)
	}

	return nil
}
