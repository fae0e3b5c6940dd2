package sentences

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"warden/model"

	"github.com/jmoiron/sqlx"
)

// AddSentence inserts a new active sentence and returns its ID. It fails if
// an active sentence already exists for the same subject (unique index).
func AddSentence(db *sqlx.DB, record model.Sentence) (int64, error) {
	query := `INSERT INTO sentences (user_id, guild_id, role_id, channel_id, message_id, active, duration_secs, created_at, release_at, remoderated)
			  VALUES (:user_id, :guild_id, :role_id, :channel_id, :message_id, :active, :duration_secs, :created_at, :release_at, :remoderated)`

	result, err := db.NamedExec(query, record)
	if err != nil {
		return 0, fmt.Errorf("failed to insert sentence: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

// ExtendActiveSentence adds the given number of seconds to the active
// sentence for (user, guild). The arithmetic happens in the store so two
// concurrent extensions both land. Returns false if no active sentence exists.
func ExtendActiveSentence(db *sqlx.DB, guildID, userID string, addedSecs int64) (bool, error) {
	query := `UPDATE sentences SET duration_secs = duration_secs + ?, release_at = release_at + ?
			  WHERE guild_id = ? AND user_id = ? AND active = 1`
	result, err := db.Exec(query, addedSecs, addedSecs, guildID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to extend sentence for user %s in guild %s: %w", userID, guildID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// GetActiveSentence retrieves the active sentence for a user in a guild.
// Returns model.ErrNotFound if the user is not currently sentenced.
func GetActiveSentence(db *sqlx.DB, guildID, userID string) (*model.Sentence, error) {
	var record model.Sentence
	query := "SELECT * FROM sentences WHERE guild_id = ? AND user_id = ? AND active = 1"
	err := db.Get(&record, query, guildID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active sentence for user %s in guild %s: %w", userID, guildID, err)
	}
	return &record, nil
}

// GetSentenceByID retrieves a single sentence by its primary key.
func GetSentenceByID(db *sqlx.DB, id int64) (*model.Sentence, error) {
	var record model.Sentence
	query := "SELECT * FROM sentences WHERE sentence_id = ?"
	err := db.Get(&record, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sentence by id %d: %w", id, err)
	}
	return &record, nil
}

// GetActiveSentencesByGuild retrieves all active sentences for a guild.
func GetActiveSentencesByGuild(db *sqlx.DB, guildID string) ([]model.Sentence, error) {
	var records []model.Sentence
	query := "SELECT * FROM sentences WHERE guild_id = ? AND active = 1 ORDER BY release_at ASC"
	err := db.Select(&records, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active sentences for guild %s: %w", guildID, err)
	}
	return records, nil
}

// DeleteSentence removes a sentence record by its primary key.
func DeleteSentence(db *sqlx.DB, id int64) error {
	query := "DELETE FROM sentences WHERE sentence_id = ?"
	if _, err := db.Exec(query, id); err != nil {
		return fmt.Errorf("failed to delete sentence %d: %w", id, err)
	}
	return nil
}

// SetRemoderated marks a sentence as re-applied after a rejoin.
func SetRemoderated(db *sqlx.DB, id int64) error {
	query := "UPDATE sentences SET remoderated = 1 WHERE sentence_id = ?"
	if _, err := db.Exec(query, id); err != nil {
		return fmt.Errorf("failed to mark sentence %d as remoderated: %w", id, err)
	}
	return nil
}

// ClaimExpiredSentences claims every active sentence whose release time has
// passed. A row is claimable when it is unclaimed, already held by this
// claimant, or its claim has gone stale. Each claim is a compare-and-swap so
// two concurrent claimants never both win the same row.
func ClaimExpiredSentences(db *sqlx.DB, claimant string, now time.Time, staleness time.Duration) ([]model.Sentence, error) {
	nowUnix := now.Unix()
	staleBefore := now.Add(-staleness).Unix()

	var ids []int64
	query := `SELECT sentence_id FROM sentences
			  WHERE active = 1 AND release_at <= ?
			  AND (claimed_by = '' OR claimed_by = ? OR claimed_at < ?)`
	if err := db.Select(&ids, query, nowUnix, claimant, staleBefore); err != nil {
		return nil, fmt.Errorf("failed to list expired sentences: %w", err)
	}

	var claimed []model.Sentence
	for _, id := range ids {
		ok, err := claimSentence(db, id, claimant, nowUnix, staleBefore)
		if err != nil {
			return claimed, err
		}
		if !ok {
			continue // lost the race to another claimant
		}
		record, err := GetSentenceByID(db, id)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return claimed, err
		}
		claimed = append(claimed, *record)
	}
	return claimed, nil
}

func claimSentence(db *sqlx.DB, id int64, claimant string, nowUnix, staleBefore int64) (bool, error) {
	query := `UPDATE sentences SET claimed_by = ?, claimed_at = ?
			  WHERE sentence_id = ? AND active = 1 AND release_at <= ?
			  AND (claimed_by = '' OR claimed_by = ? OR claimed_at < ?)`
	result, err := db.Exec(query, claimant, nowUnix, id, nowUnix, claimant, staleBefore)
	if err != nil {
		return false, fmt.Errorf("failed to claim sentence %d: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected for sentence %d: %w", id, err)
	}
	return rowsAffected == 1, nil
}

// ClaimSentence claims one active sentence regardless of its release time,
// with the same compare-and-swap rules as the expiry scan. An explicit
// release takes the row this way so it never races a scanner already
// holding a fresh claim. Returns false when the claim is lost.
func ClaimSentence(db *sqlx.DB, id int64, claimant string, now time.Time, staleness time.Duration) (bool, error) {
	staleBefore := now.Add(-staleness).Unix()
	query := `UPDATE sentences SET claimed_by = ?, claimed_at = ?
			  WHERE sentence_id = ? AND active = 1
			  AND (claimed_by = '' OR claimed_by = ? OR claimed_at < ?)`
	result, err := db.Exec(query, claimant, now.Unix(), id, claimant, staleBefore)
	if err != nil {
		return false, fmt.Errorf("failed to claim sentence %d: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected for sentence %d: %w", id, err)
	}
	return rowsAffected == 1, nil
}

// ReleaseClaim clears a claim so other workers can pick the row up again.
func ReleaseClaim(db *sqlx.DB, id int64) error {
	query := "UPDATE sentences SET claimed_by = '', claimed_at = 0 WHERE sentence_id = ?"
	if _, err := db.Exec(query, id); err != nil {
		return fmt.Errorf("failed to release claim on sentence %d: %w", id, err)
	}
	return nil
}

// GetOffenseCount returns how many times a user has been sentenced in a guild.
func GetOffenseCount(db *sqlx.DB, guildID, userID string) (int64, error) {
	var count int64
	query := "SELECT COALESCE((SELECT usage_count FROM offense_counters WHERE guild_id = ? AND user_id = ?), 0)"
	if err := db.Get(&count, query, guildID, userID); err != nil {
		return 0, fmt.Errorf("failed to get offense count for user %s in guild %s: %w", userID, guildID, err)
	}
	return count, nil
}

// IncrementOffenseCount atomically bumps the offense counter for a user.
func IncrementOffenseCount(db *sqlx.DB, guildID, userID string) error {
	query := `INSERT INTO offense_counters (user_id, guild_id, usage_count) VALUES (?, ?, 1)
			  ON CONFLICT(user_id, guild_id) DO UPDATE SET usage_count = usage_count + 1`
	if _, err := db.Exec(query, userID, guildID); err != nil {
		return fmt.Errorf("failed to increment offense count for user %s in guild %s: %w", userID, guildID, err)
	}
	return nil
}

// GetTopOffenders returns the guild's offense counters ordered by count.
func GetTopOffenders(db *sqlx.DB, guildID string, limit int) ([]model.OffenseCounter, error) {
	var records []model.OffenseCounter
	query := "SELECT * FROM offense_counters WHERE guild_id = ? ORDER BY usage_count DESC LIMIT ?"
	err := db.Select(&records, query, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top offenders for guild %s: %w", guildID, err)
	}
	return records, nil
}

// GetSentenceStats returns the number of sentences created in a guild since
// the given time.
func GetSentenceStats(db *sqlx.DB, guildID string, since time.Time) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM sentences WHERE guild_id = ? AND created_at >= ?"
	if err := db.Get(&count, query, guildID, since.Unix()); err != nil {
		return 0, fmt.Errorf("failed to get sentence stats for guild %s: %w", guildID, err)
	}
	return count, nil
}
