package votes

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"warden/model"

	"github.com/jmoiron/sqlx"
)

// DecodeVoters unpacks the JSON voter list stored on a tally row.
func DecodeVoters(tally *model.VoteTally) ([]string, error) {
	var voters []string
	if err := json.Unmarshal([]byte(tally.Voters), &voters); err != nil {
		return nil, fmt.Errorf("failed to parse voters for message %s: %w", tally.MessageID, err)
	}
	return voters, nil
}

// GetTally retrieves the vote tally for a message.
// Returns model.ErrNotFound if no tally exists.
func GetTally(db *sqlx.DB, messageID string) (*model.VoteTally, error) {
	var record model.VoteTally
	query := "SELECT * FROM vote_tallies WHERE message_id = ?"
	err := db.Get(&record, query, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote tally for message %s: %w", messageID, err)
	}
	return &record, nil
}

// AddVoter records one vote from voterID against a message, creating the
// tally row on the first vote. The read-modify-write runs in a single
// transaction so current_tally always equals the number of voters.
// Returns model.ErrAlreadyVoted if the voter is already counted.
func AddVoter(db *sqlx.DB, messageID, guildID, channelID, userID, voterID string) (*model.VoteTally, error) {
	tx, err := db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var record model.VoteTally
	err = tx.Get(&record, "SELECT * FROM vote_tallies WHERE message_id = ?", messageID)
	if errors.Is(err, sql.ErrNoRows) {
		voters, _ := json.Marshal([]string{voterID})
		record = model.VoteTally{
			MessageID:    messageID,
			GuildID:      guildID,
			ChannelID:    channelID,
			UserID:       userID,
			CurrentTally: 1,
			TotalTally:   0,
			Voters:       string(voters),
			JobStatus:    model.JobStatusCreated,
		}
		insert := `INSERT INTO vote_tallies (message_id, guild_id, channel_id, user_id, current_tally, total_tally, voters, job_status)
				   VALUES (:message_id, :guild_id, :channel_id, :user_id, :current_tally, :total_tally, :voters, :job_status)`
		if _, err := tx.NamedExec(insert, record); err != nil {
			return nil, fmt.Errorf("failed to create vote tally for message %s: %w", messageID, err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit vote: %w", err)
		}
		return &record, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote tally for message %s: %w", messageID, err)
	}

	voters, err := DecodeVoters(&record)
	if err != nil {
		return nil, err
	}
	for _, v := range voters {
		if v == voterID {
			return nil, model.ErrAlreadyVoted
		}
	}
	voters = append(voters, voterID)

	if err := updateVoters(tx, &record, voters); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit vote: %w", err)
	}
	return &record, nil
}

// RemoveVoter withdraws a previously recorded vote. Returns
// model.ErrNoSuchVote if the message has no tally and model.ErrNotFound if
// the voter never voted on it.
func RemoveVoter(db *sqlx.DB, messageID, voterID string) (*model.VoteTally, error) {
	tx, err := db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var record model.VoteTally
	err = tx.Get(&record, "SELECT * FROM vote_tallies WHERE message_id = ?", messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNoSuchVote
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote tally for message %s: %w", messageID, err)
	}

	voters, err := DecodeVoters(&record)
	if err != nil {
		return nil, err
	}
	found := false
	remaining := voters[:0]
	for _, v := range voters {
		if v == voterID {
			found = true
			continue
		}
		remaining = append(remaining, v)
	}
	if !found {
		return nil, model.ErrNotFound
	}

	if err := updateVoters(tx, &record, remaining); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit vote removal: %w", err)
	}
	return &record, nil
}

func updateVoters(tx *sqlx.Tx, record *model.VoteTally, voters []string) error {
	encoded, err := json.Marshal(voters)
	if err != nil {
		return fmt.Errorf("failed to serialize voters for message %s: %w", record.MessageID, err)
	}
	record.Voters = string(encoded)
	record.CurrentTally = int64(len(voters))

	query := "UPDATE vote_tallies SET current_tally = ?, voters = ? WHERE message_id = ?"
	if _, err := tx.Exec(query, record.CurrentTally, record.Voters, record.MessageID); err != nil {
		return fmt.Errorf("failed to update vote tally for message %s: %w", record.MessageID, err)
	}
	return nil
}

// ClaimReadyTallies claims every tally whose current count has reached the
// threshold. Rows already marked done are claimable again because fresh votes
// after a reset can retrigger the threshold. The compare-and-swap claim makes
// sure concurrent workers never both win a row.
func ClaimReadyTallies(db *sqlx.DB, claimant string, threshold int64, now time.Time, staleness time.Duration) ([]model.VoteTally, error) {
	nowUnix := now.Unix()
	staleBefore := now.Add(-staleness).Unix()

	var ids []string
	query := `SELECT message_id FROM vote_tallies
			  WHERE current_tally >= ?
			  AND (claimed_by = '' OR claimed_by = ? OR claimed_at < ?)`
	if err := db.Select(&ids, query, threshold, claimant, staleBefore); err != nil {
		return nil, fmt.Errorf("failed to list ready vote tallies: %w", err)
	}

	var claimed []model.VoteTally
	for _, id := range ids {
		claim := `UPDATE vote_tallies SET claimed_by = ?, claimed_at = ?
				  WHERE message_id = ? AND current_tally >= ?
				  AND (claimed_by = '' OR claimed_by = ? OR claimed_at < ?)`
		result, err := db.Exec(claim, claimant, nowUnix, id, threshold, claimant, staleBefore)
		if err != nil {
			return claimed, fmt.Errorf("failed to claim vote tally %s: %w", id, err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return claimed, fmt.Errorf("failed to check rows affected for tally %s: %w", id, err)
		}
		if rowsAffected != 1 {
			continue // lost the race to another claimant
		}
		record, err := GetTally(db, id)
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

// FinishTally marks a processed tally done: the current count folds into the
// lifetime total, the voter list empties and the claim clears, so the same
// message can accumulate a fresh round of votes.
func FinishTally(db *sqlx.DB, messageID string) error {
	query := `UPDATE vote_tallies SET job_status = ?, total_tally = total_tally + current_tally,
			  current_tally = 0, voters = '[]', claimed_by = '', claimed_at = 0
			  WHERE message_id = ?`
	if _, err := db.Exec(query, model.JobStatusDone, messageID); err != nil {
		return fmt.Errorf("failed to finish vote tally for message %s: %w", messageID, err)
	}
	return nil
}

// ReleaseTallyClaim clears a claim without finishing the tally.
func ReleaseTallyClaim(db *sqlx.DB, messageID string) error {
	query := "UPDATE vote_tallies SET claimed_by = '', claimed_at = 0 WHERE message_id = ?"
	if _, err := db.Exec(query, messageID); err != nil {
		return fmt.Errorf("failed to release claim on tally %s: %w", messageID, err)
	}
	return nil
}

// AddVoteRequest stores a newly opened reaction vote and returns its ID.
func AddVoteRequest(db *sqlx.DB, record model.VoteRequest) (int64, error) {
	query := `INSERT INTO vote_requests (requester_id, user_id, guild_id, role_id, message_id, channel_id, processed, created_at)
			  VALUES (:requester_id, :user_id, :guild_id, :role_id, :message_id, :channel_id, :processed, :created_at)`
	result, err := db.NamedExec(query, record)
	if err != nil {
		return 0, fmt.Errorf("failed to insert vote request: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

// ClaimDueRequests claims every unprocessed vote request whose voting window
// has elapsed, using the same compare-and-swap claim as the tallies.
func ClaimDueRequests(db *sqlx.DB, claimant string, now time.Time, window, staleness time.Duration) ([]model.VoteRequest, error) {
	nowUnix := now.Unix()
	dueBefore := now.Add(-window).Unix()
	staleBefore := now.Add(-staleness).Unix()

	var ids []int64
	query := `SELECT request_id FROM vote_requests
			  WHERE processed = 0 AND created_at <= ?
			  AND (claimed_by = '' OR claimed_by = ? OR claimed_at < ?)`
	if err := db.Select(&ids, query, dueBefore, claimant, staleBefore); err != nil {
		return nil, fmt.Errorf("failed to list due vote requests: %w", err)
	}

	var claimed []model.VoteRequest
	for _, id := range ids {
		claim := `UPDATE vote_requests SET claimed_by = ?, claimed_at = ?
				  WHERE request_id = ? AND processed = 0
				  AND (claimed_by = '' OR claimed_by = ? OR claimed_at < ?)`
		result, err := db.Exec(claim, claimant, nowUnix, id, claimant, staleBefore)
		if err != nil {
			return claimed, fmt.Errorf("failed to claim vote request %d: %w", id, err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return claimed, fmt.Errorf("failed to check rows affected for request %d: %w", id, err)
		}
		if rowsAffected != 1 {
			continue
		}
		var record model.VoteRequest
		err = db.Get(&record, "SELECT * FROM vote_requests WHERE request_id = ?", id)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return claimed, fmt.Errorf("failed to get vote request %d: %w", id, err)
		}
		claimed = append(claimed, record)
	}
	return claimed, nil
}

// MarkRequestProcessed resolves a vote request. Processed only ever flips
// false to true.
func MarkRequestProcessed(db *sqlx.DB, id int64) error {
	query := "UPDATE vote_requests SET processed = 1, claimed_by = '', claimed_at = 0 WHERE request_id = ? AND processed = 0"
	if _, err := db.Exec(query, id); err != nil {
		return fmt.Errorf("failed to mark vote request %d processed: %w", id, err)
	}
	return nil
}

// DeleteVoteRequest removes a vote request whose target no longer exists.
func DeleteVoteRequest(db *sqlx.DB, id int64) error {
	query := "DELETE FROM vote_requests WHERE request_id = ?"
	if _, err := db.Exec(query, id); err != nil {
		return fmt.Errorf("failed to delete vote request %d: %w", id, err)
	}
	return nil
}

// ReleaseRequestClaim clears a claim without resolving the request.
func ReleaseRequestClaim(db *sqlx.DB, id int64) error {
	query := "UPDATE vote_requests SET claimed_by = '', claimed_at = 0 WHERE request_id = ?"
	if _, err := db.Exec(query, id); err != nil {
		return fmt.Errorf("failed to release claim on vote request %d: %w", id, err)
	}
	return nil
}

// CountRequestsByRequesterSince counts the vote requests a user opened after
// the given time. The anti-abuse limiter reads this before a new request.
func CountRequestsByRequesterSince(db *sqlx.DB, requesterID string, since time.Time) (int64, error) {
	var count int64
	query := "SELECT COUNT(*) FROM vote_requests WHERE requester_id = ? AND created_at >= ?"
	if err := db.Get(&count, query, requesterID, since.Unix()); err != nil {
		return 0, fmt.Errorf("failed to count vote requests for requester %s: %w", requesterID, err)
	}
	return count, nil
}
