package votes

import (
	"warden/model"
	votesdb "warden/utils/database/votes"

	"github.com/jmoiron/sqlx"
)

// Aggregator maintains the unique-voter tallies that can trigger an
// automatic sentencing job once the configured threshold is crossed.
type Aggregator struct {
	db *sqlx.DB
}

func NewAggregator(db *sqlx.DB) *Aggregator {
	return &Aggregator{db: db}
}

// AddVote counts one vote from voterID against a message, creating the tally
// on the first vote. Returns model.ErrAlreadyVoted if this voter is already
// counted; the tally is left unchanged in that case.
func (a *Aggregator) AddVote(messageID, guildID, channelID, subjectID, voterID string) (*model.VoteTally, error) {
	return votesdb.AddVoter(a.db, messageID, guildID, channelID, subjectID, voterID)
}

// RemoveVote withdraws a vote. Returns model.ErrNoSuchVote when the message
// was never voted on and model.ErrNotFound when this voter is not counted.
func (a *Aggregator) RemoveVote(messageID, voterID string) (*model.VoteTally, error) {
	return votesdb.RemoveVoter(a.db, messageID, voterID)
}

// Tally returns the current tally for a message.
func (a *Aggregator) Tally(messageID string) (*model.VoteTally, error) {
	return votesdb.GetTally(a.db, messageID)
}
