package model

// Job status values for a vote tally.
const (
	JobStatusCreated = "created"
	JobStatusDone    = "done"
)

// VoteTally aggregates community votes against a single message.
// Voters is a JSON array of voter IDs stored as TEXT.
type VoteTally struct {
	MessageID    string `db:"message_id"` // Primary Key
	GuildID      string `db:"guild_id"`
	ChannelID    string `db:"channel_id"`
	UserID       string `db:"user_id"` // author of the message, i.e. the subject
	CurrentTally int64  `db:"current_tally"`
	TotalTally   int64  `db:"total_tally"`
	Voters       string `db:"voters"` // JSON array of voter IDs
	JobStatus    string `db:"job_status"`
	ClaimedBy    string `db:"claimed_by"`
	ClaimedAt    int64  `db:"claimed_at"`
}

// VoteRequest is a one-shot reaction vote that is resolved once its
// voting window has elapsed.
type VoteRequest struct {
	RequestID   int64  `db:"request_id"` // Primary Key, Auto-increment
	RequesterID string `db:"requester_id"`
	UserID      string `db:"user_id"` // the accused sender
	GuildID     string `db:"guild_id"`
	RoleID      string `db:"role_id"`
	MessageID   string `db:"message_id"`
	ChannelID   string `db:"channel_id"`
	Processed   bool   `db:"processed"`
	CreatedAt   int64  `db:"created_at"`
	ClaimedBy   string `db:"claimed_by"`
	ClaimedAt   int64  `db:"claimed_at"`
}
