package model

// Sentence represents a single active moderation sentence in the database.
// The database table will be named 'sentences'.
type Sentence struct {
	SentenceID   int64  `db:"sentence_id"` // Primary Key, Auto-increment
	UserID       string `db:"user_id"`
	GuildID      string `db:"guild_id"`
	RoleID       string `db:"role_id"`
	ChannelID    string `db:"channel_id"`
	MessageID    string `db:"message_id"`
	Active       bool   `db:"active"`
	DurationSecs int64  `db:"duration_secs"`
	CreatedAt    int64  `db:"created_at"`
	ReleaseAt    int64  `db:"release_at"`
	Remoderated  bool   `db:"remoderated"`
	ClaimedBy    string `db:"claimed_by"`
	ClaimedAt    int64  `db:"claimed_at"`
}

// OffenseCounter tracks how many times a user has been sentenced in a guild.
// It is only ever mutated by an atomic upsert increment.
type OffenseCounter struct {
	UserID     string `db:"user_id"`
	GuildID    string `db:"guild_id"`
	UsageCount int64  `db:"usage_count"`
}
