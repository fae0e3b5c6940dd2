package votes

import (
	"fmt"
	"log"
	"time"

	"warden/model"
	"warden/platform"
	votesdb "warden/utils/database/votes"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
)

// Requests opens reaction votes, guarded by a per-requester rate limit.
type Requests struct {
	db       *sqlx.DB
	platform platform.Platform
	clock    clockwork.Clock
	cfg      model.ModerationConfig
}

func NewRequests(db *sqlx.DB, p platform.Platform, clock clockwork.Clock, cfg model.ModerationConfig) *Requests {
	return &Requests{db: db, platform: p, clock: clock, cfg: cfg}
}

// CanRequestVote reports whether the requester may open another vote. The
// cap is inclusive: only more than the configured number of requests in the
// trailing hour shuts the requester out.
func (r *Requests) CanRequestVote(requesterID string) (bool, error) {
	since := r.clock.Now().Add(-time.Hour)
	count, err := votesdb.CountRequestsByRequesterSince(r.db, requesterID, since)
	if err != nil {
		return false, err
	}
	return count <= r.cfg.HourlyRequestCap, nil
}

// OpenVote creates a vote request against a message and seeds the two ballot
// reactions. The rate limit is checked synchronously before the record is
// created; callers get model.ErrRateLimited once the requester is over cap.
func (r *Requests) OpenVote(requesterID, subjectID, guildID, roleID, messageID, channelID string) (*model.VoteRequest, error) {
	ok, err := r.CanRequestVote(requesterID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrRateLimited
	}

	record := model.VoteRequest{
		RequesterID: requesterID,
		UserID:      subjectID,
		GuildID:     guildID,
		RoleID:      roleID,
		MessageID:   messageID,
		ChannelID:   channelID,
		Processed:   false,
		CreatedAt:   r.clock.Now().Unix(),
	}
	id, err := votesdb.AddVoteRequest(r.db, record)
	if err != nil {
		return nil, fmt.Errorf("failed to open vote request: %w", err)
	}
	record.RequestID = id

	// Seed exactly one reaction per ballot option; the processor subtracts
	// these seeds when counting.
	for _, emoji := range []string{r.cfg.YesReactionEmoji, r.cfg.NoReactionEmoji} {
		if err := r.platform.AddReaction(channelID, messageID, emoji); err != nil {
			log.Printf("Failed to seed %s reaction on message %s: %v", emoji, messageID, err)
		}
	}
	return &record, nil
}
