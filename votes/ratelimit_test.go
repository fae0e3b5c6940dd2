package votes

import (
	"testing"
	"time"

	"warden/model"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenVoteEnforcesHourlyCap(t *testing.T) {
	db := newTestDB(t)
	p := &fakePlatform{}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	cfg := model.ModerationConfig{
		HourlyRequestCap: 3,
		YesReactionEmoji: "✅",
		NoReactionEmoji:  "❌",
	}
	requests := NewRequests(db, p, clock, cfg)

	// The cap is inclusive: the request made at exactly cap prior requests
	// still goes through, so cap+1 requests land before the limiter bites.
	for n := 0; n < 4; n++ {
		record, err := requests.OpenVote("requester", "subject", "g1", "r1", "m1", "c1")
		require.NoError(t, err, "request %d", n+1)
		assert.NotZero(t, record.RequestID)
		clock.Advance(time.Minute)
	}

	_, err := requests.OpenVote("requester", "subject", "g1", "r1", "m1", "c1")
	assert.ErrorIs(t, err, model.ErrRateLimited)

	// Another requester is not affected by the first one's cap.
	_, err = requests.OpenVote("other", "subject", "g1", "r1", "m1", "c1")
	assert.NoError(t, err)

	// Once the earliest request falls out of the trailing hour, room opens up.
	clock.Advance(57 * time.Minute)
	_, err = requests.OpenVote("requester", "subject", "g1", "r1", "m1", "c1")
	assert.NoError(t, err)
}

func TestOpenVoteSeedsBallotReactions(t *testing.T) {
	db := newTestDB(t)
	p := &fakePlatform{}
	cfg := model.ModerationConfig{
		HourlyRequestCap: 10,
		YesReactionEmoji: "✅",
		NoReactionEmoji:  "❌",
	}
	requests := NewRequests(db, p, clockwork.NewFakeClock(), cfg)

	_, err := requests.OpenVote("requester", "subject", "g1", "r1", "m1", "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1/✅", "m1/❌"}, p.reactions)
}
