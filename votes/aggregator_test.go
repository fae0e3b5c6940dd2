package votes

import (
	"sync"
	"testing"
	"time"

	"warden/model"
	"warden/utils/database/sentences"
	votesdb "warden/utils/database/votes"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1) // :memory: is per-connection
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sentences.Init(db))
	require.NoError(t, votesdb.Init(db))
	return db
}

type fakePlatform struct {
	mu        sync.Mutex
	reactions []string
}

func (f *fakePlatform) AssignRole(guildID, userID, roleID string) error { return nil }
func (f *fakePlatform) RemoveRole(guildID, userID, roleID string) error { return nil }
func (f *fakePlatform) SendMessage(channelID, content string) error     { return nil }

func (f *fakePlatform) AddReaction(channelID, messageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, messageID+"/"+emoji)
	return nil
}

func (f *fakePlatform) GetReactionCounts(channelID, messageID string) (map[string]int, error) {
	return map[string]int{}, nil
}

func (f *fakePlatform) ResolveMember(guildID, userID string) (*discordgo.Member, error) {
	return &discordgo.Member{User: &discordgo.User{ID: userID}}, nil
}

func assertTallyMatchesVoters(t *testing.T, tally *model.VoteTally) {
	t.Helper()
	voters, err := votesdb.DecodeVoters(tally)
	require.NoError(t, err)
	assert.Equal(t, int64(len(voters)), tally.CurrentTally)
}

func TestAddVoteCountsUniqueVoters(t *testing.T) {
	agg := NewAggregator(newTestDB(t))

	tally, err := agg.AddVote("m1", "g1", "c1", "subject", "voter1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), tally.CurrentTally)
	assert.Equal(t, model.JobStatusCreated, tally.JobStatus)
	assertTallyMatchesVoters(t, tally)

	tally, err = agg.AddVote("m1", "g1", "c1", "subject", "voter2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), tally.CurrentTally)
	assertTallyMatchesVoters(t, tally)
}

func TestAddVoteRejectsDuplicateVoter(t *testing.T) {
	agg := NewAggregator(newTestDB(t))

	_, err := agg.AddVote("m1", "g1", "c1", "subject", "voter1")
	require.NoError(t, err)

	_, err = agg.AddVote("m1", "g1", "c1", "subject", "voter1")
	assert.ErrorIs(t, err, model.ErrAlreadyVoted)

	tally, err := agg.Tally("m1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), tally.CurrentTally, "a rejected duplicate must not change the tally")
	assertTallyMatchesVoters(t, tally)
}

func TestRemoveVoteWithdrawsExactlyOne(t *testing.T) {
	agg := NewAggregator(newTestDB(t))

	for _, voter := range []string{"voter1", "voter2", "voter3"} {
		_, err := agg.AddVote("m1", "g1", "c1", "subject", voter)
		require.NoError(t, err)
	}

	tally, err := agg.RemoveVote("m1", "voter2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), tally.CurrentTally)
	assertTallyMatchesVoters(t, tally)

	voters, err := votesdb.DecodeVoters(tally)
	require.NoError(t, err)
	assert.NotContains(t, voters, "voter2")
}

func TestRemoveVoteErrors(t *testing.T) {
	agg := NewAggregator(newTestDB(t))

	_, err := agg.RemoveVote("never-voted-on", "voter1")
	assert.ErrorIs(t, err, model.ErrNoSuchVote)

	_, err = agg.AddVote("m1", "g1", "c1", "subject", "voter1")
	require.NoError(t, err)

	_, err = agg.RemoveVote("m1", "someone-else")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestVoterListSurvivesReload(t *testing.T) {
	db := newTestDB(t)
	agg := NewAggregator(db)

	_, err := agg.AddVote("m1", "g1", "c1", "subject", "voter1")
	require.NoError(t, err)
	_, err = agg.AddVote("m1", "g1", "c1", "subject", "voter2")
	require.NoError(t, err)

	reloaded, err := votesdb.GetTally(db, "m1")
	require.NoError(t, err)
	voters, err := votesdb.DecodeVoters(reloaded)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"voter1", "voter2"}, voters)
	assert.Equal(t, int64(2), reloaded.CurrentTally)
}

func TestFinishedTallyAcceptsFreshVotes(t *testing.T) {
	db := newTestDB(t)
	agg := NewAggregator(db)

	for _, voter := range []string{"voter1", "voter2"} {
		_, err := agg.AddVote("m1", "g1", "c1", "subject", voter)
		require.NoError(t, err)
	}
	require.NoError(t, votesdb.FinishTally(db, "m1"))

	tally, err := agg.Tally("m1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), tally.CurrentTally)
	assert.Equal(t, int64(2), tally.TotalTally)
	assert.Equal(t, model.JobStatusDone, tally.JobStatus)

	// The same voters count again after the reset.
	tally, err = agg.AddVote("m1", "g1", "c1", "subject", "voter1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), tally.CurrentTally)
	assert.Equal(t, int64(2), tally.TotalTally)

	claimed, err := votesdb.ClaimReadyTallies(db, "claimant-a", 1, time.Now(), 2*time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1, "a done tally back over threshold is claimable again")
	assert.Equal(t, "m1", claimed[0].MessageID)
}
