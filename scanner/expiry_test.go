package scanner

import (
	"sync"
	"testing"
	"time"

	"warden/model"
	"warden/utils/database/sentences"
	votesdb "warden/utils/database/votes"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
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

func testConfig() *model.Config {
	return &model.Config{
		Moderation: model.ModerationConfig{
			VoteThreshold:    2,
			BaseDuration:     5 * time.Minute,
			MaxDuration:      30 * 24 * time.Hour,
			PollInterval:     time.Second,
			VoteWindow:       10 * time.Minute,
			HourlyRequestCap: 300,
			ClaimStaleness:   2 * time.Minute,
			YesReactionEmoji: "✅",
			NoReactionEmoji:  "❌",
		},
		ServerConfigs: map[string]model.ServerConfig{
			"g1": {GuildID: "g1", Enable: true, SentenceRoleID: "enforce-role"},
		},
	}
}

type fakePlatform struct {
	mu        sync.Mutex
	assigned  []string
	removed   []string
	messages  []string
	counts    map[string]int
	assignErr error
	removeErr error
	countsErr error
}

func (f *fakePlatform) AssignRole(guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.assignErr != nil {
		return f.assignErr
	}
	f.assigned = append(f.assigned, guildID+"/"+userID+"/"+roleID)
	return nil
}

func (f *fakePlatform) RemoveRole(guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, guildID+"/"+userID+"/"+roleID)
	return nil
}

func (f *fakePlatform) SendMessage(channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, content)
	return nil
}

func (f *fakePlatform) AddReaction(channelID, messageID, emoji string) error { return nil }

func (f *fakePlatform) GetReactionCounts(channelID, messageID string) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countsErr != nil {
		return nil, f.countsErr
	}
	return f.counts, nil
}

func (f *fakePlatform) ResolveMember(guildID, userID string) (*discordgo.Member, error) {
	return &discordgo.Member{User: &discordgo.User{ID: userID}}, nil
}

func targetGoneErr() error {
	return &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMember}}
}

func addSentenceAt(t *testing.T, db *sqlx.DB, userID string, releaseAt int64) int64 {
	t.Helper()
	id, err := sentences.AddSentence(db, model.Sentence{
		UserID:       userID,
		GuildID:      "g1",
		RoleID:       "enforce-role",
		ChannelID:    "c1",
		Active:       true,
		DurationSecs: 600,
		CreatedAt:    releaseAt - 600,
		ReleaseAt:    releaseAt,
	})
	require.NoError(t, err)
	return id
}

func TestTickReleasesOnlyExpiredSentences(t *testing.T) {
	db := newTestDB(t)
	p := &fakePlatform{}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	sc := NewExpiryScanner(db, p, clock, testConfig())

	now := clock.Now().Unix()
	expired := addSentenceAt(t, db, "u1", now-10)
	future := addSentenceAt(t, db, "u2", now+1000)

	sc.Tick()

	assert.Equal(t, []string{"g1/u1/enforce-role"}, p.removed)
	require.Len(t, p.messages, 1)
	assert.Contains(t, p.messages[0], "<@u1>")

	_, err := sentences.GetSentenceByID(db, expired)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = sentences.GetSentenceByID(db, future)
	assert.NoError(t, err, "an unexpired sentence must be left alone")
}

func TestTickRetriesAfterTransientPlatformFailure(t *testing.T) {
	db := newTestDB(t)
	p := &fakePlatform{removeErr: assert.AnError}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	sc := NewExpiryScanner(db, p, clock, testConfig())

	id := addSentenceAt(t, db, "u1", clock.Now().Unix()-10)

	sc.Tick()
	record, err := sentences.GetSentenceByID(db, id)
	require.NoError(t, err, "a retryable failure must keep the record")
	assert.NotEmpty(t, record.ClaimedBy)
	assert.Empty(t, p.messages)

	// The platform recovers; the next tick converges.
	p.removeErr = nil
	sc.Tick()
	_, err = sentences.GetSentenceByID(db, id)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Len(t, p.messages, 1)
}

func TestTickCleansUpWhenTargetGone(t *testing.T) {
	db := newTestDB(t)
	p := &fakePlatform{removeErr: targetGoneErr()}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	sc := NewExpiryScanner(db, p, clock, testConfig())

	id := addSentenceAt(t, db, "u1", clock.Now().Unix()-10)

	sc.Tick()
	_, err := sentences.GetSentenceByID(db, id)
	assert.ErrorIs(t, err, model.ErrNotFound, "a gone target leaves nothing to keep")
	assert.Empty(t, p.messages)
}

func TestClaimExclusivityBetweenScanners(t *testing.T) {
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	cfg := testConfig()

	// Scanner A hits a transient failure, so its claim stays on the row.
	pA := &fakePlatform{removeErr: assert.AnError}
	scA := NewExpiryScanner(db, pA, clock, cfg)
	pB := &fakePlatform{}
	scB := NewExpiryScanner(db, pB, clock, cfg)

	id := addSentenceAt(t, db, "u1", clock.Now().Unix()-10)
	scA.Tick()

	scB.Tick()
	_, err := sentences.GetSentenceByID(db, id)
	require.NoError(t, err, "a fresh claim by A must keep B out")
	assert.Empty(t, pB.removed)

	// Once A's claim goes stale, B takes the row over.
	clock.Advance(cfg.Moderation.ClaimStaleness + time.Second)
	scB.Tick()
	_, err = sentences.GetSentenceByID(db, id)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Len(t, pB.removed, 1)
}
