package sentences

import (
	"testing"
	"time"

	"warden/model"

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
	require.NoError(t, Init(db))
	return db
}

func addExpired(t *testing.T, db *sqlx.DB, userID string, now time.Time) int64 {
	t.Helper()
	id, err := AddSentence(db, model.Sentence{
		UserID:       userID,
		GuildID:      "g1",
		RoleID:       "r1",
		ChannelID:    "c1",
		Active:       true,
		DurationSecs: 60,
		CreatedAt:    now.Unix() - 70,
		ReleaseAt:    now.Unix() - 10,
	})
	require.NoError(t, err)
	return id
}

func TestActiveSentenceIsUniquePerSubject(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	addExpired(t, db, "u1", now)

	_, err := AddSentence(db, model.Sentence{
		UserID: "u1", GuildID: "g1", RoleID: "r1", Active: true,
		DurationSecs: 60, CreatedAt: now.Unix(), ReleaseAt: now.Unix() + 60,
	})
	assert.ErrorContains(t, err, "UNIQUE constraint failed")

	// A different guild is a different subject.
	_, err = AddSentence(db, model.Sentence{
		UserID: "u1", GuildID: "g2", RoleID: "r1", Active: true,
		DurationSecs: 60, CreatedAt: now.Unix(), ReleaseAt: now.Unix() + 60,
	})
	assert.NoError(t, err)
}

func TestExtendActiveSentence(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	id := addExpired(t, db, "u1", now)

	extended, err := ExtendActiveSentence(db, "g1", "u1", 300)
	require.NoError(t, err)
	assert.True(t, extended)

	record, err := GetSentenceByID(db, id)
	require.NoError(t, err)
	assert.Equal(t, int64(360), record.DurationSecs)
	assert.Equal(t, now.Unix()-10+300, record.ReleaseAt)

	extended, err = ExtendActiveSentence(db, "g1", "nobody", 300)
	require.NoError(t, err)
	assert.False(t, extended)
}

func TestClaimExpiredSentencesIsExclusive(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	staleness := 2 * time.Minute
	addExpired(t, db, "u1", now)
	addExpired(t, db, "u2", now)

	claimedA, err := ClaimExpiredSentences(db, "worker-a", now, staleness)
	require.NoError(t, err)
	assert.Len(t, claimedA, 2)

	claimedB, err := ClaimExpiredSentences(db, "worker-b", now, staleness)
	require.NoError(t, err)
	assert.Empty(t, claimedB, "fresh claims are exclusive")

	// The same claimant can pick its own rows back up.
	claimedA, err = ClaimExpiredSentences(db, "worker-a", now, staleness)
	require.NoError(t, err)
	assert.Len(t, claimedA, 2)

	// A stale claim is up for grabs again.
	later := now.Add(staleness + time.Second)
	claimedB, err = ClaimExpiredSentences(db, "worker-b", later, staleness)
	require.NoError(t, err)
	assert.Len(t, claimedB, 2)
}

func TestClaimSkipsUnexpiredSentences(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	_, err := AddSentence(db, model.Sentence{
		UserID: "u1", GuildID: "g1", RoleID: "r1", Active: true,
		DurationSecs: 600, CreatedAt: now.Unix(), ReleaseAt: now.Unix() + 600,
	})
	require.NoError(t, err)

	claimed, err := ClaimExpiredSentences(db, "worker-a", now, 2*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestClaimSentenceIgnoresReleaseTime(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	staleness := 2 * time.Minute

	// Not expired yet, but an explicit release can still claim it.
	id, err := AddSentence(db, model.Sentence{
		UserID: "u1", GuildID: "g1", RoleID: "r1", Active: true,
		DurationSecs: 600, CreatedAt: now.Unix(), ReleaseAt: now.Unix() + 600,
	})
	require.NoError(t, err)

	ok, err := ClaimSentence(db, id, "releaser", now, staleness)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ClaimSentence(db, id, "scanner-a", now, staleness)
	require.NoError(t, err)
	assert.False(t, ok, "a fresh foreign claim must hold")

	ok, err = ClaimSentence(db, id, "releaser", now, staleness)
	require.NoError(t, err)
	assert.True(t, ok, "the holder can re-take its own claim")

	ok, err = ClaimSentence(db, id, "scanner-a", now.Add(staleness+time.Second), staleness)
	require.NoError(t, err)
	assert.True(t, ok, "a stale claim is up for grabs")
}

func TestReleaseClaim(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	id := addExpired(t, db, "u1", now)

	claimed, err := ClaimExpiredSentences(db, "worker-a", now, 2*time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	require.NoError(t, ReleaseClaim(db, id))
	claimed, err = ClaimExpiredSentences(db, "worker-b", now, 2*time.Minute)
	require.NoError(t, err)
	assert.Len(t, claimed, 1)
}

func TestOffenseCounter(t *testing.T) {
	db := newTestDB(t)

	count, err := GetOffenseCount(db, "g1", "u1")
	require.NoError(t, err)
	assert.Zero(t, count, "a clean record starts at zero")

	require.NoError(t, IncrementOffenseCount(db, "g1", "u1"))
	require.NoError(t, IncrementOffenseCount(db, "g1", "u1"))
	require.NoError(t, IncrementOffenseCount(db, "g1", "u2"))

	count, err = GetOffenseCount(db, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	top, err := GetTopOffenders(db, "g1", 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "u1", top[0].UserID)
	assert.Equal(t, int64(2), top[0].UsageCount)
}
