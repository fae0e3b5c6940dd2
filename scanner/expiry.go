package scanner

import (
	"fmt"
	"log"

	"warden/model"
	"warden/platform"
	"warden/utils/database/sentences"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
)

// ExpiryScanner is the background loop that releases sentences once their
// release time has passed. Correctness under concurrent instances rests
// entirely on the store's claim semantics, never on process-level locking.
type ExpiryScanner struct {
	db       *sqlx.DB
	platform platform.Platform
	clock    clockwork.Clock
	cfg      *model.Config
	claimant string
}

func NewExpiryScanner(db *sqlx.DB, p platform.Platform, clock clockwork.Clock, cfg *model.Config) *ExpiryScanner {
	return &ExpiryScanner{
		db:       db,
		platform: p,
		clock:    clock,
		cfg:      cfg,
		claimant: uuid.NewString(),
	}
}

// Start runs the scan loop until done is closed, draining the current tick
// before stopping.
func (sc *ExpiryScanner) Start(done <-chan struct{}) {
	ticker := sc.clock.NewTicker(sc.cfg.Moderation.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.Chan():
			sc.Tick()
		}
	}
}

// Tick claims every expired sentence and tries to release each one.
func (sc *ExpiryScanner) Tick() {
	claimed, err := sentences.ClaimExpiredSentences(sc.db, sc.claimant, sc.clock.Now(), sc.cfg.Moderation.ClaimStaleness)
	if err != nil {
		log.Printf("Expiry scan failed: %v", err)
		return
	}
	for _, record := range claimed {
		sc.release(record)
	}
}

// release removes the enforcement role and retires the record. A retryable
// platform failure leaves the row claimed for the next tick, which gives
// at-least-once release semantics; the platform-side role removal is an
// idempotent no-op when the role is already unassigned.
func (sc *ExpiryScanner) release(record model.Sentence) {
	err := sc.platform.RemoveRole(record.GuildID, record.UserID, record.RoleID)
	switch platform.Classify(err) {
	case platform.ClassNone:
		notice := fmt.Sprintf("<@%s> has served their sentence and has been released.", record.UserID)
		if err := sc.platform.SendMessage(record.ChannelID, notice); err != nil {
			log.Printf("Failed to post release notice for sentence %d: %v", record.SentenceID, err)
		}
	case platform.ClassTargetGone:
		// Nothing left to release; the record is meaningless now.
		log.Printf("Target gone for sentence %d, deleting record: %v", record.SentenceID, err)
	case platform.ClassRetryable:
		log.Printf("Failed to remove role %s from user %s: %v", record.RoleID, record.UserID, err)
		return
	}

	if err := sentences.DeleteSentence(sc.db, record.SentenceID); err != nil {
		log.Printf("Failed to delete released sentence %d: %v", record.SentenceID, err)
	}
}
