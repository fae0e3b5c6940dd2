package sentencing

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"warden/model"
	"warden/platform"
	"warden/utils/database/sentences"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
)

// Engine creates, extends and releases sentences. It is the single path
// through which both direct commands and vote outcomes moderate a user.
type Engine struct {
	db       *sqlx.DB
	platform platform.Platform
	clock    clockwork.Clock
	cfg      model.ModerationConfig
	claimant string
}

func NewEngine(db *sqlx.DB, p platform.Platform, clock clockwork.Clock, cfg model.ModerationConfig) *Engine {
	return &Engine{db: db, platform: p, clock: clock, cfg: cfg, claimant: uuid.NewString()}
}

// EscalatedDuration computes base doubled per prior offense, clamped to max.
// The shift is guarded so the arithmetic never overflows before the clamp.
func EscalatedDuration(base, max time.Duration, usageCount int64) time.Duration {
	if base <= 0 {
		return 0
	}
	if base >= max {
		return max
	}
	if usageCount >= 63 {
		return max
	}
	if base > max>>uint(usageCount) {
		return max
	}
	return base << uint(usageCount)
}

// EscalatedDuration computes the sentence duration for a subject with the
// given prior offense count, using the configured base and cap.
func (e *Engine) EscalatedDuration(usageCount int64) time.Duration {
	return EscalatedDuration(e.cfg.BaseDuration, e.cfg.MaxDuration, usageCount)
}

// Sentence applies a time-boxed sentence against a user. If the user already
// has an active sentence in the guild, the existing record is extended by the
// given duration instead of creating a duplicate. The enforcement role
// assignment is best-effort: a platform failure is returned alongside the
// persisted record, and the expiry scanner remains the recovery path.
func (e *Engine) Sentence(guildID, userID, roleID string, duration time.Duration, channelID, messageID string) (*model.Sentence, error) {
	if duration < 0 {
		return nil, model.ErrInvalidDuration
	}

	addedSecs := int64(duration / time.Second)
	extended, err := sentences.ExtendActiveSentence(e.db, guildID, userID, addedSecs)
	if err != nil {
		return nil, err
	}
	if !extended {
		now := e.clock.Now().Unix()
		record := model.Sentence{
			UserID:       userID,
			GuildID:      guildID,
			RoleID:       roleID,
			ChannelID:    channelID,
			MessageID:    messageID,
			Active:       true,
			DurationSecs: addedSecs,
			CreatedAt:    now,
			ReleaseAt:    now + addedSecs,
		}
		if _, err := sentences.AddSentence(e.db, record); err != nil {
			// A concurrent first offense won the insert race; extend instead.
			if !isUniqueViolation(err) {
				return nil, err
			}
			if _, err := sentences.ExtendActiveSentence(e.db, guildID, userID, addedSecs); err != nil {
				return nil, err
			}
		}
	}

	record, err := sentences.GetActiveSentence(e.db, guildID, userID)
	if err != nil {
		return nil, err
	}

	if err := e.platform.AssignRole(guildID, userID, roleID); err != nil {
		log.Printf("Sentence %d recorded but role assignment failed for user %s in guild %s: %v",
			record.SentenceID, userID, guildID, err)
		return record, fmt.Errorf("sentence recorded, but role assignment failed: %w", err)
	}
	return record, nil
}

// SentenceEscalated sentences a user with a duration escalated by their prior
// offense count. The duration is computed from the pre-increment count and
// the counter is bumped atomically only after the record is durable, so two
// concurrent triggers never double-count.
func (e *Engine) SentenceEscalated(guildID, userID, roleID, channelID, messageID string) (*model.Sentence, error) {
	count, err := sentences.GetOffenseCount(e.db, guildID, userID)
	if err != nil {
		return nil, err
	}
	record, err := e.Sentence(guildID, userID, roleID, e.EscalatedDuration(count), channelID, messageID)
	if record == nil {
		return nil, err
	}
	if incErr := sentences.IncrementOffenseCount(e.db, guildID, userID); incErr != nil {
		log.Printf("Failed to increment offense count for user %s in guild %s: %v", userID, guildID, incErr)
	}
	return record, err
}

// Release ends a sentence and removes the enforcement role. Releasing an
// already released sentence is a no-op. The row is claimed first with the
// same compare-and-swap the expiry scanner uses, so a scanner holding a
// fresh claim and an explicit release never both act; losing the claim
// surfaces model.ErrAlreadyReleasing. When the platform reports the target
// gone the record is deleted anyway; a retryable platform failure clears
// the claim and keeps the record so the expiry scanner converges on it
// later.
func (e *Engine) Release(sentenceID int64) error {
	record, err := sentences.GetSentenceByID(e.db, sentenceID)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	ok, err := sentences.ClaimSentence(e.db, sentenceID, e.claimant, e.clock.Now(), e.cfg.ClaimStaleness)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("sentence %d: %w", sentenceID, model.ErrAlreadyReleasing)
	}

	if err := e.platform.RemoveRole(record.GuildID, record.UserID, record.RoleID); err != nil {
		if platform.Classify(err) == platform.ClassRetryable {
			if clearErr := sentences.ReleaseClaim(e.db, sentenceID); clearErr != nil {
				log.Printf("Failed to clear claim on sentence %d: %v", sentenceID, clearErr)
			}
			return fmt.Errorf("failed to remove enforcement role for sentence %d: %w", sentenceID, err)
		}
		log.Printf("Target gone while releasing sentence %d, deleting record: %v", sentenceID, err)
	}
	return sentences.DeleteSentence(e.db, sentenceID)
}

// OnMemberRejoin re-applies the enforcement role when a sentenced user leaves
// and rejoins the guild to evade their sentence.
func (e *Engine) OnMemberRejoin(guildID, userID string) error {
	record, err := sentences.GetActiveSentence(e.db, guildID, userID)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := e.platform.AssignRole(guildID, userID, record.RoleID); err != nil {
		return fmt.Errorf("failed to re-apply enforcement role for sentence %d: %w", record.SentenceID, err)
	}
	if err := sentences.SetRemoderated(e.db, record.SentenceID); err != nil {
		log.Printf("Failed to flag sentence %d as remoderated: %v", record.SentenceID, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
