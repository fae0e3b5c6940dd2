package scanner

import (
	"fmt"
	"log"

	"warden/model"
	"warden/platform"
	"warden/sentencing"
	votesdb "warden/utils/database/votes"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
)

// Each ballot option carries exactly one bot seed reaction, planted when the
// vote request opens. The processor subtracts it before comparing counts.
const seedReactions = 1

// VoteJobProcessor is the background loop that turns threshold-crossed
// tallies and elapsed vote requests into sentencing calls.
type VoteJobProcessor struct {
	db       *sqlx.DB
	platform platform.Platform
	engine   *sentencing.Engine
	clock    clockwork.Clock
	cfg      *model.Config
	claimant string
}

func NewVoteJobProcessor(db *sqlx.DB, p platform.Platform, engine *sentencing.Engine, clock clockwork.Clock, cfg *model.Config) *VoteJobProcessor {
	return &VoteJobProcessor{
		db:       db,
		platform: p,
		engine:   engine,
		clock:    clock,
		cfg:      cfg,
		claimant: uuid.NewString(),
	}
}

// Start runs the processing loop until done is closed.
func (p *VoteJobProcessor) Start(done <-chan struct{}) {
	ticker := p.clock.NewTicker(p.cfg.Moderation.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.Chan():
			p.Tick()
		}
	}
}

// Tick claims and processes the ready tallies, then the due vote requests.
func (p *VoteJobProcessor) Tick() {
	p.processTallies()
	p.processRequests()
}

func (p *VoteJobProcessor) processTallies() {
	claimed, err := votesdb.ClaimReadyTallies(p.db, p.claimant, p.cfg.Moderation.VoteThreshold, p.clock.Now(), p.cfg.Moderation.ClaimStaleness)
	if err != nil {
		log.Printf("Vote tally scan failed: %v", err)
		return
	}

	for _, tally := range claimed {
		roleID := p.roleFor(tally.GuildID)
		record, err := p.engine.SentenceEscalated(tally.GuildID, tally.UserID, roleID, tally.ChannelID, tally.MessageID)
		if record == nil {
			if platform.Classify(err) == platform.ClassRetryable {
				log.Printf("Failed to sentence user %s for tally %s: %v", tally.UserID, tally.MessageID, err)
				continue // stays claimed, retried next tick
			}
			log.Printf("Target gone while sentencing for tally %s: %v", tally.MessageID, err)
		} else if err != nil {
			// Record is durable; role assignment recovers via rejoin or retry.
			log.Printf("Sentenced user %s for tally %s with degraded enforcement: %v", tally.UserID, tally.MessageID, err)
		}

		if err := votesdb.FinishTally(p.db, tally.MessageID); err != nil {
			log.Printf("Failed to finish tally %s: %v", tally.MessageID, err)
			continue
		}
		notice := fmt.Sprintf("<@%s> has been sentenced by community vote (%d votes).", tally.UserID, tally.CurrentTally)
		if err := p.platform.SendMessage(tally.ChannelID, notice); err != nil {
			log.Printf("Failed to post vote notice for tally %s: %v", tally.MessageID, err)
		}
	}
}

func (p *VoteJobProcessor) processRequests() {
	claimed, err := votesdb.ClaimDueRequests(p.db, p.claimant, p.clock.Now(), p.cfg.Moderation.VoteWindow, p.cfg.Moderation.ClaimStaleness)
	if err != nil {
		log.Printf("Vote request scan failed: %v", err)
		return
	}

	for _, request := range claimed {
		p.resolveRequest(request)
	}
}

// resolveRequest reads the final reaction counts of an elapsed vote, decides
// the outcome and sentences the resulting target. A failed challenge
// sentences the requester, not the accused.
func (p *VoteJobProcessor) resolveRequest(request model.VoteRequest) {
	counts, err := p.platform.GetReactionCounts(request.ChannelID, request.MessageID)
	if err != nil {
		if platform.Classify(err) == platform.ClassTargetGone {
			log.Printf("Target gone for vote request %d, deleting record: %v", request.RequestID, err)
			if err := votesdb.DeleteVoteRequest(p.db, request.RequestID); err != nil {
				log.Printf("Failed to delete vote request %d: %v", request.RequestID, err)
			}
			return
		}
		log.Printf("Failed to read reactions for vote request %d: %v", request.RequestID, err)
		return // stays claimed, retried next tick
	}

	yes := p.ballotCount(counts, p.cfg.Moderation.YesReactionEmoji, request.RequestID)
	no := p.ballotCount(counts, p.cfg.Moderation.NoReactionEmoji, request.RequestID)
	outcome := DecideOutcome(yes, no)
	target := outcome.Target(request.RequesterID, request.UserID)

	record, err := p.engine.SentenceEscalated(request.GuildID, target, request.RoleID, request.ChannelID, request.MessageID)
	if record == nil {
		if platform.Classify(err) == platform.ClassRetryable {
			log.Printf("Failed to sentence user %s for vote request %d: %v", target, request.RequestID, err)
			return
		}
		log.Printf("Target gone while sentencing for vote request %d, deleting record: %v", request.RequestID, err)
		if err := votesdb.DeleteVoteRequest(p.db, request.RequestID); err != nil {
			log.Printf("Failed to delete vote request %d: %v", request.RequestID, err)
		}
		return
	}
	if err != nil {
		log.Printf("Sentenced user %s for vote request %d with degraded enforcement: %v", target, request.RequestID, err)
	}

	if err := votesdb.MarkRequestProcessed(p.db, request.RequestID); err != nil {
		log.Printf("Failed to mark vote request %d processed: %v", request.RequestID, err)
		return
	}

	verdict := "The vote failed; the challenger takes the sentence."
	if outcome == OutcomePassed {
		verdict = "The vote passed."
	}
	notice := fmt.Sprintf("%s <@%s> has been sentenced (%d yes / %d no).", verdict, target, yes, no)
	if err := p.platform.SendMessage(request.ChannelID, notice); err != nil {
		log.Printf("Failed to post verdict for vote request %d: %v", request.RequestID, err)
	}
}

// ballotCount subtracts the bot's seed reaction from a raw count. A count
// below the seed means the seeding never landed; treat it as zero votes.
func (p *VoteJobProcessor) ballotCount(counts map[string]int, emoji string, requestID int64) int {
	count := counts[emoji] - seedReactions
	if count < 0 {
		log.Printf("Reaction count for %s on vote request %d is below the seed, treating as zero", emoji, requestID)
		return 0
	}
	return count
}

// roleFor picks the configured enforcement role for a guild.
func (p *VoteJobProcessor) roleFor(guildID string) string {
	if server, ok := p.cfg.ServerConfigs[guildID]; ok {
		return server.SentenceRoleID
	}
	return ""
}
