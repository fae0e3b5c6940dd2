package platform

import (
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// Platform is the moderation surface the engine and the background workers
// act on. Implementations must make role removal an idempotent no-op when
// the role is already unassigned.
type Platform interface {
	AssignRole(guildID, userID, roleID string) error
	RemoveRole(guildID, userID, roleID string) error
	SendMessage(channelID, content string) error
	AddReaction(channelID, messageID, emoji string) error
	// GetReactionCounts returns the reaction count per emoji name for a message.
	GetReactionCounts(channelID, messageID string) (map[string]int, error)
	ResolveMember(guildID, userID string) (*discordgo.Member, error)
}

// ErrorClass is the coarse classification of a platform failure that drives
// the workers' retry-or-cleanup decision.
type ErrorClass int

const (
	ClassNone ErrorClass = iota
	// ClassRetryable failures leave the claimed record untouched for the next tick.
	ClassRetryable
	// ClassTargetGone means the guild, member, channel or message no longer
	// exists; the record referring to it is meaningless and gets cleaned up.
	ClassTargetGone
)

// Classify maps a raw platform error onto the retry-or-cleanup taxonomy.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil {
			switch restErr.Message.Code {
			case discordgo.ErrCodeUnknownChannel,
				discordgo.ErrCodeUnknownGuild,
				discordgo.ErrCodeUnknownMember,
				discordgo.ErrCodeUnknownMessage,
				discordgo.ErrCodeUnknownRole,
				discordgo.ErrCodeUnknownUser:
				return ClassTargetGone
			}
		}
		if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return ClassTargetGone
		}
	}
	return ClassRetryable
}
