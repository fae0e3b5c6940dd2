package moderation

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"warden/bot"
	"warden/model"
	"warden/utils"
	"warden/utils/database/sentences"

	"github.com/bwmarrin/discordgo"
)

// HandleSentenceCommand applies a sentence to a user. Without an explicit
// duration the engine escalates from the subject's prior offense count.
func HandleSentenceCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	cfg := b.GetConfig()
	serverCfg, ok := cfg.ServerConfigs[i.GuildID]
	if !ok {
		utils.SendFollowUpError(s, i.Interaction, "This server has no moderation configuration.")
		return
	}
	if !utils.IsModerator(i.Member.Roles, i.Member.User.ID, serverCfg, cfg.DeveloperUserIDs) {
		utils.SendFollowUpError(s, i.Interaction, "You do not have permission to use this command.")
		return
	}

	options := parseOptions(i)
	targetUser := options.user(s, i, "user")
	if targetUser == nil {
		utils.SendFollowUpError(s, i.Interaction, "Could not resolve the target user.")
		return
	}

	targetMember, err := b.Platform.ResolveMember(i.GuildID, targetUser.ID)
	if err != nil {
		log.Printf("Error getting member details: %v", err)
		utils.SendFollowUpError(s, i.Interaction, "Could not retrieve member details.")
		return
	}
	if utils.IsWhitelisted(targetMember.Roles, serverCfg) {
		utils.SendFollowUpError(s, i.Interaction, "This user is on the whitelist and cannot be sentenced.")
		return
	}

	var record *model.Sentence
	if durationStr, ok := options.str("duration"); ok {
		duration, err := utils.ParseDuration(durationStr)
		if err != nil {
			utils.SendFollowUpError(s, i.Interaction, fmt.Sprintf("Invalid duration: %s", durationStr))
			return
		}
		record, err = b.Engine.Sentence(i.GuildID, targetUser.ID, serverCfg.SentenceRoleID, duration, i.ChannelID, "")
		if record == nil {
			replySentencingError(s, i, err)
			return
		}
		if err != nil {
			utils.SendFollowUp(s, i.Interaction, fmt.Sprintf(
				"Sentence recorded for <@%s> until <t:%d:R>, but the role could not be applied yet: %v",
				targetUser.ID, record.ReleaseAt, err))
			return
		}
	} else {
		record, err = b.Engine.SentenceEscalated(i.GuildID, targetUser.ID, serverCfg.SentenceRoleID, i.ChannelID, "")
		if record == nil {
			replySentencingError(s, i, err)
			return
		}
		if err != nil {
			utils.SendFollowUp(s, i.Interaction, fmt.Sprintf(
				"Sentence recorded for <@%s> until <t:%d:R>, but the role could not be applied yet: %v",
				targetUser.ID, record.ReleaseAt, err))
			return
		}
	}

	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf(
		"<@%s> has been sentenced. Release <t:%d:R> (total %s).",
		targetUser.ID, record.ReleaseAt, (time.Duration(record.DurationSecs)*time.Second).String()))
	utils.SendPrivateMessage(s, targetUser.ID, fmt.Sprintf(
		"You have been sentenced in %s. Your release is <t:%d:R>.", i.GuildID, record.ReleaseAt))
	utils.LogInfo(s, cfg.LogChannelID, "Sentencing", "Sentence",
		fmt.Sprintf("<@%s> sentenced <@%s> until <t:%d:f>", i.Member.User.ID, targetUser.ID, record.ReleaseAt))
}

// HandleReleaseCommand ends a user's sentence early.
func HandleReleaseCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	cfg := b.GetConfig()
	serverCfg, ok := cfg.ServerConfigs[i.GuildID]
	if !ok {
		utils.SendFollowUpError(s, i.Interaction, "This server has no moderation configuration.")
		return
	}
	if !utils.IsModerator(i.Member.Roles, i.Member.User.ID, serverCfg, cfg.DeveloperUserIDs) {
		utils.SendFollowUpError(s, i.Interaction, "You do not have permission to use this command.")
		return
	}

	options := parseOptions(i)
	targetUser := options.user(s, i, "user")
	if targetUser == nil {
		utils.SendFollowUpError(s, i.Interaction, "Could not resolve the target user.")
		return
	}

	record, err := sentences.GetActiveSentence(b.DB, i.GuildID, targetUser.ID)
	if errors.Is(err, model.ErrNotFound) {
		utils.SendFollowUpError(s, i.Interaction, "This user is not currently sentenced.")
		return
	}
	if err != nil {
		log.Printf("Error looking up sentence: %v", err)
		utils.SendFollowUpError(s, i.Interaction, "Failed to look up the sentence.")
		return
	}

	if err := b.Engine.Release(record.SentenceID); err != nil {
		if errors.Is(err, model.ErrAlreadyReleasing) {
			utils.SendFollowUpError(s, i.Interaction, "This sentence is already being released.")
			return
		}
		log.Printf("Error releasing sentence %d: %v", record.SentenceID, err)
		utils.SendFollowUpError(s, i.Interaction, "Failed to release the sentence, it will be retried automatically.")
		return
	}

	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("<@%s> has been released.", targetUser.ID))
	utils.LogInfo(s, cfg.LogChannelID, "Sentencing", "Release",
		fmt.Sprintf("<@%s> released <@%s>", i.Member.User.ID, targetUser.ID))
}

// HandleSentencesCommand lists the users currently serving a sentence.
func HandleSentencesCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	records, err := sentences.GetActiveSentencesByGuild(b.DB, i.GuildID)
	if err != nil {
		log.Printf("Error listing sentences: %v", err)
		utils.SendErrorResponse(s, i, "Failed to list active sentences.")
		return
	}
	if len(records) == 0 {
		utils.SendSimpleResponse(s, i, "Nobody is currently serving a sentence.")
		return
	}

	var builder strings.Builder
	for _, record := range records {
		builder.WriteString(fmt.Sprintf("<@%s> — release <t:%d:R>", record.UserID, record.ReleaseAt))
		if record.Remoderated {
			builder.WriteString(" (re-applied after rejoin)")
		}
		builder.WriteString("\n")
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Active Sentences",
		Description: builder.String(),
		Color:       0x5865F2,
	}
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("Error sending sentences list: %v", err)
	}
}

func replySentencingError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidDuration):
		utils.SendFollowUpError(s, i.Interaction, "Sentence duration must not be negative.")
	default:
		log.Printf("Sentencing failed: %v", err)
		utils.SendFollowUpError(s, i.Interaction, "Failed to record the sentence.")
	}
}
