package moderation

import (
	"errors"
	"fmt"
	"log"

	"warden/bot"
	"warden/model"
	"warden/utils"

	"github.com/bwmarrin/discordgo"
)

// HandleVoteSentenceCommand opens a timed reaction vote on sentencing the
// author of the linked message. The requester takes the sentence themselves
// if the community votes the challenge down.
func HandleVoteSentenceCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
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

	options := parseOptions(i)
	link, _ := options.str("message_link")
	guildID, channelID, msg, err := utils.ParseMessageLink(s, link)
	if err != nil {
		utils.SendFollowUpError(s, i.Interaction, "Could not resolve the message link.")
		return
	}
	if guildID != i.GuildID {
		utils.SendFollowUpError(s, i.Interaction, "The message must belong to this server.")
		return
	}
	if msg.Author.ID == i.Member.User.ID {
		utils.SendFollowUpError(s, i.Interaction, "You cannot open a vote on your own message.")
		return
	}

	request, err := b.Requests.OpenVote(i.Member.User.ID, msg.Author.ID, guildID, serverCfg.SentenceRoleID, msg.ID, channelID)
	if errors.Is(err, model.ErrRateLimited) {
		utils.SendFollowUpError(s, i.Interaction, "You have opened too many votes in the last hour.")
		return
	}
	if err != nil {
		log.Printf("Error opening vote request: %v", err)
		utils.SendFollowUpError(s, i.Interaction, "Failed to open the vote.")
		return
	}

	window := cfg.Moderation.VoteWindow
	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf(
		"Vote opened against <@%s>. React %s or %s on the message; it resolves in %s.",
		request.UserID, cfg.Moderation.YesReactionEmoji, cfg.Moderation.NoReactionEmoji, window.String()))
	utils.LogInfo(s, cfg.LogChannelID, "Votes", "OpenVote",
		fmt.Sprintf("<@%s> opened a vote against <@%s> on message %s", request.RequesterID, request.UserID, request.MessageID))
}

// HandleReactionAdd counts a sentencing vote when a user reacts with the
// vote emoji on a message.
func HandleReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd, b *bot.Bot) {
	cfg := b.GetConfig()
	if r.Emoji.Name != cfg.Moderation.VoteReactionEmoji {
		return
	}
	if r.UserID == s.State.User.ID {
		return
	}

	msg, err := s.ChannelMessage(r.ChannelID, r.MessageID)
	if err != nil {
		log.Printf("Failed to fetch message %s for vote: %v", r.MessageID, err)
		return
	}
	if msg.Author.ID == r.UserID || msg.Author.Bot {
		return
	}

	tally, err := b.Aggregator.AddVote(r.MessageID, r.GuildID, r.ChannelID, msg.Author.ID, r.UserID)
	if errors.Is(err, model.ErrAlreadyVoted) {
		return
	}
	if err != nil {
		log.Printf("Failed to add vote on message %s: %v", r.MessageID, err)
		return
	}
	log.Printf("Vote added on message %s, tally now %d", tally.MessageID, tally.CurrentTally)
}

// HandleReactionRemove withdraws a sentencing vote.
func HandleReactionRemove(s *discordgo.Session, r *discordgo.MessageReactionRemove, b *bot.Bot) {
	cfg := b.GetConfig()
	if r.Emoji.Name != cfg.Moderation.VoteReactionEmoji {
		return
	}
	if r.UserID == s.State.User.ID {
		return
	}

	_, err := b.Aggregator.RemoveVote(r.MessageID, r.UserID)
	if errors.Is(err, model.ErrNoSuchVote) || errors.Is(err, model.ErrNotFound) {
		return
	}
	if err != nil {
		log.Printf("Failed to remove vote on message %s: %v", r.MessageID, err)
	}
}

// HandleMemberRejoin re-applies the enforcement role to sentenced users who
// leave and rejoin to evade their sentence.
func HandleMemberRejoin(s *discordgo.Session, m *discordgo.GuildMemberAdd, b *bot.Bot) {
	if err := b.Engine.OnMemberRejoin(m.GuildID, m.User.ID); err != nil {
		log.Printf("Failed to re-apply sentence for rejoining user %s: %v", m.User.ID, err)
		utils.LogWarn(s, b.GetConfig().LogChannelID, "Sentencing", "Rejoin",
			fmt.Sprintf("Could not re-apply sentence for <@%s> in guild %s", m.User.ID, m.GuildID))
	}
}
