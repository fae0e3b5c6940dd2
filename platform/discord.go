package platform

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Discord implements Platform against a live discordgo session.
type Discord struct {
	Session *discordgo.Session
}

func NewDiscord(s *discordgo.Session) *Discord {
	return &Discord{Session: s}
}

func (d *Discord) AssignRole(guildID, userID, roleID string) error {
	return d.Session.GuildMemberRoleAdd(guildID, userID, roleID)
}

func (d *Discord) RemoveRole(guildID, userID, roleID string) error {
	return d.Session.GuildMemberRoleRemove(guildID, userID, roleID)
}

func (d *Discord) SendMessage(channelID, content string) error {
	_, err := d.Session.ChannelMessageSend(channelID, content)
	return err
}

func (d *Discord) AddReaction(channelID, messageID, emoji string) error {
	return d.Session.MessageReactionAdd(channelID, messageID, emoji)
}

func (d *Discord) GetReactionCounts(channelID, messageID string) (map[string]int, error) {
	msg, err := d.Session.ChannelMessage(channelID, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message %s in channel %s: %w", messageID, channelID, err)
	}
	counts := make(map[string]int, len(msg.Reactions))
	for _, reaction := range msg.Reactions {
		counts[reaction.Emoji.Name] = reaction.Count
	}
	return counts, nil
}

func (d *Discord) ResolveMember(guildID, userID string) (*discordgo.Member, error) {
	return d.Session.GuildMember(guildID, userID)
}
