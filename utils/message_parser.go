package utils

import (
	"fmt"
	"regexp"

	"github.com/bwmarrin/discordgo"
)

var messageLinkPattern = regexp.MustCompile(`https://discord.com/channels/(\d+)/(\d+)/(\d+)`)

// ParseMessageLink resolves a Discord message link to the message it points
// at, together with its guild and channel IDs.
func ParseMessageLink(s *discordgo.Session, link string) (guildID, channelID string, msg *discordgo.Message, err error) {
	match := messageLinkPattern.FindStringSubmatch(link)
	if len(match) != 4 {
		return "", "", nil, fmt.Errorf("not a valid message link: %s", link)
	}
	guildID, channelID, messageID := match[1], match[2], match[3]

	msg, err = s.ChannelMessage(channelID, messageID)
	if err != nil {
		return "", "", nil, fmt.Errorf("error fetching message %s: %w", link, err)
	}
	return guildID, channelID, msg, nil
}
