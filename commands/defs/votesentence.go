package defs

import "github.com/bwmarrin/discordgo"

var VoteSentence = &discordgo.ApplicationCommand{
	Name:        "votesentence",
	Description: "Open a community vote on sentencing the author of a message",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "message_link",
			Description: "Link to the offending message",
			Required:    true,
		},
	},
}

var Status = &discordgo.ApplicationCommand{
	Name:        "status",
	Description: "Show bot and system status",
}
