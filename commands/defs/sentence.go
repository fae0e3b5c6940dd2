package defs

import "github.com/bwmarrin/discordgo"

var Sentence = &discordgo.ApplicationCommand{
	Name:        "sentence",
	Description: "Sentence a user to the enforcement role for a duration",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "The user to sentence",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "duration",
			Description: "Sentence duration, e.g. 30m, 2h, 7d. Omit for escalated duration",
			Required:    false,
		},
	},
}

var Release = &discordgo.ApplicationCommand{
	Name:        "release",
	Description: "Release a sentenced user early",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "The user to release",
			Required:    true,
		},
	},
}

var Sentences = &discordgo.ApplicationCommand{
	Name:        "sentences",
	Description: "List users currently serving a sentence",
}
