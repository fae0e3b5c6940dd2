package commands

import (
	"warden/commands/defs"

	"github.com/bwmarrin/discordgo"
)

func GenerateCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		defs.Sentence,
		defs.Release,
		defs.Sentences,
		defs.VoteSentence,
		defs.Status,
	}
}
