package moderation

import (
	"github.com/bwmarrin/discordgo"
)

type commandOptions map[string]*discordgo.ApplicationCommandInteractionDataOption

func parseOptions(i *discordgo.InteractionCreate) commandOptions {
	options := make(commandOptions)
	for _, opt := range i.ApplicationCommandData().Options {
		options[opt.Name] = opt
	}
	return options
}

func (o commandOptions) user(s *discordgo.Session, i *discordgo.InteractionCreate, name string) *discordgo.User {
	opt, ok := o[name]
	if !ok {
		return nil
	}
	return opt.UserValue(s)
}

func (o commandOptions) str(name string) (string, bool) {
	opt, ok := o[name]
	if !ok {
		return "", false
	}
	return opt.StringValue(), true
}
