package handlers

import (
	"warden/bot"
	"warden/handlers/moderation"

	"github.com/bwmarrin/discordgo"
)

func Register(b *bot.Bot) {
	b.CommandHandlers = commandHandlers(b)
	addHandlers(b)
}

func commandHandlers(b *bot.Bot) map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"sentence": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			moderation.HandleSentenceCommand(s, i, b)
		},
		"release": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			moderation.HandleReleaseCommand(s, i, b)
		},
		"sentences": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			moderation.HandleSentencesCommand(s, i, b)
		},
		"votesentence": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			moderation.HandleVoteSentenceCommand(s, i, b)
		},
		"status": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			SystemInfoHandler(s, i, b)
		},
	}
}

func addHandlers(b *bot.Bot) {
	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		handleInteractionCreate(s, i, b)
	})
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
		moderation.HandleReactionAdd(s, r, b)
	})
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
		moderation.HandleReactionRemove(s, r, b)
	})
	b.Session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		moderation.HandleMemberRejoin(s, m, b)
	})
}

func handleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		if h, ok := b.CommandHandlers[i.ApplicationCommandData().Name]; ok {
			h(s, i)
		}
	}
}
