package tasks

import (
	"fmt"
	"log"
	"strings"
	"time"

	"warden/model"
	"warden/utils/database/sentences"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
)

func GenerateSentencingStatsEmbed(db *sqlx.DB, guildID string, duration time.Duration) (*discordgo.MessageEmbed, error) {
	since := time.Now().Add(-duration)
	total, err := sentences.GetSentenceStats(db, guildID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get sentence count for guild %s: %v", guildID, err)
	}

	offenders, err := sentences.GetTopOffenders(db, guildID, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to get top offenders for guild %s: %v", guildID, err)
	}

	active, err := sentences.GetActiveSentencesByGuild(db, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active sentences for guild %s: %v", guildID, err)
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("### Sentencing over the past %s\n", duration.String()))
	builder.WriteString(fmt.Sprintf("**New sentences: %d**\n", total))
	builder.WriteString(fmt.Sprintf("**Currently serving: %d**\n\n", len(active)))
	builder.WriteString("**Repeat offenders:**\n")

	for i, offender := range offenders {
		builder.WriteString(fmt.Sprintf("%d. <@%s>: %d\n", i+1, offender.UserID, offender.UsageCount))
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Sentencing Report",
		Description: builder.String(),
		Timestamp:   time.Now().Format(time.RFC3339),
		Color:       0x00ff00,
	}
	return embed, nil
}

func UpdateSentencingStats(s *discordgo.Session, db *sqlx.DB, serverCfg model.ServerConfig, duration time.Duration) {
	embed, err := GenerateSentencingStatsEmbed(db, serverCfg.GuildID, duration)
	if err != nil {
		log.Printf("Failed to generate sentencing stats embed: %v", err)
		return
	}

	if _, err := s.ChannelMessageSendEmbed(serverCfg.StatsChannelID, embed); err != nil {
		log.Printf("Failed to send sentencing stats to channel %s: %v", serverCfg.StatsChannelID, err)
	}
}
