package model

import "time"

// ServerConfig 定义了每个服务器的配置
type ServerConfig struct {
	Name             string   `mapstructure:"name"`
	GuildID          string   `mapstructure:"guild_id"`
	Enable           bool     `mapstructure:"enable"`
	AdminRoleIDs     []string `mapstructure:"admin_role_ids"`
	SentenceRoleID   string   `mapstructure:"sentence_role_id"`
	NoticeChannelID  string   `mapstructure:"notice_channel_id"`
	StatsChannelID   string   `mapstructure:"stats_channel_id"`
	WhitelistRoleIDs []string `mapstructure:"whitelist_role_ids"`
}

// ModerationConfig holds the sentencing and voting tunables read from config.yaml.
type ModerationConfig struct {
	VoteThreshold     int64         `mapstructure:"vote_threshold"`
	BaseDuration      time.Duration `mapstructure:"base_duration"`
	MaxDuration       time.Duration `mapstructure:"max_duration"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	VoteWindow        time.Duration `mapstructure:"vote_window"`
	HourlyRequestCap  int64         `mapstructure:"hourly_request_cap"`
	ClaimStaleness    time.Duration `mapstructure:"claim_staleness"`
	YesReactionEmoji  string        `mapstructure:"yes_reaction_emoji"`
	NoReactionEmoji   string        `mapstructure:"no_reaction_emoji"`
	VoteReactionEmoji string        `mapstructure:"vote_reaction_emoji"`
}

// Config 存储应用程序的配置
type Config struct {
	BotToken         string
	AppID            string
	LogChannelID     string
	DatabasePath     string
	DeveloperUserIDs []string
	Moderation       ModerationConfig
	ServerConfigs    map[string]ServerConfig
}
