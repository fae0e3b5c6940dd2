package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"warden/model"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load loads the configuration from environment variables and config.yaml.
// Environment variables override same-named settings from the file.
func Load() (*model.Config, error) {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Info: .env file not found, relying on environment variables")
	}

	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		log.Fatal("Error: BOT_TOKEN environment variable not set")
	}

	appID := os.Getenv("APP_ID")
	if appID == "" {
		log.Fatal("Error: APP_ID environment variable not set")
	}

	logChannelID := os.Getenv("LOG_CHANNEL_ID")
	if logChannelID == "" {
		log.Println("Warning: LOG_CHANNEL_ID not set, channel logging will be disabled")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "data/warden.db"
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setModerationDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Info: config.yaml not found, using built-in moderation defaults")
		} else {
			return nil, fmt.Errorf("failed to parse config.yaml: %w", err)
		}
	}

	cfg := &model.Config{
		BotToken:         token,
		AppID:            appID,
		LogChannelID:     logChannelID,
		DatabasePath:     dbPath,
		DeveloperUserIDs: strings.Split(os.Getenv("DEVELOPER_USER_IDS"), ","),
		ServerConfigs:    make(map[string]model.ServerConfig),
	}

	if err := v.UnmarshalKey("moderation", &cfg.Moderation); err != nil {
		return nil, fmt.Errorf("failed to decode moderation config: %w", err)
	}

	var servers []model.ServerConfig
	if err := v.UnmarshalKey("servers", &servers); err != nil {
		return nil, fmt.Errorf("failed to decode server configs: %w", err)
	}
	for _, server := range servers {
		cfg.ServerConfigs[server.GuildID] = server
	}

	return cfg, nil
}

func setModerationDefaults(v *viper.Viper) {
	v.SetDefault("moderation.vote_threshold", 5)
	v.SetDefault("moderation.base_duration", 5*time.Minute)
	v.SetDefault("moderation.max_duration", 30*24*time.Hour)
	v.SetDefault("moderation.poll_interval", time.Second)
	v.SetDefault("moderation.vote_window", 10*time.Minute)
	v.SetDefault("moderation.hourly_request_cap", 300)
	v.SetDefault("moderation.claim_staleness", 2*time.Minute)
	v.SetDefault("moderation.yes_reaction_emoji", "✅")
	v.SetDefault("moderation.no_reaction_emoji", "❌")
	v.SetDefault("moderation.vote_reaction_emoji", "⚖️")
}
