package main

import (
	"log"
	"os"
	"path/filepath"

	"warden/bot"
	"warden/config"
	"warden/handlers"
	"warden/utils"
	"warden/utils/database/sentences"
	"warden/utils/database/votes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), os.ModePerm); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	db, err := utils.OpenDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	if err := sentences.Init(db); err != nil {
		log.Fatalf("Error creating sentencing tables: %v", err)
	}
	if err := votes.Init(db); err != nil {
		log.Fatalf("Error creating voting tables: %v", err)
	}

	b, err := bot.New(cfg, db)
	if err != nil {
		log.Fatalf("Error creating bot: %v", err)
	}

	handlers.Register(b)
	defer b.Close()

	b.Run()
}
