package bot

import (
	"log"
	"sync"
	"time"

	"warden/scanner"
	"warden/tasks"

	"github.com/robfig/cron/v3"
)

// Scheduler manages the background workers and scheduled tasks.
type Scheduler struct {
	bot  *Bot
	done chan struct{}
	wg   sync.WaitGroup
	cron *cron.Cron
}

// NewScheduler creates a new scheduler.
func NewScheduler(bot *Bot) *Scheduler {
	return &Scheduler{
		bot:  bot,
		done: make(chan struct{}),
		cron: cron.New(),
	}
}

// Start launches the expiry scanner and the vote job processor as long-lived
// loops, plus the weekly sentencing stats report on a cron schedule.
func (s *Scheduler) Start() {
	cfg := s.bot.GetConfig()
	db := s.bot.GetDB()

	expiry := scanner.NewExpiryScanner(db, s.bot.Platform, s.bot.Clock, cfg)
	jobs := scanner.NewVoteJobProcessor(db, s.bot.Platform, s.bot.Engine, s.bot.Clock, cfg)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		expiry.Start(s.done)
	}()
	go func() {
		defer s.wg.Done()
		jobs.Start(s.done)
	}()

	// Monday 09:00 weekly report.
	if _, err := s.cron.AddFunc("0 9 * * 1", s.updateSentencingStats); err != nil {
		log.Printf("Failed to schedule sentencing stats task: %v", err)
	}
	s.cron.Start()
}

// Stop terminates all scheduled tasks gracefully, draining in-flight ticks.
func (s *Scheduler) Stop() {
	log.Println("Stopping scheduler...")
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.cron.Stop()
	s.wg.Wait()
	log.Println("Scheduler stopped.")
}

func (s *Scheduler) updateSentencingStats() {
	cfg := s.bot.GetConfig()
	for _, serverCfg := range cfg.ServerConfigs {
		if !serverCfg.Enable || serverCfg.StatsChannelID == "" {
			continue
		}
		go tasks.UpdateSentencingStats(s.bot.GetSession(), s.bot.GetDB(), serverCfg, 7*24*time.Hour)
	}
}
