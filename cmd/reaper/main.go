package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sectify/sectify/internal/config"
	"github.com/sectify/sectify/internal/domain/reaper"
	"github.com/sectify/sectify/internal/logging"
)

// Exit codes from spec.md §6: 0 normal stop, 2 invalid configuration, 130
// cancelled.
const (
	exitOK         = 0
	exitBadConfig  = 2
	exitCancelled  = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sectify-reaper: %v\n", err)
		return exitBadConfig
	}

	log := logging.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := reaper.New(reaper.Config{
		Root:     cfg.HLSRoot,
		Interval: time.Duration(cfg.ReaperIntervalS) * time.Second,
		Age:      time.Duration(cfg.ReaperAgeS) * time.Second,
	}, log)

	err = r.Run(ctx)
	switch {
	case err == nil:
		return exitOK
	case ctx.Err() != nil:
		log.Info().Msg("reaper cancelled")
		return exitCancelled
	default:
		log.Error().Err(err).Msg("reaper stopped with error")
		return exitBadConfig
	}
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
