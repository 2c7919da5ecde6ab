// Package main provides a CLI for seeding the local development database
// with demo games and quiz content.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/louisbranch/quizroom/internal/platform/config"
	"github.com/louisbranch/quizroom/internal/tools/seed"
)

func main() {
	cfg := seed.DefaultConfig()
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite database path")
	flag.IntVar(&cfg.Games, "games", cfg.Games, "number of games to create")
	flag.IntVar(&cfg.Questions, "questions", cfg.Questions, "questions per game")
	flag.StringVar(&cfg.Owner, "owner", cfg.Owner, "owner user id for the seeded games")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "verbose output")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := seed.Run(ctx, os.Stdout, cfg); err != nil {
		config.Exitf("seed database: %v", err)
	}
}
