package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	server "github.com/louisbranch/quizroom/internal/app"
	"github.com/louisbranch/quizroom/internal/platform/otel"
)

func main() {
	cfg, err := server.ParseConfig()
	if err != nil {
		log.Fatalf("parse config: %v", err)
	}
	flag.IntVar(&cfg.HTTPPort, "http-port", cfg.HTTPPort, "The http/websocket listen port")
	flag.IntVar(&cfg.GRPCPort, "grpc-port", cfg.GRPCPort, "The grpc listen port")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "The sqlite database path")
	flag.Parse()

	log.SetPrefix("[QUIZROOM] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := otel.Setup(ctx, "quizroom")
	if err != nil {
		log.Fatalf("setup telemetry: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("shutdown telemetry: %v", err)
		}
	}()

	if err := server.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
