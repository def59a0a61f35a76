package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pagescribe/internal/app"
	"pagescribe/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	cmd := os.Args[1]
	cfg, err := config.Load(os.Getenv("PS_CONFIG"))
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch cmd {
	case "serve":
		runServe(ctx, cfg)
	case "worker":
		runWorker(ctx, cfg)
	default:
		usage()
	}
}

func runServe(ctx context.Context, cfg config.Config) {
	appInstance, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("app init error: %v", err)
	}
	defer appInstance.Close()

	log.Printf("pagescribed serving on %s", cfg.HTTP.Addr)
	if err := appInstance.Serve(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runWorker(ctx context.Context, cfg config.Config) {
	if cfg.Redis.URL == "" {
		log.Fatalf("worker needs redis.url (or PS_REDIS_URL)")
	}
	appInstance, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("app init error: %v", err)
	}
	defer appInstance.Close()

	log.Printf("pagescribed worker draining %s", cfg.Redis.Queue)
	if err := appInstance.WorkerLoop(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("worker error: %v", err)
	}
}

func usage() {
	fmt.Println("Usage: pagescribed <serve|worker>")
}
