package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"example.com/sttpipeline/internal/app"
	"example.com/sttpipeline/internal/config"
	"example.com/sttpipeline/internal/worker"
)

// The worker always exits 0; outcomes are reported through the step log.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("config: %v", err)
		return
	}
	a, err := app.New(cfg)
	if err != nil {
		log.Printf("app: %v", err)
		return
	}
	runner, err := a.Runner()
	if err != nil {
		log.Printf("worker: %v", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	_ = runner.Run(ctx, worker.JobArgs(os.Args[1:], cfg.Entrypoint))
}

