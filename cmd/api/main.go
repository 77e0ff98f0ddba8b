package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"civicdiff/internal/llm"
	"civicdiff/internal/packs"
	"civicdiff/internal/pipeline"
	"civicdiff/internal/ratelimit"
	"civicdiff/internal/server"
)

func main() {
	port := flag.String("port", ":8080", "server port")
	packRoot := flag.String("packs", "./packs", "pack storage root")
	flag.Parse()

	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := os.MkdirAll(*packRoot, 0o755); err != nil {
		log.Fatal("create pack root", zap.Error(err))
	}
	repo, err := packs.NewRepository(*packRoot)
	if err != nil {
		log.Fatal("open pack repository", zap.Error(err))
	}

	cfg := llm.ConfigFromEnv()
	ledger := llm.NewLedger()

	var client llm.Client = &llm.Fake{}
	if cfg.HasKey() {
		gemini, err := llm.NewGemini(context.Background(), cfg, log)
		if err != nil {
			log.Fatal("build provider client", zap.Error(err))
		}
		client = gemini
	} else {
		log.Warn("GEMINI_API_KEY not set, live mode disabled")
	}
	client = llm.Chain(client, llm.Record(ledger), llm.DefaultRetry())
	defer func() { _ = client.Close() }()

	srv := server.New(*port, server.Deps{
		Repo: repo,
		Orchestrator: &pipeline.Orchestrator{
			Repo:  repo,
			Model: &pipeline.ModelClient{Client: client, Log: log},
			Log:   log,
		},
		Limiter: ratelimit.NewFromEnv(),
		Ledger:  ledger,
		Config:  cfg,
		Log:     log,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal("server failed", zap.Error(err))
		}
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("shutdown", zap.Error(err))
		}
	}
}
