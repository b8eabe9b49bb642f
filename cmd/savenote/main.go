package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/savenote/savenote/internal/api"
	"github.com/savenote/savenote/internal/classify"
	"github.com/savenote/savenote/internal/config"
	"github.com/savenote/savenote/internal/dedupe"
	"github.com/savenote/savenote/internal/log"
	"github.com/savenote/savenote/internal/metrics"
	"github.com/savenote/savenote/internal/pipeline"
	"github.com/savenote/savenote/internal/storage"
	"github.com/savenote/savenote/internal/transcribe"
	"github.com/savenote/savenote/internal/tui/watch"
	"github.com/savenote/savenote/internal/whatsapp"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "start":
		os.Exit(runStart(args))
	case "watch":
		os.Exit(runWatch(args))
	case "version":
		fmt.Printf("savenote version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`savenote - WhatsApp note ingestion and classification service

Usage:
  savenote <command> [flags]

Commands:
  start     Run the webhook service in the foreground
  watch     Live terminal view of classified items
  version   Show version information
  help      Show this help message

Use 'savenote <command> --help' for command-specific flags.
`)
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("savenote starting", "version", version, "config", *configPath, "environment", cfg.Service.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.Open(ctx, cfg.Storage, log.WithComponent("storage"))
	if err != nil {
		logger.Error("failed to open storage", "base_path", cfg.Storage.BasePath, "error", err)
		return 1
	}
	defer store.Close()
	logger.Info("storage opened", "base_path", cfg.Storage.BasePath)

	classifier, err := classify.New(cfg.Classification, log.WithComponent("classify"))
	if err != nil {
		logger.Error("failed to build classifier", "error", err)
		return 1
	}

	waClient := whatsapp.NewClient(cfg.WhatsApp, &http.Client{Timeout: 30 * time.Second}, log.WithComponent("whatsapp"))
	transcriber := transcribe.NewWhisper(cfg.Transcription, log.WithComponent("transcribe"))

	var deduper dedupe.Deduper = dedupe.Noop{}
	if cfg.Dedupe.Enabled {
		deduper = dedupe.NewRedis(cfg.Dedupe)
		logger.Info("duplicate suppression enabled", "addr", cfg.Dedupe.Addr)
	}

	m := metrics.New()

	proc := pipeline.New(pipeline.Config{
		Secret:     cfg.Webhook.Secret,
		Production: cfg.Service.Production(),
		AckMessage: cfg.Webhook.AckMessage,
	}, pipeline.Deps{
		Normalizer:  whatsapp.NewNormalizer(),
		Classifier:  classifier,
		Store:       store,
		Media:       waClient,
		Transcriber: transcriber,
		Deduper:     deduper,
		Notifier:    waClient,
		Metrics:     m,
		Logger:      log.WithComponent("pipeline"),
	})

	server := api.New(cfg.Webhook, proc, m, log.WithComponent("api"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("api: %w", err)
		}
	}()

	logger.Info("savenote running (press Ctrl+C to stop)", "listen", cfg.Webhook.Listen, "path", cfg.Webhook.Path)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		cancel()
		return 1
	}

	logger.Info("savenote stopped")
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	store, err := storage.Open(context.Background(), cfg.Storage, log.Get())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
		return 1
	}
	defer store.Close()

	if err := watch.Run(store.Index()); err != nil {
		fmt.Fprintf(os.Stderr, "Watch failed: %v\n", err)
		return 1
	}
	return 0
}
