package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/subtrans/internal/api"
	"github.com/dgallion1/subtrans/internal/config"
	"github.com/dgallion1/subtrans/internal/language"
	"github.com/dgallion1/subtrans/internal/pipeline"
	"github.com/dgallion1/subtrans/internal/store"
	"github.com/dgallion1/subtrans/internal/translate"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	languages := language.DefaultRegistry()
	if cfg.LanguageProfiles != "" {
		if err := languages.LoadFile(cfg.LanguageProfiles); err != nil {
			log.Error("failed to load language profiles", "path", cfg.LanguageProfiles, "error", err)
			os.Exit(1)
		}
	}

	db, err := store.Open(cfg.GlossaryDBPath)
	if err != nil {
		log.Error("failed to open glossary store", "path", cfg.GlossaryDBPath, "error", err)
		os.Exit(1)
	}

	// Initialize pipeline.
	stats := translate.NewLatencyStats(time.Hour)
	runner := pipeline.NewRunner(languages, db, translate.BackendConfig{
		DeepLAPIKey:     cfg.DeepLAPIKey,
		DeepLAPIURL:     cfg.DeepLAPIURL,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		AnthropicModel:  cfg.AnthropicModel,
		Stats:           stats,
	}, cfg.MaxConcurrentBatches, log)
	orch := pipeline.NewOrchestrator(cfg, runner, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, languages, db, stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		db.Close()
	}()

	log.Info("starting subtrans", "port", cfg.Port, "engine", cfg.DefaultEngine, "languages", languages.Codes())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
