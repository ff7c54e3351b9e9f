package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudtardis/dads-english-app/internal/assist"
	"github.com/cloudtardis/dads-english-app/internal/config"
	"github.com/cloudtardis/dads-english-app/internal/session"
	"github.com/cloudtardis/dads-english-app/internal/sm2"
	"github.com/cloudtardis/dads-english-app/internal/storage"
	"github.com/cloudtardis/dads-english-app/internal/sync"
	"github.com/cloudtardis/dads-english-app/internal/web"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		log.Error("Failed to parse flags", "error", err)
		os.Exit(2)
	}
	cfg, err := config.Load(flags)
	if err != nil {
		log.Error("Failed to load configuration", "error", err)
		os.Exit(2)
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Error("Failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("Database opened", "path", cfg.DBPath)

	schedCfg, err := cfg.Scheduler.SM2()
	if err != nil {
		log.Error("Invalid scheduler settings", "error", err)
		os.Exit(2)
	}
	sched, err := sm2.New(schedCfg)
	if err != nil {
		log.Error("Invalid scheduler settings", "error", err)
		os.Exit(2)
	}
	log.Info("Scheduler ready", "model", sched.Model().String())

	sess := session.New(db, sched, time.Now, log)
	defer sess.Close()
	sess.Load(context.Background())
	log.Info("Session loaded", "cards", sess.Len())

	var gen assist.Generator
	switch {
	case cfg.Offline:
		log.Info("AI assist disabled (offline mode)")
	case cfg.OpenAI.APIKey == "":
		log.Warn("No OpenAI API key configured, AI assist disabled")
	default:
		gen = assist.NewOpenAI(assist.OpenAIConfig{
			APIKey:         cfg.OpenAI.APIKey,
			BaseURL:        cfg.OpenAI.BaseURL,
			ChatModel:      cfg.OpenAI.ChatModel,
			TTSModel:       cfg.OpenAI.TTSModel,
			Voice:          cfg.OpenAI.Voice,
			TargetLanguage: cfg.OpenAI.TargetLanguage,
			Timeout:        time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second,
		})
	}

	// Pick up deck changes from before this session.
	if err := sync.Run(context.Background(), db, sess, cfg.ReposDir, time.Now()); err != nil {
		log.Warn("Initial deck sync failed", "error", err)
	}

	server := web.NewServer(sess, db, gen, cfg.ReposDir, time.Now, log)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server,
	}

	go func() {
		log.Info("Listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("Shutdown was not clean", "error", err)
	}
}
