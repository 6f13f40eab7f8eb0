package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"wood-empire/session"
	"wood-empire/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := loadConfig(".env")
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	shutdownTracing, err := setupTracing(ctx, cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("error flushing traces", "error", err)
		}
	}()

	repo, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer repo.Close()

	hub := newHub(logger)
	listeners := []session.Listener{hub}
	if cfg.NATSURL != "" {
		events, err := connectEvents(cfg.NATSURL, logger)
		if err != nil {
			return err
		}
		defer events.Close()
		listeners = append(listeners, events)
	}

	sessions := session.NewManager(session.ManagerConfig{
		Saves:     storage.NewSaves(repo, logger),
		Scheduler: session.NewScheduler(hub),
		Listeners: listeners,
		IdleTTL:   cfg.SessionIdleTTL,
		Logger:    logger,
	})

	httpServer := &http.Server{
		Addr: cfg.Addr,
		Handler: newMux(&server{
			sessions:   sessions,
			tmpl:       parseTemplates(),
			hub:        hub,
			adminToken: cfg.AdminToken,
			logger:     logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sessions.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Addr, "storage", cfg.Storage.Dialect)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		hub.Close()
		return err
	})

	return g.Wait()
}
