package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alimasry/lumina/assistant"
	"github.com/alimasry/lumina/config"
	"github.com/alimasry/lumina/i18n"
	"github.com/alimasry/lumina/ot"
	"github.com/alimasry/lumina/server"
	"github.com/alimasry/lumina/store"
	"github.com/alimasry/lumina/workspace"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func assistantConfig(c config.AssistantConfig) assistant.Config {
	return assistant.Config{
		DraftModel:          c.DraftModel,
		ActionModel:         c.ActionModel,
		SuggestionModel:     c.SuggestionModel,
		Timeout:             c.RequestTimeout,
		MinSuggestionLength: c.MinSuggestionLength,
	}
}

// openStore builds the configured document store. Persistent backends are
// fronted by a write-behind cache; the returned func flushes and closes it.
func openStore(ctx context.Context, c config.StoreConfig) (store.DocumentStore, func(), error) {
	var (
		backing store.DocumentStore
		release func()
	)
	switch c.Backend {
	case config.BackendSQLite:
		sq, err := store.OpenSQLite(ctx, c.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		backing, release = sq, func() { sq.Close() }
	case config.BackendFirestore:
		client, err := firestore.NewClient(ctx, c.FirestoreProject)
		if err != nil {
			return nil, nil, fmt.Errorf("firestore client: %w", err)
		}
		backing = store.NewFirestoreStore(client, c.FirestoreCollection)
		release = func() { client.Close() }
	default:
		return store.NewMemoryStore(), func() {}, nil
	}

	cached := store.NewCachedStore(backing, c.FlushInterval, logger.Named("store"))
	logger.Info("document store ready", zap.String("backend", c.Backend), zap.Duration("flush", c.FlushInterval))
	return cached, func() {
		cached.Close()
		release()
	}, nil
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	asst, err := assistant.NewGemini(ctx, cfg.Assistant.APIKey, assistantConfig(cfg.Assistant), logger)
	if err != nil {
		return err
	}

	var ws *workspace.Workspace
	hub := server.NewHub(st, &ot.JupiterEngine{}, asst, server.Options{
		SuggestionDelay: cfg.Assistant.SuggestionDelay,
		Language:        func() i18n.Language { return ws.Language() },
	}, logger)
	ws, err = workspace.New(ctx, st, hub, asst, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: server.NewHandler(hub, ws, server.HandlerOptions{
			StaticDir:   cfg.StaticDir,
			CORSOrigins: cfg.CORSOrigins,
		}, logger),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", cfg.Addr), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
