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

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	blueskyadapter "github.com/evanrhall/driftnote/internal/adapter/driven/bluesky"
	mastodonadapter "github.com/evanrhall/driftnote/internal/adapter/driven/mastodon"
	sqliteadapter "github.com/evanrhall/driftnote/internal/adapter/driven/sqlite"
	statuscafeadapter "github.com/evanrhall/driftnote/internal/adapter/driven/statuscafe"
	httphandler "github.com/evanrhall/driftnote/internal/adapter/driving/http"
	"github.com/evanrhall/driftnote/internal/application"
	"github.com/evanrhall/driftnote/internal/config"
	"github.com/evanrhall/driftnote/internal/domain/model"
	"github.com/evanrhall/driftnote/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"feed_window", cfg.FeedWindow,
		"retention_interval", cfg.RetentionInterval,
		"crosspost_workers", cfg.CrosspostWorkers,
		"credential_storage", cfg.HasSecretKey(),
	)
	if !cfg.HasSecretKey() {
		slog.Warn("DRIFTNOTE_SECRET_KEY not set, storing network credentials is disabled")
	}

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire storage adapters.
	encryptionKey := sqliteadapter.DeriveKey(cfg.SecretKey)
	noteStore := sqliteadapter.NewNoteRepo(db)
	engagementStore := sqliteadapter.NewEngagementRepo(db)
	crosspostStore := sqliteadapter.NewCrosspostRepo(db)
	profileStore := sqliteadapter.NewProfileRepo(db, encryptionKey)
	userStore := sqliteadapter.NewUserRepo(db)
	sessionStore := sqliteadapter.NewSessionRepo(db)
	draftStore := sqliteadapter.NewDraftRepo(db)

	// 6. Wire network adapters, in delivery order.
	mastodonClient := mastodonadapter.NewClient(cfg.CrosspostTimeout, slog.Default())
	blueskyClient := blueskyadapter.NewClient("", cfg.CrosspostTimeout, slog.Default())
	statusCafeClient := statuscafeadapter.NewClient(cfg.StatusCafeBaseURL, cfg.CrosspostTimeout, slog.Default())
	networks := []driven.SocialNetwork{mastodonClient, blueskyClient, statusCafeClient}

	// 7. Create the cross-post pipeline and start its workers.
	crosspostSvc := application.NewCrosspostService(networks, crosspostStore, profileStore)
	dispatcher := application.NewDispatcher(crosspostSvc, cfg.CrosspostWorkers, 0)
	go dispatcher.Start(ctx)

	// 7b. Create and start the retention sweeper.
	retentionSvc := application.NewRetentionService(noteStore, cfg.FeedWindow, cfg.RetentionInterval)
	go retentionSvc.Start(ctx)

	// 7c. Create the remaining services.
	noteSvc := application.NewNoteService(noteStore, engagementStore, crosspostStore, profileStore, dispatcher, cfg.FeedWindow)
	accountSvc := application.NewAccountService(userStore, profileStore)

	// 8. Create the HTTP handler and server.
	verifiers := map[model.Network]driven.CredentialVerifier{
		model.NetworkMastodon: mastodonClient,
		model.NetworkBluesky:  blueskyClient,
	}
	apiHandler := httphandler.NewHandler(noteSvc, accountSvc, profileStore, sessionStore, draftStore, verifiers, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// 9. Log startup complete.
	slog.Info("driftnote started", "listen_addr", cfg.ListenAddr, "feed_window", cfg.FeedWindow)

	// 10. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 11. Graceful shutdown with 10s timeout for HTTP server drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	// 12. Log shutdown complete.
	slog.Info("shutdown complete")
	return nil
}
